package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/internal/api"
)

func counter(n *int, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*n++
		return v, nil
	}
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	key := NewKey(Orders, 1, 10, "", "ALL")

	calls := 0
	v, err := Fetch(ctx, c, key, counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = Fetch(ctx, c, key, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, calls)

	c.Invalidate(Orders)
	c.Invalidate(Orders)
	assert.Equal(t, []Key{key}, c.Stale())

	v, err = Fetch(ctx, c, key, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)
	assert.Empty(t, c.Stale())
}

func TestInvalidateOnlyTouchesResource(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	n := 0
	_, _ = Fetch(ctx, c, NewKey(Orders), counter(&n, "x"))
	_, _ = Fetch(ctx, c, NewKey(Order("o1")), counter(&n, "x"))
	_, _ = Fetch(ctx, c, NewKey(Sheets), counter(&n, "x"))

	c.Invalidate(Order("o1"))
	c.Invalidate(OverallOrders)
	assert.Equal(t, []Key{{Resource: "order/o1"}}, c.Stale())
}

func TestFailedFetchKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	key := NewKey(OverallOrders)
	n := 0
	_, err := Fetch(ctx, c, key, counter(&n, "old"))
	require.NoError(t, err)
	c.Invalidate(OverallOrders)

	_, err = Fetch(ctx, c, key, func(context.Context) (string, error) { return "", errors.New("offline") })
	require.Error(t, err)

	v, ok := Peek[string](c, key)
	assert.True(t, ok)
	assert.Equal(t, "old", v)
	assert.Equal(t, []Key{key}, c.Stale())
}

func TestInvalidationDuringFetchLeavesEntryStale(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	key := NewKey(Orders)

	_, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		c.Invalidate(Orders)
		return "raced", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Key{key}, c.Stale())
}

func TestRefreshAndAgeing(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := NewKey(Sheets)
	n := 0
	_, _ = Fetch(ctx, c, key, counter(&n, "v"))
	assert.Empty(t, c.Stale())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, []Key{key}, c.Stale())

	require.NoError(t, c.Refresh(ctx, key))
	assert.Equal(t, 2, n)
	assert.Empty(t, c.Stale())
}

func TestOnInvalidateAndDrop(t *testing.T) {
	c := New(0)
	var got []string
	c.OnInvalidate(func(r string) { got = append(got, r) })
	c.Invalidate(AlertHistory)
	assert.Equal(t, []string{AlertHistory}, got)

	n := 0
	_, _ = Fetch(context.Background(), c, NewKey(Orders), counter(&n, "x"))
	c.Drop()
	_, ok := Peek[string](c, NewKey(Orders))
	assert.False(t, ok)
}

func TestForgetRemovesResource(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	var told []string
	c.OnInvalidate(func(r string) { told = append(told, r) })

	n := 0
	gone := NewKey(Order("o1"))
	kept := NewKey(Order("o2"))
	_, _ = Fetch(ctx, c, gone, counter(&n, "a"))
	_, _ = Fetch(ctx, c, kept, counter(&n, "b"))

	c.Forget(Order("o1"))

	_, ok := Peek[string](c, gone)
	assert.False(t, ok)
	assert.Empty(t, c.Stale())
	v, ok := Peek[string](c, kept)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, []string{Order("o1")}, told)
}

func TestRefreshDropsMissingKey(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	key := NewKey(Order("o1"))
	found := true
	_, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		if !found {
			return "", &api.Error{Status: 404, Message: "order not found"}
		}
		return "v", nil
	})
	require.NoError(t, err)

	found = false
	c.Invalidate(Order("o1"))
	require.Equal(t, []Key{key}, c.Stale())

	err = c.Refresh(ctx, key)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Empty(t, c.Stale())
	_, ok := Peek[string](c, key)
	assert.False(t, ok)
}

func TestRefreshKeepsKeyOnOtherErrors(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	key := NewKey(Sheets)
	fail := false
	_, _ = Fetch(ctx, c, key, func(context.Context) (string, error) {
		if fail {
			return "", errors.New("connection refused")
		}
		return "v", nil
	})

	fail = true
	c.Invalidate(Sheets)
	require.Error(t, c.Refresh(ctx, key))
	assert.Equal(t, []Key{key}, c.Stale())
	v, _ := Peek[string](c, key)
	assert.Equal(t, "v", v)
}
