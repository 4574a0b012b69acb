// Package query caches backend reads keyed by resource and parameters.
// Invalidation only marks entries stale; the previous value stays readable
// until a refetch succeeds.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orderdesk/internal/api"
)

// Resource names shared by readers and invalidators.
const (
	Orders        = "orders"
	OverallOrders = "overall-orders"
	AlertHistory  = "alert-history"
	Sheets        = "sheets"
)

// Order is the resource name of a single order.
func Order(id string) string {
	return "order/" + id
}

type Key struct {
	Resource string
	Params   string
}

func NewKey(resource string, params ...any) Key {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return Key{Resource: resource, Params: strings.Join(parts, "|")}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
	fetch     func(context.Context) (any, error)
}

type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	gen       map[string]uint64
	listeners []func(resource string)
	maxAge    time.Duration
	now       func() time.Time
}

// New returns an empty cache. Entries older than maxAge count as stale; zero
// disables ageing so only invalidation makes an entry stale.
func New(maxAge time.Duration) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		gen:     make(map[string]uint64),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Fetch returns the cached value for key when it is fresh and calls fn
// otherwise. Failed fetches are not stored.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !c.isStale(e) {
		v, _ := e.value.(T)
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen[key.Resource]
	c.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{
		value:     v,
		fetchedAt: c.now(),
		// an invalidation that raced the fetch wins
		stale: c.gen[key.Resource] != gen,
		fetch: func(ctx context.Context) (any, error) { return fn(ctx) },
	}
	c.mu.Unlock()
	return v, nil
}

// Peek returns the last stored value for key, fresh or stale.
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Invalidate marks every key of resource stale. Calling it repeatedly, or in
// any order with other invalidations, has the same effect as calling it once.
func (c *Cache) Invalidate(resource string) {
	c.mu.Lock()
	c.gen[resource]++
	for k, e := range c.entries {
		if k.Resource == resource {
			e.stale = true
		}
	}
	listeners := append([]func(string){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(resource)
	}
}

// OnInvalidate registers fn to be told about every invalidated resource.
func (c *Cache) OnInvalidate(fn func(resource string)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Stale lists keys that need a refetch, sorted for stable output.
func (c *Cache) Stale() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Key
	for k, e := range c.entries {
		if c.isStale(e) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Refresh re-runs the fetcher that last populated key. A key the backend no
// longer knows is removed.
func (c *Cache) Refresh(ctx context.Context, key Key) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	fetch := e.fetch
	gen := c.gen[key.Resource]
	c.mu.Unlock()

	v, err := fetch(ctx)
	if errors.Is(err, api.ErrNotFound) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return err
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	if cur, ok := c.entries[key]; ok {
		cur.value = v
		cur.fetchedAt = c.now()
		cur.stale = c.gen[key.Resource] != gen
	}
	c.mu.Unlock()
	return nil
}

// Forget removes every key of resource instead of marking it stale, for
// resources that no longer exist on the backend.
func (c *Cache) Forget(resource string) {
	c.mu.Lock()
	c.gen[resource]++
	for k := range c.entries {
		if k.Resource == resource {
			delete(c.entries, k)
		}
	}
	listeners := append([]func(string){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(resource)
	}
}

// Drop forgets every entry, used on logout.
func (c *Cache) Drop() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
}

func (c *Cache) isStale(e *entry) bool {
	if e.stale {
		return true
	}
	return c.maxAge > 0 && c.now().Sub(e.fetchedAt) > c.maxAge
}
