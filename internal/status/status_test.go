package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/internal/model"
)

func TestDefaultCatalogSpellings(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{
		"ORDERED", "REVIEWED", "SEND_TO_SELLER", "ON HOLD", "REVIEW_AWAITED", "REFUND_DELAYED",
		"REFUNDED", "CORRECTED", "CANCELLED", "COMMISSION_COLLECTED", "PAID", "SENT",
	}, c.Statuses())
}

func TestNormalizeAliases(t *testing.T) {
	c := Default()

	cases := map[string]string{
		"COMISSION_COLLECTED": "COMMISSION_COLLECTED",
		"HOLD":                "ON HOLD",
		"on hold":             "ON HOLD",
		" paid ":              "PAID",
		"REVIEW_DELAYED":      "REVIEW_AWAITED",
	}
	for in, want := range cases {
		got, ok := c.Normalize(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := c.Normalize("SHIPPED")
	assert.False(t, ok)
	assert.Equal(t, "SHIPPED", c.Canonical("SHIPPED"))
}

func TestAvailableTransitions(t *testing.T) {
	c := Default()

	admin := c.AvailableTransitions(model.RoleAdmin, "PAID")
	assert.Len(t, admin, 11)
	assert.NotContains(t, admin, "PAID")

	user := c.AvailableTransitions(model.RoleUser, "ORDERED")
	assert.Equal(t, []string{"REVIEWED", "REFUND_DELAYED", "CANCELLED"}, user)

	user = c.AvailableTransitions(model.RoleUser, "SENT")
	assert.ElementsMatch(t, []string{"REVIEWED", "ORDERED", "CANCELLED", "REFUND_DELAYED"}, user)
}

func TestCanTransition(t *testing.T) {
	c := Default()

	assert.True(t, c.CanTransition(model.RoleAdmin, "ORDERED", "PAID"))
	assert.False(t, c.CanTransition(model.RoleAdmin, "PAID", "PAID"))
	assert.False(t, c.CanTransition(model.RoleAdmin, "PAID", "SHIPPED"))
	assert.False(t, c.CanTransition(model.RoleUser, "ORDERED", "PAID"))
	assert.True(t, c.CanTransition(model.RoleUser, "ORDERED", "CANCELLED"))
	assert.False(t, c.CanTransition(model.RoleUser, "HOLD", "ON HOLD"))
}

func TestLabelsAndEvidence(t *testing.T) {
	c := Default()

	assert.Equal(t, "On Hold", c.Label("HOLD"))
	assert.Equal(t, "Commission Collected", c.Label("COMISSION_COLLECTED"))
	assert.Equal(t, "MYSTERY", c.Label("MYSTERY"))
	assert.True(t, c.AcceptsEvidence("REFUNDED"))
	assert.False(t, c.AcceptsEvidence("PAID"))
}

func TestParseRejectsBrokenCatalogs(t *testing.T) {
	_, err := Parse([]byte("statuses: []"))
	require.Error(t, err)

	_, err = Parse([]byte(`
statuses:
  - code: A
aliases:
  B: C
`))
	require.Error(t, err)

	_, err = Parse([]byte(`
statuses:
  - code: A
user_transitions: [Z]
`))
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestLoadEmptyPathUsesEmbedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, c.Valid("SENT"))
}
