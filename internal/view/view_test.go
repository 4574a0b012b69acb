package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/internal/api"
	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/status"
)

var pkt = time.FixedZone("PKT", 5*60*60)

func TestStatsShapesRenderSameCards(t *testing.T) {
	cat := status.Default()
	client := api.NewClient("http://backend/api/v1", time.Second, cat)

	fromArray, err := client.DecodeStats([]byte(`[{"status":"PAID","count":3},{"status":"ORDERED","count":5}]`))
	require.NoError(t, err)
	fromMap, err := client.DecodeStats([]byte(`{"statusCounts":{"PAID":3,"ORDERED":5}}`))
	require.NoError(t, err)

	a := StatsCards(cat, fromArray)
	b := StatsCards(cat, fromMap)
	assert.Equal(t, a, b)
	assert.Equal(t, []Card{
		{Title: "Total Orders", Count: 8},
		{Status: "ORDERED", Title: "Ordered", Count: 5},
		{Status: "PAID", Title: "Paid", Count: 3},
	}, a)
}

func TestDashboardKeepsFiveRecent(t *testing.T) {
	cat := status.Default()
	orders := make([]model.Order, 8)
	for i := range orders {
		orders[i] = model.Order{ID: string(rune('a' + i)), Status: "ORDERED"}
	}
	d := BuildDashboard(cat, NewFormatter(pkt), api.Stats{}, orders, true)
	assert.Len(t, d.Recent, RecentOrders)
	assert.Equal(t, []Card{{Title: "Total Orders", Count: 0}}, d.Cards)
	assert.True(t, d.Live)
}

func TestFormatterUsesDisplayZone(t *testing.T) {
	f := NewFormatter(pkt)
	ts := time.Date(2024, 5, 1, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, "May 2, 2024", f.Date(ts))
	assert.Equal(t, "1:30 AM", f.Time(ts))
	assert.Equal(t, "May 2, 2024 1:30 AM", f.DateTime(ts))
	assert.Empty(t, f.Date(time.Time{}))
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := NewFormatter(time.UTC)
	f.now = func() time.Time { return now }

	assert.Equal(t, "less than a minute ago", f.Ago(now.Add(-10*time.Second)))
	assert.Equal(t, "5 minutes ago", f.Ago(now.Add(-5*time.Minute)))
	assert.Equal(t, "about 3 hours ago", f.Ago(now.Add(-3*time.Hour)))
	assert.Equal(t, "3 days ago", f.Ago(now.Add(-72*time.Hour)))
}

func TestOrdersPageAppliesLocalSearch(t *testing.T) {
	cat := status.Default()
	st := listing.NewState(listing.DefaultOrdersPerPage)
	st.SetSearch("john")
	page := listing.Page[model.Order]{
		Page: 1, PerPage: 10,
		Items: []model.Order{
			{ID: "1", OrderName: "Lamp", BuyerName: "John", Status: "HOLD"},
			{ID: "2", OrderName: "Desk", Status: "PAID"},
		},
	}

	v := BuildOrders(cat, NewFormatter(pkt), page, st, false)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, Badge{Code: "ON HOLD", Label: "On Hold"}, v.Rows[0].Status)
	assert.False(t, v.Controls.Next)
	assert.Equal(t, "ALL", v.StatusOptions[0].Value)
	assert.Len(t, v.StatusOptions, 13)
}

func TestDetailsForUserAndAdmin(t *testing.T) {
	cat := status.Default()
	o := model.Order{
		ID: "o1", Status: "ORDERED", Commission: decimal.RequireFromString("12.5"),
		StatusHistory: []model.StatusHistoryEntry{
			{ID: "h1", NewStatus: "ORDERED", ChangedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "h2", PreviousStatus: "ORDERED", NewStatus: "REVIEWED", ChangedAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
		},
	}

	d := BuildDetails(cat, NewFormatter(pkt), o, model.User{Role: model.RoleUser})
	assert.Equal(t, []Option{
		{Value: "REVIEWED", Label: "Reviewed"},
		{Value: "REFUND_DELAYED", Label: "Refund Delayed"},
		{Value: "CANCELLED", Label: "Cancelled"},
	}, d.Transitions)
	assert.False(t, d.CanDelete)
	assert.Equal(t, "12.50", d.Commission)
	require.Len(t, d.History, 2)
	assert.Equal(t, "h2", d.History[0].ID)
	assert.Equal(t, Badge{}, d.History[1].From)

	d = BuildDetails(cat, NewFormatter(pkt), o, model.User{Role: model.RoleAdmin})
	assert.Len(t, d.Transitions, 11)
	assert.True(t, d.CanDelete)
}

func TestAlertsPageRows(t *testing.T) {
	cat := status.Default()
	page := listing.Page[model.StatusHistoryEntry]{
		Page: 1, PerPage: 25, TotalPages: 2, TotalKnown: true,
		Items: []model.StatusHistoryEntry{
			{ID: "a1", OrderID: "o1", AmazonOrderNo: "111", PreviousStatus: "ORDERED", NewStatus: "PAID",
				ChangedBy: model.Actor{Username: "boss", Role: model.RoleAdmin}},
			{ID: "a2", OrderID: "o2", NewStatus: "ORDERED"},
		},
	}
	v := BuildAlerts(cat, NewFormatter(pkt), page, listing.NewState(listing.DefaultAlertsPerPage), true)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "111", v.Rows[0].Order)
	assert.Equal(t, "o2", v.Rows[1].Order)
	assert.True(t, v.Controls.Next)
	assert.True(t, v.Controls.Last)
}

func TestBell(t *testing.T) {
	cat := status.Default()
	items := []model.AlertNotification{
		{ID: "n2", OrderID: "o2", OrderName: "Lamp", NewStatus: "ORDERED", Role: "system", IsNewOrder: true},
		{ID: "n1", OrderID: "o1", PreviousStatus: "ORDERED", NewStatus: "COMISSION_COLLECTED",
			ChangedBy: &model.Actor{Username: "boss", Role: model.RoleAdmin}, Read: true},
		{ID: "n0", OrderID: "o0", PreviousStatus: "ORDERED", NewStatus: "PAID"},
	}

	b := BuildBell(cat, NewFormatter(pkt), items, 12, false)
	assert.Equal(t, "9+", b.Badge)
	assert.Equal(t, "system", b.Items[0].Actor)
	assert.Equal(t, "boss", b.Items[1].Actor)
	assert.Equal(t, "admin", b.Items[1].ActorRole)
	assert.Equal(t, "Commission Collected", b.Items[1].To.Label)
	assert.Equal(t, "System", b.Items[2].Actor)

	assert.Equal(t, "3", BuildBell(cat, NewFormatter(pkt), nil, 3, true).Badge)
	assert.Empty(t, BuildBell(cat, NewFormatter(pkt), nil, 0, true).Badge)
}
