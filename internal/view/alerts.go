package view

import (
	"strconv"

	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/status"
)

type AlertRow struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	Order     string `json:"order"`
	From      Badge  `json:"from"`
	To        Badge  `json:"to"`
	ChangedBy string `json:"changedBy"`
	Role      string `json:"role"`
	When      string `json:"when"`
}

type AlertsPage struct {
	Rows          []AlertRow       `json:"rows"`
	Controls      listing.Controls `json:"controls"`
	Page          int              `json:"page"`
	PerPage       int              `json:"perPage"`
	Status        string           `json:"status"`
	OrderID       string           `json:"orderId,omitempty"`
	StatusOptions []Option         `json:"statusOptions"`
	PageSizes     []int            `json:"pageSizes"`
	Live          bool             `json:"live"`
	Error         string           `json:"error,omitempty"`
}

func BuildAlerts(cat *status.Catalog, f Formatter, page listing.Page[model.StatusHistoryEntry], st listing.State, live bool) AlertsPage {
	rows := make([]AlertRow, 0, len(page.Items))
	for _, h := range page.Items {
		rows = append(rows, AlertRow{
			ID:        h.ID,
			OrderID:   h.OrderID,
			Order:     first(h.OrderName, h.AmazonOrderNo, h.OrderID),
			From:      badge(cat, h.PreviousStatus),
			To:        badge(cat, h.NewStatus),
			ChangedBy: h.ChangedBy.Username,
			Role:      string(h.ChangedBy.Role),
			When:      f.DateTime(h.ChangedAt),
		})
	}
	return AlertsPage{
		Rows:          rows,
		Controls:      listing.ControlsFor(page),
		Page:          st.Page,
		PerPage:       st.PerPage,
		Status:        st.Status,
		OrderID:       st.OrderID,
		StatusOptions: StatusOptions(cat),
		PageSizes:     listing.PageSizes,
		Live:          live,
	}
}

type BellItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"orderId"`
	OrderName  string `json:"orderName,omitempty"`
	From       Badge  `json:"from"`
	To         Badge  `json:"to"`
	Actor      string `json:"actor"`
	ActorRole  string `json:"actorRole,omitempty"`
	Ago        string `json:"ago"`
	Read       bool   `json:"read"`
	IsNewOrder bool   `json:"isNewOrder,omitempty"`
}

type Bell struct {
	Badge  string     `json:"badge"`
	Unread int        `json:"unread"`
	Live   bool       `json:"live"`
	Items  []BellItem `json:"items"`
}

func BuildBell(cat *status.Catalog, f Formatter, items []model.AlertNotification, unread int, live bool) Bell {
	b := Bell{Unread: unread, Live: live, Items: make([]BellItem, 0, len(items))}
	switch {
	case unread > 9:
		b.Badge = "9+"
	case unread > 0:
		b.Badge = strconv.Itoa(unread)
	}
	for _, n := range items {
		item := BellItem{
			ID:         n.ID,
			OrderID:    n.OrderID,
			OrderName:  n.OrderName,
			From:       badge(cat, n.PreviousStatus),
			To:         badge(cat, n.NewStatus),
			Actor:      "System",
			Read:       n.Read,
			IsNewOrder: n.IsNewOrder,
		}
		switch {
		case n.ChangedBy != nil && n.ChangedBy.Username != "":
			item.Actor = n.ChangedBy.Username
			item.ActorRole = string(n.ChangedBy.Role)
		case n.Role != "":
			item.Actor = n.Role
		}
		when := n.CreatedAt
		if when.IsZero() {
			when = n.ReceivedAt
		}
		item.Ago = f.Ago(when)
		b.Items = append(b.Items, item)
	}
	return b
}
