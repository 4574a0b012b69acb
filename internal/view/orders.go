package view

import (
	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/status"
)

type OrderRow struct {
	ID            string `json:"id"`
	OrderName     string `json:"orderName"`
	AmazonOrderNo string `json:"amazonOrderNo"`
	BuyerPaypal   string `json:"buyerPaypal"`
	BuyerName     string `json:"buyerName,omitempty"`
	Status        Badge  `json:"status"`
	CreatedBy     string `json:"createdBy"`
	Created       string `json:"created"`
}

func orderRows(cat *status.Catalog, f Formatter, orders []model.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, OrderRow{
			ID:            o.ID,
			OrderName:     o.OrderName,
			AmazonOrderNo: o.AmazonOrderNo,
			BuyerPaypal:   o.BuyerPaypal,
			BuyerName:     o.BuyerName,
			Status:        badge(cat, o.Status),
			CreatedBy:     first(o.CreatedBy.Username, o.CreatedBy.Email),
			Created:       f.Date(o.CreatedAt),
		})
	}
	return rows
}

type OrdersPage struct {
	Rows          []OrderRow       `json:"rows"`
	Controls      listing.Controls `json:"controls"`
	Page          int              `json:"page"`
	PerPage       int              `json:"perPage"`
	Search        string           `json:"search"`
	Status        string           `json:"status"`
	StatusOptions []Option         `json:"statusOptions"`
	PageSizes     []int            `json:"pageSizes"`
	Live          bool             `json:"live"`
	Error         string           `json:"error,omitempty"`
}

// BuildOrders renders one page. The search text is applied again locally so
// a backend that ignores it still narrows the rows.
func BuildOrders(cat *status.Catalog, f Formatter, page listing.Page[model.Order], st listing.State, live bool) OrdersPage {
	return OrdersPage{
		Rows:          orderRows(cat, f, listing.FilterOrders(page.Items, st.Search)),
		Controls:      listing.ControlsFor(page),
		Page:          st.Page,
		PerPage:       st.PerPage,
		Search:        st.Search,
		Status:        st.Status,
		StatusOptions: StatusOptions(cat),
		PageSizes:     listing.PageSizes,
		Live:          live,
	}
}

type HistoryRow struct {
	ID        string `json:"id"`
	From      Badge  `json:"from"`
	To        Badge  `json:"to"`
	ChangedBy string `json:"changedBy"`
	Role      string `json:"role"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type CommentRow struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author"`
	Role   string `json:"role"`
	When   string `json:"when"`
}

type Details struct {
	ID            string             `json:"id"`
	OrderName     string             `json:"orderName"`
	AmazonOrderNo string             `json:"amazonOrderNo"`
	BuyerPaypal   string             `json:"buyerPaypal"`
	BuyerName     string             `json:"buyerName,omitempty"`
	SheetName     string             `json:"sheetName,omitempty"`
	Commission    string             `json:"commission"`
	Status        Badge              `json:"status"`
	Transitions   []Option           `json:"transitions"`
	History       []HistoryRow       `json:"history"`
	Comments      []CommentRow       `json:"comments"`
	Screenshots   []model.Screenshot `json:"screenshots"`
	CreatedBy     model.Owner        `json:"createdBy"`
	Created       string             `json:"created"`
	Updated       string             `json:"updated"`
	CanDelete     bool               `json:"canDelete"`
}

// BuildDetails renders one order for viewer. Transitions hold only the
// statuses viewer may pick, never the current one.
func BuildDetails(cat *status.Catalog, f Formatter, o model.Order, viewer model.User) Details {
	d := Details{
		ID:            o.ID,
		OrderName:     o.OrderName,
		AmazonOrderNo: o.AmazonOrderNo,
		BuyerPaypal:   o.BuyerPaypal,
		BuyerName:     o.BuyerName,
		SheetName:     o.SheetName,
		Commission:    o.Commission.StringFixed(2),
		Status:        badge(cat, o.Status),
		Transitions:   options(cat, cat.AvailableTransitions(viewer.Role, o.Status)),
		Screenshots:   o.Screenshots,
		CreatedBy:     o.CreatedBy,
		Created:       f.DateTime(o.CreatedAt),
		Updated:       f.DateTime(o.UpdatedAt),
		CanDelete:     viewer.IsAdmin(),
	}
	for _, h := range model.SortHistory(o.StatusHistory) {
		d.History = append(d.History, HistoryRow{
			ID:        h.ID,
			From:      badge(cat, h.PreviousStatus),
			To:        badge(cat, h.NewStatus),
			ChangedBy: h.ChangedBy.Username,
			Role:      string(h.ChangedBy.Role),
			Date:      f.Date(h.ChangedAt),
			Time:      f.Time(h.ChangedAt),
		})
	}
	for _, c := range o.Comments {
		d.Comments = append(d.Comments, CommentRow{
			ID:     c.ID,
			Text:   c.Text,
			Author: c.CommentedBy.Username,
			Role:   c.Role,
			When:   f.DateTime(c.CommentedAt),
		})
	}
	return d
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
