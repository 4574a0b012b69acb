package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"orderdesk/internal/model"
)

// unwrap returns the value under the first present key, or raw itself when
// raw is not an object holding any of them.
func unwrap(raw []byte, keys ...string) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok && !isNull(v) {
			return v
		}
	}
	return raw
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func parseTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ref is a reference that may arrive as a bare id string or as a populated
// document.
type ref struct {
	ID            string `json:"id"`
	MongoID       string `json:"_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	OrderName     string `json:"orderName"`
	Title         string `json:"title"`
	AmazonOrderNo string `json:"amazonOrderNo"`
}

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type plain ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ref(p)
	return nil
}

func (r *ref) id() string {
	if r == nil {
		return ""
	}
	return first(r.MongoID, r.ID)
}

type wireUser struct {
	ID        string     `json:"id"`
	MongoID   string     `json:"_id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	CreatedAt string     `json:"createdAt"`
}

func (u wireUser) model() model.User {
	return model.User{
		ID:        first(u.MongoID, u.ID),
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: parseTime(u.CreatedAt),
	}
}

type wireHistory struct {
	ID             string  `json:"id"`
	MongoID        string  `json:"_id"`
	OrderID        *ref    `json:"orderId"`
	OrderIDSnake   string  `json:"order_id"`
	Order          *ref    `json:"order"`
	PreviousStatus *string `json:"previousStatus"`
	PreviousSnake  *string `json:"previous_status"`
	NewStatus      string  `json:"newStatus"`
	NewSnake       string  `json:"new_status"`
	Status         string  `json:"status"`
	ChangedBy      *ref    `json:"changedBy"`
	ChangedBySnake *ref    `json:"changed_by"`
	Role           string  `json:"role"`
	ChangedAt      string  `json:"changedAt"`
	CreatedAt      string  `json:"createdAt"`
	CreatedAtSnake string  `json:"created_at"`
}

func (c *Client) history(w wireHistory) model.StatusHistoryEntry {
	e := model.StatusHistoryEntry{
		ID:        first(w.MongoID, w.ID),
		NewStatus: c.normalize(first(w.NewStatus, w.NewSnake, w.Status, "ORDERED")),
		ChangedAt: parseTime(w.CreatedAt, w.CreatedAtSnake, w.ChangedAt),
	}
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now()
	}

	order := w.OrderID
	if order == nil {
		order = w.Order
	}
	e.OrderID = first(order.id(), w.OrderIDSnake)
	if order != nil {
		e.OrderName = first(order.OrderName, order.Title, order.Name)
		e.AmazonOrderNo = order.AmazonOrderNo
	}

	switch {
	case w.PreviousStatus != nil && *w.PreviousStatus != "":
		e.PreviousStatus = c.normalize(*w.PreviousStatus)
	case w.PreviousSnake != nil && *w.PreviousSnake != "":
		e.PreviousStatus = c.normalize(*w.PreviousSnake)
	}

	actor := w.ChangedBy
	if actor == nil {
		actor = w.ChangedBySnake
	}
	e.ChangedBy.Username = "unknown"
	e.ChangedBy.Role = model.RoleUser
	if actor != nil {
		e.ChangedBy.ID = actor.id()
		e.ChangedBy.Username = first(actor.Username, actor.Name, "unknown")
		if actor.Role != "" {
			e.ChangedBy.Role = model.Role(actor.Role)
		}
	}
	if w.Role != "" {
		e.ChangedBy.Role = model.Role(w.Role)
	}
	return e
}

func (c *Client) decodeHistory(raw json.RawMessage) (model.StatusHistoryEntry, error) {
	var w wireHistory
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.StatusHistoryEntry{}, fmt.Errorf("decode history entry: %w", err)
	}
	return c.history(w), nil
}

type wireComment struct {
	ID          string `json:"id"`
	MongoID     string `json:"_id"`
	Comment     string `json:"comment"`
	Text        string `json:"text"`
	CommentedBy *ref   `json:"commentedBy"`
	Role        string `json:"role"`
	CommentedAt string `json:"commentedAt"`
	CreatedAt   string `json:"createdAt"`
}

type wireOrder struct {
	ID              string          `json:"id"`
	MongoID         string          `json:"_id"`
	OrderName       string          `json:"orderName"`
	AmazonOrderNo   string          `json:"amazonOrderNo"`
	AmazonOrderNum  string          `json:"amazonOrderNumber"`
	BuyerPaypal     string          `json:"buyerPaypal"`
	BuyerName       string          `json:"buyerName"`
	Status          string          `json:"status"`
	Comments        json.RawMessage `json:"comments"`
	Commission      json.RawMessage `json:"commission"`
	SheetName       string          `json:"sheetName"`
	Screenshots     json.RawMessage `json:"screenshots"`
	OrderSS         string          `json:"OrderSS"`
	AmazonProductSS string          `json:"AmazonProductSS"`
	RefundSS        string          `json:"RefundSS"`
	CreatedBy       *ref            `json:"createdBy"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
	StatusHistory   []wireHistory   `json:"statusHistory"`
}

// decodeOrder accepts an order bare or wrapped in data/order.
func (c *Client) decodeOrder(raw []byte) (model.Order, error) {
	raw = unwrap(unwrap(raw, "data"), "order")

	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Order{}, fmt.Errorf("decode order: %w", err)
	}

	o := model.Order{
		ID:            first(w.MongoID, w.ID),
		OrderName:     w.OrderName,
		AmazonOrderNo: first(w.AmazonOrderNo, w.AmazonOrderNum),
		BuyerPaypal:   w.BuyerPaypal,
		BuyerName:     w.BuyerName,
		Status:        c.normalize(w.Status),
		SheetName:     w.SheetName,
		CreatedAt:     parseTime(w.CreatedAt),
		UpdatedAt:     parseTime(w.UpdatedAt),
	}
	if w.CreatedBy != nil {
		o.CreatedBy = model.Owner{ID: w.CreatedBy.id(), Username: w.CreatedBy.Username, Email: w.CreatedBy.Email}
	}
	if !isNull(w.Commission) {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(w.Commission); err == nil {
			o.Commission = d
		}
	}

	o.Comments = decodeComments(w.Comments)
	o.Screenshots = decodeScreenshots(w)

	for _, h := range w.StatusHistory {
		e := c.history(h)
		if e.OrderID == "" {
			e.OrderID = o.ID
		}
		o.StatusHistory = append(o.StatusHistory, e)
	}
	o.StatusHistory = model.SortHistory(o.StatusHistory)
	return o, nil
}

// decodeComments accepts a thread of comment documents or a single free-text
// note.
func decodeComments(raw json.RawMessage) []model.Comment {
	if isNull(raw) {
		return nil
	}
	var note string
	if err := json.Unmarshal(raw, &note); err == nil {
		if note == "" {
			return nil
		}
		return []model.Comment{{Text: note}}
	}
	var thread []wireComment
	if err := json.Unmarshal(raw, &thread); err != nil {
		slog.Debug("ignoring unreadable comments", "error", err)
		return nil
	}
	out := make([]model.Comment, 0, len(thread))
	for _, w := range thread {
		c := model.Comment{
			ID:          first(w.MongoID, w.ID),
			Text:        first(w.Comment, w.Text),
			Role:        w.Role,
			CommentedAt: parseTime(w.CommentedAt, w.CreatedAt),
		}
		if w.CommentedBy != nil {
			c.CommentedBy = model.Actor{ID: w.CommentedBy.id(), Username: w.CommentedBy.Username}
		}
		out = append(out, c)
	}
	return out
}

func decodeScreenshots(w wireOrder) []model.Screenshot {
	var out []model.Screenshot
	if !isNull(w.Screenshots) {
		var urls []string
		if err := json.Unmarshal(w.Screenshots, &urls); err == nil {
			for _, u := range urls {
				out = append(out, model.Screenshot{Role: model.ScreenshotOrder, URL: u})
			}
		} else {
			var typed []model.Screenshot
			if err := json.Unmarshal(w.Screenshots, &typed); err == nil {
				out = append(out, typed...)
			}
		}
	}
	for _, s := range []model.Screenshot{
		{Role: model.ScreenshotOrder, URL: w.OrderSS},
		{Role: model.ScreenshotProduct, URL: w.AmazonProductSS},
		{Role: model.ScreenshotRefund, URL: w.RefundSS},
	} {
		if s.URL != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalize maps legacy spellings onto catalog codes. Unknown codes are kept
// as sent so the UI can still show them.
func (c *Client) normalize(code string) string {
	if code == "" {
		return ""
	}
	if s, ok := c.catalog.Normalize(code); ok {
		return s
	}
	slog.Warn("unknown status from backend", "status", code)
	return code
}
