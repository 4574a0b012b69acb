package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"orderdesk/internal/model"
)

var ErrShape = errors.New("unrecognized listing response")

// Page is one page of a listing. TotalKnown is false when the backend sent
// neither a page count nor an item count.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalPages int
	TotalKnown bool
}

// HasNext reports whether a following page exists. Without a known total a
// full page is taken to mean there may be more.
func (p Page[T]) HasNext() bool {
	if p.TotalKnown {
		return p.Page < p.TotalPages
	}
	return p.PerPage > 0 && len(p.Items) >= p.PerPage
}

var itemKeys = []string{"data", "orders", "items"}

// Decode normalizes a listing response. Items come from a bare array or the
// first of data, orders, items; totals from totalPages, else from an item
// count divided by perPage.
func Decode(raw []byte, perPage int) (Page[json.RawMessage], error) {
	out := Page[json.RawMessage]{PerPage: perPage}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &out.Items); err != nil {
			return out, fmt.Errorf("%w: %v", ErrShape, err)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return out, fmt.Errorf("%w: %v", ErrShape, err)
	}

	found := false
	for _, key := range itemKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '[' {
			if err := json.Unmarshal(v, &out.Items); err != nil {
				return out, fmt.Errorf("%w: %v", ErrShape, err)
			}
			found = true
			break
		}
		if len(v) > 0 && v[0] == '{' {
			inner, err := Decode(v, perPage)
			if err != nil {
				continue
			}
			out.Items = inner.Items
			out.TotalPages, out.TotalKnown = inner.TotalPages, inner.TotalKnown
			found = true
			break
		}
	}
	if !found {
		return out, ErrShape
	}

	if !out.TotalKnown {
		out.TotalPages, out.TotalKnown = totals(obj, perPage)
	}
	return out, nil
}

func totals(obj map[string]json.RawMessage, perPage int) (int, bool) {
	if n, ok := number(obj["totalPages"]); ok {
		return int(n), true
	}

	count, ok := 0.0, false
	for _, key := range []string{"totalCount", "count", "total"} {
		if count, ok = number(obj[key]); ok {
			break
		}
	}
	if !ok {
		var meta struct {
			Total json.RawMessage `json:"total"`
		}
		if err := json.Unmarshal(obj["meta"], &meta); err == nil {
			count, ok = number(meta.Total)
		}
	}
	if !ok || perPage <= 0 {
		return 0, false
	}
	return max(1, int(math.Ceil(count/float64(perPage)))), true
}

// number reads a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Map converts the raw items of a page, keeping its position and totals.
func Map[T any](p Page[json.RawMessage], fn func(json.RawMessage) (T, error)) (Page[T], error) {
	out := Page[T]{
		Items:      make([]T, 0, len(p.Items)),
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
		TotalKnown: p.TotalKnown,
	}
	for _, raw := range p.Items {
		item, err := fn(raw)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// Window returns at most five page numbers centered on current.
func Window(current, total int) []int {
	if total <= 0 {
		if current < 1 {
			current = 1
		}
		return []int{current}
	}
	start := max(1, current-2)
	end := start + 4
	if end > total {
		end = total
		start = max(1, end-4)
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Controls is the enabled state of the pager buttons.
type Controls struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages,omitempty"`
	First      bool  `json:"first"`
	Prev       bool  `json:"prev"`
	Next       bool  `json:"next"`
	Last       bool  `json:"last"`
	Pages      []int `json:"pages"`
}

func ControlsFor[T any](p Page[T]) Controls {
	c := Controls{
		Page:  p.Page,
		First: p.Page > 1,
		Prev:  p.Page > 1,
		Next:  p.HasNext(),
	}
	if p.TotalKnown {
		c.TotalPages = p.TotalPages
		c.Last = c.Next
		c.Pages = Window(p.Page, p.TotalPages)
	} else {
		c.Pages = Window(p.Page, 0)
	}
	return c
}

// MatchOrder is the local search used on top of a fetched page.
func MatchOrder(o model.Order, text string) bool {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return true
	}
	for _, field := range []string{
		o.OrderName, o.AmazonOrderNo, o.BuyerPaypal, o.BuyerName,
		o.CreatedBy.Email, o.CreatedBy.Username, o.ID,
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func FilterOrders(orders []model.Order, text string) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if MatchOrder(o, text) {
			out = append(out, o)
		}
	}
	return out
}
