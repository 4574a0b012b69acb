package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"orderdesk/internal/listing"
	"orderdesk/internal/model"
)

// Stats maps canonical status codes to order counts.
type Stats map[string]int

func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

func (c *Client) OverallStats(ctx context.Context) (Stats, error) {
	body, err := c.getJSON(ctx, "overall_orders", "/order/overall-orders", nil)
	if err != nil {
		return nil, err
	}
	return c.DecodeStats(body)
}

// DecodeStats accepts [{status,count}], {statusCounts:{S:n}}, either of them
// under data, or a flat {S:n} object.
func (c *Client) DecodeStats(raw []byte) (Stats, error) {
	raw = bytes.TrimSpace(unwrap(raw, "data"))
	out := Stats{}

	if len(raw) > 0 && raw[0] == '[' {
		var rows []struct {
			Status  string          `json:"status"`
			MongoID string          `json:"_id"`
			Count   json.RawMessage `json:"count"`
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		for _, r := range rows {
			c.addCount(out, first(r.Status, r.MongoID), r.Count)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if nested, ok := obj["statusCounts"]; ok {
		var counts map[string]json.RawMessage
		if err := json.Unmarshal(nested, &counts); err != nil {
			return nil, fmt.Errorf("decode statusCounts: %w", err)
		}
		obj = counts
	}
	for k, v := range obj {
		c.addCount(out, k, v)
	}
	return out, nil
}

func (c *Client) addCount(out Stats, code string, raw json.RawMessage) {
	s, ok := c.catalog.Normalize(code)
	if !ok {
		return
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var str string
		if json.Unmarshal(raw, &str) != nil {
			return
		}
		if n, err = strconv.ParseFloat(str, 64); err != nil {
			return
		}
	}
	out[s] += int(n)
}

type HistoryQuery struct {
	Page    int
	PerPage int
	OrderID string
	Status  string
}

func (c *Client) AlertHistory(ctx context.Context, hq HistoryQuery) (listing.Page[model.StatusHistoryEntry], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(hq.Page))
	q.Set("perPage", strconv.Itoa(hq.PerPage))
	q.Set("limit", strconv.Itoa(hq.PerPage))
	if hq.OrderID != "" {
		q.Set("orderId", hq.OrderID)
	}
	if hq.Status != "" {
		q.Set("status", hq.Status)
	}

	body, err := c.getJSON(ctx, "alert_history", "/alert/history", q)
	if err != nil {
		return listing.Page[model.StatusHistoryEntry]{}, err
	}
	raw, err := listing.Decode(body, hq.PerPage)
	if err != nil {
		slog.Warn("unexpected alert history shape", "error", err)
		return listing.Page[model.StatusHistoryEntry]{}, err
	}
	raw.Page = hq.Page
	return listing.Map(raw, c.decodeHistory)
}
