package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"orderdesk/internal/model"
)

type wireSheet struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Name      string `json:"name"`
	CreatedBy *ref   `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

func (w wireSheet) model() model.Sheet {
	s := model.Sheet{ID: first(w.MongoID, w.ID), Name: w.Name, CreatedAt: parseTime(w.CreatedAt)}
	if w.CreatedBy != nil {
		s.CreatedBy = first(w.CreatedBy.Username, w.CreatedBy.id())
	}
	return s
}

func (c *Client) Sheets(ctx context.Context) ([]model.Sheet, error) {
	body, err := c.getJSON(ctx, "list_sheets", "/sheet", nil)
	if err != nil {
		return nil, err
	}
	var rows []wireSheet
	if err := json.Unmarshal(unwrap(body, "data", "sheets"), &rows); err != nil {
		return nil, fmt.Errorf("decode sheets: %w", err)
	}
	out := make([]model.Sheet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) CreateSheet(ctx context.Context, name string) (model.Sheet, error) {
	body, err := c.sendJSON(ctx, "create_sheet", http.MethodPost, "/sheet", map[string]string{"name": name})
	if err != nil {
		return model.Sheet{}, err
	}
	var w wireSheet
	if err := json.Unmarshal(unwrap(body, "data", "sheet"), &w); err != nil {
		return model.Sheet{}, fmt.Errorf("decode sheet: %w", err)
	}
	s := w.model()
	if s.Name == "" {
		s.Name = name
	}
	return s, nil
}

func (c *Client) DeleteSheet(ctx context.Context, id string) error {
	_, err := c.sendJSON(ctx, "delete_sheet", http.MethodDelete, "/sheet/"+url.PathEscape(id), nil)
	return err
}
