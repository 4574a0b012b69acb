package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/validation"
)

func (c *Client) ListOrders(ctx context.Context, st listing.State) (listing.Page[model.Order], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(st.Page))
	q.Set("perPage", strconv.Itoa(st.PerPage))
	if st.Search != "" {
		q.Set("search", st.Search)
	}
	if f := st.StatusFilter(); f != "" {
		q.Set("filterBy", f)
	}

	body, err := c.getJSON(ctx, "list_orders", "/order", q)
	if err != nil {
		return listing.Page[model.Order]{}, err
	}
	raw, err := listing.Decode(body, st.PerPage)
	if err != nil {
		return listing.Page[model.Order]{}, err
	}
	raw.Page = st.Page
	return listing.Map(raw, func(m json.RawMessage) (model.Order, error) {
		return c.decodeOrder(m)
	})
}

func (c *Client) GetOrder(ctx context.Context, id string) (model.Order, error) {
	body, err := c.getJSON(ctx, "get_order", "/order/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Order{}, err
	}
	return c.decodeOrder(body)
}

// CreateOrder submits the multipart create form. The form must already be
// validated.
func (c *Client) CreateOrder(ctx context.Context, form validation.CreateOrderForm) (model.Order, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"orderName", form.OrderName},
		{"amazonOrderNo", form.AmazonOrderNo},
		{"buyerPaypal", form.BuyerPaypal},
		{"buyerName", form.BuyerName},
		{"comments", form.Comments},
		{"sheetName", form.SheetName},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return model.Order{}, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	if err := writeFile(mw, "OrderSS", form.OrderSS); err != nil {
		return model.Order{}, err
	}
	if err := writeFile(mw, "AmazonProductSS", form.ProductSS); err != nil {
		return model.Order{}, err
	}
	if err := mw.Close(); err != nil {
		return model.Order{}, fmt.Errorf("close multipart: %w", err)
	}

	body, err := c.do(ctx, request{
		op:          "create_order",
		method:      http.MethodPost,
		path:        "/order/create",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return model.Order{}, err
	}
	return c.decodeOrder(body)
}

// UpdateStatus sends the new status, as multipart with a RefundSS part when
// evidence is attached. Backends that answer without the order body yield an
// order with only ID and Status set.
func (c *Client) UpdateStatus(ctx context.Context, id, to string, evidence *validation.File) (model.Order, error) {
	path := "/order/" + url.PathEscape(id)

	var (
		body []byte
		err  error
	)
	if evidence != nil {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if err := mw.WriteField("status", to); err != nil {
			return model.Order{}, fmt.Errorf("write field status: %w", err)
		}
		if err := writeFile(mw, "RefundSS", evidence); err != nil {
			return model.Order{}, err
		}
		if err := mw.Close(); err != nil {
			return model.Order{}, fmt.Errorf("close multipart: %w", err)
		}
		body, err = c.do(ctx, request{
			op:          "update_status",
			method:      http.MethodPut,
			path:        path,
			body:        &buf,
			contentType: mw.FormDataContentType(),
		})
	} else {
		body, err = c.sendJSON(ctx, "update_status", http.MethodPut, path, map[string]string{"status": to})
	}
	if err != nil {
		return model.Order{}, err
	}

	order, err := c.decodeOrder(body)
	if err != nil || order.ID == "" {
		return model.Order{ID: id, Status: to}, nil
	}
	return order, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	_, err := c.sendJSON(ctx, "delete_order", http.MethodDelete, "/order/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) AddComment(ctx context.Context, id, text string) error {
	_, err := c.sendJSON(ctx, "add_comment", http.MethodPost, "/order/"+url.PathEscape(id)+"/comment",
		map[string]string{"comment": text})
	return err
}

func writeFile(mw *multipart.Writer, field string, f *validation.File) error {
	if f == nil || f.Reader == nil {
		return nil
	}
	part, err := mw.CreateFormFile(field, f.Name)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, f.Reader); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}
	return nil
}
