package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/mw"
	"orderdesk/internal/orders"
	"orderdesk/internal/query"
	"orderdesk/internal/status"
	"orderdesk/internal/validation"
	"orderdesk/internal/view"
)

const maxUpload = 32 << 20

// Actions is the write side used by the order and sheet handlers.
type Actions interface {
	RequestTransition(ctx context.Context, order model.Order, to string, actor model.User, evidence *validation.File, confirm orders.Confirmer) (model.Order, error)
	Create(ctx context.Context, form validation.CreateOrderForm) (model.Order, error)
	AddComment(ctx context.Context, orderID, text string) error
	Delete(ctx context.Context, orderID string, actor model.User) error
	CreateSheet(ctx context.Context, name string, actor model.User) (model.Sheet, error)
	DeleteSheet(ctx context.Context, id string, actor model.User) error
}

// readState applies the listing query parameters. The page is applied last
// since every filter setter resets it.
func readState(r *http.Request, perPage int, catalog *status.Catalog) (listing.State, error) {
	st := listing.NewState(perPage)
	q := r.URL.Query()

	if v := q.Get("perPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, listing.ErrPageSize
		}
		if err := st.SetPerPage(n); err != nil {
			return st, err
		}
	}
	if v := q.Get("search"); v != "" {
		st.SetSearch(strings.TrimSpace(v))
	}
	code := strings.TrimSpace(q.Get("status"))
	if code != "" && !strings.EqualFold(code, status.All) {
		c, ok := catalog.Normalize(code)
		if !ok {
			return st, fmt.Errorf("%w: %q", status.ErrUnknownStatus, code)
		}
		code = c
	} else {
		code = status.All
	}
	st.SetStatus(code)
	if v := q.Get("orderId"); v != "" {
		st.SetOrderID(v)
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			st.GoTo(n)
		}
	}
	return st, nil
}

func ListOrdersHandler(v *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := readState(r, listing.DefaultOrdersPerPage, v.Catalog)
		if err != nil {
			writeErr(w, err)
			return
		}

		key := ordersKey(st)
		page, err := query.Fetch(r.Context(), v.Cache, key, func(ctx context.Context) (listing.Page[model.Order], error) {
			return v.Backend.ListOrders(ctx, st)
		})
		var msg string
		if err != nil {
			if handledUnauthorized(w, err) {
				return
			}
			slog.Warn("failed to load orders", "error", err)
			msg = viewError(err)
			page, _ = query.Peek[listing.Page[model.Order]](v.Cache, key)
		}

		out := view.BuildOrders(v.Catalog, v.Format, page, st, v.live())
		out.Error = msg
		writeJSON(w, http.StatusOK, out)
	}
}

func loadOrder(ctx context.Context, v *Views, id string) (model.Order, error) {
	return query.Fetch(ctx, v.Cache, query.NewKey(query.Order(id)), func(ctx context.Context) (model.Order, error) {
		return v.Backend.GetOrder(ctx, id)
	})
}

func OrderDetailsHandler(v *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := mw.UserFrom(r.Context())

		order, err := loadOrder(r.Context(), v, chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view.BuildDetails(v.Catalog, v.Format, order, viewer))
	}
}

func CreateOrderHandler(v *Views, actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		form := validation.CreateOrderForm{
			OrderName:     strings.TrimSpace(r.FormValue("orderName")),
			AmazonOrderNo: strings.TrimSpace(r.FormValue("amazonOrderNo")),
			BuyerPaypal:   strings.TrimSpace(r.FormValue("buyerPaypal")),
			BuyerName:     strings.TrimSpace(r.FormValue("buyerName")),
			Comments:      r.FormValue("comments"),
			SheetName:     r.FormValue("sheetName"),
		}

		var err error
		if form.OrderSS, err = formFile(r, "OrderSS"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid OrderSS upload")
			return
		}
		if form.ProductSS, err = formFile(r, "AmazonProductSS"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid AmazonProductSS upload")
			return
		}

		order, err := actions.Create(r.Context(), form)
		if err != nil {
			writeErr(w, err)
			return
		}

		viewer, _ := mw.UserFrom(r.Context())
		writeJSON(w, http.StatusCreated, view.BuildDetails(v.Catalog, v.Format, order, viewer))
	}
}

// formFile returns nil when the field was not sent.
func formFile(r *http.Request, field string) (*validation.File, error) {
	f, h, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &validation.File{Name: h.Filename, Reader: f}, nil
}

type statusRequest struct {
	Status  string `json:"status"`
	Confirm bool   `json:"confirm"`
}

type confirmResponse struct {
	Error   string         `json:"error"`
	Confirm orders.Summary `json:"confirm"`
}

func readStatusRequest(r *http.Request) (statusRequest, *validation.File, error) {
	var req statusRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, nil, err
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return req, nil, err
	}
	req.Status = r.FormValue("status")
	req.Confirm, _ = strconv.ParseBool(r.FormValue("confirm"))
	evidence, err := formFile(r, "RefundSS")
	return req, evidence, err
}

// UpdateStatusHandler asks for a status change. Without confirm=true the
// request is answered with 409 and the summary to show the user; nothing is
// sent to the backend.
func UpdateStatusHandler(v *Views, actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, evidence, err := readStatusRequest(r)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		actor, _ := mw.UserFrom(r.Context())
		order, err := loadOrder(r.Context(), v, chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}

		var summary orders.Summary
		confirm := orders.ConfirmFunc(func(_ context.Context, s orders.Summary) bool {
			summary = s
			return req.Confirm
		})

		updated, err := actions.RequestTransition(r.Context(), order, req.Status, actor, evidence, confirm)
		if errors.Is(err, orders.ErrNotConfirmed) {
			writeJSON(w, http.StatusConflict, confirmResponse{Error: err.Error(), Confirm: summary})
			return
		}
		if err != nil {
			writeErr(w, err)
			return
		}

		writeJSON(w, http.StatusOK, view.BuildDetails(v.Catalog, v.Format, updated, actor))
	}
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func AddCommentHandler(actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := actions.AddComment(r.Context(), chi.URLParam(r, "id"), req.Comment); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteOrderHandler(actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := mw.UserFrom(r.Context())
		if err := actions.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
