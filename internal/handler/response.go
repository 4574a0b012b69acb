package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"

	"orderdesk/internal/api"
	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/orders"
	"orderdesk/internal/query"
	"orderdesk/internal/status"
	"orderdesk/internal/validation"
	"orderdesk/internal/view"
)

// Reader is the read side of the backend API.
type Reader interface {
	ListOrders(ctx context.Context, st listing.State) (listing.Page[model.Order], error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	OverallStats(ctx context.Context) (api.Stats, error)
	AlertHistory(ctx context.Context, q api.HistoryQuery) (listing.Page[model.StatusHistoryEntry], error)
	Sheets(ctx context.Context) ([]model.Sheet, error)
}

// Views bundles what the read handlers need to build view models.
type Views struct {
	Catalog *status.Catalog
	Format  view.Formatter
	Backend Reader
	Cache   *query.Cache
	Live    func() bool
}

func (v *Views) live() bool {
	return v.Live != nil && v.Live()
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeErr maps an action error onto a status code. Backend messages are
// passed through verbatim.
func writeErr(w http.ResponseWriter, err error) {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, code, msg)
}

func classify(err error) (int, string) {
	var ve validatorv10.ValidationErrors
	var apiErr *api.Error

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, validation.Message(err)
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, orders.ErrNoChange), errors.Is(err, orders.ErrNotConfirmed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orders.ErrTransitionNotAllowed), errors.Is(err, orders.ErrNotAdmin):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, orders.ErrEvidenceNotAccepted),
		errors.Is(err, orders.ErrEmptyComment),
		errors.Is(err, orders.ErrEmptySheetName),
		errors.Is(err, status.ErrUnknownStatus),
		errors.Is(err, listing.ErrPageSize):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status, apiErr.Message
		}
		return http.StatusBadGateway, apiErr.Message
	}
	return http.StatusBadGateway, "Unable to reach the order service"
}

// viewError is the message attached to a view rendered from stale or empty
// data after a failed fetch.
func viewError(err error) string {
	_, msg := classify(err)
	return msg
}
