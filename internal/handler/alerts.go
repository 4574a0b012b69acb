package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orderdesk/internal/api"
	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/query"
	"orderdesk/internal/view"
)

func AlertHistoryHandler(v *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := readState(r, listing.DefaultAlertsPerPage, v.Catalog)
		if err != nil {
			writeErr(w, err)
			return
		}

		hq := api.HistoryQuery{
			Page:    st.Page,
			PerPage: st.PerPage,
			OrderID: st.OrderID,
			Status:  st.StatusFilter(),
		}
		key := query.NewKey(query.AlertHistory, hq.Page, hq.PerPage, hq.OrderID, hq.Status)
		page, err := query.Fetch(r.Context(), v.Cache, key, func(ctx context.Context) (listing.Page[model.StatusHistoryEntry], error) {
			return v.Backend.AlertHistory(ctx, hq)
		})
		var msg string
		if err != nil {
			if handledUnauthorized(w, err) {
				return
			}
			slog.Warn("failed to load alert history", "error", err)
			msg = viewError(err)
			page, _ = query.Peek[listing.Page[model.StatusHistoryEntry]](v.Cache, key)
		}

		out := view.BuildAlerts(v.Catalog, v.Format, page, st, v.live())
		out.Error = msg
		writeJSON(w, http.StatusOK, out)
	}
}

// Notifications is the in-memory bell list fed by push events.
type Notifications interface {
	List() []model.AlertNotification
	UnreadCount() int
	MarkAsRead(id string) bool
	MarkAllAsRead()
	Clear()
}

func BellHandler(v *Views, n Notifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, view.BuildBell(v.Catalog, v.Format, n.List(), n.UnreadCount(), v.live()))
	}
}

func MarkReadHandler(n Notifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !n.MarkAsRead(chi.URLParam(r, "id")) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func MarkAllReadHandler(n Notifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.MarkAllAsRead()
		w.WriteHeader(http.StatusNoContent)
	}
}

func ClearNotificationsHandler(n Notifications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}
