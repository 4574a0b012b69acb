package handler

import (
	"context"
	"log/slog"
	"net/http"

	"orderdesk/internal/api"
	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/query"
	"orderdesk/internal/view"
)

func DashboardHandler(v *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var msg string

		statsKey := query.NewKey(query.OverallOrders)
		stats, err := query.Fetch(ctx, v.Cache, statsKey, v.Backend.OverallStats)
		if err != nil {
			if handledUnauthorized(w, err) {
				return
			}
			slog.Warn("failed to load stats", "error", err)
			msg = viewError(err)
			stats, _ = query.Peek[api.Stats](v.Cache, statsKey)
		}

		st := listing.NewState(view.RecentOrders)
		recentKey := ordersKey(st)
		recent, err := query.Fetch(ctx, v.Cache, recentKey, func(ctx context.Context) (listing.Page[model.Order], error) {
			return v.Backend.ListOrders(ctx, st)
		})
		if err != nil {
			if handledUnauthorized(w, err) {
				return
			}
			slog.Warn("failed to load recent orders", "error", err)
			msg = viewError(err)
			recent, _ = query.Peek[listing.Page[model.Order]](v.Cache, recentKey)
		}

		d := view.BuildDashboard(v.Catalog, v.Format, stats, recent.Items, v.live())
		d.Error = msg
		writeJSON(w, http.StatusOK, d)
	}
}

func ordersKey(st listing.State) query.Key {
	return query.NewKey(query.Orders, st.Page, st.PerPage, st.Search, st.Status)
}

// handledUnauthorized answers 401 when the backend rejected the session;
// any other fetch failure still renders the view.
func handledUnauthorized(w http.ResponseWriter, err error) bool {
	code, msg := classify(err)
	if code != http.StatusUnauthorized {
		return false
	}
	writeError(w, code, msg)
	return true
}
