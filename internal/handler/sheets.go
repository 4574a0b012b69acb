package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orderdesk/internal/model"
	"orderdesk/internal/mw"
	"orderdesk/internal/query"
)

func ListSheetsHandler(v *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheets, err := query.Fetch(r.Context(), v.Cache, query.NewKey(query.Sheets), v.Backend.Sheets)
		if err != nil {
			writeErr(w, err)
			return
		}
		if sheets == nil {
			sheets = []model.Sheet{}
		}
		writeJSON(w, http.StatusOK, sheets)
	}
}

type sheetRequest struct {
	Name string `json:"name"`
}

func CreateSheetHandler(actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		actor, _ := mw.UserFrom(r.Context())
		sheet, err := actions.CreateSheet(r.Context(), req.Name, actor)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sheet)
	}
}

func DeleteSheetHandler(actions Actions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := mw.UserFrom(r.Context())
		if err := actions.DeleteSheet(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
