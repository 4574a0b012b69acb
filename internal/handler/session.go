package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"

	"orderdesk/internal/api"
	"orderdesk/internal/model"
	"orderdesk/internal/session"
	"orderdesk/internal/validation"
)

const loginFailed = "Invalid email or password. Please try again."

type Sessions interface {
	Login(ctx context.Context, form validation.LoginForm) (model.User, error)
	Register(ctx context.Context, form validation.RegisterForm) (model.User, bool, error)
	Logout(ctx context.Context, reason string)
	User() (model.User, bool)
	Expired() bool
}

type sessionResponse struct {
	LoggedIn bool        `json:"loggedIn"`
	User     *model.User `json:"user,omitempty"`
	Expired  bool        `json:"expired,omitempty"`
}

func LoginHandler(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form validation.LoginForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		user, err := sessions.Login(r.Context(), form)
		if err != nil {
			var ve validatorv10.ValidationErrors
			var apiErr *api.Error
			switch {
			case errors.As(err, &ve):
				writeError(w, http.StatusBadRequest, validation.Message(err))
			case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
				writeError(w, http.StatusUnauthorized, loginFailed)
			default:
				writeErr(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, User: &user})
	}
}

func RegisterHandler(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form validation.RegisterForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		user, loggedIn, err := sessions.Register(r.Context(), form)
		if err != nil {
			writeErr(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse{LoggedIn: loggedIn, User: &user})
	}
}

func SessionHandler(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := sessions.User()
		if !ok {
			writeJSON(w, http.StatusOK, sessionResponse{Expired: sessions.Expired()})
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, User: &user})
	}
}

func LogoutHandler(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Logout(r.Context(), session.ReasonUser)
		w.WriteHeader(http.StatusNoContent)
	}
}
