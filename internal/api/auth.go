package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"orderdesk/internal/model"
	"orderdesk/internal/validation"
)

type authResponse struct {
	Token string    `json:"token"`
	User  *wireUser `json:"user"`
}

// decodeAuth reads {token, user} bare or under data. A response carrying only
// a user document is accepted as well (registration without auto-login).
func decodeAuth(raw []byte) (string, model.User, error) {
	raw = unwrap(raw, "data")
	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", model.User{}, fmt.Errorf("decode auth response: %w", err)
	}
	if resp.User != nil {
		return resp.Token, resp.User.model(), nil
	}
	var bare wireUser
	if err := json.Unmarshal(raw, &bare); err != nil {
		return "", model.User{}, fmt.Errorf("decode auth response: %w", err)
	}
	return resp.Token, bare.model(), nil
}

func (c *Client) Login(ctx context.Context, form validation.LoginForm) (string, model.User, error) {
	body, err := c.sendJSON(ctx, "login", http.MethodPost, "/user/login", form)
	if err != nil {
		return "", model.User{}, err
	}
	token, user, err := decodeAuth(body)
	if err != nil {
		return "", model.User{}, err
	}
	if user.Email == "" {
		user.Email = form.Email
	}
	return token, user, nil
}

func (c *Client) Register(ctx context.Context, form validation.RegisterForm) (string, model.User, error) {
	body, err := c.sendJSON(ctx, "register", http.MethodPost, "/user/register", form)
	if err != nil {
		return "", model.User{}, err
	}
	token, user, err := decodeAuth(body)
	if err != nil {
		return "", model.User{}, err
	}
	if user.Username == "" {
		user.Username = form.Username
	}
	if user.Email == "" {
		user.Email = form.Email
	}
	return token, user, nil
}
