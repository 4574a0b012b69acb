package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"orderdesk/internal/model"
	"orderdesk/internal/validation"
)

// Logout reasons passed to OnLogout listeners.
const (
	ReasonUser    = "logged out"
	ReasonExpired = "session expired"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the backend side of login and registration. A register
// call may return an empty token when the backend does not sign the user in.
type Authenticator interface {
	Login(ctx context.Context, form validation.LoginForm) (string, model.User, error)
	Register(ctx context.Context, form validation.RegisterForm) (string, model.User, error)
}

type Manager struct {
	store    *Store
	auth     Authenticator
	validate *validatorv10.Validate
	now      func() time.Time

	mu        sync.Mutex
	token     string
	user      *model.User
	expired   bool
	listeners map[int]func(reason string)
	logins    map[int]func(model.User)
	nextID    int
}

func NewManager(store *Store, auth Authenticator) *Manager {
	return &Manager{
		store:     store,
		auth:      auth,
		validate:  validation.New(),
		now:       time.Now,
		listeners: make(map[int]func(string)),
		logins:    make(map[int]func(model.User)),
	}
}

// Restore loads a previously saved session. A token whose exp claim has
// passed is discarded instead of being offered to the backend.
func (m *Manager) Restore(ctx context.Context) error {
	token, user, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		if errors.Is(err, ErrCorrupt) {
			slog.Warn("discarding unreadable session", "error", err)
			return m.store.Clear(ctx)
		}
		return err
	}

	if claims := parseClaims(token); claims.expired(m.now()) {
		slog.Info("saved session expired", "user", user.Username)
		return m.store.Clear(ctx)
	}

	m.mu.Lock()
	m.token = token
	m.user = &user
	m.mu.Unlock()
	slog.Info("session restored", "user", user.Username, "role", user.Role)
	return nil
}

func (m *Manager) Login(ctx context.Context, form validation.LoginForm) (model.User, error) {
	if err := m.validate.Struct(form); err != nil {
		return model.User{}, err
	}
	token, user, err := m.auth.Login(ctx, form)
	if err != nil {
		return model.User{}, fmt.Errorf("login: %w", err)
	}
	if err := m.begin(ctx, token, user); err != nil {
		return model.User{}, err
	}
	return m.current(), nil
}

// Register creates the account and signs in when the backend hands back a
// token. The returned bool reports whether a session was started.
func (m *Manager) Register(ctx context.Context, form validation.RegisterForm) (model.User, bool, error) {
	if err := m.validate.Struct(form); err != nil {
		return model.User{}, false, err
	}
	token, user, err := m.auth.Register(ctx, form)
	if err != nil {
		return model.User{}, false, fmt.Errorf("register: %w", err)
	}
	if token == "" {
		return user, false, nil
	}
	if err := m.begin(ctx, token, user); err != nil {
		return model.User{}, false, err
	}
	return m.current(), true, nil
}

func (m *Manager) begin(ctx context.Context, token string, user model.User) error {
	claims := parseClaims(token)
	if user.Role == "" {
		user.Role = claims.role
	}
	if user.ID == "" {
		user.ID = claims.userID
	}
	if err := m.store.Save(ctx, token, user); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.user = &user
	m.expired = false
	logins := make([]func(model.User), 0, len(m.logins))
	for _, fn := range m.logins {
		logins = append(logins, fn)
	}
	m.mu.Unlock()
	slog.Info("logged in", "user", user.Username, "role", user.Role)
	for _, fn := range logins {
		fn(user)
	}
	return nil
}

// Logout clears credentials and notifies listeners. Logging out twice is a
// no-op the second time.
func (m *Manager) Logout(ctx context.Context, reason string) {
	m.mu.Lock()
	if m.user == nil && m.token == "" {
		m.mu.Unlock()
		return
	}
	m.token = ""
	m.user = nil
	if reason == ReasonExpired {
		m.expired = true
	}
	listeners := make([]func(string), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	slog.Info("logged out", "reason", reason)
	for _, fn := range listeners {
		fn(reason)
	}
}

// HandleUnauthorized is installed as the API client's 401 hook.
func (m *Manager) HandleUnauthorized() {
	m.Logout(context.Background(), ReasonExpired)
}

// OnLogout registers fn to be called after every logout.
func (m *Manager) OnLogout(fn func(reason string)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// OnLogin registers fn to be called after every successful login or
// token-issuing registration.
func (m *Manager) OnLogin(fn func(model.User)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.logins[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.logins, id)
		m.mu.Unlock()
	}
}

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) User() (model.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// Expired reports whether the last logout was forced by the backend.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

func (m *Manager) current() model.User {
	u, _ := m.User()
	return u
}

type tokenClaims struct {
	exp    *time.Time
	role   model.Role
	userID string
}

func (c tokenClaims) expired(now time.Time) bool {
	return c.exp != nil && !now.Before(*c.exp)
}

// parseClaims reads claims without verifying the signature; the backend owns
// the key. Opaque tokens yield empty claims.
func parseClaims(token string) tokenClaims {
	var out tokenClaims
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return out
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		out.exp = &t
	}
	if role, ok := claims["role"].(string); ok {
		out.role = model.Role(role)
	}
	if nested, ok := claims["user"].(map[string]interface{}); ok {
		if role, ok := nested["role"].(string); ok && out.role == "" {
			out.role = model.Role(role)
		}
		if id, ok := nested["id"].(string); ok {
			out.userID = id
		}
	}
	if id, ok := claims["user_id"].(string); ok && out.userID == "" {
		out.userID = id
	}
	return out
}
