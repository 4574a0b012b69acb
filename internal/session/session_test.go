package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/internal/database"
	"orderdesk/internal/model"
	"orderdesk/internal/validation"
)

type fakeAuth struct {
	token string
	user  model.User
	err   error
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, form validation.LoginForm) (string, model.User, error) {
	f.calls++
	return f.token, f.user, f.err
}

func (f *fakeAuth) Register(ctx context.Context, form validation.RegisterForm) (string, model.User, error) {
	f.calls++
	return f.token, f.user, f.err
}

func newStore(t *testing.T, secret string) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDB(ctx, "sqlite", filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	require.NoError(t, database.InitSchema(ctx, db))
	s, err := NewStore(db, secret)
	require.NoError(t, err)
	return s
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-key"))
	require.NoError(t, err)
	return tok
}

func TestStoreRoundTripSealsToken(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "secret")

	user := model.User{ID: "u1", Username: "john", Email: "john@example.com", Role: model.RoleUser}
	require.NoError(t, s.Save(ctx, "tok-123", user))

	var raw string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT sealed_token FROM client_session`).Scan(&raw))
	assert.NotContains(t, raw, "tok-123")

	token, got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, user.Username, got.Username)

	require.NoError(t, s.Clear(ctx))
	_, _, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStoreWrongSecretIsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "one")
	require.NoError(t, s.Save(ctx, "tok", model.User{Username: "a"}))

	other, err := NewStore(s.db, "two")
	require.NoError(t, err)
	_, _, err = other.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoginPersistsAndFillsRoleFromToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, "k")
	auth := &fakeAuth{
		token: signed(t, jwt.MapClaims{"role": "admin", "user_id": "a1", "exp": time.Now().Add(time.Hour).Unix()}),
		user:  model.User{Username: "admin", Email: "admin@example.com"},
	}
	m := NewManager(store, auth)

	user, err := m.Login(ctx, validation.LoginForm{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Equal(t, "a1", user.ID)
	assert.NotEmpty(t, m.Token())

	restored := NewManager(store, auth)
	require.NoError(t, restored.Restore(ctx))
	u, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, "admin", u.Username)
	assert.Equal(t, m.Token(), restored.Token())
}

func TestLoginValidationBlocksNetwork(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(newStore(t, "k"), auth)

	_, err := m.Login(context.Background(), validation.LoginForm{Email: "bad"})
	require.Error(t, err)
	assert.Zero(t, auth.calls)
}

func TestLoginBackendErrorKeepsLoggedOut(t *testing.T) {
	auth := &fakeAuth{err: errors.New("Invalid credentials")}
	m := NewManager(newStore(t, "k"), auth)

	_, err := m.Login(context.Background(), validation.LoginForm{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	_, ok := m.User()
	assert.False(t, ok)
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, "k")
	expired := signed(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, store.Save(ctx, expired, model.User{Username: "old"}))

	m := NewManager(store, &fakeAuth{})
	require.NoError(t, m.Restore(ctx))
	_, ok := m.User()
	assert.False(t, ok)

	_, _, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestUnauthorizedBroadcastsExpiredOnce(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{token: "opaque", user: model.User{Username: "john", Role: model.RoleUser}}
	m := NewManager(newStore(t, "k"), auth)
	_, err := m.Login(ctx, validation.LoginForm{Email: "john@example.com", Password: "pw"})
	require.NoError(t, err)

	var reasons []string
	cancel := m.OnLogout(func(reason string) { reasons = append(reasons, reason) })
	defer cancel()

	m.HandleUnauthorized()
	m.HandleUnauthorized()

	assert.Equal(t, []string{ReasonExpired}, reasons)
	assert.True(t, m.Expired())
	assert.Empty(t, m.Token())

	_, err = m.Login(ctx, validation.LoginForm{Email: "john@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, m.Expired())
}

func TestRegisterWithoutToken(t *testing.T) {
	auth := &fakeAuth{user: model.User{Username: "newbie"}}
	m := NewManager(newStore(t, "k"), auth)

	user, started, err := m.Register(context.Background(), validation.RegisterForm{
		Username: "newbie", Email: "n@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, "newbie", user.Username)
	assert.Empty(t, m.Token())
}

func TestLoginNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{token: "opaque", user: model.User{Username: "john", Role: model.RoleUser}}
	m := NewManager(newStore(t, "k"), auth)

	var logins []string
	cancel := m.OnLogin(func(u model.User) { logins = append(logins, u.Username+":"+m.Token()) })

	_, err := m.Login(ctx, validation.LoginForm{Email: "bad", Password: "pw"})
	require.Error(t, err)
	assert.Empty(t, logins)

	_, err = m.Login(ctx, validation.LoginForm{Email: "john@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"john:opaque"}, logins)

	cancel()
	_, err = m.Login(ctx, validation.LoginForm{Email: "john@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Len(t, logins, 1)
}
