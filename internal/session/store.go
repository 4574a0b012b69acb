package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"orderdesk/internal/model"
)

var (
	ErrNoSession = errors.New("no saved session")
	ErrCorrupt   = errors.New("saved session cannot be opened")
)

const slotCurrent = "current"

// Store persists the auth token and user profile. The token is sealed with a
// key derived from the configured secret; the profile is stored as JSON.
type Store struct {
	db  *sql.DB
	key [32]byte
}

func NewStore(db *sql.DB, secret string) (*Store, error) {
	s := &Store{db: db}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("orderdesk session token"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return s, nil
}

func (s *Store) Save(ctx context.Context, token string, user model.User) error {
	sealed, err := s.seal([]byte(token))
	if err != nil {
		return err
	}
	profile, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	query := `
		INSERT INTO client_session (slot, sealed_token, profile, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot) DO UPDATE
		SET sealed_token = excluded.sealed_token, profile = excluded.profile, saved_at = excluded.saved_at`
	if _, err := s.db.ExecContext(ctx, query, slotCurrent, sealed, string(profile), time.Now().UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (string, model.User, error) {
	var sealed, profile string
	row := s.db.QueryRowContext(ctx, `SELECT sealed_token, profile FROM client_session WHERE slot = $1`, slotCurrent)
	if err := row.Scan(&sealed, &profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.User{}, ErrNoSession
		}
		return "", model.User{}, fmt.Errorf("load session: %w", err)
	}

	token, err := s.open(sealed)
	if err != nil {
		return "", model.User{}, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(profile), &user); err != nil {
		return "", model.User{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return string(token), user, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_session WHERE slot = $1`, slotCurrent); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) seal(plain []byte) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plain, &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Store) open(encoded string) ([]byte, error) {
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(box) < 24 {
		return nil, ErrCorrupt
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return nil, ErrCorrupt
	}
	return plain, nil
}
