// Package session keeps refresh sessions in Redis. Each session is stored
// twice: the refresh-token hash maps to the session, and the access id (the
// JWT jti) maps back to that hash so an access token can be revoked.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgredis "github.com/angelmondragon/surplus-backend/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errAccessIDRequired = errors.New("access id is required")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type keyspace interface {
	AccessSessionKey(accessID string) string
	RefreshSessionKey(tokenHash string) string
}

// Session is the identity a refresh token resolves to.
type Session struct {
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.UserRole `json:"role"`
	AccessID string         `json:"access_id"`
}

// Issued is a new session with its opaque refresh token. Only the token's
// sha256 is persisted.
type Issued struct {
	Session
	RefreshToken string
}

// AccessSessionChecker is the read-only view the auth middleware uses.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	kv   store
	keys keyspace
	ttl  time.Duration
}

func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return newManager(client, client, cfg)
}

func newManager(kv store, keys keyspace, cfg config.JWTConfig) (*Manager, error) {
	refresh, access := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if refresh <= 0 || refresh <= access {
		return nil, fmt.Errorf("session: refresh ttl %s must be positive and exceed access ttl %s", refresh, access)
	}
	return &Manager{kv: kv, keys: keys, ttl: refresh}, nil
}

// NewAccessID mints the id used as JWT jti and access-session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for the user under a new access id.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, role enums.UserRole) (Issued, error) {
	if userID == uuid.Nil {
		return Issued{}, errors.New("session: user id is required")
	}
	return m.open(ctx, Session{UserID: userID, Role: role, AccessID: NewAccessID()})
}

// Rotate consumes a refresh token and opens a replacement session. The old
// refresh record is removed atomically, so of two concurrent rotations with
// the same token only one succeeds; replays get ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (Issued, error) {
	prev, err := m.consume(ctx, refreshToken)
	if err != nil {
		return Issued{}, err
	}
	if err := m.kv.Del(ctx, m.keys.AccessSessionKey(prev.AccessID)); err != nil {
		return Issued{}, fmt.Errorf("session: drop access key: %w", err)
	}
	return m.open(ctx, Session{UserID: prev.UserID, Role: prev.Role, AccessID: NewAccessID()})
}

// Revoke ends the session behind a refresh token. Unknown tokens are a no-op.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	prev, err := m.consume(ctx, refreshToken)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return nil
	case err != nil:
		return err
	}
	return m.kv.Del(ctx, m.keys.AccessSessionKey(prev.AccessID))
}

// RevokeAccess ends the session an access token was minted under.
func (m *Manager) RevokeAccess(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	hash, err := m.kv.GetDel(ctx, m.keys.AccessSessionKey(accessID))
	switch {
	case pkgredis.IsNil(err):
		return nil
	case err != nil:
		return err
	}
	return m.kv.Del(ctx, m.keys.RefreshSessionKey(hash))
}

// HasSession reports whether accessID still belongs to a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.kv.Get(ctx, m.keys.AccessSessionKey(accessID))
	switch {
	case pkgredis.IsNil(err):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, s Session) (Issued, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Issued{}, fmt.Errorf("session: refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	body, err := json.Marshal(s)
	if err != nil {
		return Issued{}, fmt.Errorf("session: encode: %w", err)
	}

	hash := digest(token)
	if err := m.kv.Set(ctx, m.keys.RefreshSessionKey(hash), body, m.ttl); err != nil {
		return Issued{}, err
	}
	if err := m.kv.Set(ctx, m.keys.AccessSessionKey(s.AccessID), hash, m.ttl); err != nil {
		return Issued{}, err
	}
	return Issued{Session: s, RefreshToken: token}, nil
}

// consume removes and returns the session a refresh token points at.
func (m *Manager) consume(ctx context.Context, refreshToken string) (Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Session{}, ErrInvalidRefreshToken
	}
	body, err := m.kv.GetDel(ctx, m.keys.RefreshSessionKey(digest(refreshToken)))
	switch {
	case pkgredis.IsNil(err):
		return Session{}, ErrInvalidRefreshToken
	case err != nil:
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return Session{}, ErrInvalidRefreshToken
	}
	return s, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
