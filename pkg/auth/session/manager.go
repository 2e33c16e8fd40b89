// Package session keeps refresh sessions in Redis, one per issued access token id.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

// store is the subset of pkg/redis.Client sessions need.
type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// AccessSessionChecker is what the auth middleware consults on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Rotation is the replacement pair issued by Rotate.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// record is the stored value. Only a digest of the refresh token is kept.
type record struct {
	UserID   uuid.UUID `json:"uid"`
	Digest   string    `json:"rt"`
	IssuedAt time.Time `json:"iat"`
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token it backs.
func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if refresh <= access {
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", refresh, access)
	}
	return &Manager{store: client, ttl: refresh, now: time.Now}, nil
}

// NewAccessID returns the identifier shared by a JWT's jti and its session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}

	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	value, err := json.Marshal(record{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, key(accessID), string(value), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate consumes the session behind oldAccessID and opens a new one for the same user.
// The old session is gone after the call whether or not the token matched, so a
// replayed or guessed refresh token also ends the legitimate session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := m.store.GetDel(ctx, key(oldAccessID))
	if errors.Is(err, goredis.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	var rec record
	if json.Unmarshal([]byte(stored), &rec) != nil || rec.UserID == uuid.Nil {
		return nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest(provided))) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	next := NewAccessID()
	token, err := m.Generate(ctx, rec.UserID, next)
	if err != nil {
		return nil, err
	}
	return &Rotation{UserID: rec.UserID, AccessID: next, RefreshToken: token}, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, key(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, key(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func key(accessID string) string {
	return redis.Key(redis.KeyspaceSession, "access", accessID)
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
