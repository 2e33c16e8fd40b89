// Package idempotency records which deliveries a handler has already applied.
//
// Each Ledger owns one scope in the sf:idempotency keyspace. Claims are
// first-writer-wins with a TTL, and a handler that fails after claiming
// releases the claim so the next redelivery is processed again.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// DefaultTTL is used when New receives zero.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrNoScope = errors.New("idempotency scope is required")
	ErrNoID    = errors.New("delivery id is required")
)

type Ledger struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
	now   func() time.Time
}

func New(store redis.IdempotencyStore, scope string, ttl time.Duration) (*Ledger, error) {
	scope = strings.TrimSpace(scope)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case scope == "":
		return nil, ErrNoScope
	case ttl < 0:
		return nil, fmt.Errorf("idempotency ttl %s is negative", ttl)
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Ledger{store: store, scope: scope, ttl: ttl, now: time.Now}, nil
}

// Scope returns the key segment this ledger writes under.
func (l *Ledger) Scope() string { return l.scope }

// Claim marks id as handled. seen is true when an earlier delivery holds the mark.
func (l *Ledger) Claim(ctx context.Context, id string) (seen bool, err error) {
	key, err := l.key(id)
	if err != nil {
		return false, err
	}
	stamped, err := l.store.SetNX(ctx, key, l.now().UTC().Format(time.RFC3339), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !stamped, nil
}

// Release drops the mark for id.
func (l *Ledger) Release(ctx context.Context, id string) error {
	key, err := l.key(id)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(id string) (string, error) {
	if id = strings.TrimSpace(id); id == "" {
		return "", ErrNoID
	}
	return l.store.IdempotencyKey(l.scope, id), nil
}
