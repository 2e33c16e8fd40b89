package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type markStore struct {
	marks   map[string]time.Duration
	failSet error
}

func newMarkStore() *markStore {
	return &markStore{marks: map[string]time.Duration{}}
}

func (s *markStore) Get(_ context.Context, key string) (string, error) {
	if _, ok := s.marks[key]; ok {
		return "x", nil
	}
	return "", nil
}

func (s *markStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if s.failSet != nil {
		return false, s.failSet
	}
	if _, ok := s.marks[key]; ok {
		return false, nil
	}
	s.marks[key] = ttl
	return true, nil
}

func (s *markStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.marks, k)
	}
	return nil
}

func (s *markStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func TestClaimIsFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := newMarkStore()
	ledger, err := New(store, "stripe-webhook", time.Hour)
	require.NoError(t, err)

	seen, err := ledger.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.False(t, seen)
	require.Equal(t, time.Hour, store.marks["sf:idempotency:stripe-webhook:evt_1"])

	seen, err = ledger.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.True(t, seen)

	other, err := New(store, "consumed:analytics", time.Hour)
	require.NoError(t, err)
	seen, err = other.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.False(t, seen, "scopes do not share marks")
}

func TestReleaseAllowsReprocessing(t *testing.T) {
	ctx := context.Background()
	ledger, err := New(newMarkStore(), "consumed:analytics", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, ledger.ttl)

	_, err = ledger.Claim(ctx, "e-42")
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, "e-42"))

	seen, err := ledger.Claim(ctx, "e-42")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	_, err := New(nil, "s", time.Hour)
	require.Error(t, err)
	_, err = New(newMarkStore(), " ", time.Hour)
	require.ErrorIs(t, err, ErrNoScope)
	_, err = New(newMarkStore(), "s", -time.Second)
	require.Error(t, err)

	ledger, err := New(newMarkStore(), "s", time.Hour)
	require.NoError(t, err)
	_, err = ledger.Claim(context.Background(), "")
	require.ErrorIs(t, err, ErrNoID)
	require.ErrorIs(t, ledger.Release(context.Background(), "  "), ErrNoID)
}

func TestClaimWrapsStoreFailure(t *testing.T) {
	store := newMarkStore()
	store.failSet = errors.New("redis down")
	ledger, err := New(store, "s", time.Hour)
	require.NoError(t, err)

	_, err = ledger.Claim(context.Background(), "evt_9")
	require.ErrorIs(t, err, store.failSet)
	require.Contains(t, err.Error(), "sf:idempotency:s:evt_9")
}
