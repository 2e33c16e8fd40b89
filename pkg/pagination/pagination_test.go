package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParamsSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Params{}.Size())
	require.Equal(t, DefaultLimit, Params{Limit: -3}.Size())
	require.Equal(t, 7, Params{Limit: 7}.Size())
	require.Equal(t, MaxLimit, Params{Limit: MaxLimit + 50}.Size())
}

func TestCursorRoundTrip(t *testing.T) {
	loc := time.FixedZone("cairo", 2*60*60)
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 123, loc), ID: uuid.New()}

	got, err := Params{Cursor: want.Encode()}.After()
	require.NoError(t, err)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, time.UTC, got.CreatedAt.Location())
	require.Equal(t, want.ID, got.ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c, err := Decode("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	for _, token := range []string{"%%%", "bm90LWpzb24", "e30"} {
		_, err := Decode(token)
		require.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestCut(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Hour), ID: uuid.New()}
	}
	self := func(c Cursor) Cursor { return c }

	page, next := Cut(rows, 3, self)
	require.Len(t, page, 3)
	after, err := Decode(next)
	require.NoError(t, err)
	require.Equal(t, rows[2].ID, after.ID)

	page, next = Cut(rows[:2], 3, self)
	require.Len(t, page, 2)
	require.Empty(t, next)
}
