// Package pagination implements keyset cursors over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params are the raw page inputs from a request.
type Params struct {
	Limit  int
	Cursor string
}

// Size clamps Limit into [1, MaxLimit], using DefaultLimit when unset.
func (p Params) Size() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}
	return min(p.Limit, MaxLimit)
}

// After decodes Cursor. An empty cursor yields nil.
func (p Params) After() (*Cursor, error) {
	return Decode(p.Cursor)
}

// Cursor is the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Encode renders c as an opaque URL-safe token.
func (c Cursor) Encode() string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Cut trims rows fetched with size+1 to one page and returns the cursor for the next page,
// or "" when rows was the last page.
func Cut[T any](rows []T, size int, key func(T) Cursor) ([]T, string) {
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, key(rows[size-1]).Encode()
}
