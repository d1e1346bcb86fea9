// Package pagination implements keyset pages ordered by (created_at, id)
// descending.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the position after the last row of a page.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Page is one page of a keyset listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Limit clamps a requested page size into [1, MaxLimit].
func Limit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// EncodeCursor renders the position of the row (lastID, timestamp) as an
// opaque URL-safe token.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := timestamp.UTC().Format(time.RFC3339Nano) + "," + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. An empty token is the first
// page and decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), ",")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// Trim turns a fetch of limit+1 rows into a page of at most limit rows. The
// extra row only signals that another page exists.
func Trim[T any](rows []T, limit int, key func(T) (string, time.Time)) *Page[T] {
	page := &Page[T]{Items: rows}
	if len(rows) <= limit {
		return page
	}

	page.Items = rows[:limit]
	page.HasMore = true
	if limit > 0 {
		id, ts := key(page.Items[limit-1])
		page.NextCursor = EncodeCursor(id, ts)
	}
	return page
}
