// Package pagination implements newest-first keyset pagination over
// (created_at, id) for the admin list endpoints.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params is the page request as it arrives from the API.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	return max(1, min(limitOrDefault(limit), MaxLimit))
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// LimitWithBuffer is NormalizeLimit plus the look-ahead row.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Encode renders the cursor as an opaque URL-safe token. A nil cursor
// encodes to "".
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 36) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func EncodeCursor(c Cursor) string {
	return c.Encode()
}

// ParseCursor returns nil, nil for a blank token.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(nanos, 36, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: parsedID}, nil
}

// Keyset orders q newest first, resumes after cursor when set and asks for
// pageSize+1 rows. prefix qualifies the columns for joined queries ("o.").
func Keyset(q *gorm.DB, prefix string, cursor *Cursor, pageSize int) *gorm.DB {
	createdAt, id := prefix+"created_at", prefix+"id"
	if cursor != nil {
		q = q.Where("("+createdAt+" < ?) OR ("+createdAt+" = ? AND "+id+" < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	return q.Order(createdAt + " DESC").Order(id + " DESC").Limit(pageSize + 1)
}

// Trim drops the look-ahead row and returns the cursor for the next page,
// or nil on the last page.
func Trim[T any](rows []T, pageSize int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= pageSize {
		return rows, nil
	}
	rows = rows[:pageSize]
	next := key(rows[len(rows)-1])
	return rows, &next
}
