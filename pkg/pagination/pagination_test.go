package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 891011, time.UTC), ID: uuid.New()}

	token := c.Encode()
	assert.NotContains(t, token, "=")

	parsed, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	for _, token := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("no-dot")),
		base64.RawURLEncoding.EncodeToString([]byte("zz.not-a-uuid")),
		base64.RawURLEncoding.EncodeToString([]byte("!!." + uuid.NewString())),
	} {
		_, err := ParseCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
	assert.Equal(t, "", (*Cursor)(nil).Encode())
}

func TestTrim(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	now := time.Now()
	rows := []row{{now, uuid.New()}, {now.Add(-time.Second), uuid.New()}, {now.Add(-2 * time.Second), uuid.New()}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, rows[1].id, next.ID)

	page, next = Trim(rows, 3, key)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}
