package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2026, 1, 5, 9, 30, 0, 123, time.UTC), ID: uuid.New()}

	parsed, err := ParseCursor(cursor.Encode())
	require.NoError(t, err)
	require.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	require.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, parsed)

	for _, raw := range []string{"%%%", "bm9waXBl", Cursor{}.Encode()[:4]} {
		_, err := ParseCursor(raw)
		require.Error(t, err, raw)
	}
}

func TestBuildPage(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Build(rows, 2, key)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, next.ID)

	last := Build(rows[:1], 2, key)
	require.Len(t, last.Items, 1)
	require.Empty(t, last.NextCursor)

	empty := Build[row](nil, 2, key)
	require.NotNil(t, empty.Items)
}
