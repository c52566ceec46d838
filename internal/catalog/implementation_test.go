package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildBookUpdate(t *testing.T) {
	id := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty update rejected", func(t *testing.T) {
		_, _, err := buildBookUpdate(id, BookUpdate{}, now)
		assert.ErrorIs(t, err, ErrEmptyUpdate)
	})

	t.Run("single field", func(t *testing.T) {
		sqlQuery, args, err := buildBookUpdate(id, BookUpdate{Title: strPtr("Số Đỏ")}, now)
		require.NoError(t, err)

		assert.Contains(t, sqlQuery, `UPDATE "books"`)
		assert.Contains(t, sqlQuery, `"title"`)
		assert.Contains(t, sqlQuery, `"updated_at"`)
		assert.NotContains(t, sqlQuery, "Số Đỏ", "values must be parameterized")
		assert.Contains(t, args, "Số Đỏ")
		assert.Contains(t, args, id.String())
	})

	t.Run("all fields", func(t *testing.T) {
		update := BookUpdate{
			Title:       strPtr("t"),
			Author:      strPtr("a"),
			Category:    strPtr("c"),
			Description: strPtr("d"),
		}
		sqlQuery, args, err := buildBookUpdate(id, update, now)
		require.NoError(t, err)

		for _, col := range []string{`"title"`, `"author"`, `"category"`, `"description"`, `"updated_at"`} {
			assert.Contains(t, sqlQuery, col)
		}
		// four fields + updated_at + the id predicate
		assert.Len(t, args, 6)
	})

	t.Run("untouched fields stay out of the statement", func(t *testing.T) {
		sqlQuery, _, err := buildBookUpdate(id, BookUpdate{Author: strPtr("a")}, now)
		require.NoError(t, err)

		assert.NotContains(t, sqlQuery, `"title"`)
		assert.NotContains(t, sqlQuery, `"description"`)
	})
}

func TestBuildSearch(t *testing.T) {
	sqlQuery, args, err := buildSearch("tolkien")
	require.NoError(t, err)

	assert.Contains(t, sqlQuery, `FROM "books"`)
	assert.Contains(t, sqlQuery, "ILIKE")
	assert.Contains(t, sqlQuery, "LIMIT")
	assert.NotContains(t, sqlQuery, "tolkien", "pattern must be parameterized")

	// One pattern per matched column. Prepared mode parameterizes the
	// limit as well, so count only the patterns.
	patterns := 0
	for _, arg := range args {
		if arg == "%tolkien%" {
			patterns++
		}
	}
	assert.Equal(t, 3, patterns)
}
