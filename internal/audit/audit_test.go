package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("consistent counters produce no findings", func(t *testing.T) {
		rows := []Finding{
			{BookID: uuid.New(), Title: "a", TotalCopies: 3, AvailableCopies: 1, OpenLoans: 2},
			{BookID: uuid.New(), Title: "b", TotalCopies: 5, AvailableCopies: 5, OpenLoans: 0},
			{BookID: uuid.New(), Title: "c", TotalCopies: 1, AvailableCopies: 0, OpenLoans: 1},
		}

		report := Evaluate(rows, at)

		assert.Equal(t, at, report.AuditedAt)
		assert.Equal(t, 3, report.BooksChecked)
		assert.True(t, report.Consistent())
	})

	t.Run("counter drift is flagged", func(t *testing.T) {
		drifted := uuid.New()
		rows := []Finding{
			{BookID: uuid.New(), Title: "ok", TotalCopies: 2, AvailableCopies: 2, OpenLoans: 0},
			{BookID: drifted, Title: "drifted", TotalCopies: 3, AvailableCopies: 2, OpenLoans: 2},
		}

		report := Evaluate(rows, at)

		require.Len(t, report.Findings, 1)
		assert.Equal(t, drifted, report.Findings[0].BookID)
		assert.Equal(t, 1, report.Findings[0].ExpectedAvailable)
		assert.False(t, report.Consistent())
	})

	t.Run("negative availability is flagged even when arithmetic matches", func(t *testing.T) {
		rows := []Finding{
			{BookID: uuid.New(), Title: "broken", TotalCopies: 2, AvailableCopies: -1, OpenLoans: 3},
		}

		report := Evaluate(rows, at)

		assert.Len(t, report.Findings, 1)
	})

	t.Run("availability above total is flagged", func(t *testing.T) {
		rows := []Finding{
			{BookID: uuid.New(), Title: "broken", TotalCopies: 2, AvailableCopies: 3, OpenLoans: -1},
		}

		report := Evaluate(rows, at)

		assert.Len(t, report.Findings, 1)
	})

	t.Run("empty catalog is consistent", func(t *testing.T) {
		report := Evaluate(nil, at)

		assert.Zero(t, report.BooksChecked)
		assert.True(t, report.Consistent())
	})
}
