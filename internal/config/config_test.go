package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/libcirc_test")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 14, cfg.BorrowPeriodDays)
	assert.Equal(t, 5, cfg.MaxBooksPerMember)
	assert.Equal(t, int64(10000), cfg.FinePerDay)
	assert.Equal(t, 50.0, cfg.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RequestBurst)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/libcirc_test")
	t.Setenv("PORT", "9090")
	t.Setenv("BORROW_PERIOD_DAYS", "7")
	t.Setenv("MAX_BOOKS_PER_MEMBER", "3")
	t.Setenv("FINE_PER_DAY", "25000")
	t.Setenv("RATE_LIMIT_RPS", "10.5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 7, cfg.BorrowPeriodDays)
	assert.Equal(t, 3, cfg.MaxBooksPerMember)
	assert.Equal(t, int64(25000), cfg.FinePerDay)
	assert.Equal(t, 10.5, cfg.RequestsPerSecond)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/libcirc_test")
	t.Setenv("BORROW_PERIOD_DAYS", "fortnight")
	t.Setenv("FINE_PER_DAY", "ten thousand")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg := Load()

	assert.Equal(t, 14, cfg.BorrowPeriodDays)
	assert.Equal(t, int64(10000), cfg.FinePerDay)
	assert.Equal(t, 50.0, cfg.RequestsPerSecond)
}

func TestLoadPanicsWithoutDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	assert.Panics(t, func() { Load() })
}
