package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Config holds everything the engine consumes from the environment.
// Borrowing policy values are inputs, not constants baked into the engine.
type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	BorrowPeriodDays  int
	MaxBooksPerMember int
	FinePerDay        int64 // VND per overdue day

	RequestsPerSecond float64
	RequestBurst      int

	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		Env:         getenv("APP_ENV", "dev"),

		BorrowPeriodDays:  getint("BORROW_PERIOD_DAYS", 14),
		MaxBooksPerMember: getint("MAX_BOOKS_PER_MEMBER", 5),
		FinePerDay:        getint64("FINE_PER_DAY", 10000),

		RequestsPerSecond: getfloat("RATE_LIMIT_RPS", 50),
		RequestBurst:      getint("RATE_LIMIT_BURST", 100),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env value, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getint64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer env value, using default", "key", k, "value", v)
		return def
	}
	return n
}

func getfloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float env value, using default", "key", k, "value", v)
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
