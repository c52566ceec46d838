package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libcirc/internal/audit"
	"libcirc/internal/catalog"
	"libcirc/internal/circulation"
	"libcirc/internal/config"
	"libcirc/internal/journal"
	"libcirc/internal/membership"
	"libcirc/internal/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	loanJournal := journal.New(db)
	circStore := postgres.NewCirculationStore(db, loanJournal, logger)

	rules := circulation.Rules{
		BorrowPeriodDays:  cfg.BorrowPeriodDays,
		MaxBooksPerMember: cfg.MaxBooksPerMember,
		FinePerDay:        cfg.FinePerDay,
	}

	circService := circulation.NewService(circStore, rules, logger)
	catalogService := catalog.NewService(db)
	membershipService := membership.NewService(db)
	auditor := audit.NewAuditor(db, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rateLimit(cfg.RequestsPerSecond, cfg.RequestBurst))

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/circulation", circulation.NewHandler(circService).Routes())
		r.Mount("/catalog", catalog.NewHandler(catalogService).Routes())
		r.Mount("/members", membership.NewHandler(membershipService).Routes())
		r.Mount("/journal", journal.NewHandler(loanJournal).Routes())
		r.Get("/audit", auditor.Handler())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("starting circulation API", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
