// Package main is the entry point for the FleetOps API server. It wires
// configuration, storage, notifications and HTTP together; business rules
// live in internal/service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/fleetops/api"
	"github.com/pkordes/fleetops/internal/config"
	"github.com/pkordes/fleetops/internal/handler"
	"github.com/pkordes/fleetops/internal/middleware"
	"github.com/pkordes/fleetops/internal/notify"
	"github.com/pkordes/fleetops/internal/repo"
	"github.com/pkordes/fleetops/internal/service"
	"github.com/pkordes/fleetops/migrations"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(ctx, db, logger)
		db.Close()
		if err != nil {
			return err
		}
	}

	// --- Notifications ----------------------------------------------------
	notifiers := notify.Fanout{notify.NewLogNotifier(logger)}
	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close amqp publisher", "error", err)
			}
		}()
		notifiers = append(notifiers, pub)
		logger.Info("publishing events to amqp", "exchange", cfg.AMQPExchange)
	}

	// --- Services ---------------------------------------------------------
	store := repo.NewStore(pool)
	opts := []service.Option{service.WithNotifier(notifiers), service.WithLogger(logger)}
	srv := handler.NewServer(handler.Services{
		Trips:      service.NewTripService(store, opts...),
		Shipments:  service.NewShipmentService(store, opts...),
		Fleet:      service.NewFleetService(store, opts...),
		Scheduling: service.NewSchedulingService(store, opts...),
		Issues:     service.NewIssueService(store, opts...),
	}, api.OpenAPI, logger)

	// --- Router -----------------------------------------------------------
	// RequestID runs first so the request log and error responses share the id.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	verifier := middleware.NewTokenVerifier([]byte(cfg.JWTSecret))
	r.Mount("/", srv.Routes(middleware.Authenticate(verifier, logger)))

	// --- HTTP server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
