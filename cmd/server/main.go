package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/enrollment-service/internal/bootstrap"
	"github.com/coursehub/enrollment-service/internal/cache"
	"github.com/coursehub/enrollment-service/internal/concurrency"
	"github.com/coursehub/enrollment-service/internal/config"
	"github.com/coursehub/enrollment-service/internal/engine"
	"github.com/coursehub/enrollment-service/internal/logging"
	"github.com/coursehub/enrollment-service/internal/outbox"
	"github.com/coursehub/enrollment-service/internal/query"
	"github.com/coursehub/enrollment-service/internal/store/postgres"
	"github.com/coursehub/enrollment-service/internal/transport/rest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.Logger.With().
		Str("service", "enrollment-service").
		Str("env", cfg.AppEnv).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := postgres.ApplyMigrations(cfg.DBDSN); err != nil {
		log.Fatal().Err(err).Msg("apply migrations failed")
	}

	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")
	}

	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed, rate limiting and course-open cache will fail open")
		} else {
			log.Info().Msg("redis connected")
		}
	}
	defer redisCache.Close()

	seedCounts := bootstrap.Counts{
		Departments: cfg.InitDepartments,
		Professors:  cfg.InitProfessors,
		Courses:     cfg.InitCourses,
		Students:    cfg.InitStudents,
	}
	if seedCounts.Departments > 0 {
		if err := bootstrap.Run(rootCtx, dbPool, seedCounts, log); err != nil {
			log.Error().Err(err).Msg("bootstrap seeding failed, continuing")
		}
	}

	store := postgres.New(dbPool)
	locks := concurrency.NewRegistry()
	eng := engine.New(store, locks, cfg.MaxCreditsPerSemester)
	qsvc := query.New(store, redisCache)

	h := rest.NewHandler(eng, qsvc, dbPool, redisCache)

	httpHandler := rest.NewRouter(rest.RouterDeps{
		Handler:  h,
		Cache:    redisCache,
		RLLimit:  cfg.RLLimit,
		RLWindow: cfg.RLWindow,
	})

	if cfg.OutboxEnabled {
		worker := outbox.NewWorker(dbPool, cfg.RabbitExchange, log)
		go func() {
			if err := worker.Run(rootCtx, cfg.RabbitURL); err != nil && rootCtx.Err() == nil {
				log.Error().Err(err).Msg("outbox worker exited")
			}
		}()
		log.Info().Msg("outbox worker started")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
