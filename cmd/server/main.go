package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cotizador/internal/config"
	"cotizador/internal/infra"
	"cotizador/internal/repository"
	"cotizador/internal/router"
	"cotizador/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.AutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("migrations applied")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Infrastructure ───────────────────────────────────────────────────────
	storageCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("storage"))
	storage, err := infra.NewObjectStorage(ctx, cfg, storageCB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to init object storage")
	}
	renderer := infra.NewCotizacionPDF(infra.Empresa{
		Nombre:    cfg.EmpresaNombre,
		RUC:       cfg.EmpresaRUC,
		Direccion: cfg.EmpresaDireccion,
		Telefono:  cfg.EmpresaTelefono,
		Email:     cfg.EmpresaEmail,
	})
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)

	svcs := router.NewServices(cfg, db, rdb, storage, renderer, dispatcher)
	r, limiter := router.New(cfg, db, rdb, svcs, storageCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Async jobs: document publication and notification emails.
	// Handlers are wired here (composition root) so the pool sees every
	// infrastructure dependency.
	g.Go(func() error {
		return worker.StartWorkerPool(gctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
			worker.JobDocumento: worker.NewDocumentoWorker(svcs.Cotizaciones, rdb),
			worker.JobEmail:     worker.NewEmailWorker(mailer, rdb),
		})
	})

	// Fallback sweep for quotations still without a PDF.
	g.Go(func() error {
		return worker.StartRetryCron(gctx, worker.RetryCronConfig{
			Repo:      repository.NewCotizacionRepository(db),
			Publisher: svcs.Cotizaciones,
			CB:        storageCB,
			Interval:  cfg.DocumentRetryInterval,
		})
	})

	g.Go(func() error {
		limiter.RunPurge(gctx.Done())
		return nil
	})

	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("cotizador backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown on SIGINT / SIGTERM
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev → pretty console, prod → JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "cotizador").Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
