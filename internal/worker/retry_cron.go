package worker

// retry_cron.go
// Periodic sweep for priced quotations left without a document (storage down
// during activation, jobs lost or dead-lettered, payment committed while the
// PDF was being linked). Every row is stamped before its attempt so rows that
// keep failing rotate behind the rest. Skips the tick while the storage
// circuit breaker is open.

import (
	"context"
	"time"

	"cotizador/internal/infra"
	"cotizador/internal/model"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const retryBatchSize = 20

// DocumentosPendientes lists quotations still waiting for their PDF.
type DocumentosPendientes interface {
	ListSinDocumento(ctx context.Context, limit int) ([]model.Cotizacion, error)
	MarcarIntentoDocumento(ctx context.Context, id uuid.UUID) error
}

// RetryCronConfig holds all dependencies for the retry job.
type RetryCronConfig struct {
	Repo      DocumentosPendientes
	Publisher DocumentoPublisher
	CB        *infra.CircuitBreaker // optional
	Interval  time.Duration
}

// StartRetryCron schedules the sweep with gocron and blocks until ctx is
// cancelled, then shuts the scheduler down.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) error {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(func() { processRetries(ctx, cfg) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	log.Info().Dur("interval", cfg.Interval).Msg("retry_cron: started")

	<-ctx.Done()
	log.Info().Msg("retry_cron: shutting down")
	return scheduler.Shutdown()
}

// processRetries returns how many documents were published.
func processRetries(ctx context.Context, cfg RetryCronConfig) int {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	pendientes, err := cfg.Repo.ListSinDocumento(ctx, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query quotations without document")
		return 0
	}
	if len(pendientes) == 0 {
		return 0
	}
	log.Info().Int("count", len(pendientes)).Msg("retry_cron: publishing missing documents")

	publicados := 0
	for i := range pendientes {
		if ctx.Err() != nil {
			return publicados
		}
		// The breaker may trip mid-batch.
		if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return publicados
		}
		id := pendientes[i].ID
		if err := cfg.Repo.MarcarIntentoDocumento(ctx, id); err != nil {
			log.Warn().Err(err).Str("cotizacion_id", id.String()).Msg("retry_cron: failed to stamp attempt")
		}
		url, err := cfg.Publisher.PublicarDocumento(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("cotizacion_id", id.String()).Msg("retry_cron: document retry failed")
			continue
		}
		publicados++
		log.Info().Str("cotizacion_id", id.String()).Str("url", url).Msg("retry_cron: document published after retry")
	}
	return publicados
}
