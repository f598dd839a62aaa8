package worker

// documento_worker.go
// Publishes quotation PDFs that could not be produced inline during
// activation. Transient failures are retried with backoff and end in the
// DLQ; the retry cron sweeps anything still missing afterwards.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cotizador/internal/apierror"
	"cotizador/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const documentoMaxAttempts = 3

// DocumentoPublisher renders, stores and links a quotation PDF.
type DocumentoPublisher interface {
	PublicarDocumento(ctx context.Context, id uuid.UUID) (string, error)
}

type DocumentoWorker struct {
	publisher DocumentoPublisher
	rdb       *redis.Client
}

func NewDocumentoWorker(publisher DocumentoPublisher, rdb *redis.Client) *DocumentoWorker {
	return &DocumentoWorker{publisher: publisher, rdb: rdb}
}

func (w *DocumentoWorker) Process(ctx context.Context, raw json.RawMessage) {
	var job dto.DocumentoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Msg("documento_worker: invalid payload")
		return
	}
	id, err := uuid.Parse(job.CotizacionID)
	if err != nil {
		log.Error().Str("cotizacion_id", job.CotizacionID).Msg("documento_worker: invalid cotizacion_id")
		return
	}

	var url string
	attempts := 0
	err = withRetry(ctx, documentoMaxAttempts, func(attempt int) error {
		attempts = attempt + 1
		u, err := w.publisher.PublicarDocumento(ctx, id)
		if err != nil {
			// Quotation gone or no longer PENDIENTE_PAGO.
			if apierror.Is(err, http.StatusBadRequest) || apierror.Is(err, http.StatusNotFound) {
				return permanent(err)
			}
			log.Warn().Err(err).Int("attempt", attempts).Str("cotizacion_id", job.CotizacionID).
				Msg("documento_worker: publish failed")
			return err
		}
		url = u
		return nil
	})

	switch {
	case err == nil:
		log.Info().Str("cotizacion_id", job.CotizacionID).Str("url", url).Msg("documento_worker: document published")
	case isPermanent(err):
		log.Info().Err(err).Str("cotizacion_id", job.CotizacionID).Msg("documento_worker: job discarded")
	default:
		SendToDLQ(ctx, w.rdb, QueueDocumentos, JobDocumento, raw,
			fmt.Sprintf("max retries (%d) exceeded: %s", documentoMaxAttempts, err), attempts)
	}
}
