package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cotizador/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	QueueDocumentos = "jobs:documentos"
	QueueEmail      = "jobs:email"

	JobDocumento = "documento"
	JobEmail     = "email"
)

// popTimeout bounds each BRPOP so workers notice cancellation.
const popTimeout = 5 * time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes the payload of one job. Failures are handled inside
// (retries, DLQ); the pool only routes.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage)
}

// Handlers maps a job type to the handler that consumes it.
type Handlers map[string]Handler

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueDocumento asks for a quotation PDF to be (re)published.
func (d *Dispatcher) EnqueueDocumento(ctx context.Context, job dto.DocumentoJob) error {
	return d.enqueue(ctx, QueueDocumentos, JobDocumento, job)
}

// EnqueueEmail pushes a notification email.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, job dto.EmailJob) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, job)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool runs numWorkers goroutines consuming both queues and blocks
// until ctx is cancelled. Each goroutine blocks on BRPOP, so idle workers
// cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		id := i
		g.Go(func() error {
			runWorker(ctx, rdb, id, handlers)
			return nil
		})
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
	return g.Wait()
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	queues := []string{QueueDocumentos, QueueEmail}
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		}
		result, err := rdb.BRPop(ctx, popTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		processJob(ctx, handlers, result[0], result[1])
	}
}

func processJob(ctx context.Context, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	h.Process(ctx, job.Payload)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
