package worker

// email_worker.go
// Processes notification jobs from QueueEmail via SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"cotizador/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const emailMaxAttempts = 3

// MailSender is satisfied by infra.Mailer.
type MailSender interface {
	Send(to, subject, body string) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer MailSender
	rdb    *redis.Client
}

// NewEmailWorker creates an EmailWorker with the provided SMTP mailer.
func NewEmailWorker(mailer MailSender, rdb *redis.Client) *EmailWorker {
	return &EmailWorker{mailer: mailer, rdb: rdb}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var job dto.EmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if job.ToEmail == "" {
		log.Warn().Str("plantilla", job.Plantilla).Msg("email_worker: empty to_email, skipping")
		return
	}

	attempts := 0
	err := withRetry(ctx, emailMaxAttempts, func(attempt int) error {
		attempts = attempt + 1
		return w.mailer.Send(job.ToEmail, job.Subject, job.Body)
	})
	if err != nil {
		log.Error().Err(err).Str("to", job.ToEmail).Str("plantilla", job.Plantilla).Msg("email_worker: failed to send email")
		SendToDLQ(ctx, w.rdb, QueueEmail, JobEmail, raw,
			fmt.Sprintf("max retries (%d) exceeded: %s", emailMaxAttempts, err), attempts)
		return
	}
	log.Info().Str("to", job.ToEmail).Str("plantilla", job.Plantilla).Msg("email_worker: email sent")
}
