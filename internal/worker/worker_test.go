package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cotizador/internal/apierror"
	"cotizador/internal/dto"
	"cotizador/internal/infra"
	"cotizador/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func fastRetries(t *testing.T) {
	t.Helper()
	prev := retryBaseDelay
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = prev })
}

func readDLQ(t *testing.T, rdb *redis.Client, queue string) []DLQEntry {
	t.Helper()
	raw, err := rdb.LRange(context.Background(), DLQPrefix+queue, 0, -1).Result()
	require.NoError(t, err)
	out := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		require.NoError(t, json.Unmarshal([]byte(r), &e))
		out = append(out, e)
	}
	return out
}

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakePublisher struct {
	mu    sync.Mutex
	calls []uuid.UUID
	errs  []error // consumed one per call; nil when exhausted
}

func (p *fakePublisher) PublicarDocumento(_ context.Context, id uuid.UUID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, id)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "mem://cotizaciones/" + id.String() + "/cotizacion.pdf", nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type recordingHandler struct {
	mu   sync.Mutex
	seen []json.RawMessage
	done chan struct{}
}

func (h *recordingHandler) Process(_ context.Context, raw json.RawMessage) {
	h.mu.Lock()
	h.seen = append(h.seen, raw)
	h.mu.Unlock()
	if h.done != nil {
		h.done <- struct{}{}
	}
}

type fakePendientes struct {
	rows     []model.Cotizacion
	err      error
	intentos []uuid.UUID
}

func (f *fakePendientes) MarcarIntentoDocumento(_ context.Context, id uuid.UUID) error {
	f.intentos = append(f.intentos, id)
	return nil
}

func (f *fakePendientes) ListSinDocumento(_ context.Context, limit int) ([]model.Cotizacion, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

// ── Dispatcher / pool ─────────────────────────────────────────────────────────

func TestDispatcher_EnqueueEnvelope(t *testing.T) {
	_, rdb := newTestRedis(t)
	d := NewDispatcher(rdb)
	ctx := context.Background()

	require.NoError(t, d.EnqueueDocumento(ctx, dto.DocumentoJob{CotizacionID: "abc"}))
	require.NoError(t, d.EnqueueEmail(ctx, dto.EmailJob{ToEmail: "a@b.pe", Plantilla: dto.PlantillaEnvioCotizacion}))

	raw, err := rdb.RPop(ctx, QueueDocumentos).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobDocumento, job.Type)
	assert.JSONEq(t, `{"cotizacion_id":"abc"}`, string(job.Payload))

	n, err := rdb.LLen(ctx, QueueEmail).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestProcessJob_RoutesByType(t *testing.T) {
	docs, emails := &recordingHandler{}, &recordingHandler{}
	handlers := Handlers{JobDocumento: docs, JobEmail: emails}

	processJob(context.Background(), handlers, QueueEmail, `{"type":"email","payload":{"to_email":"x@y.pe"}}`)
	processJob(context.Background(), handlers, QueueEmail, `not json`)
	processJob(context.Background(), handlers, QueueEmail, `{"type":"desconocido","payload":{}}`)

	assert.Empty(t, docs.seen)
	require.Len(t, emails.seen, 1)
	assert.JSONEq(t, `{"to_email":"x@y.pe"}`, string(emails.seen[0]))
}

func TestStartWorkerPool_ConsumesAndStops(t *testing.T) {
	_, rdb := newTestRedis(t)
	h := &recordingHandler{done: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- StartWorkerPool(ctx, rdb, 2, Handlers{JobDocumento: h}) }()

	require.NoError(t, NewDispatcher(rdb).EnqueueDocumento(ctx, dto.DocumentoJob{CotizacionID: "x"}))

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not consumed")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not stop after cancellation")
	}
}

// ── Retry ─────────────────────────────────────────────────────────────────────

func TestWithRetry(t *testing.T) {
	fastRetries(t)
	boom := errors.New("boom")

	calls := 0
	err := withRetry(context.Background(), 3, func(int) error {
		calls++
		if calls < 3 {
			return boom
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), 3, func(int) error { calls++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), 3, func(int) error { calls++; return permanent(boom) })
	assert.ErrorIs(t, err, boom)
	assert.True(t, isPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func(int) error { return errors.New("boom") })
	assert.ErrorIs(t, err, context.Canceled)
}

// ── DocumentoWorker ───────────────────────────────────────────────────────────

func documentoPayload(id uuid.UUID) json.RawMessage {
	b, _ := json.Marshal(dto.DocumentoJob{CotizacionID: id.String()})
	return b
}

func TestDocumentoWorker_ReintentaYPublica(t *testing.T) {
	fastRetries(t)
	_, rdb := newTestRedis(t)
	pub := &fakePublisher{errs: []error{errors.New("minio caído")}}
	id := uuid.New()

	NewDocumentoWorker(pub, rdb).Process(context.Background(), documentoPayload(id))

	assert.Equal(t, 2, pub.count())
	assert.Empty(t, readDLQ(t, rdb, QueueDocumentos))
}

func TestDocumentoWorker_AgotaReintentosVaADLQ(t *testing.T) {
	fastRetries(t)
	_, rdb := newTestRedis(t)
	fail := errors.New("minio caído")
	pub := &fakePublisher{errs: []error{fail, fail, fail}}

	NewDocumentoWorker(pub, rdb).Process(context.Background(), documentoPayload(uuid.New()))

	assert.Equal(t, documentoMaxAttempts, pub.count())
	entries := readDLQ(t, rdb, QueueDocumentos)
	require.Len(t, entries, 1)
	assert.Equal(t, JobDocumento, entries[0].JobType)
	assert.Equal(t, documentoMaxAttempts, entries[0].Attempts)
	assert.Contains(t, entries[0].Reason, "minio caído")
}

func TestDocumentoWorker_EstadoCambiadoNoReintenta(t *testing.T) {
	fastRetries(t)
	_, rdb := newTestRedis(t)
	pub := &fakePublisher{errs: []error{apierror.BadRequest("ya no está en PENDIENTE_PAGO")}}

	NewDocumentoWorker(pub, rdb).Process(context.Background(), documentoPayload(uuid.New()))

	assert.Equal(t, 1, pub.count())
	assert.Empty(t, readDLQ(t, rdb, QueueDocumentos))
}

func TestDocumentoWorker_PayloadInvalido(t *testing.T) {
	pub := &fakePublisher{}
	w := NewDocumentoWorker(pub, nil)
	w.Process(context.Background(), json.RawMessage(`{"cotizacion_id":"no-uuid"}`))
	w.Process(context.Background(), json.RawMessage(`[`))
	assert.Zero(t, pub.count())
}

// ── EmailWorker ───────────────────────────────────────────────────────────────

func TestEmailWorker_Envia(t *testing.T) {
	mailer := &fakeMailer{}
	raw, _ := json.Marshal(dto.EmailJob{ToEmail: "obras@andina.pe", Subject: "s", Body: "b"})

	NewEmailWorker(mailer, nil).Process(context.Background(), raw)
	assert.Equal(t, []string{"obras@andina.pe"}, mailer.sent)
}

func TestEmailWorker_SinDestinatario(t *testing.T) {
	mailer := &fakeMailer{}
	raw, _ := json.Marshal(dto.EmailJob{Subject: "s"})

	NewEmailWorker(mailer, nil).Process(context.Background(), raw)
	assert.Empty(t, mailer.sent)
}

func TestEmailWorker_FalloSMTPVaADLQ(t *testing.T) {
	fastRetries(t)
	_, rdb := newTestRedis(t)
	mailer := &fakeMailer{err: errors.New("smtp timeout")}
	raw, _ := json.Marshal(dto.EmailJob{ToEmail: "obras@andina.pe", Plantilla: dto.PlantillaConfirmacionPago})

	NewEmailWorker(mailer, rdb).Process(context.Background(), raw)

	entries := readDLQ(t, rdb, QueueEmail)
	require.Len(t, entries, 1)
	assert.Equal(t, emailMaxAttempts, entries[0].Attempts)
	assert.JSONEq(t, string(raw), string(entries[0].Payload))

	lengths, err := DLQLengths(context.Background(), rdb)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{QueueDocumentos: 0, QueueEmail: 1}, lengths)
}

// ── Retry cron ────────────────────────────────────────────────────────────────

func TestProcessRetries_PublicaPendientes(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	pub := &fakePublisher{errs: []error{errors.New("falla puntual")}}
	cfg := RetryCronConfig{
		Repo:      &fakePendientes{rows: []model.Cotizacion{{ID: a}, {ID: b}}},
		Publisher: pub,
		CB:        infra.NewCircuitBreaker(infra.DefaultCBConfig("storage")),
	}

	n := processRetries(context.Background(), cfg)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{a, b}, pub.calls)
}

func TestProcessRetries_MarcaIntentoAntesDePublicar(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &fakePendientes{rows: []model.Cotizacion{{ID: a}, {ID: b}}}
	pub := &fakePublisher{errs: []error{errors.New("render roto"), errors.New("render roto")}}

	n := processRetries(context.Background(), RetryCronConfig{Repo: repo, Publisher: pub})
	assert.Zero(t, n)
	// failed rows are stamped too, so the next query serves others first
	assert.Equal(t, []uuid.UUID{a, b}, repo.intentos)
}

func TestProcessRetries_BreakerAbiertoOmiteTick(t *testing.T) {
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "storage", FailureThreshold: 1, OpenTimeout: time.Hour})
	_ = cb.Execute(func() error { return errors.New("down") })
	require.Equal(t, infra.CBOpen, cb.State())

	pub := &fakePublisher{}
	n := processRetries(context.Background(), RetryCronConfig{
		Repo:      &fakePendientes{rows: []model.Cotizacion{{ID: uuid.New()}}},
		Publisher: pub,
		CB:        cb,
	})
	assert.Zero(t, n)
	assert.Zero(t, pub.count())
}

func TestProcessRetries_ErrorDeConsulta(t *testing.T) {
	pub := &fakePublisher{}
	n := processRetries(context.Background(), RetryCronConfig{
		Repo:      &fakePendientes{err: errors.New("db down")},
		Publisher: pub,
	})
	assert.Zero(t, n)
	assert.Zero(t, pub.count())
}

func TestStartRetryCron_StopsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- StartRetryCron(ctx, RetryCronConfig{
			Repo:      &fakePendientes{rows: []model.Cotizacion{{ID: uuid.New()}}},
			Publisher: pub,
			Interval:  20 * time.Millisecond,
		})
	}()

	assert.Eventually(t, func() bool { return pub.count() > 0 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
