package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"cotizador/internal/dto"
	"cotizador/internal/infra"
	"cotizador/internal/model"
	"cotizador/internal/repository"
	"cotizador/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store shared by the stub repositories ─────────────────────────

type memStore struct {
	clientes     map[uuid.UUID]*model.Cliente
	plataformas  map[uuid.UUID]*model.Plataforma
	operarios    map[uuid.UUID]*model.Operario
	cotizaciones map[uuid.UUID]*model.Cotizacion

	// failure injection
	errPlataformaUpdate error
	errRuta             error
}

func newMemStore() *memStore {
	return &memStore{
		clientes:     make(map[uuid.UUID]*model.Cliente),
		plataformas:  make(map[uuid.UUID]*model.Plataforma),
		operarios:    make(map[uuid.UUID]*model.Operario),
		cotizaciones: make(map[uuid.UUID]*model.Cotizacion),
	}
}

func (m *memStore) addCliente(activo bool) *model.Cliente {
	c := &model.Cliente{ID: uuid.New(), Nombre: "Constructora Andina S.A.C.", RUC: "20512345678", Email: "obras@andina.pe", Activo: activo}
	m.clientes[c.ID] = c
	return c
}

func (m *memStore) addPlataforma(precio string, estado model.EstadoPlataforma) *model.Plataforma {
	p := &model.Plataforma{
		ID:                     uuid.New(),
		Serie:                  "PLT-2605-" + strings.ToUpper(uuid.NewString()[:8]),
		Marca:                  "Genie",
		Modelo:                 "GS-1930",
		Precio:                 decimal.RequireFromString(precio),
		Estado:                 estado,
		HorometroMantenimiento: decimal.NewFromInt(200),
	}
	m.plataformas[p.ID] = p
	return p
}

func (m *memStore) addOperario(costo string, estado model.EstadoOperario) *model.Operario {
	u := &model.Usuario{ID: uuid.New(), Nombre: "Luis", Apellido: "Quispe", Email: "luis.quispe@plataformas.pe", Activo: true}
	o := &model.Operario{ID: uuid.New(), UsuarioID: u.ID, Estado: estado, CostoServicio: decimal.RequireFromString(costo), Usuario: u}
	m.operarios[o.ID] = o
	return o
}

// ── CotizacionRepository ──────────────────────────────────────────────────────

type stubCotizacionRepo struct{ m *memStore }

var _ repository.CotizacionRepository = (*stubCotizacionRepo)(nil)

func (r *stubCotizacionRepo) DB() *gorm.DB { return nil }

func (r *stubCotizacionRepo) Create(_ context.Context, _ *gorm.DB, c *model.Cotizacion) error {
	for _, existing := range r.m.cotizaciones {
		if existing.Codigo == c.Codigo {
			return gorm.ErrDuplicatedKey
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.m.cotizaciones[c.ID] = stripRelations(c)
	return nil
}

func stripRelations(c *model.Cotizacion) *model.Cotizacion {
	cp := *c
	cp.Cliente, cp.Plataforma, cp.Operario = nil, nil, nil
	return &cp
}

func (r *stubCotizacionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cotizacion, error) {
	c, ok := r.m.cotizaciones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	if cl, ok := r.m.clientes[c.ClienteID]; ok {
		clCopy := *cl
		cp.Cliente = &clCopy
	}
	if p, ok := r.m.plataformas[c.PlataformaID]; ok {
		pCopy := *p
		cp.Plataforma = &pCopy
	}
	if c.OperarioID != nil {
		if o, ok := r.m.operarios[*c.OperarioID]; ok {
			oCopy := *o
			cp.Operario = &oCopy
		}
	}
	return &cp, nil
}

func (r *stubCotizacionRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Cotizacion, error) {
	c, ok := r.m.cotizaciones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCotizacionRepo) ExisteVigentePorPlataforma(_ context.Context, _ *gorm.DB, plataformaID uuid.UUID) (bool, error) {
	for _, c := range r.m.cotizaciones {
		if c.PlataformaID == plataformaID && c.Estado.Vigente() {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCotizacionRepo) ExisteCodigo(_ context.Context, _ *gorm.DB, codigo string) (bool, error) {
	for _, c := range r.m.cotizaciones {
		if c.Codigo == codigo {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCotizacionRepo) Update(_ context.Context, _ *gorm.DB, c *model.Cotizacion) error {
	if _, ok := r.m.cotizaciones[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c.UpdatedAt = time.Now()
	r.m.cotizaciones[c.ID] = stripRelations(c)
	return nil
}

func (r *stubCotizacionRepo) UpdateRutaCotizacion(_ context.Context, id uuid.UUID, ruta string) (bool, error) {
	if r.m.errRuta != nil {
		return false, r.m.errRuta
	}
	c, ok := r.m.cotizaciones[id]
	if !ok || !c.DocumentoPublicable() {
		return false, nil
	}
	c.RutaCotizacion = ruta
	return true, nil
}

func (r *stubCotizacionRepo) List(ctx context.Context, filter dto.CotizacionFilter) ([]model.Cotizacion, int64, error) {
	var all []model.Cotizacion
	for id, c := range r.m.cotizaciones {
		if filter.Estado != "" && string(c.Estado) != filter.Estado {
			continue
		}
		if filter.ClienteID != "" && c.ClienteID.String() != filter.ClienteID {
			continue
		}
		full, _ := r.FindByID(ctx, id)
		all = append(all, *full)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubCotizacionRepo) ListSinDocumento(_ context.Context, limit int) ([]model.Cotizacion, error) {
	var out []model.Cotizacion
	for _, c := range r.m.cotizaciones {
		if c.Estado == model.CotizacionPendientePago && c.RutaCotizacion == "" && len(out) < limit {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCotizacionRepo) MarcarIntentoDocumento(_ context.Context, id uuid.UUID) error {
	if c, ok := r.m.cotizaciones[id]; ok {
		now := time.Now()
		c.DocumentoIntentadoEn = &now
	}
	return nil
}

func (r *stubCotizacionRepo) CountByEstado(_ context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, c := range r.m.cotizaciones {
		out[string(c.Estado)]++
	}
	return out, nil
}

func (r *stubCotizacionRepo) SumTotalPagado(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range r.m.cotizaciones {
		if c.Estado == model.CotizacionPagado {
			total = total.Add(c.Total)
		}
	}
	return total, nil
}

func (r *stubCotizacionRepo) PromedioHorasRespuesta(_ context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(12), nil
}

// ── Other repositories ────────────────────────────────────────────────────────

type stubClienteRepo struct{ m *memStore }

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	c, ok := r.m.clientes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubClienteRepo) ListActivos(_ context.Context) ([]model.Cliente, error) {
	var out []model.Cliente
	for _, c := range r.m.clientes {
		if c.Activo {
			out = append(out, *c)
		}
	}
	return out, nil
}

type stubPlataformaRepo struct{ m *memStore }

var _ repository.PlataformaRepository = (*stubPlataformaRepo)(nil)

func (r *stubPlataformaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Plataforma, error) {
	p, ok := r.m.plataformas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubPlataformaRepo) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Plataforma, error) {
	return r.FindByID(ctx, id)
}

func (r *stubPlataformaRepo) UpdateEstado(_ context.Context, _ *gorm.DB, id uuid.UUID, estado model.EstadoPlataforma) error {
	if r.m.errPlataformaUpdate != nil {
		return r.m.errPlataformaUpdate
	}
	p, ok := r.m.plataformas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Estado = estado
	return nil
}

func (r *stubPlataformaRepo) ListDisponibles(_ context.Context) ([]model.Plataforma, error) {
	var out []model.Plataforma
	for _, p := range r.m.plataformas {
		if p.Estado == model.PlataformaActivo {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPlataformaRepo) CountByEstado(_ context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, p := range r.m.plataformas {
		out[string(p.Estado)]++
	}
	return out, nil
}

type stubOperarioRepo struct{ m *memStore }

var _ repository.OperarioRepository = (*stubOperarioRepo)(nil)

func (r *stubOperarioRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Operario, error) {
	o, ok := r.m.operarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubOperarioRepo) UpdateEstado(_ context.Context, _ *gorm.DB, id uuid.UUID, estado model.EstadoOperario) error {
	o, ok := r.m.operarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Estado = estado
	return nil
}

func (r *stubOperarioRepo) ListActivos(_ context.Context) ([]model.Operario, error) {
	var out []model.Operario
	for _, o := range r.m.operarios {
		if o.Estado == model.OperarioActivo {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *stubOperarioRepo) CountByEstado(_ context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, o := range r.m.operarios {
		out[string(o.Estado)]++
	}
	return out, nil
}

// ── Side-effect stubs ─────────────────────────────────────────────────────────

type stubRenderer struct{ err error }

var _ service.DocumentRenderer = (*stubRenderer)(nil)

func (r *stubRenderer) RenderCotizacion(c *model.Cotizacion) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + c.Codigo), nil
}

type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	errUpload error
}

var _ infra.ObjectStorage = (*memStorage)(nil)

func newMemStorage() *memStorage { return &memStorage{objects: make(map[string][]byte)} }

func (s *memStorage) Upload(_ context.Context, data []byte, path, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errUpload != nil {
		return "", s.errUpload
	}
	url := "mem://" + path
	s.objects[url] = data
	return url, nil
}

func (s *memStorage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, url)
	s.deleted = append(s.deleted, url)
	return nil
}

func (s *memStorage) has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[url]
	return ok
}

type stubDispatcher struct {
	documentos []dto.DocumentoJob
	emails     []dto.EmailJob
	err        error
}

var _ service.JobDispatcher = (*stubDispatcher)(nil)

func (d *stubDispatcher) EnqueueDocumento(_ context.Context, job dto.DocumentoJob) error {
	if d.err != nil {
		return d.err
	}
	d.documentos = append(d.documentos, job)
	return nil
}

func (d *stubDispatcher) EnqueueEmail(_ context.Context, job dto.EmailJob) error {
	if d.err != nil {
		return d.err
	}
	d.emails = append(d.emails, job)
	return nil
}

func (d *stubDispatcher) plantillas() []string {
	var out []string
	for _, e := range d.emails {
		out = append(out, e.Plantilla)
	}
	return out
}

var errInfra = errors.New("infra caida")

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store      *memStore
	storage    *memStorage
	renderer   *stubRenderer
	dispatcher *stubDispatcher
	svc        service.CotizacionService
}

func newFixture() *fixture {
	f := &fixture{
		store:      newMemStore(),
		storage:    newMemStorage(),
		renderer:   &stubRenderer{},
		dispatcher: &stubDispatcher{},
	}
	f.svc = service.NewCotizacionService(
		&stubCotizacionRepo{m: f.store},
		&stubClienteRepo{m: f.store},
		&stubPlataformaRepo{m: f.store},
		&stubOperarioRepo{m: f.store},
		f.renderer,
		f.storage,
		f.dispatcher,
		1<<20,
	)
	return f
}
