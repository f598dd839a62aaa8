package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cotizador/internal/apierror"
	"cotizador/internal/dto"
	"cotizador/internal/infra"
	"cotizador/internal/model"
	"cotizador/internal/pricing"
	"cotizador/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CotizacionService interface {
	Crear(ctx context.Context, req dto.CrearCotizacionRequest) (*dto.CotizacionResponse, error)
	Activar(ctx context.Context, id uuid.UUID, req dto.ActivarCotizacionRequest) (*dto.CotizacionResponse, error)
	MarcarPagada(ctx context.Context, id uuid.UUID, req dto.MarcarPagadaRequest) (*dto.CotizacionResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarCotizacionRequest) (*dto.CotizacionResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.CotizacionResponse, error)
	Listar(ctx context.Context, filter dto.CotizacionFilter) (*dto.CotizacionListResponse, error)
	// PublicarDocumento renders, stores and links the quotation PDF. Safe to
	// call repeatedly; each call replaces the previous document.
	PublicarDocumento(ctx context.Context, id uuid.UUID) (string, error)
}

// DocumentRenderer turns a fully loaded quotation into a PDF.
type DocumentRenderer interface {
	RenderCotizacion(c *model.Cotizacion) ([]byte, error)
}

// JobDispatcher enqueues follow-up work that must not block the request.
type JobDispatcher interface {
	EnqueueDocumento(ctx context.Context, job dto.DocumentoJob) error
	EnqueueEmail(ctx context.Context, job dto.EmailJob) error
}

const maxIntentosCodigo = 1000

// Accepted payment receipt formats and the extension they are stored with.
var tiposComprobante = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

type cotizacionService struct {
	repo            repository.CotizacionRepository
	clienteRepo     repository.ClienteRepository
	plataformaRepo  repository.PlataformaRepository
	operarioRepo    repository.OperarioRepository
	renderer        DocumentRenderer
	storage         infra.ObjectStorage
	dispatcher      JobDispatcher
	maxReceiptBytes int64
	now             func() time.Time
}

func NewCotizacionService(
	repo repository.CotizacionRepository,
	clienteRepo repository.ClienteRepository,
	plataformaRepo repository.PlataformaRepository,
	operarioRepo repository.OperarioRepository,
	renderer DocumentRenderer,
	storage infra.ObjectStorage,
	dispatcher JobDispatcher,
	maxReceiptBytes int64,
) CotizacionService {
	return &cotizacionService{
		repo:            repo,
		clienteRepo:     clienteRepo,
		plataformaRepo:  plataformaRepo,
		operarioRepo:    operarioRepo,
		renderer:        renderer,
		storage:         storage,
		dispatcher:      dispatcher,
		maxReceiptBytes: maxReceiptBytes,
		now:             time.Now,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFoundOr maps gorm.ErrRecordNotFound to a 404 and passes anything else through.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(format, args...)
	}
	return err
}

func parseID(raw, campo string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.BadRequest("%s inválido", campo)
	}
	return id, nil
}

// ── Crear ─────────────────────────────────────────────────────────────────────
//   1. Validate client (exists, active) and date range
//   2. BEGIN TX: lock platform, check ACTIVO + no open quotation + hour meter
//   3. Insert quotation in PENDIENTE_DATOS, platform → EN_COTIZACION
//   4. COMMIT

func (s *cotizacionService) Crear(ctx context.Context, req dto.CrearCotizacionRequest) (*dto.CotizacionResponse, error) {
	clienteID, err := parseID(req.ClienteID, "cliente_id")
	if err != nil {
		return nil, err
	}
	plataformaID, err := parseID(req.PlataformaID, "plataforma_id")
	if err != nil {
		return nil, err
	}

	cliente, err := s.clienteRepo.FindByID(ctx, clienteID)
	if err != nil {
		return nil, notFoundOr(err, "Cliente no encontrado")
	}
	if !cliente.Activo {
		return nil, apierror.BadRequest("El cliente %s no está activo", cliente.Nombre)
	}

	dias, err := pricing.Dias(req.FechaInicio, req.FechaFin)
	if err != nil {
		return nil, apierror.BadRequest("%s", err.Error())
	}

	var cot *model.Cotizacion
	var plataforma *model.Plataforma
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		plataforma, err = s.plataformaRepo.FindByIDForUpdate(ctx, tx, plataformaID)
		if err != nil {
			return notFoundOr(err, "Plataforma no encontrada")
		}
		if plataforma.Estado != model.PlataformaActivo {
			return apierror.BadRequest("La plataforma %s no está disponible (estado %s)", plataforma.Serie, plataforma.Estado)
		}
		vigente, err := s.repo.ExisteVigentePorPlataforma(ctx, tx, plataformaID)
		if err != nil {
			return err
		}
		if vigente {
			return apierror.BadRequest("La plataforma %s ya tiene una cotización en curso", plataforma.Serie)
		}
		horas := pricing.HorasRequeridas(dias)
		if horas.GreaterThan(plataforma.HorometroMantenimiento) {
			return apierror.BadRequest("La plataforma requiere mantenimiento: se necesitan %s horas y quedan %s",
				horas.String(), plataforma.HorometroMantenimiento.StringFixed(2))
		}

		codigo, err := s.codigoLibre(ctx, tx, cliente.Nombre, plataforma.Serie)
		if err != nil {
			return err
		}

		cot = &model.Cotizacion{
			Codigo:           codigo,
			ClienteID:        clienteID,
			PlataformaID:     plataformaID,
			Estado:           model.CotizacionPendienteDatos,
			Descripcion:      strings.TrimSpace(req.Descripcion),
			RequiereOperario: req.RequiereOperario,
			FechaInicio:      req.FechaInicio,
			FechaFin:         req.FechaFin,
			Dias:             dias,
			Monto:            pricing.Monto(plataforma.Precio, dias),
			MontoDelivery:    decimal.Zero,
			MontoOperario:    decimal.Zero,
			Subtotal:         decimal.Zero,
			IGV:              decimal.Zero,
			Total:            decimal.Zero,
		}
		if err := s.repo.Create(ctx, tx, cot); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.Conflict("Ya existe una cotización con el código %s", cot.Codigo)
			}
			return err
		}
		return s.plataformaRepo.UpdateEstado(ctx, tx, plataformaID, model.PlataformaEnCotizacion)
	})
	if txErr != nil {
		return nil, txErr
	}

	plataforma.Estado = model.PlataformaEnCotizacion
	cot.Cliente = cliente
	cot.Plataforma = plataforma
	log.Info().Str("cotizacion_id", cot.ID.String()).Str("codigo", cot.Codigo).Msg("cotizacion creada")
	return toCotizacionResponse(cot), nil
}

// codigoLibre returns the first unused code at or after now, moving forward one
// millisecond per taken code. The serial is part of the code and the platform
// row is locked by the caller, so concurrent creates cannot pick the same one.
func (s *cotizacionService) codigoLibre(ctx context.Context, tx *gorm.DB, cliente, serie string) (string, error) {
	t := s.now()
	for i := 0; i < maxIntentosCodigo; i++ {
		codigo := CodigoCotizacion(cliente, serie, t)
		existe, err := s.repo.ExisteCodigo(ctx, tx, codigo)
		if err != nil {
			return "", err
		}
		if !existe {
			return codigo, nil
		}
		t = t.Add(time.Millisecond)
	}
	return "", apierror.Conflict("No se pudo asignar un código libre a la cotización")
}

// ── Activar ───────────────────────────────────────────────────────────────────
//   1. BEGIN TX: lock quotation (must be PENDIENTE_DATOS)
//   2. Resolve operator when required (must be ACTIVO) → EN_COTIZACION
//   3. Price on top of the amount fixed at creation; quotation → PENDIENTE_PAGO
//   4. COMMIT
//   5. Publish the PDF; on failure a documento job retries it later

func (s *cotizacionService) Activar(ctx context.Context, id uuid.UUID, req dto.ActivarCotizacionRequest) (*dto.CotizacionResponse, error) {
	var operarioID *uuid.UUID
	if req.OperarioID != nil && *req.OperarioID != "" {
		parsed, err := parseID(*req.OperarioID, "operario_id")
		if err != nil {
			return nil, err
		}
		operarioID = &parsed
	}
	if req.MontoDelivery.IsNegative() {
		return nil, apierror.BadRequest("El monto de delivery no puede ser negativo")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		cot, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "Cotización no encontrada")
		}
		if cot.Estado != model.CotizacionPendienteDatos {
			return apierror.BadRequest("Solo se pueden activar cotizaciones en estado %s (actual: %s)",
				model.CotizacionPendienteDatos, cot.Estado)
		}

		costoOperario := decimal.Zero
		switch {
		case cot.RequiereOperario && operarioID == nil:
			return apierror.BadRequest("La cotización requiere un operario asignado")
		case !cot.RequiereOperario && operarioID != nil:
			return apierror.BadRequest("La cotización no requiere operario")
		case cot.RequiereOperario:
			op, err := s.operarioRepo.FindByIDForUpdate(ctx, tx, *operarioID)
			if err != nil {
				return notFoundOr(err, "Operario no encontrado")
			}
			if op.Estado != model.OperarioActivo {
				return apierror.BadRequest("El operario no está disponible (estado %s)", op.Estado)
			}
			if err := s.operarioRepo.UpdateEstado(ctx, tx, op.ID, model.OperarioEnCotizacion); err != nil {
				return err
			}
			costoOperario = op.CostoServicio
			cot.OperarioID = &op.ID
		}

		d := pricing.Calcular(pricing.Entrada{
			Monto:               cot.Monto,
			Dias:                cot.Dias,
			MontoDelivery:       req.MontoDelivery,
			CostoOperarioDiario: costoOperario,
			RequiereOperario:    cot.RequiereOperario,
			SubtotalPrevio:      cot.Subtotal,
		})
		now := s.now()
		cot.Monto = d.Monto
		cot.MontoDelivery = d.MontoDelivery
		cot.MontoOperario = d.MontoOperario
		cot.Subtotal = d.Subtotal
		cot.IGV = d.IGV
		cot.Total = d.Total
		cot.Estado = model.CotizacionPendientePago
		cot.FechaPendientePago = &now
		return s.repo.Update(ctx, tx, cot)
	})
	if txErr != nil {
		return nil, txErr
	}

	if _, err := s.PublicarDocumento(ctx, id); err != nil {
		log.Warn().Err(err).Str("cotizacion_id", id.String()).Msg("documento no publicado, se reintentará")
		s.encolarDocumento(ctx, id)
	}

	return s.ObtenerPorID(ctx, id)
}

// ── MarcarPagada ──────────────────────────────────────────────────────────────
//   1. Validate receipt and current state
//   2. Upload receipt
//   3. BEGIN TX: lock quotation (re-check PENDIENTE_PAGO) → PAGADO,
//      platform/operator → EN_TRABAJO
//   4. COMMIT, or delete the uploaded receipt on any failure

func (s *cotizacionService) MarcarPagada(ctx context.Context, id uuid.UUID, req dto.MarcarPagadaRequest) (*dto.CotizacionResponse, error) {
	comp := req.Comprobante
	if len(comp.Contenido) == 0 {
		return nil, apierror.BadRequest("El comprobante de pago es obligatorio")
	}
	if s.maxReceiptBytes > 0 && int64(len(comp.Contenido)) > s.maxReceiptBytes {
		return nil, apierror.BadRequest("El comprobante supera el tamaño máximo de %d MB", s.maxReceiptBytes>>20)
	}
	ext, ok := tiposComprobante[comp.ContentType]
	if !ok {
		return nil, apierror.BadRequest("Formato de comprobante no permitido: %s", comp.ContentType)
	}

	cot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Cotización no encontrada")
	}
	if cot.Estado != model.CotizacionPendientePago {
		return nil, errNoPendientePago(cot.Estado)
	}

	path := fmt.Sprintf("comprobantes/%s/comprobante-%d%s", id, s.now().UnixMilli(), ext)
	url, err := s.storage.Upload(ctx, comp.Contenido, path, comp.ContentType)
	if err != nil {
		return nil, fmt.Errorf("subir comprobante: %w", err)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "Cotización no encontrada")
		}
		if locked.Estado != model.CotizacionPendientePago {
			return errNoPendientePago(locked.Estado)
		}
		now := s.now()
		locked.Estado = model.CotizacionPagado
		locked.FechaPagado = &now
		locked.RutaComprobantePago = url
		locked.ObservacionPago = trimmed(req.Observacion)
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return err
		}
		if err := s.plataformaRepo.UpdateEstado(ctx, tx, locked.PlataformaID, model.PlataformaEnTrabajo); err != nil {
			return err
		}
		if locked.OperarioID != nil {
			return s.operarioRepo.UpdateEstado(ctx, tx, *locked.OperarioID, model.OperarioEnTrabajo)
		}
		return nil
	})
	if txErr != nil {
		s.borrarArchivo(ctx, id, url)
		return nil, txErr
	}

	resp, pagada, err := s.obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notificarPago(ctx, pagada)
	return resp, nil
}

func errNoPendientePago(actual model.EstadoCotizacion) error {
	return apierror.BadRequest("Solo se pueden pagar cotizaciones en estado %s (actual: %s)",
		model.CotizacionPendientePago, actual)
}

// ── Cancelar ──────────────────────────────────────────────────────────────────
//   1. BEGIN TX: lock quotation (PENDIENTE_DATOS or PENDIENTE_PAGO) → RECHAZADO,
//      clear stored files, platform/operator → ACTIVO
//   2. COMMIT
//   3. Delete the files that were linked (best effort)

func (s *cotizacionService) Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarCotizacionRequest) (*dto.CotizacionResponse, error) {
	var archivos []string
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		cot, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "Cotización no encontrada")
		}
		if !cot.Estado.PuedeTransicionarA(model.CotizacionRechazado) {
			return apierror.BadRequest("No se puede cancelar una cotización en estado %s", cot.Estado)
		}
		for _, ruta := range []string{cot.RutaCotizacion, cot.RutaComprobantePago} {
			if ruta != "" {
				archivos = append(archivos, ruta)
			}
		}

		now := s.now()
		cot.Estado = model.CotizacionRechazado
		cot.FechaRechazado = &now
		cot.MotivoRechazo = trimmed(req.Motivo)
		cot.RutaCotizacion = ""
		cot.RutaComprobantePago = ""
		if err := s.repo.Update(ctx, tx, cot); err != nil {
			return err
		}
		if err := s.plataformaRepo.UpdateEstado(ctx, tx, cot.PlataformaID, model.PlataformaActivo); err != nil {
			return err
		}
		if cot.OperarioID != nil {
			return s.operarioRepo.UpdateEstado(ctx, tx, *cot.OperarioID, model.OperarioActivo)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, ruta := range archivos {
		s.borrarArchivo(ctx, id, ruta)
	}
	log.Info().Str("cotizacion_id", id.String()).Msg("cotizacion rechazada")
	return s.ObtenerPorID(ctx, id)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cotizacionService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.CotizacionResponse, error) {
	resp, _, err := s.obtener(ctx, id)
	return resp, err
}

func (s *cotizacionService) obtener(ctx context.Context, id uuid.UUID) (*dto.CotizacionResponse, *model.Cotizacion, error) {
	cot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "Cotización no encontrada")
	}
	return toCotizacionResponse(cot), cot, nil
}

func (s *cotizacionService) Listar(ctx context.Context, filter dto.CotizacionFilter) (*dto.CotizacionListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	cotizaciones, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CotizacionListItem, 0, len(cotizaciones))
	for i := range cotizaciones {
		items = append(items, toCotizacionListItem(&cotizaciones[i]))
	}
	return &dto.CotizacionListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// borrarArchivo deletes a stored object; failures only leave an orphan, so
// they are logged and swallowed.
func (s *cotizacionService) borrarArchivo(ctx context.Context, id uuid.UUID, url string) {
	if err := s.storage.Delete(ctx, url); err != nil {
		log.Warn().Err(err).Str("cotizacion_id", id.String()).Str("url", url).Msg("no se pudo borrar archivo")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
