package service

import (
	"context"
	"encoding/json"
	"time"

	"cotizador/internal/dto"
	"cotizador/internal/model"
	"cotizador/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	metricasCacheKey = "metricas:cotizaciones"
	metricasCacheTTL = 60 * time.Second
)

type MetricasService interface {
	Obtener(ctx context.Context) (*dto.MetricasResponse, error)
}

type metricasService struct {
	cotizacionRepo repository.CotizacionRepository
	plataformaRepo repository.PlataformaRepository
	operarioRepo   repository.OperarioRepository
	rdb            *redis.Client // nil disables caching
}

func NewMetricasService(
	cotizacionRepo repository.CotizacionRepository,
	plataformaRepo repository.PlataformaRepository,
	operarioRepo repository.OperarioRepository,
	rdb *redis.Client,
) MetricasService {
	return &metricasService{
		cotizacionRepo: cotizacionRepo,
		plataformaRepo: plataformaRepo,
		operarioRepo:   operarioRepo,
		rdb:            rdb,
	}
}

func (s *metricasService) Obtener(ctx context.Context) (*dto.MetricasResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, metricasCacheKey).Bytes(); err == nil {
			var resp dto.MetricasResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	cotizaciones, err := s.cotizacionRepo.CountByEstado(ctx)
	if err != nil {
		return nil, err
	}
	plataformas, err := s.plataformaRepo.CountByEstado(ctx)
	if err != nil {
		return nil, err
	}
	operarios, err := s.operarioRepo.CountByEstado(ctx)
	if err != nil {
		return nil, err
	}
	totalPagado, err := s.cotizacionRepo.SumTotalPagado(ctx)
	if err != nil {
		return nil, err
	}
	horas, err := s.cotizacionRepo.PromedioHorasRespuesta(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.MetricasResponse{
		Cotizaciones:         completarEstados(cotizaciones, model.CotizacionPendienteDatos, model.CotizacionPendientePago, model.CotizacionPagado, model.CotizacionRechazado),
		Plataformas:          completarEstados(plataformas, model.PlataformaActivo, model.PlataformaEnCotizacion, model.PlataformaEnTrabajo, model.PlataformaEnMantenimiento),
		Operarios:            completarEstados(operarios, model.OperarioActivo, model.OperarioEnCotizacion, model.OperarioEnTrabajo),
		TotalPagado:          totalPagado.Round(2),
		TasaProcesadas:       tasaProcesadas(cotizaciones),
		TiempoRespuestaHoras: horas,
		GeneradoEn:           time.Now().UTC().Format(isoFormat),
	}

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			if err := s.rdb.Set(ctx, metricasCacheKey, b, metricasCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("metricas: cache write failed")
			}
		}
	}
	return resp, nil
}

// completarEstados makes every known state appear in the distribution, even
// with zero rows.
func completarEstados[E ~string](counts map[string]int64, estados ...E) map[string]int64 {
	out := make(map[string]int64, len(estados))
	for _, e := range estados {
		out[string(e)] = counts[string(e)]
	}
	return out
}

// tasaProcesadas is the share of quotations that reached a terminal state, as
// a percentage with two decimals.
func tasaProcesadas(counts map[string]int64) decimal.Decimal {
	var total int64
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return decimal.Zero
	}
	procesadas := counts[string(model.CotizacionPagado)] + counts[string(model.CotizacionRechazado)]
	return decimal.NewFromInt(procesadas).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2)
}
