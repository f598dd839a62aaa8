package service_test

import (
	"context"
	"testing"
	"time"

	"cotizador/internal/model"
	"cotizador/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sembrarMetricas(m *memStore) {
	m.addPlataforma("100", model.PlataformaActivo)
	m.addPlataforma("100", model.PlataformaEnTrabajo)
	m.addOperario("30", model.OperarioActivo)
	for _, c := range []struct {
		estado model.EstadoCotizacion
		total  string
	}{
		{model.CotizacionPendienteDatos, "0"},
		{model.CotizacionPendientePago, "413"},
		{model.CotizacionPagado, "413"},
		{model.CotizacionPagado, "520.38"},
	} {
		id := uuid.New()
		m.cotizaciones[id] = &model.Cotizacion{ID: id, Estado: c.estado, Total: decimal.RequireFromString(c.total)}
	}
}

func TestMetricas_SinCache(t *testing.T) {
	m := newMemStore()
	sembrarMetricas(m)
	svc := service.NewMetricasService(&stubCotizacionRepo{m: m}, &stubPlataformaRepo{m: m}, &stubOperarioRepo{m: m}, nil)

	resp, err := svc.Obtener(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"PENDIENTE_DATOS": 1, "PENDIENTE_PAGO": 1, "PAGADO": 2, "RECHAZADO": 0,
	}, resp.Cotizaciones)
	assert.Equal(t, int64(1), resp.Plataformas["ACTIVO"])
	assert.Equal(t, int64(1), resp.Plataformas["EN_TRABAJO"])
	assert.Equal(t, int64(0), resp.Plataformas["EN_MANTENIMIENTO"])
	assert.Len(t, resp.Operarios, 3)
	assert.Equal(t, "933.38", resp.TotalPagado.String())
	assert.Equal(t, "50", resp.TasaProcesadas.String())
	assert.Equal(t, "12", resp.TiempoRespuestaHoras.String())
	assert.NotEmpty(t, resp.GeneradoEn)
}

func TestMetricas_VacioNoDividePorCero(t *testing.T) {
	m := newMemStore()
	svc := service.NewMetricasService(&stubCotizacionRepo{m: m}, &stubPlataformaRepo{m: m}, &stubOperarioRepo{m: m}, nil)

	resp, err := svc.Obtener(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.TasaProcesadas.IsZero())
	assert.True(t, resp.TotalPagado.IsZero())
}

func TestMetricas_UsaCacheRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := newMemStore()
	sembrarMetricas(m)
	svc := service.NewMetricasService(&stubCotizacionRepo{m: m}, &stubPlataformaRepo{m: m}, &stubOperarioRepo{m: m}, rdb)

	first, err := svc.Obtener(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists("metricas:cotizaciones"))
	assert.Greater(t, mr.TTL("metricas:cotizaciones").Seconds(), 0.0)

	// new data is not visible until the cached snapshot expires
	id := uuid.New()
	m.cotizaciones[id] = &model.Cotizacion{ID: id, Estado: model.CotizacionRechazado}

	cached, err := svc.Obtener(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Cotizaciones, cached.Cotizaciones)
	assert.Equal(t, first.TotalPagado.String(), cached.TotalPagado.String())

	mr.FastForward(61 * time.Second)
	fresh, err := svc.Obtener(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Cotizaciones["RECHAZADO"])
}

func TestCatalogo(t *testing.T) {
	m := newMemStore()
	m.addCliente(true)
	m.addCliente(false)
	m.addPlataforma("100", model.PlataformaActivo)
	m.addPlataforma("100", model.PlataformaEnMantenimiento)
	m.addOperario("30", model.OperarioActivo)
	m.addOperario("30", model.OperarioEnTrabajo)
	svc := service.NewCatalogoService(&stubClienteRepo{m: m}, &stubOperarioRepo{m: m}, &stubPlataformaRepo{m: m})

	clientes, err := svc.ClientesActivos(context.Background())
	require.NoError(t, err)
	assert.Len(t, clientes, 1)

	plataformas, err := svc.PlataformasDisponibles(context.Background())
	require.NoError(t, err)
	require.Len(t, plataformas, 1)
	assert.Equal(t, "ACTIVO", plataformas[0].Estado)

	operarios, err := svc.OperariosActivos(context.Background())
	require.NoError(t, err)
	require.Len(t, operarios, 1)
	assert.Equal(t, "Luis Quispe", operarios[0].Nombre)
	assert.Equal(t, "luis.quispe@plataformas.pe", operarios[0].Email)
}
