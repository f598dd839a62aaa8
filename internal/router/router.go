package router

import (
	"cotizador/internal/config"
	"cotizador/internal/handler"
	"cotizador/internal/infra"
	"cotizador/internal/middleware"
	"cotizador/internal/repository"
	"cotizador/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services groups what the HTTP layer and the workers share.
type Services struct {
	Cotizaciones service.CotizacionService
	Catalogo     service.CatalogoService
	Metricas     service.MetricasService
}

// NewServices wires repositories into services.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	storage infra.ObjectStorage,
	renderer service.DocumentRenderer,
	dispatcher service.JobDispatcher,
) *Services {
	cotizacionRepo := repository.NewCotizacionRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	plataformaRepo := repository.NewPlataformaRepository(db)
	operarioRepo := repository.NewOperarioRepository(db)

	return &Services{
		Cotizaciones: service.NewCotizacionService(
			cotizacionRepo, clienteRepo, plataformaRepo, operarioRepo,
			renderer, storage, dispatcher, cfg.MaxReceiptBytes(),
		),
		Catalogo: service.NewCatalogoService(clienteRepo, operarioRepo, plataformaRepo),
		Metricas: service.NewMetricasService(cotizacionRepo, plataformaRepo, operarioRepo, rdb),
	}
}

// New returns a configured Gin engine. The rate limiter is returned so the
// caller can run its purge loop.
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	svcs *Services,
	storageCB *infra.CircuitBreaker,
) (*gin.Engine, *middleware.IPRateLimiter) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxReceiptBytes() + (1 << 20)
	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	cotizacionesH := handler.NewCotizacionesHandler(svcs.Cotizaciones, cfg.MaxReceiptBytes())
	catalogoH := handler.NewCatalogoHandler(svcs.Catalogo)
	metricasH := handler.NewMetricasHandler(svcs.Metricas)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb, storageCB))

	v1 := r.Group("/v1", limiter.RateLimit())
	{
		cot := v1.Group("/cotizaciones")
		{
			cot.POST("", cotizacionesH.Crear)
			cot.GET("", cotizacionesH.Listar)
			cot.GET("/:id", cotizacionesH.Obtener)
			cot.PATCH("/:id/activar", cotizacionesH.Activar)
			cot.POST("/:id/pagar", cotizacionesH.Pagar)
			cot.POST("/:id/cancelar", cotizacionesH.Cancelar)
			cot.POST("/:id/documento", cotizacionesH.RegenerarDocumento)
		}

		cat := v1.Group("/catalogo")
		{
			cat.GET("/clientes", catalogoH.Clientes)
			cat.GET("/operarios", catalogoH.Operarios)
			cat.GET("/plataformas", catalogoH.Plataformas)
		}

		v1.GET("/metricas/cotizaciones", metricasH.Obtener)
	}

	// Stored PDFs and receipts when files live on local disk
	if cfg.StorageDriver == "local" {
		r.Static(infra.LocalFilesRoute, cfg.StorageLocalPath)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, limiter
}
