package handler

import (
	"net/http"

	"cotizador/internal/service"

	"github.com/gin-gonic/gin"
)

type MetricasHandler struct{ svc service.MetricasService }

func NewMetricasHandler(svc service.MetricasService) *MetricasHandler {
	return &MetricasHandler{svc: svc}
}

// Obtener godoc
// @Summary      Métricas de cotizaciones
// @Description  Distribución por estado, total cobrado, tasa de procesadas y tiempo medio de respuesta. Cacheado 60 s.
// @Tags         metricas
// @Produce      json
// @Success      200 {object} dto.MetricasResponse
// @Router       /v1/metricas/cotizaciones [get]
func (h *MetricasHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
