package handler

import (
	"net/http"

	"cotizador/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogoHandler struct{ svc service.CatalogoService }

func NewCatalogoHandler(svc service.CatalogoService) *CatalogoHandler {
	return &CatalogoHandler{svc: svc}
}

// Clientes godoc
// @Summary      Clientes activos
// @Tags         catalogo
// @Produce      json
// @Success      200 {array} dto.ClienteResumen
// @Router       /v1/catalogo/clientes [get]
func (h *CatalogoHandler) Clientes(c *gin.Context) {
	resp, err := h.svc.ClientesActivos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Operarios godoc
// @Summary      Operarios disponibles
// @Tags         catalogo
// @Produce      json
// @Success      200 {array} dto.OperarioResumen
// @Router       /v1/catalogo/operarios [get]
func (h *CatalogoHandler) Operarios(c *gin.Context) {
	resp, err := h.svc.OperariosActivos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Plataformas godoc
// @Summary      Plataformas disponibles
// @Tags         catalogo
// @Produce      json
// @Success      200 {array} dto.PlataformaResumen
// @Router       /v1/catalogo/plataformas [get]
func (h *CatalogoHandler) Plataformas(c *gin.Context) {
	resp, err := h.svc.PlataformasDisponibles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
