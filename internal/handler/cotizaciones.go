package handler

import (
	"io"
	"net/http"
	"strings"

	"cotizador/internal/apierror"
	"cotizador/internal/dto"
	"cotizador/internal/service"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of the receipt for the rest of
// the multipart body (boundaries, headers, observacion).
const multipartOverhead = 1 << 20

type CotizacionesHandler struct {
	svc             service.CotizacionService
	maxReceiptBytes int64
}

func NewCotizacionesHandler(svc service.CotizacionService, maxReceiptBytes int64) *CotizacionesHandler {
	return &CotizacionesHandler{svc: svc, maxReceiptBytes: maxReceiptBytes}
}

// Crear godoc
// @Summary      Crear cotización
// @Description  Reserva la plataforma (EN_COTIZACION) y registra la cotización en PENDIENTE_DATOS con el monto base.
// @Tags         cotizaciones
// @Accept       json
// @Produce      json
// @Param        body body     dto.CrearCotizacionRequest true "Datos de la cotización"
// @Success      201  {object} dto.CotizacionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/cotizaciones [post]
func (h *CotizacionesHandler) Crear(c *gin.Context) {
	var req dto.CrearCotizacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar cotizaciones
// @Tags         cotizaciones
// @Produce      json
// @Param        estado     query string false "PENDIENTE_DATOS | PENDIENTE_PAGO | PAGADO | RECHAZADO"
// @Param        cliente_id query string false "UUID del cliente"
// @Param        page       query int    false "Página (default 1)"
// @Param        limit      query int    false "Registros por página (default 20, máx 100)"
// @Success      200        {object} dto.CotizacionListResponse
// @Failure      422        {object} apierror.ValidationError
// @Router       /v1/cotizaciones [get]
func (h *CotizacionesHandler) Listar(c *gin.Context) {
	var filter dto.CotizacionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Obtener cotización
// @Tags         cotizaciones
// @Produce      json
// @Param        id  path     string true "UUID de la cotización"
// @Success      200 {object} dto.CotizacionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cotizaciones/{id} [get]
func (h *CotizacionesHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Activar godoc
// @Summary      Activar cotización
// @Description  Completa delivery y operario, calcula subtotal, IGV (18%) y total, pasa a PENDIENTE_PAGO y publica el PDF.
// @Tags         cotizaciones
// @Accept       json
// @Produce      json
// @Param        id   path     string                        true "UUID de la cotización"
// @Param        body body     dto.ActivarCotizacionRequest true "Datos faltantes"
// @Success      200  {object} dto.CotizacionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/cotizaciones/{id}/activar [patch]
func (h *CotizacionesHandler) Activar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ActivarCotizacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Activar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pagar godoc
// @Summary      Registrar pago
// @Description  Sube el comprobante (PDF, JPEG o PNG), marca la cotización PAGADO y pone plataforma y operario EN_TRABAJO.
// @Tags         cotizaciones
// @Accept       multipart/form-data
// @Produce      json
// @Param        id          path     string true  "UUID de la cotización"
// @Param        comprobante formData file   true  "Comprobante de pago"
// @Param        observacion formData string false "Observación del pago"
// @Success      200         {object} dto.CotizacionResponse
// @Failure      400         {object} apierror.APIError
// @Failure      404         {object} apierror.APIError
// @Router       /v1/cotizaciones/{id}/pagar [post]
func (h *CotizacionesHandler) Pagar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if h.maxReceiptBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxReceiptBytes+multipartOverhead)
	}

	fh, err := c.FormFile("comprobante")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("El comprobante de pago es obligatorio"))
		return
	}
	if h.maxReceiptBytes > 0 && fh.Size > h.maxReceiptBytes {
		c.JSON(http.StatusBadRequest, apierror.New("El comprobante supera el tamaño máximo permitido"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	contenido, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err)
		return
	}

	req := dto.MarcarPagadaRequest{
		Comprobante: dto.Comprobante{
			Nombre:      fh.Filename,
			ContentType: tipoContenido(contenido),
			Contenido:   contenido,
		},
	}
	if obs := strings.TrimSpace(c.PostForm("observacion")); obs != "" {
		req.Observacion = &obs
	}

	resp, err := h.svc.MarcarPagada(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// tipoContenido sniffs the payload instead of trusting the client's header.
func tipoContenido(b []byte) string {
	ct := http.DetectContentType(b)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Cancelar godoc
// @Summary      Cancelar cotización
// @Description  Pasa la cotización a RECHAZADO y libera plataforma y operario (ACTIVO).
// @Tags         cotizaciones
// @Accept       json
// @Produce      json
// @Param        id   path     string                         true  "UUID de la cotización"
// @Param        body body     dto.CancelarCotizacionRequest false "Motivo"
// @Success      200  {object} dto.CotizacionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/cotizaciones/{id}/cancelar [post]
func (h *CotizacionesHandler) Cancelar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CancelarCotizacionRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegenerarDocumento godoc
// @Summary      Regenerar PDF
// @Description  Vuelve a generar y publicar el documento de una cotización en PENDIENTE_PAGO.
// @Tags         cotizaciones
// @Produce      json
// @Param        id  path     string true "UUID de la cotización"
// @Success      200 {object} map[string]string
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cotizaciones/{id}/documento [post]
func (h *CotizacionesHandler) RegenerarDocumento(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	url, err := h.svc.PublicarDocumento(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ruta_cotizacion": url})
}
