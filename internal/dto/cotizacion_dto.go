package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearCotizacionRequest struct {
	ClienteID        string    `json:"cliente_id"        validate:"required,uuid"`
	PlataformaID     string    `json:"plataforma_id"     validate:"required,uuid"`
	FechaInicio      time.Time `json:"fecha_inicio"      validate:"required"`
	FechaFin         time.Time `json:"fecha_fin"         validate:"required"`
	RequiereOperario bool      `json:"requiere_operario"`
	Descripcion      string    `json:"descripcion"       validate:"max=1000"`
}

type ActivarCotizacionRequest struct {
	MontoDelivery decimal.Decimal `json:"monto_delivery" validate:"min=0"`
	// OperarioID is mandatory when the quotation requires an operator.
	OperarioID *string `json:"operario_id" validate:"omitempty,uuid"`
}

type CancelarCotizacionRequest struct {
	Motivo *string `json:"motivo" validate:"omitempty,max=500"`
}

// Comprobante is the uploaded payment receipt.
type Comprobante struct {
	Nombre      string
	ContentType string
	Contenido   []byte
}

type MarcarPagadaRequest struct {
	Comprobante Comprobante
	Observacion *string
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// CotizacionFilter is bound from query string of GET /v1/cotizaciones.
type CotizacionFilter struct {
	Estado    string `form:"estado"     validate:"omitempty,oneof=PENDIENTE_DATOS PENDIENTE_PAGO PAGADO RECHAZADO"`
	ClienteID string `form:"cliente_id" validate:"omitempty,uuid"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type CotizacionListItem struct {
	ID               string          `json:"id"`
	Codigo           string          `json:"codigo"`
	Cliente          string          `json:"cliente"`
	PlataformaSerie  string          `json:"plataforma_serie"`
	Dias             int             `json:"dias"`
	RequiereOperario bool            `json:"requiere_operario"`
	Total            decimal.Decimal `json:"total"`
	Estado           string          `json:"estado"`
	CreatedAt        string          `json:"created_at"`
}

type CotizacionListResponse struct {
	Data  []CotizacionListItem `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResumen struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	RUC    string `json:"ruc"`
	Email  string `json:"email"`
}

type PlataformaResumen struct {
	ID     string          `json:"id"`
	Serie  string          `json:"serie"`
	Marca  string          `json:"marca"`
	Modelo string          `json:"modelo"`
	Precio decimal.Decimal `json:"precio"`
	Estado string          `json:"estado"`
}

type OperarioResumen struct {
	ID            string          `json:"id"`
	Nombre        string          `json:"nombre"`
	Email         string          `json:"email"`
	CostoServicio decimal.Decimal `json:"costo_servicio"`
	Estado        string          `json:"estado"`
}

type CotizacionResponse struct {
	ID                  string             `json:"id"`
	Codigo              string             `json:"codigo"`
	Estado              string             `json:"estado"`
	Descripcion         string             `json:"descripcion"`
	RequiereOperario    bool               `json:"requiere_operario"`
	FechaInicio         string             `json:"fecha_inicio"`
	FechaFin            string             `json:"fecha_fin"`
	Dias                int                `json:"dias"`
	Monto               decimal.Decimal    `json:"monto"`
	MontoDelivery       decimal.Decimal    `json:"monto_delivery"`
	MontoOperario       decimal.Decimal    `json:"monto_operario"`
	Subtotal            decimal.Decimal    `json:"subtotal"`
	IGV                 decimal.Decimal    `json:"igv"`
	Total               decimal.Decimal    `json:"total"`
	RutaCotizacion      string             `json:"ruta_cotizacion,omitempty"`
	RutaComprobantePago string             `json:"ruta_comprobante_pago,omitempty"`
	ObservacionPago     *string            `json:"observacion_pago,omitempty"`
	MotivoRechazo       *string            `json:"motivo_rechazo,omitempty"`
	Cliente             *ClienteResumen    `json:"cliente,omitempty"`
	Plataforma          *PlataformaResumen `json:"plataforma,omitempty"`
	Operario            *OperarioResumen   `json:"operario,omitempty"`
	FechaPendientePago  *string            `json:"fecha_pendiente_pago,omitempty"`
	FechaPagado         *string            `json:"fecha_pagado,omitempty"`
	FechaRechazado      *string            `json:"fecha_rechazado,omitempty"`
	CreatedAt           string             `json:"created_at"`
}
