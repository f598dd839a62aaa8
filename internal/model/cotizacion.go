package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoCotizacion is the lifecycle state of a quotation.
type EstadoCotizacion string

const (
	CotizacionPendienteDatos EstadoCotizacion = "PENDIENTE_DATOS"
	CotizacionPendientePago  EstadoCotizacion = "PENDIENTE_PAGO"
	CotizacionPagado         EstadoCotizacion = "PAGADO"
	CotizacionRechazado      EstadoCotizacion = "RECHAZADO"
)

var transicionesCotizacion = map[EstadoCotizacion][]EstadoCotizacion{
	CotizacionPendienteDatos: {CotizacionPendientePago, CotizacionRechazado},
	CotizacionPendientePago:  {CotizacionPagado, CotizacionRechazado},
}

// PuedeTransicionarA reports whether dest is a legal next state.
// PAGADO and RECHAZADO have no outgoing edges.
func (e EstadoCotizacion) PuedeTransicionarA(dest EstadoCotizacion) bool {
	for _, d := range transicionesCotizacion[e] {
		if d == dest {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves e.
func (e EstadoCotizacion) Terminal() bool {
	return len(transicionesCotizacion[e]) == 0
}

// DocumentoPublicable reports whether a PDF may be linked to c: any time while
// awaiting payment, and once PAGADO only to fill a missing document.
func (c *Cotizacion) DocumentoPublicable() bool {
	switch c.Estado {
	case CotizacionPendientePago:
		return true
	case CotizacionPagado:
		return c.RutaCotizacion == ""
	}
	return false
}

// Vigente reports whether a quotation in this state still holds its platform.
func (e EstadoCotizacion) Vigente() bool {
	return e == CotizacionPendienteDatos || e == CotizacionPendientePago
}

// Cotizacion is a rental quotation. Rows are never deleted; they only move
// through the lifecycle.
type Cotizacion struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo           string           `gorm:"type:varchar(160);uniqueIndex;not null"`
	ClienteID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	PlataformaID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	OperarioID       *uuid.UUID       `gorm:"type:uuid;index"`
	Estado           EstadoCotizacion `gorm:"type:varchar(20);not null;default:'PENDIENTE_DATOS';index"`
	Descripcion      string           `gorm:"type:text"`
	RequiereOperario bool             `gorm:"not null;default:false"`
	FechaInicio      time.Time        `gorm:"not null"`
	FechaFin         time.Time        `gorm:"not null"`
	Dias             int              `gorm:"not null"`

	// Monto is daily price × days; the rest is filled on activation.
	Monto         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MontoDelivery decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MontoOperario decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IGV           decimal.Decimal `gorm:"column:igv;type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	RutaCotizacion      string  `gorm:"type:text;not null;default:''"`
	RutaComprobantePago string  `gorm:"type:text;not null;default:''"`
	ObservacionPago     *string `gorm:"type:text"`
	MotivoRechazo       *string `gorm:"type:text"`

	FechaPendientePago *time.Time
	// DocumentoIntentadoEn is the last time the retry sweep tried to publish
	// the PDF; the sweep serves the least recently tried rows first.
	DocumentoIntentadoEn *time.Time
	FechaPagado        *time.Time
	FechaRechazado     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Cliente    *Cliente    `gorm:"foreignKey:ClienteID"`
	Plataforma *Plataforma `gorm:"foreignKey:PlataformaID"`
	Operario   *Operario   `gorm:"foreignKey:OperarioID"`
}

func (Cotizacion) TableName() string { return "cotizaciones" }
