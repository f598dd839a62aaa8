package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EstadoOperario string

const (
	OperarioActivo       EstadoOperario = "ACTIVO"
	OperarioEnCotizacion EstadoOperario = "EN_COTIZACION"
	OperarioEnTrabajo    EstadoOperario = "EN_TRABAJO"
)

// Operario is a person who can be assigned to run a rented platform.
// Contact details live on the linked Usuario.
type Operario struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Estado        EstadoOperario  `gorm:"type:varchar(20);not null;default:'ACTIVO';index"`
	CostoServicio decimal.Decimal `gorm:"type:decimal(12,2);not null"` // per day
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (Operario) TableName() string { return "operarios" }

// NombreCompleto returns the operator's display name, empty if Usuario was
// not preloaded.
func (o *Operario) NombreCompleto() string {
	if o == nil || o.Usuario == nil {
		return ""
	}
	return o.Usuario.NombreCompleto()
}
