package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EstadoPlataforma string

const (
	PlataformaActivo          EstadoPlataforma = "ACTIVO"
	PlataformaEnCotizacion    EstadoPlataforma = "EN_COTIZACION"
	PlataformaEnTrabajo       EstadoPlataforma = "EN_TRABAJO"
	PlataformaEnMantenimiento EstadoPlataforma = "EN_MANTENIMIENTO"
)

// HorometroTrasMantenimiento is the usage budget a platform gets back after
// going through maintenance.
const HorometroTrasMantenimiento = 200

// Plataforma is a rentable lifting platform.
type Plataforma struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Serie       string           `gorm:"type:varchar(40);uniqueIndex;not null"`
	Marca       string           `gorm:"type:varchar(80);not null"`
	Modelo      string           `gorm:"type:varchar(80);not null"`
	Tipo        string           `gorm:"type:varchar(80)"`
	Descripcion string           `gorm:"type:text"`
	Precio      decimal.Decimal  `gorm:"type:decimal(12,2);not null"` // per day
	Estado      EstadoPlataforma `gorm:"type:varchar(20);not null;default:'ACTIVO';index"`
	// HorometroMantenimiento is the remaining usage hours before maintenance.
	HorometroMantenimiento decimal.Decimal `gorm:"type:decimal(10,2);not null;default:200"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (Plataforma) TableName() string { return "plataformas" }
