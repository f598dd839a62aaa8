package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is a company or person requesting rentals.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"type:varchar(160);not null"`
	RUC       string    `gorm:"column:ruc;type:varchar(11);uniqueIndex;not null"`
	Email     string    `gorm:"type:varchar(160);not null"`
	Telefono  *string   `gorm:"type:varchar(20)"`
	Direccion *string
	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Cliente) TableName() string { return "clientes" }
