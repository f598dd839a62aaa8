package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Usuario stores the personal data of staff members (operators today).
type Usuario struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null"`
	Apellido  string    `gorm:"not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	DNI       *string   `gorm:"column:dni;type:varchar(8)"`
	Telefono  *string   `gorm:"type:varchar(20)"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *Usuario) NombreCompleto() string {
	return strings.TrimSpace(u.Nombre + " " + u.Apellido)
}
