package model

import (
	"time"

	"github.com/google/uuid"
)

// Drogueria represents an independently stocked pharmacy branch.
// Each branch owns its own Medicamento catalog; stock moves between
// branches only through the Prestamo workflow.
type Drogueria struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo    string    `gorm:"uniqueIndex;not null"` // short code, e.g. D001
	Nombre    string    `gorm:"index;not null"`
	Direccion *string
	Ciudad    *string
	Telefono  *string
	Email     *string
	Horarios  *string
	// PropietarioID is the owning user; nil for admin-managed branches.
	PropietarioID *uuid.UUID `gorm:"type:uuid;index"`
	Activo        bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Propietario *Usuario `gorm:"foreignKey:PropietarioID"`
}

func (Drogueria) TableName() string { return "droguerias" }
