package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles del sistema.
const (
	RolAdmin    = "admin"
	RolEmpleado = "empleado"
	RolCliente  = "cliente"
)

// Usuario stores system users with role-based access.
// Rol: "admin" | "empleado" | "cliente"
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Email        *string
	Telefono     *string
	PasswordHash string `gorm:"not null"`
	Rol          string `gorm:"type:varchar(20);not null"`
	// ActiveDrogueriaID is the branch an admin is currently operating on;
	// nil = no branch selected.
	ActiveDrogueriaID *uuid.UUID `gorm:"type:uuid"`
	Activo            bool       `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
