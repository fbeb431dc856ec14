package model

import (
	"time"

	"github.com/google/uuid"
)

// Estados del prestamo.
const (
	PrestamoPendiente = "pendiente"
	PrestamoAceptado  = "aceptado"
	PrestamoRechazado = "rechazado"
)

// Prestamo is an inter-branch stock transfer under a two-party approval
// protocol. The quantity is debited from the origin branch at request time
// (pessimistic reservation) and either credited to the destination on accept
// or returned to the origin on reject. Aceptado and rechazado are terminal.
type Prestamo struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrigenID      uuid.UUID `gorm:"type:uuid;not null;index"`
	DestinoID     uuid.UUID `gorm:"type:uuid;not null;index"`
	MedicamentoID uuid.UUID `gorm:"type:uuid;not null"`
	SolicitanteID uuid.UUID `gorm:"type:uuid;not null;index"`
	Cantidad      int       `gorm:"not null"`
	Estado        string    `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	Nota          *string
	ResueltoPorID *uuid.UUID `gorm:"type:uuid"`
	ResueltoEn    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Origen      *Drogueria   `gorm:"foreignKey:OrigenID"`
	Destino     *Drogueria   `gorm:"foreignKey:DestinoID"`
	Medicamento *Medicamento `gorm:"foreignKey:MedicamentoID"`
	Solicitante *Usuario     `gorm:"foreignKey:SolicitanteID"`
}

func (Prestamo) TableName() string { return "prestamos" }
