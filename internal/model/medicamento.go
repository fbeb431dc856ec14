package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Categoria classifies medicamentos inside the catalog.
type Categoria struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string    `gorm:"uniqueIndex;not null"`
	Descripcion *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Categoria) TableName() string { return "categorias" }

// Medicamento is a stocked catalog entry belonging to exactly one branch.
// StockActual never goes negative: every decrement is a conditional UPDATE
// guarded by stock_actual >= cantidad, so an insufficient balance can never
// commit. Medicamentos are soft-deleted only: facturas must remain
// reconstructable.
type Medicamento struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DrogueriaID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoriaID  *uuid.UUID `gorm:"type:uuid;index"`
	CodigoBarra  string     `gorm:"index;not null"`
	Nombre       string     `gorm:"index;not null"`
	Descripcion  *string
	Proveedor    *string
	Lote         *string
	PrecioCompra decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockActual  int             `gorm:"not null;default:0"`
	StockMinimo  int             `gorm:"not null;default:5"`
	// FechaVencimiento is optional; entries without one never appear in
	// expiry alerts.
	FechaVencimiento *time.Time
	Activo           bool `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Drogueria *Drogueria `gorm:"foreignKey:DrogueriaID"`
	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}

func (Medicamento) TableName() string { return "medicamentos" }
