package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados del documento PDF de una factura.
const (
	DocumentoPendiente = "pendiente"
	DocumentoGenerado  = "generado"
	DocumentoError     = "error"
)

// Factura is an immutable billing record, generated automatically when a
// pedido reaches "entregado" or registered manually by staff.
// The unique index on PedidoID enforces at most one factura per pedido.
// Total is frozen at creation and never recomputed.
type Factura struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// Numero is assigned from a PostgreSQL sequence inside the creation tx.
	Numero int `gorm:"not null;index"`
	// PedidoID is nil for manually registered facturas.
	PedidoID         *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ClienteID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	EmpleadoID       *uuid.UUID `gorm:"type:uuid"`
	MetodoPago       string     `gorm:"type:varchar(20);not null;default:'efectivo'"`
	DireccionEntrega *string
	Observaciones    *string
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// Document pipeline: the PDF is rendered asynchronously by the worker
	// pool; failures are retried by the cron with exponential backoff.
	PDFPath         *string    `gorm:"column:pdf_path"`
	DocumentoEstado string     `gorm:"type:varchar(20);not null;default:'pendiente'"`
	RetryCount      int        `gorm:"not null;default:0"`
	NextRetryAt     *time.Time `gorm:"column:next_retry_at"`
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Cliente  *Usuario         `gorm:"foreignKey:ClienteID"`
	Empleado *Usuario         `gorm:"foreignKey:EmpleadoID"`
	Detalles []DetalleFactura `gorm:"foreignKey:FacturaID"`
}

func (Factura) TableName() string { return "facturas" }

// DetalleFactura is an immutable copy of an order line at delivery time.
// Facturas expose no mutation operations on their lines: corrections
// require issuing a new factura.
type DetalleFactura struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MedicamentoID  uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time

	Medicamento *Medicamento `gorm:"foreignKey:MedicamentoID"`
}

func (DetalleFactura) TableName() string { return "detalles_factura" }
