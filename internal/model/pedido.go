package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados del pedido.
const (
	PedidoPendiente = "pendiente"
	PedidoProcesado = "procesado"
	PedidoEntregado = "entregado"
	PedidoCancelado = "cancelado"
)

// Metodos de pago aceptados.
const (
	PagoEfectivo      = "efectivo"
	PagoTarjeta       = "tarjeta"
	PagoTransferencia = "transferencia"
)

// Pedido is a customer order advancing through a fixed status workflow:
// pendiente → {procesado, cancelado}; procesado → {entregado, cancelado};
// entregado and cancelado are terminal.
//
// Subtotal and Total are always recomputed from the current Detalles inside
// the same transaction as any line write, never edited independently.
type Pedido struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Estado           string    `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	MetodoPago       string    `gorm:"type:varchar(20);not null;default:'efectivo'"`
	DireccionEntrega *string
	TelefonoContacto *string
	Notas            *string
	Subtotal         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Descuento        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Cliente  *Usuario        `gorm:"foreignKey:ClienteID"`
	Detalles []DetallePedido `gorm:"foreignKey:PedidoID"`
}

func (Pedido) TableName() string { return "pedidos" }

// DetallePedido is one order line. PrecioUnitario is frozen from the
// medicamento's sale price at line-creation time, so historical orders are
// insulated from later price changes.
type DetallePedido struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MedicamentoID  uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time

	Medicamento *Medicamento `gorm:"foreignKey:MedicamentoID"`
}

func (DetallePedido) TableName() string { return "detalles_pedido" }

// HistorialPedido is an append-only log entry recorded on every status
// transition. Entries are never modified or deleted.
type HistorialPedido struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	UsuarioID      *uuid.UUID `gorm:"type:uuid"`
	EstadoAnterior string     `gorm:"type:varchar(20);not null"`
	EstadoNuevo    string     `gorm:"type:varchar(20);not null"`
	Comentario     *string
	CreatedAt      time.Time

	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (HistorialPedido) TableName() string { return "historial_pedidos" }
