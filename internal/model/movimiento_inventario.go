package model

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de movimiento de inventario.
const (
	MovReservaPedido    = "reserva_pedido"
	MovRestoreCancelado = "restore_cancelacion"
	MovReservaPrestamo  = "reserva_prestamo"
	MovEntradaPrestamo  = "entrada_prestamo"
	MovDevolucionPrest  = "devolucion_prestamo"
	MovAjusteManual     = "ajuste_manual"
	MovVentaDirecta     = "venta_directa"
)

// MovimientoInventario registra cada cambio de stock de un medicamento.
// Los registros son inmutables: nunca se modifican ni eliminan.
type MovimientoInventario struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MedicamentoID uuid.UUID `gorm:"type:uuid;not null;index"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string    `gorm:"not null;index"`
	// ReferenciaID links to the originating pedido or prestamo if applicable.
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time

	Medicamento *Medicamento `gorm:"foreignKey:MedicamentoID"`
}

func (MovimientoInventario) TableName() string { return "movimientos_inventario" }
