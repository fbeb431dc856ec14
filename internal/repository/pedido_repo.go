package repository

import (
	"context"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PedidoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.Pedido) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error)
	List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error)

	CreateDetalleTx(tx *gorm.DB, d *model.DetallePedido) error
	UpdateTotalesTx(tx *gorm.DB, id uuid.UUID, subtotal, descuento, total decimal.Decimal) error
	// UpdateEstadoTx applies the transition desde → hacia with a conditional
	// update. Returns an InvalidTransition domain error when the row already
	// left the expected state.
	UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, desde, hacia string) error

	CreateHistorialTx(tx *gorm.DB, h *model.HistorialPedido) error
	ListHistorial(ctx context.Context, pedidoID uuid.UUID) ([]model.HistorialPedido, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) DB() *gorm.DB { return r.db }

func (r *pedidoRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Pedido) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).Preload("Detalles.Medicamento").First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Preload("Detalles").First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Pedido{})

	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Cliente != "" {
		q = q.Where("cliente_id = ?", filter.Cliente)
	}
	if filter.Desde != "" {
		q = q.Where("DATE(created_at) >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("DATE(created_at) <= ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Detalles.Medicamento").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&pedidos).Error
	return pedidos, total, err
}

func (r *pedidoRepo) CreateDetalleTx(tx *gorm.DB, d *model.DetallePedido) error {
	return tx.Create(d).Error
}

func (r *pedidoRepo) UpdateTotalesTx(tx *gorm.DB, id uuid.UUID, subtotal, descuento, total decimal.Decimal) error {
	return tx.Model(&model.Pedido{}).Where("id = ?", id).Updates(map[string]interface{}{
		"subtotal":  subtotal,
		"descuento": descuento,
		"total":     total,
	}).Error
}

func (r *pedidoRepo) UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, desde, hacia string) error {
	// Mismo esquema condicional que el descuento de stock: el WHERE sobre el
	// estado previo serializa transiciones concurrentes sobre la misma fila.
	res := tx.Model(&model.Pedido{}).
		Where("id = ? AND estado = ?", id, desde).
		Update("estado", hacia)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.InvalidTransition("el pedido ya no está en estado %s", desde)
	}
	return nil
}

func (r *pedidoRepo) CreateHistorialTx(tx *gorm.DB, h *model.HistorialPedido) error {
	return tx.Create(h).Error
}

func (r *pedidoRepo) ListHistorial(ctx context.Context, pedidoID uuid.UUID) ([]model.HistorialPedido, error) {
	var historial []model.HistorialPedido
	err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).
		Order("created_at ASC").Find(&historial).Error
	return historial, err
}
