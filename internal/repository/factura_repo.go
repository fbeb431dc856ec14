package repository

import (
	"context"
	"time"

	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FacturaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error)
	// FindByPedidoID backs the idempotency check for automatic generation.
	FindByPedidoID(ctx context.Context, pedidoID uuid.UUID) (*model.Factura, error)
	NextNumero(ctx context.Context, tx *gorm.DB) (int, error)
	List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	ListByCliente(ctx context.Context, clienteID uuid.UUID, filter dto.FacturaFilter) ([]model.Factura, int64, error)
	Update(ctx context.Context, f *model.Factura) error
	// ListPendientesDocumento returns facturas whose PDF is still pending or
	// errored and whose next retry window has passed.
	ListPendientesDocumento(ctx context.Context, now time.Time, limit int) ([]model.Factura, error)
	DB() *gorm.DB
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error {
	return tx.WithContext(ctx).Create(f).Error
}

func (r *facturaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).
		Preload("Detalles.Medicamento").Preload("Cliente").
		First(&f, id).Error
	return &f, err
}

func (r *facturaRepo) FindByPedidoID(ctx context.Context, pedidoID uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).First(&f).Error
	return &f, err
}

func (r *facturaRepo) NextNumero(ctx context.Context, tx *gorm.DB) (int, error) {
	// Uses a PostgreSQL sequence for atomic invoice number generation
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('facturas_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *facturaRepo) List(ctx context.Context, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	return r.list(ctx, filter, nil)
}

func (r *facturaRepo) ListByCliente(ctx context.Context, clienteID uuid.UUID, filter dto.FacturaFilter) ([]model.Factura, int64, error) {
	return r.list(ctx, filter, &clienteID)
}

func (r *facturaRepo) list(ctx context.Context, filter dto.FacturaFilter, clienteID *uuid.UUID) ([]model.Factura, int64, error) {
	var facturas []model.Factura
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Factura{})

	if clienteID != nil {
		q = q.Where("cliente_id = ?", *clienteID)
	} else if filter.Cliente != "" {
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
		Find(&facturas).Error
	return facturas, total, err
}

func (r *facturaRepo) Update(ctx context.Context, f *model.Factura) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *facturaRepo) ListPendientesDocumento(ctx context.Context, now time.Time, limit int) ([]model.Factura, error) {
	var facturas []model.Factura
	err := r.db.WithContext(ctx).
		Where("documento_estado IN ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			[]string{model.DocumentoPendiente, model.DocumentoError}, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&facturas).Error
	return facturas, err
}
