package repository

import (
	"context"

	"farmanet/internal/dto"
	"farmanet/internal/model"

	"gorm.io/gorm"
)

// MovimientoRepository persists the append-only stock ledger. Every stock
// mutation writes one row here inside the same transaction.
type MovimientoRepository interface {
	Create(ctx context.Context, m *model.MovimientoInventario) error
	CreateTx(tx *gorm.DB, m *model.MovimientoInventario) error
	List(ctx context.Context, filter dto.MovimientoFilter) ([]model.MovimientoInventario, int64, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func (r *movimientoRepo) Create(ctx context.Context, m *model.MovimientoInventario) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movimientoRepo) CreateTx(tx *gorm.DB, m *model.MovimientoInventario) error {
	return tx.Create(m).Error
}

func (r *movimientoRepo) List(ctx context.Context, filter dto.MovimientoFilter) ([]model.MovimientoInventario, int64, error) {
	var movimientos []model.MovimientoInventario
	var total int64

	q := r.db.WithContext(ctx).Model(&model.MovimientoInventario{})

	if filter.MedicamentoID != "" {
		q = q.Where("medicamento_id = ?", filter.MedicamentoID)
	}
	if filter.Motivo != "" {
		q = q.Where("motivo = ?", filter.Motivo)
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
	err := q.Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&movimientos).Error
	return movimientos, total, err
}
