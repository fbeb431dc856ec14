package repository

import (
	"context"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicamentoRepository defines the data access contract for medications,
// including the conditional stock updates used by the order and loan flows.
type MedicamentoRepository interface {
	Create(ctx context.Context, m *model.Medicamento) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medicamento, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Medicamento, error)
	FindByCodigoBarra(ctx context.Context, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error)
	FindByCodigoBarraTx(tx *gorm.DB, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error)
	List(ctx context.Context, filter dto.MedicamentoFilter) ([]model.Medicamento, int64, error)
	Update(ctx context.Context, m *model.Medicamento) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// DescontarStockTx decrements stock_actual inside a transaction, guarded
	// so the row never goes negative. Returns an InsufficientStock domain
	// error when the guard rejects the update.
	DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error
	// ReponerStockTx increments stock_actual inside a transaction.
	ReponerStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error
	CreateTx(tx *gorm.DB, m *model.Medicamento) error

	// Alert queries: always recomputed, never cached.
	ListStockBajo(ctx context.Context, drogueriaIDs []uuid.UUID) ([]model.Medicamento, error)
	ListPorVencer(ctx context.Context, drogueriaIDs []uuid.UUID, desde, hasta time.Time) ([]model.Medicamento, error)
	CountVencidos(ctx context.Context, drogueriaIDs []uuid.UUID, hoy time.Time) (int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type medicamentoRepo struct{ db *gorm.DB }

func NewMedicamentoRepository(db *gorm.DB) MedicamentoRepository { return &medicamentoRepo{db: db} }

func (r *medicamentoRepo) DB() *gorm.DB { return r.db }

func (r *medicamentoRepo) Create(ctx context.Context, m *model.Medicamento) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *medicamentoRepo) CreateTx(tx *gorm.DB, m *model.Medicamento) error {
	return tx.Create(m).Error
}

func (r *medicamentoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicamento, error) {
	var m model.Medicamento
	err := r.db.WithContext(ctx).Preload("Categoria").Preload("Drogueria").First(&m, id).Error
	return &m, err
}

func (r *medicamentoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Medicamento, error) {
	var m model.Medicamento
	err := tx.First(&m, id).Error
	return &m, err
}

func (r *medicamentoRepo) FindByCodigoBarra(ctx context.Context, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error) {
	var m model.Medicamento
	err := r.db.WithContext(ctx).
		Where("drogueria_id = ? AND codigo_barra = ? AND activo = true", drogueriaID, codigo).
		First(&m).Error
	return &m, err
}

func (r *medicamentoRepo) FindByCodigoBarraTx(tx *gorm.DB, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error) {
	var m model.Medicamento
	err := tx.
		Where("drogueria_id = ? AND codigo_barra = ? AND activo = true", drogueriaID, codigo).
		First(&m).Error
	return &m, err
}

func (r *medicamentoRepo) List(ctx context.Context, filter dto.MedicamentoFilter) ([]model.Medicamento, int64, error) {
	var medicamentos []model.Medicamento
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Medicamento{})

	// Estado filter: "false" = inactivos, "all" = todos, anything else = activos (default)
	switch filter.Estado {
	case "false":
		q = q.Where("activo = false")
	case "all":
		// no filter
	default:
		q = q.Where("activo = true")
	}

	if filter.Drogueria != "" {
		q = q.Where("drogueria_id = ?", filter.Drogueria)
	}
	if filter.CodigoBarra != "" {
		q = q.Where("codigo_barra = ?", filter.CodigoBarra)
	}
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}
	if filter.Categoria != "" {
		q = q.Where("categoria_id = ?", filter.Categoria)
	}
	if filter.StockBajo == "true" {
		q = q.Where("stock_actual <= stock_minimo")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Categoria").Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&medicamentos).Error
	return medicamentos, total, err
}

func (r *medicamentoRepo) Update(ctx context.Context, m *model.Medicamento) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *medicamentoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Medicamento{}).Where("id = ?", id).Update("activo", false).Error
}

func (r *medicamentoRepo) DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	// Conditional update: the WHERE guard makes the decrement atomic under
	// concurrency. RowsAffected == 0 means another writer drained the stock.
	res := tx.Model(&model.Medicamento{}).
		Where("id = ? AND activo = true AND stock_actual >= ?", id, cantidad).
		Update("stock_actual", gorm.Expr("stock_actual - ?", cantidad))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.InsufficientStock("stock insuficiente para el medicamento %s", id)
	}
	return nil
}

func (r *medicamentoRepo) ReponerStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	return tx.Model(&model.Medicamento{}).Where("id = ?", id).
		Update("stock_actual", gorm.Expr("stock_actual + ?", cantidad)).Error
}

func (r *medicamentoRepo) ListStockBajo(ctx context.Context, drogueriaIDs []uuid.UUID) ([]model.Medicamento, error) {
	var medicamentos []model.Medicamento
	q := r.db.WithContext(ctx).Preload("Drogueria").
		Where("activo = true AND stock_actual <= stock_minimo")
	if len(drogueriaIDs) > 0 {
		q = q.Where("drogueria_id IN ?", drogueriaIDs)
	}
	err := q.Order("stock_actual ASC").Find(&medicamentos).Error
	return medicamentos, err
}

func (r *medicamentoRepo) ListPorVencer(ctx context.Context, drogueriaIDs []uuid.UUID, desde, hasta time.Time) ([]model.Medicamento, error) {
	var medicamentos []model.Medicamento
	q := r.db.WithContext(ctx).Preload("Drogueria").
		Where("activo = true AND fecha_vencimiento IS NOT NULL AND fecha_vencimiento BETWEEN ? AND ?", desde, hasta)
	if len(drogueriaIDs) > 0 {
		q = q.Where("drogueria_id IN ?", drogueriaIDs)
	}
	err := q.Order("fecha_vencimiento ASC").Find(&medicamentos).Error
	return medicamentos, err
}

func (r *medicamentoRepo) CountVencidos(ctx context.Context, drogueriaIDs []uuid.UUID, hoy time.Time) (int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Medicamento{}).
		Where("activo = true AND fecha_vencimiento IS NOT NULL AND fecha_vencimiento < ?", hoy)
	if len(drogueriaIDs) > 0 {
		q = q.Where("drogueria_id IN ?", drogueriaIDs)
	}
	err := q.Count(&total).Error
	return total, err
}
