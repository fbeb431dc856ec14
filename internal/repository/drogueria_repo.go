package repository

import (
	"context"

	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DrogueriaRepository interface {
	Create(ctx context.Context, d *model.Drogueria) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Drogueria, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Drogueria, error)
	List(ctx context.Context, filter dto.DrogueriaFilter) ([]model.Drogueria, int64, error)
	// ListByPropietario returns the branches owned by a user, used to scope
	// alerts and listings for non-admin callers.
	ListByPropietario(ctx context.Context, propietarioID uuid.UUID) ([]model.Drogueria, error)
	Update(ctx context.Context, d *model.Drogueria) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type drogueriaRepo struct{ db *gorm.DB }

func NewDrogueriaRepository(db *gorm.DB) DrogueriaRepository { return &drogueriaRepo{db: db} }

func (r *drogueriaRepo) Create(ctx context.Context, d *model.Drogueria) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *drogueriaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Drogueria, error) {
	var d model.Drogueria
	err := r.db.WithContext(ctx).First(&d, id).Error
	return &d, err
}

func (r *drogueriaRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Drogueria, error) {
	var d model.Drogueria
	err := r.db.WithContext(ctx).Where("codigo = ?", codigo).First(&d).Error
	return &d, err
}

func (r *drogueriaRepo) List(ctx context.Context, filter dto.DrogueriaFilter) ([]model.Drogueria, int64, error) {
	var droguerias []model.Drogueria
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Drogueria{})

	switch filter.Activa {
	case "false":
		q = q.Where("activo = false")
	case "true":
		q = q.Where("activo = true")
	}
	if filter.Search != "" {
		q = q.Where("nombre ILIKE ? OR codigo ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&droguerias).Error
	return droguerias, total, err
}

func (r *drogueriaRepo) ListByPropietario(ctx context.Context, propietarioID uuid.UUID) ([]model.Drogueria, error) {
	var droguerias []model.Drogueria
	err := r.db.WithContext(ctx).
		Where("propietario_id = ? AND activo = true", propietarioID).
		Order("nombre ASC").Find(&droguerias).Error
	return droguerias, err
}

func (r *drogueriaRepo) Update(ctx context.Context, d *model.Drogueria) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *drogueriaRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Drogueria{}).Where("id = ?", id).Update("activo", false).Error
}
