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

type PrestamoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.Prestamo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Prestamo, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Prestamo, error)
	// ResolverTx flips a pendiente prestamo to its terminal state with a
	// conditional update. Returns an InvalidState domain error when another
	// resolution already won the race.
	ResolverTx(tx *gorm.DB, p *model.Prestamo, estado string, resueltoPor uuid.UUID, nota *string) error
	List(ctx context.Context, filter dto.PrestamoFilter) ([]model.Prestamo, int64, error)
	DB() *gorm.DB
}

type prestamoRepo struct{ db *gorm.DB }

func NewPrestamoRepository(db *gorm.DB) PrestamoRepository { return &prestamoRepo{db: db} }

func (r *prestamoRepo) DB() *gorm.DB { return r.db }

func (r *prestamoRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Prestamo) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *prestamoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Prestamo, error) {
	var p model.Prestamo
	err := r.db.WithContext(ctx).
		Preload("Origen").Preload("Destino").Preload("Medicamento").
		First(&p, id).Error
	return &p, err
}

func (r *prestamoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Prestamo, error) {
	var p model.Prestamo
	err := tx.First(&p, id).Error
	return &p, err
}

func (r *prestamoRepo) ResolverTx(tx *gorm.DB, p *model.Prestamo, estado string, resueltoPor uuid.UUID, nota *string) error {
	ahora := time.Now()
	updates := map[string]interface{}{
		"estado":          estado,
		"resuelto_por_id": resueltoPor,
		"resuelto_en":     ahora,
	}
	if nota != nil {
		updates["nota"] = *nota
	}

	// El WHERE sobre estado hace la resolución atómica: solo una transición
	// terminal puede ganar. RowsAffected == 0 significa que otra ya ganó.
	res := tx.Model(&model.Prestamo{}).
		Where("id = ? AND estado = ?", p.ID, model.PrestamoPendiente).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.InvalidState("el préstamo ya fue resuelto")
	}

	p.Estado = estado
	p.ResueltoPorID = &resueltoPor
	p.ResueltoEn = &ahora
	if nota != nil {
		p.Nota = nota
	}
	return nil
}

func (r *prestamoRepo) List(ctx context.Context, filter dto.PrestamoFilter) ([]model.Prestamo, int64, error) {
	var prestamos []model.Prestamo
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Prestamo{})

	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Drogueria != "" {
		q = q.Where("origen_id = ? OR destino_id = ?", filter.Drogueria, filter.Drogueria)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Origen").Preload("Destino").Preload("Medicamento").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&prestamos).Error
	return prestamos, total, err
}
