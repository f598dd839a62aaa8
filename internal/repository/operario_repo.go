package repository

import (
	"context"

	"cotizador/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OperarioRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Operario, error)
	UpdateEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado model.EstadoOperario) error
	ListActivos(ctx context.Context) ([]model.Operario, error)
	CountByEstado(ctx context.Context) (map[string]int64, error)
}

type operarioRepo struct{ db *gorm.DB }

func NewOperarioRepository(db *gorm.DB) OperarioRepository { return &operarioRepo{db: db} }

func (r *operarioRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Operario, error) {
	var o model.Operario
	// FOR UPDATE cannot be combined with the LEFT JOIN a Joins preload
	// generates, so the user row comes through a separate Preload query.
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Usuario").
		First(&o, "id = ?", id).Error
	return &o, err
}

func (r *operarioRepo) UpdateEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado model.EstadoOperario) error {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.Operario{}).Where("id = ?", id).Update("estado", estado)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *operarioRepo) ListActivos(ctx context.Context) ([]model.Operario, error) {
	var os []model.Operario
	err := r.db.WithContext(ctx).
		Joins("Usuario").
		Where("operarios.estado = ? AND \"Usuario\".activo = ?", model.OperarioActivo, true).
		Order("\"Usuario\".nombre ASC").
		Find(&os).Error
	return os, err
}

func (r *operarioRepo) CountByEstado(ctx context.Context) (map[string]int64, error) {
	return countByEstado(ctx, r.db, &model.Operario{})
}
