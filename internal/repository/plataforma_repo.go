package repository

import (
	"context"

	"cotizador/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlataformaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Plataforma, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Plataforma, error)
	UpdateEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado model.EstadoPlataforma) error
	// ListDisponibles returns ACTIVO platforms not held by an open quotation.
	ListDisponibles(ctx context.Context) ([]model.Plataforma, error)
	CountByEstado(ctx context.Context) (map[string]int64, error)
}

type plataformaRepo struct{ db *gorm.DB }

func NewPlataformaRepository(db *gorm.DB) PlataformaRepository { return &plataformaRepo{db: db} }

func (r *plataformaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Plataforma, error) {
	var p model.Plataforma
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *plataformaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Plataforma, error) {
	var p model.Plataforma
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *plataformaRepo) UpdateEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado model.EstadoPlataforma) error {
	updates := map[string]any{"estado": estado}
	if estado == model.PlataformaEnMantenimiento {
		updates["horometro_mantenimiento"] = model.HorometroTrasMantenimiento
	}
	res := conn(r.db, tx).WithContext(ctx).Model(&model.Plataforma{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *plataformaRepo) ListDisponibles(ctx context.Context) ([]model.Plataforma, error) {
	var ps []model.Plataforma
	err := r.db.WithContext(ctx).
		Where("estado = ?", model.PlataformaActivo).
		Where("NOT EXISTS (SELECT 1 FROM cotizaciones c WHERE c.plataforma_id = plataformas.id AND c.estado IN ?)",
			[]model.EstadoCotizacion{model.CotizacionPendienteDatos, model.CotizacionPendientePago}).
		Order("serie ASC").
		Find(&ps).Error
	return ps, err
}

func (r *plataformaRepo) CountByEstado(ctx context.Context) (map[string]int64, error) {
	return countByEstado(ctx, r.db, &model.Plataforma{})
}
