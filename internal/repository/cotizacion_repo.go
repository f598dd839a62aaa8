package repository

import (
	"context"
	"time"

	"cotizador/internal/dto"
	"cotizador/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CotizacionRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, tx *gorm.DB, c *model.Cotizacion) error
	// FindByID loads the quotation with client, platform and operator (+ usuario).
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cotizacion, error)
	// FindByIDForUpdate row-locks the quotation for the rest of tx.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Cotizacion, error)
	ExisteVigentePorPlataforma(ctx context.Context, tx *gorm.DB, plataformaID uuid.UUID) (bool, error)
	ExisteCodigo(ctx context.Context, tx *gorm.DB, codigo string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, c *model.Cotizacion) error
	// UpdateRutaCotizacion stores the document URL only while the quotation
	// still accepts one (see model.Cotizacion.DocumentoPublicable); it reports
	// whether a row was touched.
	UpdateRutaCotizacion(ctx context.Context, id uuid.UUID, ruta string) (bool, error)
	List(ctx context.Context, filter dto.CotizacionFilter) ([]model.Cotizacion, int64, error)
	ListSinDocumento(ctx context.Context, limit int) ([]model.Cotizacion, error)
	MarcarIntentoDocumento(ctx context.Context, id uuid.UUID) error
	CountByEstado(ctx context.Context) (map[string]int64, error)
	SumTotalPagado(ctx context.Context) (decimal.Decimal, error)
	PromedioHorasRespuesta(ctx context.Context) (decimal.Decimal, error)
}

type cotizacionRepo struct{ db *gorm.DB }

func NewCotizacionRepository(db *gorm.DB) CotizacionRepository { return &cotizacionRepo{db: db} }

func (r *cotizacionRepo) DB() *gorm.DB { return r.db }

// conn returns tx when the call runs inside a transaction.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func (r *cotizacionRepo) Create(ctx context.Context, tx *gorm.DB, c *model.Cotizacion) error {
	return conn(r.db, tx).WithContext(ctx).Create(c).Error
}

func (r *cotizacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cotizacion, error) {
	var c model.Cotizacion
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Preload("Plataforma").
		Preload("Operario.Usuario").
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cotizacionRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Cotizacion, error) {
	var c model.Cotizacion
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cotizacionRepo) ExisteVigentePorPlataforma(ctx context.Context, tx *gorm.DB, plataformaID uuid.UUID) (bool, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Cotizacion{}).
		Where("plataforma_id = ? AND estado IN ?", plataformaID, []model.EstadoCotizacion{
			model.CotizacionPendienteDatos, model.CotizacionPendientePago,
		}).
		Count(&n).Error
	return n > 0, err
}

func (r *cotizacionRepo) ExisteCodigo(ctx context.Context, tx *gorm.DB, codigo string) (bool, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Cotizacion{}).
		Where("codigo = ?", codigo).
		Count(&n).Error
	return n > 0, err
}

func (r *cotizacionRepo) Update(ctx context.Context, tx *gorm.DB, c *model.Cotizacion) error {
	// Omit associations: only the quotation row is written.
	return conn(r.db, tx).WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

func (r *cotizacionRepo) UpdateRutaCotizacion(ctx context.Context, id uuid.UUID, ruta string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Cotizacion{}).
		Where("id = ? AND (estado = ? OR (estado = ? AND ruta_cotizacion = ''))",
			id, model.CotizacionPendientePago, model.CotizacionPagado).
		Updates(map[string]any{"ruta_cotizacion": ruta, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

func (r *cotizacionRepo) List(ctx context.Context, filter dto.CotizacionFilter) ([]model.Cotizacion, int64, error) {
	var cotizaciones []model.Cotizacion
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Cotizacion{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.ClienteID != "" {
		q = q.Where("cliente_id = ?", filter.ClienteID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Cliente").Preload("Plataforma").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&cotizaciones).Error
	return cotizaciones, total, err
}

func (r *cotizacionRepo) ListSinDocumento(ctx context.Context, limit int) ([]model.Cotizacion, error) {
	var cotizaciones []model.Cotizacion
	err := r.db.WithContext(ctx).
		Where("estado IN ? AND ruta_cotizacion = ''", []model.EstadoCotizacion{
			model.CotizacionPendientePago, model.CotizacionPagado,
		}).
		Order("documento_intentado_en ASC NULLS FIRST").
		Order("fecha_pendiente_pago ASC").
		Limit(limit).
		Find(&cotizaciones).Error
	return cotizaciones, err
}

func (r *cotizacionRepo) MarcarIntentoDocumento(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Cotizacion{}).
		Where("id = ?", id).
		UpdateColumn("documento_intentado_en", time.Now()).Error
}

type estadoCount struct {
	Estado string
	Total  int64
}

func countByEstado(ctx context.Context, db *gorm.DB, m any) (map[string]int64, error) {
	var rows []estadoCount
	err := db.WithContext(ctx).Model(m).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Estado] = row.Total
	}
	return out, nil
}

func (r *cotizacionRepo) CountByEstado(ctx context.Context) (map[string]int64, error) {
	return countByEstado(ctx, r.db, &model.Cotizacion{})
}

func (r *cotizacionRepo) SumTotalPagado(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.Cotizacion{}).
		Select("COALESCE(SUM(total), 0)").
		Where("estado = ?", model.CotizacionPagado).
		Scan(&total).Error
	return total, err
}

func (r *cotizacionRepo) PromedioHorasRespuesta(ctx context.Context) (decimal.Decimal, error) {
	var horas decimal.Decimal
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (COALESCE(fecha_pagado, fecha_rechazado) - created_at)) / 3600), 0)
		FROM cotizaciones
		WHERE estado IN (?, ?)`,
		model.CotizacionPagado, model.CotizacionRechazado,
	).Scan(&horas).Error
	return horas.Round(2), err
}
