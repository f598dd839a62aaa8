package infra

import (
	"fmt"

	"cotizador/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection. TranslateError maps unique-key
// violations to gorm.ErrDuplicatedKey so services can answer 409 without
// parsing driver messages.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations creates / updates every table and then applies the patches
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Cliente{},
		&model.Plataforma{},
		&model.Operario{},
		&model.Cotizacion{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own (partial indexes, check constraints). Each statement is
// guarded so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// A platform can be held by at most one open quotation.
		{"uniq open quotation per platform", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cotizaciones_plataforma_vigente') THEN
    CREATE UNIQUE INDEX idx_cotizaciones_plataforma_vigente
        ON cotizaciones (plataforma_id)
        WHERE estado IN ('PENDIENTE_DATOS', 'PENDIENTE_PAGO');
  END IF;
END $$`},
		// Same for operators once assigned.
		{"uniq open quotation per operator", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cotizaciones_operario_vigente') THEN
    CREATE UNIQUE INDEX idx_cotizaciones_operario_vigente
        ON cotizaciones (operario_id)
        WHERE operario_id IS NOT NULL AND estado IN ('PENDIENTE_DATOS', 'PENDIENTE_PAGO');
  END IF;
END $$`},
		// Retry scan: priced rows still missing their document, least recently tried first.
		{"idx pending document", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cotizaciones_documento_pendiente') THEN
    CREATE INDEX idx_cotizaciones_documento_pendiente
        ON cotizaciones (documento_intentado_en NULLS FIRST, fecha_pendiente_pago)
        WHERE estado IN ('PENDIENTE_PAGO', 'PAGADO') AND ruta_cotizacion = '';
  END IF;
END $$`},
		{"check total = subtotal + igv", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cotizaciones_total') THEN
    ALTER TABLE cotizaciones
      ADD CONSTRAINT chk_cotizaciones_total CHECK (total = subtotal + igv);
  END IF;
END $$`},
		{"check quotation status", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cotizaciones_estado') THEN
    ALTER TABLE cotizaciones
      ADD CONSTRAINT chk_cotizaciones_estado
      CHECK (estado IN ('PENDIENTE_DATOS', 'PENDIENTE_PAGO', 'PAGADO', 'RECHAZADO'));
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
