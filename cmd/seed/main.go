// cmd/seed/main.go — Carga datos de demo (clientes, plataformas, operarios).
// Uso: go run ./cmd/seed
package main

import (
	"context"
	"os"
	"time"

	"cotizador/internal/config"
	"cotizador/internal/infra"
	"cotizador/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ptr(s string) *string { return &s }

var clientes = []model.Cliente{
	{Nombre: "Constructora Andina S.A.C.", RUC: "20512345678", Email: "obras@andina.pe", Telefono: ptr("014567890"), Direccion: ptr("Av. Javier Prado Este 1234, San Isidro"), Activo: true},
	{Nombre: "Inmobiliaria Los Olivos E.I.R.L.", RUC: "20609876543", Email: "proyectos@losolivos.pe", Direccion: ptr("Jr. Las Gardenias 455, Los Olivos"), Activo: true},
	{Nombre: "Mantenimientos Pacífico S.A.", RUC: "20456789012", Email: "compras@mpacifico.pe", Activo: false},
}

var plataformas = []model.Plataforma{
	{Serie: "PLT-2601-GS193001", Marca: "Genie", Modelo: "GS-1930", Tipo: "Tijera eléctrica", Precio: decimal.NewFromInt(100)},
	{Serie: "PLT-2601-GS326802", Marca: "Genie", Modelo: "GS-3268 RT", Tipo: "Tijera todo terreno", Precio: decimal.NewFromInt(180)},
	{Serie: "PLT-2602-JLG45003", Marca: "JLG", Modelo: "450AJ", Tipo: "Brazo articulado", Precio: decimal.NewFromInt(320)},
	{Serie: "PLT-2602-SKY32004", Marca: "Skyjack", Modelo: "SJIII 3219", Tipo: "Tijera eléctrica", Precio: decimal.RequireFromString("95.50")},
}

var operarios = []struct {
	usuario model.Usuario
	costo   decimal.Decimal
}{
	{model.Usuario{Nombre: "Luis", Apellido: "Quispe Mamani", Email: "luis.quispe@plataformas.pe", DNI: ptr("45678912"), Activo: true}, decimal.NewFromInt(30)},
	{model.Usuario{Nombre: "Rosa", Apellido: "Huamán Torres", Email: "rosa.huaman@plataformas.pe", DNI: ptr("47891234"), Activo: true}, decimal.NewFromInt(35)},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	if err := db.WithContext(ctx).Transaction(seed); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().
		Int("clientes", len(clientes)).
		Int("plataformas", len(plataformas)).
		Int("operarios", len(operarios)).
		Msg("datos de demo cargados")
}

func seed(tx *gorm.DB) error {
	for i := range clientes {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ruc"}},
			DoUpdates: clause.AssignmentColumns([]string{"nombre", "email", "telefono", "direccion", "activo", "updated_at"}),
		}).Create(&clientes[i]).Error; err != nil {
			return err
		}
		// gorm skips zero values for columns with a default on insert.
		if !clientes[i].Activo {
			if err := tx.Model(&model.Cliente{}).Where("ruc = ?", clientes[i].RUC).
				Update("activo", false).Error; err != nil {
				return err
			}
		}
	}

	for i := range plataformas {
		p := &plataformas[i]
		p.Estado = model.PlataformaActivo
		p.HorometroMantenimiento = decimal.NewFromInt(model.HorometroTrasMantenimiento)
		// Existing rows keep their state: they may be part of a live quotation.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "serie"}},
			DoUpdates: clause.AssignmentColumns([]string{"marca", "modelo", "tipo", "precio", "updated_at"}),
		}).Create(p).Error; err != nil {
			return err
		}
	}

	for i := range operarios {
		u := &operarios[i].usuario
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"nombre", "apellido", "dni", "activo", "updated_at"}),
		}).Create(u).Error; err != nil {
			return err
		}
		op := model.Operario{UsuarioID: u.ID, Estado: model.OperarioActivo, CostoServicio: operarios[i].costo}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "usuario_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"costo_servicio", "updated_at"}),
		}).Create(&op).Error; err != nil {
			return err
		}
	}
	return nil
}
