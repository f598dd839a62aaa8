package dto

import "github.com/shopspring/decimal"

// MetricasResponse feeds the admin dashboard.
type MetricasResponse struct {
	Cotizaciones map[string]int64 `json:"cotizaciones"`
	Plataformas  map[string]int64 `json:"plataformas"`
	Operarios    map[string]int64 `json:"operarios"`
	TotalPagado  decimal.Decimal  `json:"total_pagado"`
	// TasaProcesadas is (PAGADO + RECHAZADO) / total × 100.
	TasaProcesadas decimal.Decimal `json:"tasa_procesadas"`
	// TiempoRespuestaHoras averages creation → PAGADO/RECHAZADO.
	TiempoRespuestaHoras decimal.Decimal `json:"tiempo_respuesta_horas"`
	GeneradoEn           string          `json:"generado_en"`
}
