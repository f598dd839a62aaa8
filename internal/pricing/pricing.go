// Package pricing computes the money breakdown of a rental quotation.
//
// All arithmetic is fixed point (shopspring/decimal). Amounts are kept at two
// decimal places; IGV is rounded half-up and the total is the exact sum of
// subtotal and IGV, so total == subtotal + igv always holds.
package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// TasaIGV is the Peruvian general sales tax rate.
var TasaIGV = decimal.RequireFromString("0.18")

// HorasPorDia is the usage charged against a platform's hour meter per rented day.
const HorasPorDia = 8

var ErrRangoFechas = errors.New("la fecha de inicio debe ser anterior a la fecha de fin")

// Dias returns the number of rental days between inicio and fin. The end date
// is inclusive, so a rental from the 10th to the 12th counts three days.
func Dias(inicio, fin time.Time) (int, error) {
	if !inicio.Before(fin) {
		return 0, ErrRangoFechas
	}
	diff := fin.Sub(inicio)
	return int(math.Ceil(diff.Hours()/24)) + 1, nil
}

// HorasRequeridas is the hour-meter budget a rental of dias days consumes.
func HorasRequeridas(dias int) decimal.Decimal {
	return decimal.NewFromInt(int64(dias * HorasPorDia))
}

// Monto is the base rental amount: daily price × days.
func Monto(precioDiario decimal.Decimal, dias int) decimal.Decimal {
	return precioDiario.Mul(decimal.NewFromInt(int64(dias))).Round(2)
}

// Entrada groups everything the calculator needs. Monto is the base rental
// amount fixed when the quotation was created; it is not re-derived from the
// platform's current price.
type Entrada struct {
	Monto               decimal.Decimal
	Dias                int
	MontoDelivery       decimal.Decimal
	CostoOperarioDiario decimal.Decimal
	RequiereOperario    bool
	// SubtotalPrevio is whatever subtotal the quotation already carried.
	SubtotalPrevio decimal.Decimal
}

// Desglose is the computed breakdown.
type Desglose struct {
	Monto         decimal.Decimal
	MontoDelivery decimal.Decimal
	MontoOperario decimal.Decimal
	Subtotal      decimal.Decimal
	IGV           decimal.Decimal
	Total         decimal.Decimal
}

// Calcular is a pure function of its input.
func Calcular(in Entrada) Desglose {
	d := Desglose{
		Monto:         in.Monto.Round(2),
		MontoDelivery: in.MontoDelivery.Round(2),
		MontoOperario: decimal.Zero,
	}
	if in.RequiereOperario {
		d.MontoOperario = in.CostoOperarioDiario.Mul(decimal.NewFromInt(int64(in.Dias))).Round(2)
	}
	d.Subtotal = in.SubtotalPrevio.Round(2).
		Add(d.MontoDelivery).
		Add(d.MontoOperario).
		Add(d.Monto)
	d.IGV = IGV(d.Subtotal)
	d.Total = d.Subtotal.Add(d.IGV)
	return d
}

// IGV returns subtotal × 18 % rounded half-up to cents.
func IGV(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TasaIGV).Round(2)
}
