package infra

// pdf.go — quotation document using go-pdf/fpdf.
// A4 portrait with:
//   - Company header
//   - Quotation code, dates and client block
//   - Item table: platform rental, operator service (if any), delivery
//   - Subtotal / IGV (18%) / TOTAL in soles
//
// The document is rendered in memory; storing it is the caller's job.

import (
	"bytes"
	"fmt"

	"cotizador/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const moneda = "S/"

// Empresa is the issuer printed in the document header.
type Empresa struct {
	Nombre    string
	RUC       string
	Direccion string
	Telefono  string
	Email     string
}

// CotizacionPDF renders quotation documents for one issuer.
type CotizacionPDF struct {
	empresa Empresa
}

func NewCotizacionPDF(empresa Empresa) *CotizacionPDF {
	return &CotizacionPDF{empresa: empresa}
}

// RenderCotizacion returns the PDF bytes for c. Cliente and Plataforma must be
// loaded; Operario is printed only when the quotation requires one.
func (g *CotizacionPDF) RenderCotizacion(c *model.Cotizacion) ([]byte, error) {
	if c.Cliente == nil || c.Plataforma == nil {
		return nil, fmt.Errorf("pdf: cotizacion %s without cliente/plataforma loaded", c.ID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, tr(g.empresa.Nombre), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{
		labeled("RUC", g.empresa.RUC),
		g.empresa.Direccion,
		labeled("Tel.", g.empresa.Telefono),
		g.empresa.Email,
	} {
		if line != "" {
			pdf.CellFormat(contentW, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 8, tr("COTIZACIÓN "+c.Codigo), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Client / rental info ─────────────────────────────────────────────────
	half := contentW / 2
	pdf.SetFont("Helvetica", "", 9)
	fechaEmision := c.CreatedAt
	if c.FechaPendientePago != nil {
		fechaEmision = *c.FechaPendientePago
	}
	info := [][2]string{
		{"Cliente: " + c.Cliente.Nombre, "Fecha de emisión: " + fechaEmision.Format("02/01/2006")},
		{"RUC: " + c.Cliente.RUC, "Inicio: " + c.FechaInicio.Format("02/01/2006")},
		{"Email: " + c.Cliente.Email, "Fin: " + c.FechaFin.Format("02/01/2006")},
	}
	for _, row := range info {
		pdf.CellFormat(half, 5, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 5, tr(row[1]), "", 1, "R", false, 0, "")
	}
	if c.Descripcion != "" {
		pdf.Ln(1)
		pdf.MultiCell(contentW, 5, tr("Descripción: "+c.Descripcion), "", "L", false)
	}
	pdf.Ln(4)

	// ── Items ────────────────────────────────────────────────────────────────
	colDesc := contentW * 0.50
	colCant := contentW * 0.12
	colPU := contentW * 0.19
	colImp := contentW * 0.19

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colDesc, 7, tr("Descripción"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colCant, 7, tr("Días"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(colPU, 7, "P. Unit.", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colImp, 7, "Importe", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	item := func(desc, cant string, pu, imp decimal.Decimal, conPU bool) {
		puStr := ""
		if conPU {
			puStr = money(pu)
		}
		pdf.CellFormat(colDesc, 6, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colCant, 6, cant, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colPU, 6, tr(puStr), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colImp, 6, tr(money(imp)), "1", 1, "R", false, 0, "")
	}

	p := c.Plataforma
	item(fmt.Sprintf("Alquiler plataforma %s %s (Serie %s)", p.Marca, p.Modelo, p.Serie),
		fmt.Sprint(c.Dias), p.Precio, c.Monto, true)
	if c.RequiereOperario && c.Operario != nil {
		nombre := c.Operario.NombreCompleto()
		if nombre == "" {
			nombre = "asignado"
		}
		item("Servicio de operario: "+nombre, fmt.Sprint(c.Dias), c.Operario.CostoServicio, c.MontoOperario, true)
	}
	item("Envío", "-", decimal.Zero, c.MontoDelivery, false)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.Ln(2)
	labelW := colDesc + colCant + colPU
	total := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(colImp, 6, tr(money(v)), "", 1, "R", false, 0, "")
	}
	total("Subtotal", c.Subtotal, false)
	total("IGV (18%)", c.IGV, false)
	total("TOTAL", c.Total, true)

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(contentW, 4, tr("Precios expresados en soles. La reserva de la plataforma se confirma con el pago de la cotización."), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v decimal.Decimal) string {
	return moneda + " " + v.StringFixed(2)
}

func labeled(label, v string) string {
	if v == "" {
		return ""
	}
	return label + " " + v
}
