package service

import (
	"time"

	"cotizador/internal/dto"
	"cotizador/internal/model"
)

const isoFormat = "2006-01-02T15:04:05Z07:00"

func formatPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(isoFormat)
	return &s
}

func toClienteResumen(c *model.Cliente) *dto.ClienteResumen {
	if c == nil {
		return nil
	}
	return &dto.ClienteResumen{ID: c.ID.String(), Nombre: c.Nombre, RUC: c.RUC, Email: c.Email}
}

func toPlataformaResumen(p *model.Plataforma) *dto.PlataformaResumen {
	if p == nil {
		return nil
	}
	return &dto.PlataformaResumen{
		ID:     p.ID.String(),
		Serie:  p.Serie,
		Marca:  p.Marca,
		Modelo: p.Modelo,
		Precio: p.Precio,
		Estado: string(p.Estado),
	}
}

func toOperarioResumen(o *model.Operario) *dto.OperarioResumen {
	if o == nil {
		return nil
	}
	r := &dto.OperarioResumen{
		ID:            o.ID.String(),
		Nombre:        o.NombreCompleto(),
		CostoServicio: o.CostoServicio,
		Estado:        string(o.Estado),
	}
	if o.Usuario != nil {
		r.Email = o.Usuario.Email
	}
	return r
}

func toCotizacionResponse(c *model.Cotizacion) *dto.CotizacionResponse {
	return &dto.CotizacionResponse{
		ID:                  c.ID.String(),
		Codigo:              c.Codigo,
		Estado:              string(c.Estado),
		Descripcion:         c.Descripcion,
		RequiereOperario:    c.RequiereOperario,
		FechaInicio:         c.FechaInicio.Format(isoFormat),
		FechaFin:            c.FechaFin.Format(isoFormat),
		Dias:                c.Dias,
		Monto:               c.Monto,
		MontoDelivery:       c.MontoDelivery,
		MontoOperario:       c.MontoOperario,
		Subtotal:            c.Subtotal,
		IGV:                 c.IGV,
		Total:               c.Total,
		RutaCotizacion:      c.RutaCotizacion,
		RutaComprobantePago: c.RutaComprobantePago,
		ObservacionPago:     c.ObservacionPago,
		MotivoRechazo:       c.MotivoRechazo,
		Cliente:             toClienteResumen(c.Cliente),
		Plataforma:          toPlataformaResumen(c.Plataforma),
		Operario:            toOperarioResumen(c.Operario),
		FechaPendientePago:  formatPtr(c.FechaPendientePago),
		FechaPagado:         formatPtr(c.FechaPagado),
		FechaRechazado:      formatPtr(c.FechaRechazado),
		CreatedAt:           c.CreatedAt.Format(isoFormat),
	}
}

func toCotizacionListItem(c *model.Cotizacion) dto.CotizacionListItem {
	item := dto.CotizacionListItem{
		ID:               c.ID.String(),
		Codigo:           c.Codigo,
		Dias:             c.Dias,
		RequiereOperario: c.RequiereOperario,
		Total:            c.Total,
		Estado:           string(c.Estado),
		CreatedAt:        c.CreatedAt.Format(isoFormat),
	}
	if c.Cliente != nil {
		item.Cliente = c.Cliente.Nombre
	}
	if c.Plataforma != nil {
		item.PlataformaSerie = c.Plataforma.Serie
	}
	return item
}
