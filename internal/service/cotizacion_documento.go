package service

import (
	"context"
	"fmt"
	"strings"

	"cotizador/internal/apierror"
	"cotizador/internal/dto"
	"cotizador/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ── PublicarDocumento ─────────────────────────────────────────────────────────
// Follow-up of Activar, also driven by the documento worker and the retry job:
//   1. Load quotation (PENDIENTE_PAGO, or PAGADO still missing its PDF)
//   2. Render PDF and upload it under a fresh key
//   3. Link it; if the quotation moved on meanwhile, remove the new object
//   4. Remove the previous document; notify the client unless already paid

func (s *cotizacionService) PublicarDocumento(ctx context.Context, id uuid.UUID) (string, error) {
	cot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", notFoundOr(err, "Cotización no encontrada")
	}
	if !cot.DocumentoPublicable() {
		return "", apierror.BadRequest("La cotización no admite un nuevo documento (estado %s)", cot.Estado)
	}

	data, err := s.renderer.RenderCotizacion(cot)
	if err != nil {
		return "", fmt.Errorf("generar pdf: %w", err)
	}

	path := fmt.Sprintf("cotizaciones/%s/cotizacion-%d.pdf", id, s.now().UnixMilli())
	url, err := s.storage.Upload(ctx, data, path, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("subir pdf: %w", err)
	}

	linked, err := s.repo.UpdateRutaCotizacion(ctx, id, url)
	if err != nil || !linked {
		s.borrarArchivo(ctx, id, url)
		if err != nil {
			return "", fmt.Errorf("guardar ruta del pdf: %w", err)
		}
		return "", apierror.BadRequest("La cotización cambió de estado mientras se generaba el documento")
	}

	if cot.RutaCotizacion != "" && cot.RutaCotizacion != url {
		s.borrarArchivo(ctx, id, cot.RutaCotizacion)
	}

	log.Info().Str("cotizacion_id", id.String()).Str("url", url).Msg("documento publicado")
	if cot.Cliente != nil && cot.Estado == model.CotizacionPendientePago {
		s.encolarEmail(ctx, emailEnvioCotizacion(cot, url))
	}
	return url, nil
}

// ── Async jobs ────────────────────────────────────────────────────────────────

func (s *cotizacionService) encolarDocumento(ctx context.Context, id uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueDocumento(ctx, dto.DocumentoJob{CotizacionID: id.String()}); err != nil {
		// The retry job still picks it up: the quotation stays without a document.
		log.Error().Err(err).Str("cotizacion_id", id.String()).Msg("no se pudo encolar documento")
	}
}

func (s *cotizacionService) encolarEmail(ctx context.Context, job dto.EmailJob) {
	if s.dispatcher == nil || job.ToEmail == "" {
		return
	}
	if err := s.dispatcher.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("plantilla", job.Plantilla).Str("to", job.ToEmail).Msg("no se pudo encolar email")
	}
}

func (s *cotizacionService) notificarPago(ctx context.Context, cot *model.Cotizacion) {
	if cot.Cliente != nil {
		s.encolarEmail(ctx, emailConfirmacionPago(cot))
	}
	if cot.Operario != nil && cot.Operario.Usuario != nil {
		s.encolarEmail(ctx, emailDetallesOperacion(cot))
	}
}

// ── Email bodies ──────────────────────────────────────────────────────────────

func emailEnvioCotizacion(c *model.Cotizacion, url string) dto.EmailJob {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimado(a) %s:\n\n", c.Cliente.Nombre)
	fmt.Fprintf(&b, "Le enviamos la cotización %s por el alquiler de la plataforma", c.Codigo)
	if c.Plataforma != nil {
		fmt.Fprintf(&b, " %s %s (serie %s)", c.Plataforma.Marca, c.Plataforma.Modelo, c.Plataforma.Serie)
	}
	fmt.Fprintf(&b, " del %s al %s (%d días).\n\n", c.FechaInicio.Format("02/01/2006"), c.FechaFin.Format("02/01/2006"), c.Dias)
	fmt.Fprintf(&b, "Subtotal: S/ %s\nIGV (18%%): S/ %s\nTotal: S/ %s\n\n", c.Subtotal.StringFixed(2), c.IGV.StringFixed(2), c.Total.StringFixed(2))
	fmt.Fprintf(&b, "Puede descargar el documento aquí:\n%s\n", url)
	return dto.EmailJob{
		ToEmail:   c.Cliente.Email,
		Subject:   "Cotización " + c.Codigo,
		Body:      b.String(),
		Plantilla: dto.PlantillaEnvioCotizacion,
	}
}

func emailConfirmacionPago(c *model.Cotizacion) dto.EmailJob {
	body := fmt.Sprintf(
		"Estimado(a) %s:\n\nHemos registrado el pago de la cotización %s por S/ %s.\n"+
			"La plataforma quedará reservada del %s al %s.\n\nGracias por su preferencia.\n",
		c.Cliente.Nombre, c.Codigo, c.Total.StringFixed(2),
		c.FechaInicio.Format("02/01/2006"), c.FechaFin.Format("02/01/2006"),
	)
	return dto.EmailJob{
		ToEmail:   c.Cliente.Email,
		Subject:   "Pago confirmado - " + c.Codigo,
		Body:      body,
		Plantilla: dto.PlantillaConfirmacionPago,
	}
}

func emailDetallesOperacion(c *model.Cotizacion) dto.EmailJob {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s:\n\n", c.Operario.Usuario.Nombre)
	fmt.Fprintf(&b, "Se te asignó la operación %s.\n\n", c.Codigo)
	if c.Cliente != nil {
		fmt.Fprintf(&b, "Cliente: %s (RUC %s)\n", c.Cliente.Nombre, c.Cliente.RUC)
		if c.Cliente.Direccion != nil {
			fmt.Fprintf(&b, "Dirección: %s\n", *c.Cliente.Direccion)
		}
	}
	if c.Plataforma != nil {
		fmt.Fprintf(&b, "Plataforma: %s %s (serie %s)\n", c.Plataforma.Marca, c.Plataforma.Modelo, c.Plataforma.Serie)
	}
	fmt.Fprintf(&b, "Desde: %s\nHasta: %s\n", c.FechaInicio.Format("02/01/2006 15:04"), c.FechaFin.Format("02/01/2006 15:04"))
	if c.Descripcion != "" {
		fmt.Fprintf(&b, "\nDetalle: %s\n", c.Descripcion)
	}
	return dto.EmailJob{
		ToEmail:   c.Operario.Usuario.Email,
		Subject:   "Nueva operación asignada - " + c.Codigo,
		Body:      b.String(),
		Plantilla: dto.PlantillaDetallesOperacion,
	}
}
