package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	sinAcentos      = strings.NewReplacer("Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N")
	noPermitidos    = regexp.MustCompile(`[^A-Z0-9-]+`)
	guionBajoBordes = regexp.MustCompile(`^_+|_+$`)
)

// CodigoCotizacion builds the human-readable quotation code:
// CLIENTE_SERIE_<unix millis>, e.g. ACME_SAC_PLT-2603-AB12CD34_1772438400000.
func CodigoCotizacion(cliente, serie string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%d", sanitizar(cliente), sanitizar(serie), t.UnixMilli())
}

func sanitizar(s string) string {
	s = sinAcentos.Replace(strings.ToUpper(strings.TrimSpace(s)))
	s = noPermitidos.ReplaceAllString(s, "_")
	return guionBajoBordes.ReplaceAllString(s, "")
}
