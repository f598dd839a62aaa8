package service

import "time"

// SetClock replaces the service clock so codes and timestamps are reproducible.
func SetClock(svc CotizacionService, now func() time.Time) {
	svc.(*cotizacionService).now = now
}
