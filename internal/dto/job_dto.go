package dto

// Payloads of the async jobs pushed to Redis. They live here so both the
// services that enqueue them and the workers that consume them can share the
// shape without importing each other.

// DocumentoJob asks for the quotation PDF to be (re)generated and stored.
type DocumentoJob struct {
	CotizacionID string `json:"cotizacion_id"`
}

// EmailJob is a plain-text notification.
type EmailJob struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Plantilla identifies the notification kind for logs and the DLQ.
	Plantilla string `json:"plantilla"`
}

const (
	PlantillaEnvioCotizacion   = "ENVIO_COTIZACION"
	PlantillaConfirmacionPago  = "CONFIRMACION_PAGO"
	PlantillaDetallesOperacion = "DETALLES_OPERACION"
)
