package worker

// email_worker.go
// Delivers invoice PDFs by email from QueueEmail. All sends go through the
// SMTP circuit breaker so a dead relay fast-fails instead of blocking workers.

import (
	"context"
	"encoding/json"
	"fmt"

	"farmanet/internal/infra"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	FacturaID string `json:"factura_id"`
	ToEmail   string `json:"email"`
}

type EmailWorker struct {
	facturaRepo repository.FacturaRepository
	mailer      *infra.Mailer
	cb          *infra.CircuitBreaker
}

func NewEmailWorker(facturaRepo repository.FacturaRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{facturaRepo: facturaRepo, mailer: mailer, cb: cb}
}

// Process sends the invoice PDF to the requested address.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty email, skipping")
		return
	}

	facturaID, err := uuid.Parse(payload.FacturaID)
	if err != nil {
		log.Error().Str("factura_id", payload.FacturaID).Msg("email_worker: invalid factura_id")
		return
	}
	factura, err := w.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		log.Error().Err(err).Str("factura_id", payload.FacturaID).Msg("email_worker: factura not found")
		return
	}
	if factura.DocumentoEstado != model.DocumentoGenerado || factura.PDFPath == nil {
		log.Warn().Str("factura_id", payload.FacturaID).Msg("email_worker: PDF not ready, skipping")
		return
	}

	subject := fmt.Sprintf("FarmaNet - Factura N° %08d", factura.Numero)
	body := fmt.Sprintf("Adjunto encontrará su factura.\nTotal: $%s", factura.Total.StringFixed(2))

	sendErr := w.cb.Execute(func() error {
		return w.mailer.SendFactura(payload.ToEmail, subject, body, *factura.PDFPath)
	})
	if sendErr != nil {
		log.Error().Err(sendErr).Str("to", payload.ToEmail).Msg("email_worker: failed to send email")
		return
	}
	log.Info().Str("to", payload.ToEmail).Str("factura_id", payload.FacturaID).Msg("email_worker: factura sent")
}
