package worker

// documento_worker.go
// Renders invoice PDFs from QueueDocumentos. A failed render is retried with
// exponential backoff in-process; if it still fails, the factura keeps estado
// documento='error' and the retry cron picks it up later.

import (
	"context"
	"encoding/json"
	"time"

	"farmanet/internal/infra"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DocumentoJobPayload is the job envelope sent to QueueDocumentos.
type DocumentoJobPayload struct {
	FacturaID string `json:"factura_id"`
}

type DocumentoWorker struct {
	facturaRepo    repository.FacturaRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
}

func NewDocumentoWorker(
	facturaRepo repository.FacturaRepository,
	dispatcher *Dispatcher,
	pdfStoragePath string,
) *DocumentoWorker {
	return &DocumentoWorker{
		facturaRepo:    facturaRepo,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process renders the PDF for one factura:
//  1. Parse DocumentoJobPayload
//  2. Fetch the factura with its lines
//  3. Render the PDF with in-process retries (3 attempts)
//  4. Update the factura (pdf_path / documento_estado / retry bookkeeping)
//  5. Enqueue the email job when the customer has an address on file
func (w *DocumentoWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload DocumentoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("documento_worker: invalid payload")
		return
	}

	facturaID, err := uuid.Parse(payload.FacturaID)
	if err != nil {
		log.Error().Str("factura_id", payload.FacturaID).Msg("documento_worker: invalid factura_id")
		return
	}

	factura, err := w.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		log.Error().Err(err).Str("factura_id", payload.FacturaID).Msg("documento_worker: factura not found")
		return
	}
	if factura.DocumentoEstado == model.DocumentoGenerado {
		// Ya procesada por otro worker o por el cron.
		return
	}

	var pdfPath string
	renderErr := withRetry(ctx, 3, func(attempt int) error {
		path, err := infra.GenerarFacturaPDF(factura, w.pdfStoragePath)
		if err != nil {
			log.Warn().Err(err).
				Int("attempt", attempt+1).
				Str("factura_id", payload.FacturaID).
				Msg("documento_worker: render attempt failed, retrying")
			return err
		}
		pdfPath = path
		return nil
	})

	if renderErr != nil {
		factura.RetryCount++
		errMsg := renderErr.Error()
		factura.LastError = &errMsg
		factura.DocumentoEstado = model.DocumentoError
		nextRetry := time.Now().Add(computeRetryBackoff(factura.RetryCount))
		factura.NextRetryAt = &nextRetry
		_ = w.facturaRepo.Update(ctx, factura)
		log.Error().Err(renderErr).
			Str("factura_id", payload.FacturaID).
			Int("retry_count", factura.RetryCount).
			Msg("documento_worker: render failed, scheduled for retry cron")
		return
	}

	factura.PDFPath = &pdfPath
	factura.DocumentoEstado = model.DocumentoGenerado
	factura.NextRetryAt = nil
	factura.LastError = nil
	if err := w.facturaRepo.Update(ctx, factura); err != nil {
		log.Error().Err(err).Str("factura_id", payload.FacturaID).Msg("documento_worker: failed to update factura")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("factura_id", payload.FacturaID).Msg("documento_worker: PDF generated")

	if w.dispatcher != nil && factura.Cliente != nil && factura.Cliente.Email != nil && *factura.Cliente.Email != "" {
		emailJob := EmailJobPayload{
			FacturaID: factura.ID.String(),
			ToEmail:   *factura.Cliente.Email,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", *factura.Cliente.Email).Msg("documento_worker: failed to enqueue email")
		}
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
