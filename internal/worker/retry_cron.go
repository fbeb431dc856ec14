package worker

// retry_cron.go
// Background goroutine that periodically re-attempts PDF rendering for
// facturas whose documento is stuck in pendiente/error with a next_retry_at
// in the past. After MaxDocumentoRetries the job goes to the DLQ.

import (
	"context"
	"fmt"
	"time"

	"farmanet/internal/infra"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxDocumentoRetries is the cap before a factura document lands in the DLQ.
	MaxDocumentoRetries = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	FacturaRepo    repository.FacturaRepository
	Dispatcher     *Dispatcher
	RDB            *redis.Client
	PDFStoragePath string
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries stuck facturas, and re-attempts their PDF rendering.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	now := time.Now()
	pendientes, err := cfg.FacturaRepo.ListPendientesDocumento(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending documents")
		return
	}
	if len(pendientes) == 0 {
		return
	}

	log.Info().Int("count", len(pendientes)).Msg("retry_cron: processing stuck facturas")

	for i := range pendientes {
		// Re-fetch with lines and customer preloaded for rendering.
		factura, err := cfg.FacturaRepo.FindByID(ctx, pendientes[i].ID)
		if err != nil {
			continue
		}

		pdfPath, renderErr := infra.GenerarFacturaPDF(factura, cfg.PDFStoragePath)
		if renderErr != nil {
			factura.RetryCount++
			errMsg := renderErr.Error()
			factura.LastError = &errMsg

			if factura.RetryCount >= MaxDocumentoRetries {
				factura.DocumentoEstado = model.DocumentoError
				factura.NextRetryAt = nil
				log.Error().
					Str("factura_id", factura.ID.String()).
					Int("retries", factura.RetryCount).
					Msg("retry_cron: max retries exceeded, moving to DLQ")

				payload := fmt.Sprintf(`{"factura_id":"%s"}`, factura.ID)
				SendToDLQ(ctx, cfg.RDB, QueueDocumentos, "documento", []byte(payload),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxDocumentoRetries, errMsg),
					factura.RetryCount)
			} else {
				nextRetry := time.Now().Add(computeRetryBackoff(factura.RetryCount))
				factura.NextRetryAt = &nextRetry
				factura.DocumentoEstado = model.DocumentoError
				log.Warn().
					Str("factura_id", factura.ID.String()).
					Int("retry_count", factura.RetryCount).
					Time("next_retry_at", nextRetry).
					Msg("retry_cron: render failed, scheduled next attempt")
			}

			_ = cfg.FacturaRepo.Update(ctx, factura)
			continue
		}

		factura.PDFPath = &pdfPath
		factura.DocumentoEstado = model.DocumentoGenerado
		factura.NextRetryAt = nil
		factura.LastError = nil
		_ = cfg.FacturaRepo.Update(ctx, factura)

		log.Info().
			Str("factura_id", factura.ID.String()).
			Int("total_retries", factura.RetryCount).
			Msg("retry_cron: PDF generated after retry")

		if cfg.Dispatcher != nil && factura.Cliente != nil && factura.Cliente.Email != nil && *factura.Cliente.Email != "" {
			_ = cfg.Dispatcher.EnqueueEmail(ctx, EmailJobPayload{
				FacturaID: factura.ID.String(),
				ToEmail:   *factura.Cliente.Email,
			})
		}
	}
}

// computeRetryBackoff returns the wait before the next attempt.
// Schedule: 1m, 2m, 4m, 8m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	backoff := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}
