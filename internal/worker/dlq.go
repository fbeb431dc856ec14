package worker

// Cola de cartas muertas del pipeline de documentos. Un trabajo que agota sus
// reintentos se aparta a dlq:{cola} con el payload intacto, de modo que tras
// corregir la causa pueda reinyectarse a mano (LMOVE dlq:jobs:documentos
// jobs:documentos RIGHT LEFT). La factura asociada conserva last_error.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix = "dlq:"
	// dlqMaxEntries caps each dead letter list; beyond it the oldest entries
	// are dropped.
	dlqMaxEntries = 1000
)

// dlqEntry preserva el trabajo fallido junto con el contexto del descarte.
type dlqEntry struct {
	Cola         string          `json:"cola"`
	Tipo         string          `json:"tipo"`
	Payload      json.RawMessage `json:"payload"`
	Motivo       string          `json:"motivo"`
	Intentos     int             `json:"intentos"`
	DescartadoEn string          `json:"descartado_en"`
}

// SendToDLQ aparta un trabajo agotado a la cola de cartas muertas de su cola
// de origen. Nunca devuelve error: si la DLQ tampoco está disponible, el
// trabajo ya quedó registrado en la fila de la factura.
func SendToDLQ(ctx context.Context, rdb *redis.Client, cola, tipo string, payload json.RawMessage, motivo string, intentos int) {
	entry := dlqEntry{
		Cola:         cola,
		Tipo:         tipo,
		Payload:      payload,
		Motivo:       motivo,
		Intentos:     intentos,
		DescartadoEn: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("cola", cola).Msg("dlq: no se pudo serializar la entrada")
		return
	}

	key := DLQPrefix + cola
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, dlqMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq", key).Msg("dlq: no se pudo apartar el trabajo")
		return
	}

	log.Warn().
		Str("cola", cola).
		Str("tipo", tipo).
		Str("motivo", motivo).
		Int("intentos", intentos).
		Msg("dlq: trabajo apartado tras agotar reintentos")
}

// DLQLength informa la profundidad de la cola de cartas muertas de una cola,
// expuesta por el health check para monitoreo.
func DLQLength(ctx context.Context, rdb *redis.Client, cola string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+cola).Result()
}
