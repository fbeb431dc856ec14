package infra

// Redis cumple dos papeles: cache de la consulta pública de precios y colas
// del pipeline de documentos (jobs:documentos, jobs:email y sus DLQ). Ambos
// comparten este único cliente.

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisDialTimeout = 5 * time.Second

// NewRedis builds the shared client from a redis:// URL and verifies the
// connection before handing it out.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	opts.ClientName = "farmanet"
	if opts.DialTimeout == 0 {
		opts.DialTimeout = redisDialTimeout
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Msg("redis connection established")
	return rdb, nil
}
