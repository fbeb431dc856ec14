package handler

import (
	"context"
	"net/http"
	"time"

	"farmanet/internal/infra"
	"farmanet/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity plus the SMTP breaker state; never exposes
// credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		resp := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if cb != nil {
			resp["smtp_breaker"] = cb.State().String()
		}
		// Profundidad de la DLQ de documentos: >0 merece atención manual.
		if depth, err := worker.DLQLength(ctx, rdb, worker.QueueDocumentos); err == nil && depth > 0 {
			resp["dlq_documentos"] = depth
		}
		c.JSON(status, resp)
	}
}
