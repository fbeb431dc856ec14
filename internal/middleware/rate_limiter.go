package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"farmanet/internal/apierror"

	"github.com/gin-gonic/gin"
)

// Dos limitadores de ventana deslizante por IP comparten esta implementación:
// el general cubre toda la API (incluida la consulta pública de precios, que
// no requiere token) y el de login es mucho más estricto para frenar fuerza
// bruta sobre credenciales.

type ventanaIP struct {
	mu        sync.Mutex
	count     int
	windowEnd time.Time
}

type slidingLimiter struct {
	mu      sync.Mutex
	porIP   map[string]*ventanaIP
	limit   int
	window  time.Duration
	mensaje string
}

func newSlidingLimiter(limit int, window time.Duration, mensaje string) *slidingLimiter {
	l := &slidingLimiter{
		porIP:   make(map[string]*ventanaIP),
		limit:   limit,
		window:  window,
		mensaje: mensaje,
	}
	go l.purgar()
	return l
}

func (l *slidingLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		l.mu.Lock()
		entry, ok := l.porIP[ip]
		if !ok {
			entry = &ventanaIP{}
			l.porIP[ip] = entry
		}
		l.mu.Unlock()

		entry.mu.Lock()
		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(l.window)
		}
		entry.count++
		excedido := entry.count > l.limit
		restante := time.Until(entry.windowEnd)
		entry.mu.Unlock()

		if excedido {
			c.Header("Retry-After", strconv.Itoa(int(restante.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.mensaje))
			return
		}
		c.Next()
	}
}

// purgar descarta ventanas vencidas para que las IPs que no vuelven no
// acumulen entradas.
func (l *slidingLimiter) purgar() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for ip, entry := range l.porIP {
			entry.mu.Lock()
			if now.After(entry.windowEnd) {
				delete(l.porIP, ip)
			}
			entry.mu.Unlock()
		}
		l.mu.Unlock()
	}
}

// LoginRateLimiter permite 10 intentos de login por minuto por IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newSlidingLimiter(10, time.Minute,
		"Demasiados intentos de acceso. Intente nuevamente en un minuto.").handler()
}

// RateLimiter limita el total de solicitudes por IP en la ventana dada.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newSlidingLimiter(limit, window,
		"Demasiadas solicitudes. Intente nuevamente en un momento.").handler()
}
