package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"drive360/internal/pkg/cache"
	"drive360/internal/pkg/logger"
)

// RateLimiter limita pedidos por IP com um contador Redis por janela fixa.
// Se o Redis falhar o pedido passa: o limite não pode derrubar a consola.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rate-limit:" + clientIP(r)
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()

			count, err := client.IncrWindow(ctx, key, window)
			if err != nil {
				log.Warn("Rate limit indisponível.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "Limite de pedidos excedido.", http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// LoginThrottle limita as tentativas de login por IP, em memória, com x/time/rate.
type LoginThrottle struct {
	limit  rate.Limit
	burst  int
	maxAge time.Duration

	mu    sync.Mutex
	store map[string]*throttleEntry
}

type throttleEntry struct {
	limiter *rate.Limiter
	updated time.Time
}

// NewLoginThrottle cria o limitador de tentativas de login.
func NewLoginThrottle(perSecond float64, burst int) *LoginThrottle {
	return &LoginThrottle{
		limit:  rate.Limit(perSecond),
		burst:  burst,
		maxAge: 10 * time.Minute,
		store:  make(map[string]*throttleEntry),
	}
}

// Allow consome uma tentativa para a chave.
func (t *LoginThrottle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	e, ok := t.store[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.store[key] = e
		for k, old := range t.store {
			if now.Sub(old.updated) > t.maxAge {
				delete(t.store, k)
			}
		}
	}
	e.updated = now
	return e.limiter.Allow()
}

// Middleware aplica o limite por IP.
func (t *LoginThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Demasiadas tentativas de login. Aguarde um momento.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP usa apenas RemoteAddr. Os cabeçalhos de proxy só contam quando o
// router aplica chi RealIP (TRUST_PROXY), que reescreve RemoteAddr antes daqui.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
