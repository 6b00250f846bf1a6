package middleware

import (
	"context"
	"net/http"
	"time"

	"drive360/internal/domain"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/metrics"
	"drive360/internal/service/accessservice"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
type ContextKey int

const (
	sessionKey ContextKey = iota
)

// SessionInfo é a sessão resolvida para o pedido atual.
type SessionInfo struct {
	ID      string
	Session domain.Session
}

// SessionResolver define o contrato de resolução do cookie necessário para o middleware.
type SessionResolver interface {
	Resolve(ctx context.Context, cookie string) (string, domain.Session)
}

// CookieConfig descreve o cookie de sessão.
type CookieConfig struct {
	Name   string
	Secure bool
	// MaxAge 0 emite um cookie de sessão do browser.
	MaxAge time.Duration
}

// LoadSession lê o cookie, resolve a sessão e anexa-a ao contexto. Sem cookie válido a sessão é anónima.
func LoadSession(resolver SessionResolver, cookie CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := SessionInfo{Session: domain.AnonymousSession}
			if c, err := r.Cookie(cookie.Name); err == nil && c.Value != "" {
				info.ID, info.Session = resolver.Resolve(r.Context(), c.Value)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), info)))
		})
	}
}

// WithSession anexa a sessão ao contexto.
func WithSession(ctx context.Context, info SessionInfo) context.Context {
	return context.WithValue(ctx, sessionKey, info)
}

// SessionFrom devolve a sessão do pedido; anónimo quando ausente.
func SessionFrom(ctx context.Context) SessionInfo {
	info, ok := ctx.Value(sessionKey).(SessionInfo)
	if !ok {
		return SessionInfo{Session: domain.AnonymousSession}
	}
	return info
}

// Protect aplica o guarda de navegação a uma rota: anónimo vai para "/", papel
// fora de required (quando não vazio) vai para "/dashboard".
func Protect(route string, required domain.RoleSet, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := SessionFrom(r.Context())
			decision := accessservice.Guard(info.Session, required)
			metrics.RecordGuard(route, decision.Label())

			if !decision.Allow {
				log.Debug("Acesso redirecionado pelo guarda.", map[string]interface{}{"route": route, "to": decision.Redirect})
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie grava o cookie de sessão assinado.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, value string) {
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.MaxAge > 0 {
		c.MaxAge = int(cfg.MaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie expira o cookie de sessão.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
