package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"drive360/internal/api/auth"
	"drive360/internal/api/dashboard"
	"drive360/internal/api/requisition"
	"drive360/internal/api/resource"
	"drive360/internal/domain"
	"drive360/internal/pkg/cache"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/metrics"
	"drive360/internal/pkg/middleware"
	"drive360/internal/service/resourceservice"
)

// Policy é a tabela rota -> papéis exigidos pelo guarda.
// Um conjunto nil só exige sessão autenticada.
var Policy = map[string]domain.RoleSet{
	"/dashboard":  nil,
	"/requests":   nil,
	"/warehouses": domain.Roles(domain.RoleAdmin),
	"/suppliers":  domain.Roles(domain.RoleAdmin),
	"/users":      domain.Roles(domain.RoleAdmin),
}

// Handlers agrupa os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Auth        *auth.Handler
	Dashboard   *dashboard.Handler
	Requisition *requisition.Handler
	Resource    *resource.Handler
}

// Options são as peças de infraestrutura do roteador.
type Options struct {
	Sessions middleware.SessionResolver
	Cookie   middleware.CookieConfig

	CSRFEnabled bool
	CSRFKey     []byte

	// TrustProxy aceita X-Real-IP/X-Forwarded-For como IP do cliente.
	// Só deve estar ligado atrás de um proxy que reescreve esses cabeçalhos.
	TrustProxy bool

	// Cache nil desliga o rate limit global.
	Cache         cache.Client
	RateLimit     int
	RatePeriod    time.Duration
	LoginThrottle *middleware.LoginThrottle

	MetricsEnabled bool
	MetricsPath    string

	Logger    logger.Logger
	AccessLog zerolog.Logger
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recover(opts.AccessLog))
	r.Use(middleware.Logging(opts.AccessLog))

	// --- 1. Health check e métricas ---
	r.Get("/ping", PingHandler)
	if opts.MetricsEnabled {
		r.Handle(opts.MetricsPath, metrics.Handler())
	}

	// --- 2. Páginas ---
	r.Group(func(r chi.Router) {
		if opts.Cache != nil {
			r.Use(middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RatePeriod, opts.Logger))
		}
		if opts.CSRFEnabled {
			r.Use(csrfMiddleware(opts.CSRFKey, opts.Cookie.Secure, opts.Logger))
		}
		r.Use(middleware.NoStore)
		r.Use(middleware.LoadSession(opts.Sessions, opts.Cookie))

		r.Get("/", h.Auth.LoginPage)
		if opts.LoginThrottle != nil {
			r.With(opts.LoginThrottle.Middleware).Post("/login", h.Auth.Login)
		} else {
			r.Post("/login", h.Auth.Login)
		}
		r.Post("/logout", h.Auth.Logout)

		r.With(protect("/dashboard", opts.Logger)).Get("/dashboard", h.Dashboard.Show)

		r.Route("/requests", func(r chi.Router) {
			r.Use(protect("/requests", opts.Logger))
			h.Requisition.Routes(r)
		})

		for _, spec := range []resourceservice.Spec{resourceservice.Warehouses, resourceservice.Suppliers, resourceservice.Users} {
			route := "/" + spec.Key
			r.Route(route, func(r chi.Router) {
				r.Use(protect(route, opts.Logger))
				h.Resource.Routes(r, spec)
			})
		}
	})

	// Qualquer rota desconhecida volta ao início.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/", http.StatusSeeOther)
	})

	return r
}

func protect(route string, log logger.Logger) func(http.Handler) http.Handler {
	return middleware.Protect(route, Policy[route], log)
}

// csrfMiddleware protege os formulários. Sem TLS o pedido é marcado como texto
// simples para a verificação de Referer não rejeitar tudo.
func csrfMiddleware(key []byte, secure bool, log logger.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := map[string]interface{}{"path": r.URL.Path}
			if reason := csrf.FailureReason(r); reason != nil {
				fields["reason"] = reason.Error()
			}
			log.Warn("Pedido rejeitado pela proteção CSRF.", fields)
			http.Error(w, "Pedido inválido. Recarregue a página e tente novamente.", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
