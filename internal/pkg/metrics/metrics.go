package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	guardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drive360",
		Subsystem: "guard",
		Name:      "decisions_total",
		Help:      "Decisões do guarda de navegação por rota e resultado.",
	}, []string{"route", "result"})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drive360",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Chamadas ao servidor REST por método, endpoint e status.",
	}, []string{"method", "endpoint", "status"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "drive360",
		Subsystem: "upstream",
		Name:      "latency_seconds",
		Help:      "Latência das chamadas ao servidor REST.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "endpoint"})

	sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drive360",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Logins, logouts e sessões terminadas por 401.",
	}, []string{"event"})
)

// RecordGuard conta uma decisão do guarda. result é "allow", "login" ou "dashboard".
func RecordGuard(route, result string) {
	guardDecisions.WithLabelValues(route, result).Inc()
}

// RecordUpstream regista uma chamada ao servidor. status 0 significa erro de rede.
func RecordUpstream(method, endpoint string, status int, took time.Duration) {
	code := "network_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(method, endpoint, code).Inc()
	upstreamLatency.WithLabelValues(method, endpoint).Observe(took.Seconds())
}

// RecordSession conta um evento de sessão ("login", "login_failed", "logout", "expired").
func RecordSession(event string) {
	sessionEvents.WithLabelValues(event).Inc()
}

// Handler expõe o registo padrão no formato do Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
