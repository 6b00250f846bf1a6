package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backends suportados para o armazenamento de sessões.
const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

// Config armazena todas as configurações da consola.
// Os valores vêm das variáveis de ambiente (e do .env carregado no main.go).
type Config struct {
	// Geral
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Servidor REST upstream. Timeout 0 significa "o padrão do transporte" (sem limite).
	APIBaseURL string        `env:"API_BASE_URL,required"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"0s"`

	// Sessões
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"redis"`
	SessionSecret  string        `env:"SESSION_SECRET,required"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"0s"`
	CookieName     string        `env:"SESSION_COOKIE" envDefault:"drive360_session"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	CSRFEnabled    bool          `env:"CSRF_ENABLED" envDefault:"true"`

	// Cache (Redis)
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	CacheTimeout time.Duration `env:"CACHE_TIMEOUT" envDefault:"2s"`

	// Banco de Dados (PostgreSQL), apenas para SESSION_BACKEND=postgres
	DatabaseURL string        `env:"DATABASE_URL"`
	DBTimeout   time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`

	// Rate Limiting
	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitPeriod      time.Duration `env:"RATE_LIMIT_PERIOD" envDefault:"1m"`
	LoginRatePerSecond   float64       `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	LoginBurst           int           `env:"LOGIN_BURST" envDefault:"5"`

	// Proxy reverso: só ligar quando X-Real-IP/X-Forwarded-For vêm do proxy.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// Métricas
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// LoadConfig lê as variáveis de ambiente e valida o resultado.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("falha ao ler configuração: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifica combinações que as tags não conseguem exprimir.
func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL obrigatório")
	}

	if len(strings.TrimSpace(c.SessionSecret)) < 32 {
		return errors.New("SESSION_SECRET deve ter pelo menos 32 caracteres")
	}

	switch c.SessionBackend {
	case SessionBackendRedis, SessionBackendMemory:
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL obrigatório quando SESSION_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND deve ser redis, postgres ou memory, recebido '%s'", c.SessionBackend)
	}

	if c.SessionTTL < 0 || c.APITimeout < 0 {
		return errors.New("SESSION_TTL e API_TIMEOUT não podem ser negativos")
	}
	if c.RateLimitMaxRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS não pode ser negativo, recebido %d", c.RateLimitMaxRequests)
	}
	if c.LoginRatePerSecond <= 0 || c.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE_PER_SECOND e LOGIN_BURST devem ser positivos")
	}
	return nil
}

// IsProduction indica se a consola corre em produção.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
