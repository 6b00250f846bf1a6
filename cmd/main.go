package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	// Infraestrutura e utilitários
	"drive360/config"
	"drive360/internal/pkg/apiclient"
	"drive360/internal/pkg/cache"
	"drive360/internal/pkg/database"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/pkg/token"

	// Camadas para injeção de dependências
	"drive360/internal/api/auth"
	"drive360/internal/api/dashboard"
	"drive360/internal/api/requisition"
	"drive360/internal/api/resource"
	"drive360/internal/api/router"
	"drive360/internal/repository/requisitionrepo"
	"drive360/internal/repository/resourcerepo"
	"drive360/internal/repository/sessionrepo"
	"drive360/internal/service/requisitionservice"
	"drive360/internal/service/resourceservice"
	"drive360/internal/service/sessionservice"
	"drive360/internal/web"
)

// Orquestradores sem uso durante workspaceIdle são descartados pelo sweeper.
const (
	workspaceIdle  = 30 * time.Minute
	sweepInterval  = time.Minute
	purgeEvery     = 10
	shutdownPeriod = 15 * time.Second
)

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	log.Println("⚡ Inicializando consola Drive360...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "session_backend": cfg.SessionBackend})

	accessLog := zerolog.Nop()
	if zl, ok := appLog.(*logger.ZeroLogger); ok {
		accessLog = zl.Zerolog()
	}

	// 1. Armazenamento de sessões
	var (
		sessionStore  sessionservice.Store
		cacheClient   cache.Client
		postgresStore *sessionrepo.PostgresStore
	)
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		cacheClient, err = cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao Redis.", err)
		}
		defer cacheClient.Close()
		sessionStore = sessionrepo.NewRedisStore(cacheClient, cfg.CacheTimeout, cfg.SessionTTL, appLog)
		appLog.Info("Conexão Redis estabelecida.", nil)
	case config.SessionBackendPostgres:
		db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout, appLog)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao banco de dados.", err)
		}
		defer db.Close()
		postgresStore = sessionrepo.NewPostgresStore(db, cfg.DBTimeout, cfg.SessionTTL, appLog)
		sessionStore = postgresStore
		appLog.Info("Conexão PostgreSQL estabelecida.", nil)
	default:
		sessionStore = sessionrepo.NewMemoryStore(cfg.SessionTTL)
		appLog.Warn("Sessões em memória: perdem-se ao reiniciar.", nil)
	}

	// 2. Cliente do servidor REST
	api, err := apiclient.New(apiclient.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, appLog)
	if err != nil {
		appLog.Fatal("Cliente REST inválido.", err)
	}

	// 3. INJEÇÃO DE DEPENDÊNCIAS: Repository -> Service -> Handler
	tokenSvc := token.NewService(cfg.SessionSecret, cfg.SessionTTL)
	sessionSvc := sessionservice.NewService(sessionStore, api, tokenSvc, appLog)

	requisitionRepo := requisitionrepo.NewRequisitionRepository(api, appLog)
	resourceRepo := resourcerepo.NewResourceRepository(api, appLog)

	workspace := requisitionservice.NewWorkspace(requisitionRepo, resourceRepo, appLog)
	sessionSvc.OnEnd(workspace.Drop)

	resourceSvc := resourceservice.NewService(resourceRepo, appLog)

	renderer, err := web.NewRenderer(appLog)
	if err != nil {
		appLog.Fatal("Falha ao compilar templates.", err)
	}

	cookie := middleware.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure, MaxAge: cfg.SessionTTL}
	handlers := router.Handlers{
		Auth:        auth.NewHandler(sessionSvc, renderer, cookie, appLog),
		Dashboard:   dashboard.NewHandler(renderer, appLog),
		Requisition: requisition.NewHandler(workspace, sessionSvc, renderer, cookie, appLog),
		Resource:    resource.NewHandler(resourceSvc, sessionSvc, renderer, cookie, appLog),
	}

	csrfKey := blake2b.Sum256([]byte("csrf:" + cfg.SessionSecret))
	r := router.NewRouter(handlers, router.Options{
		Sessions:       sessionSvc,
		Cookie:         cookie,
		CSRFEnabled:    cfg.CSRFEnabled,
		CSRFKey:        csrfKey[:],
		Cache:          cacheClient,
		RateLimit:      cfg.RateLimitMaxRequests,
		RatePeriod:     cfg.RateLimitPeriod,
		TrustProxy:     cfg.TrustProxy,
		LoginThrottle:  middleware.NewLoginThrottle(cfg.LoginRatePerSecond, cfg.LoginBurst),
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsPath:    cfg.MetricsPath,
		Logger:         appLog,
		AccessLog:      accessLog,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Limpeza periódica de orquestradores e sessões expiradas
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, workspace, postgresStore, appLog)

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Consola Drive360 ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	appLog.Info("Servidor encerrado com sucesso.", nil)
}

// sweep descarta orquestradores inativos e, com PostgreSQL, apaga sessões expiradas.
func sweep(ctx context.Context, ws *requisitionservice.Workspace, pg *sessionrepo.PostgresStore, log logger.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := ws.Sweep(workspaceIdle); n > 0 {
			log.Debug("Orquestradores inativos descartados.", map[string]interface{}{"count": n})
		}
		if pg != nil && tick%purgeEvery == 0 {
			if _, err := pg.PurgeExpired(ctx); err != nil {
				log.Error("Falha ao limpar sessões expiradas.", err)
			}
		}
	}
}
