package sessionservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/apiclient"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/metrics"
	"drive360/internal/pkg/token"
)

// MsgInvalidCredentials é a mensagem única mostrada para qualquer falha de login.
const MsgInvalidCredentials = "Credenciais inválidas. Tente novamente."

// Store define o contrato que o serviço espera da camada de persistência de sessões.
type Store interface {
	Save(ctx context.Context, sessionID string, s domain.Session) error
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// AuthAPI é o endpoint de login do servidor REST.
type AuthAPI interface {
	Login(ctx context.Context, email, senha string) (apiclient.LoginResponse, error)
}

// Credentials é o formulário de login.
type Credentials struct {
	Email string `form:"email" validate:"required,email"`
	Senha string `form:"senha" validate:"required"`
}

// Issued é o resultado de um login bem-sucedido.
type Issued struct {
	SessionID string
	Cookie    string
	Session   domain.Session
}

// Service gere o ciclo de vida das sessões: login, resolução do cookie e logout.
type Service struct {
	store    Store
	auth     AuthAPI
	tokens   token.TokenService
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	onEnd []func(sessionID string)
}

// NewService cria e retorna uma nova instância do Serviço de Sessões.
func NewService(store Store, auth AuthAPI, tokens token.TokenService, logger logger.Logger) *Service {
	return &Service{
		store:    store,
		auth:     auth,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// OnEnd regista uma função chamada sempre que uma sessão termina (logout ou 401).
func (s *Service) OnEnd(fn func(sessionID string)) {
	s.mu.Lock()
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// Login autentica no servidor e cria uma sessão nova.
// Em caso de falha nada é gravado e a sessão anterior (previousID) fica intacta.
func (s *Service) Login(ctx context.Context, previousID string, cred Credentials) (Issued, error) {
	cred.Email = strings.TrimSpace(cred.Email)
	if err := s.validate.Struct(cred); err != nil {
		s.logger.Debug("Formulário de login inválido.", map[string]interface{}{"error": err.Error()})
		metrics.RecordSession("login_failed")
		return Issued{}, apperror.NewUnauthorizedError(MsgInvalidCredentials)
	}

	resp, err := s.auth.Login(ctx, cred.Email, cred.Senha)
	if err != nil {
		metrics.RecordSession("login_failed")
		if apperror.IsUnauthorized(err) {
			s.logger.Info("Login rejeitado pelo servidor.", map[string]interface{}{"email": cred.Email})
			return Issued{}, apperror.NewUnauthorizedError(MsgInvalidCredentials)
		}
		s.logger.Error("Falha ao contactar o servidor no login.", err)
		return Issued{}, err
	}

	// 1. Os três campos têm de vir preenchidos; caso contrário é uma falha de login.
	role, ok := domain.ParseRole(resp.User.Papel)
	session := domain.NewSession(resp.Token, role, strings.TrimSpace(resp.User.Nome))
	if !ok || !session.Authenticated() {
		s.logger.Warn("Resposta de login incompleta.", map[string]interface{}{"email": cred.Email})
		metrics.RecordSession("login_failed")
		return Issued{}, apperror.NewUnauthorizedError(MsgInvalidCredentials)
	}

	// 2. Gravar a sessão nova antes de assinar o cookie.
	id := uuid.NewString()
	if err := s.store.Save(ctx, id, session); err != nil {
		return Issued{}, apperror.NewInternalError("Falha ao iniciar sessão.", err)
	}
	cookie, err := s.tokens.GenerateToken(id)
	if err != nil {
		_ = s.store.Delete(ctx, id)
		return Issued{}, apperror.NewInternalError("Falha ao iniciar sessão.", err)
	}

	// 3. Uma sessão anterior no mesmo browser é substituída.
	if previousID != "" {
		s.end(ctx, previousID)
	}

	metrics.RecordSession("login")
	s.logger.Info("Sessão iniciada.", map[string]interface{}{"role": string(session.Role)})
	return Issued{SessionID: id, Cookie: cookie, Session: session}, nil
}

// Resolve valida o cookie e devolve a sessão correspondente.
// Cookie inválido, erro de leitura ou token do servidor expirado resultam em anónimo.
func (s *Service) Resolve(ctx context.Context, cookie string) (string, domain.Session) {
	if cookie == "" {
		return "", domain.AnonymousSession
	}
	claims, err := s.tokens.ValidateToken(cookie)
	if err != nil {
		s.logger.Debug("Cookie de sessão rejeitado.", map[string]interface{}{"error": err.Error()})
		return "", domain.AnonymousSession
	}

	session, err := s.store.Load(ctx, claims.SessionID)
	if err != nil {
		s.logger.Warn("Falha ao ler sessão, a tratar como anónima.", map[string]interface{}{"error": err.Error()})
		return claims.SessionID, domain.AnonymousSession
	}
	if session.Authenticated() && token.UpstreamExpired(session.Token, s.now()) {
		s.logger.Info("Token do servidor expirado, a terminar sessão.", nil)
		metrics.RecordSession("expired")
		s.end(ctx, claims.SessionID)
		return claims.SessionID, domain.AnonymousSession
	}
	return claims.SessionID, session
}

// Logout termina a sessão. Terminar uma sessão inexistente não é erro.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	metrics.RecordSession("logout")
	s.end(ctx, sessionID)
	s.logger.Info("Sessão terminada.", nil)
}

// Expire termina a sessão porque o servidor respondeu 401.
func (s *Service) Expire(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	metrics.RecordSession("expired")
	s.end(ctx, sessionID)
	s.logger.Info("Sessão terminada após 401 do servidor.", nil)
}

func (s *Service) end(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Falha ao remover sessão.", err)
	}

	s.mu.RLock()
	hooks := append([]func(string){}, s.onEnd...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(sessionID)
	}
}
