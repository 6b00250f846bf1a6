package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService define o contrato do cookie de sessão assinado.
type TokenService interface {
	GenerateToken(sessionID string) (string, error)
	ValidateToken(tokenString string) (*CookieClaims, error)
}

// CookieClaims é o conteúdo do cookie de sessão. Só transporta o id da sessão;
// token, papel e nome ficam no armazenamento do lado do servidor.
type CookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

const issuer = "drive360-console"

// Service implementa a interface TokenService.
type Service struct {
	secretKey []byte
	expiry    time.Duration
}

// NewService cria uma nova instância do serviço Token.
// expiry 0 emite cookies sem "exp".
func NewService(secretKey string, expiry time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
	}
}

// GenerateToken assina um JWT HS256 com o id da sessão.
func (s *Service) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("id de sessão vazio")
	}

	now := time.Now()
	claims := CookieClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
		},
	}
	if s.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiry))
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("falha ao assinar o cookie: %w", err)
	}
	return tokenString, nil
}

// ValidateToken valida a assinatura (e o "exp", se existir) e devolve as claims.
func (s *Service) ValidateToken(tokenString string) (*CookieClaims, error) {
	claims := &CookieClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("cookie inválido: %w", err)
	}
	if !tok.Valid || claims.SessionID == "" {
		return nil, errors.New("cookie não é válido")
	}
	return claims, nil
}

// UpstreamExpired informa se o token do servidor é um JWT cujo "exp" já passou.
// O token é opaco para a consola: não é verificado, e um token que não seja JWT
// ou não tenha "exp" nunca é considerado expirado.
func UpstreamExpired(upstreamToken string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(upstreamToken, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
