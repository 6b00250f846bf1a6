package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/metrics"
)

const apiPrefix = "/api/v1"

const loginPath = "/auth/login"

// maxErrorBody limita a leitura de corpos de erro do servidor.
const maxErrorBody = 64 << 10

// Config descreve o servidor REST e o transporte.
type Config struct {
	BaseURL string
	// Timeout 0 mantém o comportamento do transporte (sem limite).
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client encapsula as chamadas ao servidor REST do Drive360.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
}

// LoginResponse é a resposta de POST /auth/login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// New cria o cliente. BaseURL é obrigatório.
func New(cfg Config, log logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("apiclient: base url obrigatória")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: hc,
		baseURL:    base,
		logger:     log,
	}, nil
}

// Login autentica com email e senha. Nunca envia Authorization.
// Qualquer recusa 4xx do servidor (401, 403, 404, ...) devolve UnauthorizedError.
func (c *Client) Login(ctx context.Context, email, senha string) (LoginResponse, error) {
	body := map[string]string{"email": email, "senha": senha}

	var resp LoginResponse
	if err := c.send(ctx, http.MethodPost, loginPath, "", body, &resp); err != nil {
		var upstream *apperror.UpstreamError
		if errors.As(err, &upstream) && upstream.Status < 500 {
			return LoginResponse{}, apperror.NewUnauthorizedError(upstream.Msg)
		}
		return LoginResponse{}, err
	}
	return resp, nil
}

// Do executa uma chamada autenticada com Authorization: Bearer <token>.
// out pode ser nil quando a resposta não interessa.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	if token == "" {
		return apperror.NewUnauthorizedError("sessão sem token")
	}
	return c.send(ctx, method, path, token, body, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperror.NewInternalError("falha ao serializar o pedido", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return apperror.NewInternalError("falha ao montar o pedido", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	endpoint := endpointLabel(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(method, endpoint, 0, time.Since(start))
		c.logger.Warn("Falha de rede ao contactar o servidor.", map[string]interface{}{"method": method, "path": path, "error": err.Error()})
		return apperror.NewInternalError("servidor indisponível", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(method, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return c.statusError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.NewInternalError("resposta inválida do servidor", err)
	}
	return nil
}

func (c *Client) statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body domain.ErrorResponse
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Text()
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	c.logger.Debug("Servidor respondeu com erro.", map[string]interface{}{"method": method, "path": path, "status": resp.StatusCode, "message": msg})

	// No login qualquer status fica como UpstreamError: Login decide pelo status
	// (4xx é recusa de credenciais), e um 401 ali não é sessão expirada.
	if path == loginPath {
		return apperror.NewUpstreamError(resp.StatusCode, msg)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperror.NewUnauthorizedError(msg)
	case http.StatusForbidden:
		return apperror.NewForbiddenError(msg)
	case http.StatusNotFound:
		return apperror.NewNotFoundError(msg)
	default:
		return apperror.NewUpstreamError(resp.StatusCode, msg)
	}
}

// endpointLabel substitui segmentos numéricos por ":id" para não explodir as labels das métricas.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, ok := domain.ParseID(p); ok {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// ResourcePath monta "/<resource>/<id>".
func ResourcePath(resource string, id int64) string {
	return fmt.Sprintf("/%s/%d", strings.Trim(resource, "/"), id)
}
