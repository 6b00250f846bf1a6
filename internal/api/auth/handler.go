package auth

import (
	"context"
	"net/http"

	"github.com/go-playground/form"

	"drive360/internal/api/webutil"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/service/accessservice"
	"drive360/internal/service/sessionservice"
	"drive360/internal/web"
)

// MsgUnavailable é mostrado quando o servidor não respondeu ao login.
const MsgUnavailable = "Não foi possível contactar o servidor. Tente novamente."

// SessionService define o contrato que o Handler espera do serviço de sessões.
type SessionService interface {
	Login(ctx context.Context, previousID string, cred sessionservice.Credentials) (sessionservice.Issued, error)
	Logout(ctx context.Context, sessionID string)
}

// loginView é o modelo da página de login.
type loginView struct {
	Email string
	Error string
}

// Handler agrupa as páginas de login e logout.
type Handler struct {
	Service  SessionService
	Renderer *web.Renderer
	Cookie   middleware.CookieConfig
	Logger   logger.Logger
	decoder  *form.Decoder
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc SessionService, renderer *web.Renderer, cookie middleware.CookieConfig, log logger.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Renderer: renderer,
		Cookie:   cookie,
		Logger:   log,
		decoder:  webutil.NewDecoder(),
	}
}

// LoginPage lida com GET /. Uma sessão autenticada vai diretamente para o painel.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFrom(r.Context()).Session.Authenticated() {
		webutil.SeeOther(w, r, accessservice.DashboardPath)
		return
	}
	h.render(w, r, http.StatusOK, loginView{})
}

// Login lida com POST /login. Em falha a sessão existente não é tocada.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, loginView{Error: sessionservice.MsgInvalidCredentials})
		return
	}

	var cred sessionservice.Credentials
	if err := h.decoder.Decode(&cred, r.PostForm); err != nil {
		h.render(w, r, http.StatusBadRequest, loginView{Error: sessionservice.MsgInvalidCredentials})
		return
	}

	previous := middleware.SessionFrom(r.Context())
	issued, err := h.Service.Login(r.Context(), previous.ID, cred)
	if err != nil {
		view := loginView{Email: cred.Email, Error: sessionservice.MsgInvalidCredentials}
		status := http.StatusUnauthorized
		if !apperror.IsUnauthorized(err) {
			view.Error = MsgUnavailable
			status, _, _ = apperror.MapToHTTPStatus(err)
		}
		h.render(w, r, status, view)
		return
	}

	middleware.SetSessionCookie(w, h.Cookie, issued.Cookie)
	webutil.SeeOther(w, r, accessservice.DashboardPath)
}

// Logout lida com POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	info := middleware.SessionFrom(r.Context())
	h.Service.Logout(r.Context(), info.ID)
	middleware.ClearSessionCookie(w, h.Cookie)
	webutil.SeeOther(w, r, accessservice.LoginPath)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view loginView) {
	h.Renderer.Render(w, r, status, "login", web.Page{Title: "Entrar", Data: view})
}
