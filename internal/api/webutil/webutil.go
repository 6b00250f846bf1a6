package webutil

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/form"

	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
)

// Campos de controlo que nunca chegam aos formulários de domínio.
const (
	csrfField   = "gorilla.csrf.Token"
	ActionField = "_action"
)

// SessionEnder termina uma sessão rejeitada pelo servidor.
type SessionEnder interface {
	Expire(ctx context.Context, sessionID string)
}

// NewDecoder devolve o descodificador de formulários partilhado pelos handlers.
func NewDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetTagName("form")
	return d
}

// FormValues devolve o primeiro valor de cada campo do corpo, sem os campos de controlo.
func FormValues(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, apperror.NewValidationError("formulário inválido.")
	}
	out := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if k == csrfField || k == ActionField || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out, nil
}

// Action devolve o botão de ação submetido (por exemplo "switch").
func Action(r *http.Request) string {
	return strings.TrimSpace(r.PostFormValue(ActionField))
}

// SeeOther redireciona um pedido de página depois de um POST ou de uma decisão do guarda.
func SeeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// HandleUnauthorized trata um 401 do servidor como fim de sessão: apaga a sessão,
// limpa o cookie e volta ao login. Devolve false se err não for um 401.
func HandleUnauthorized(w http.ResponseWriter, r *http.Request, err error, sessions SessionEnder, cookie middleware.CookieConfig, log logger.Logger) bool {
	if !apperror.IsUnauthorized(err) {
		return false
	}
	info := middleware.SessionFrom(r.Context())
	sessions.Expire(r.Context(), info.ID)
	middleware.ClearSessionCookie(w, cookie)
	log.Info("Sessão terminada por 401 do servidor.", map[string]interface{}{"path": r.URL.Path})
	SeeOther(w, r, "/")
	return true
}

// Status devolve o código HTTP para voltar a mostrar uma página depois de um erro.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var verr *apperror.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity
	}
	status, _, _ := apperror.MapToHTTPStatus(err)
	return status
}
