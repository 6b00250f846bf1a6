package resource

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"drive360/internal/api/webutil"
	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/service/resourceservice"
	"drive360/internal/web"
)

// ResourceService define o contrato que o Handler espera do serviço de recursos.
type ResourceService interface {
	List(ctx context.Context, sess domain.Session, spec resourceservice.Spec, q string) ([]resourceservice.Row, error)
	Find(ctx context.Context, sess domain.Session, spec resourceservice.Spec, id int64) (resourceservice.Row, error)
	Save(ctx context.Context, sess domain.Session, spec resourceservice.Spec, id int64, values map[string]string) error
	Delete(ctx context.Context, sess domain.Session, spec resourceservice.Spec, id int64) error
}

// Resultados passados na query string depois de um redirecionamento.
const (
	resultSaved       = "saved"
	resultDeleted     = "deleted"
	resultDeleteError = "delete-error"
)

type pageView struct {
	Spec      resourceservice.Spec
	Rows      []resourceservice.Row
	Query     string
	Values    map[string]string
	Errors    map[string]string
	EditingID int64
	Action    string
}

// Handler serve o ecrã genérico de armazéns, fornecedores e usuários.
type Handler struct {
	Service  ResourceService
	Sessions webutil.SessionEnder
	Renderer *web.Renderer
	Cookie   middleware.CookieConfig
	Logger   logger.Logger
}

// NewHandler cria uma nova instância do Handler de recursos.
func NewHandler(svc ResourceService, sessions webutil.SessionEnder, renderer *web.Renderer, cookie middleware.CookieConfig, log logger.Logger) *Handler {
	return &Handler{Service: svc, Sessions: sessions, Renderer: renderer, Cookie: cookie, Logger: log}
}

// Routes regista as rotas de um recurso.
func (h *Handler) Routes(r chi.Router, spec resourceservice.Spec) {
	r.Get("/", h.list(spec))
	r.Post("/", h.save(spec, false))
	r.Get("/{id}/edit", h.edit(spec))
	r.Post("/{id}/edit", h.save(spec, true))
	r.Post("/{id}/delete", h.delete(spec))
}

func basePath(spec resourceservice.Spec) string {
	return "/" + spec.Key
}

func (h *Handler) list(spec resourceservice.Spec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := pageView{Spec: spec, Query: r.URL.Query().Get("q"), Action: basePath(spec)}
		h.render(w, r, http.StatusOK, view, resultNotice(spec, r.URL.Query().Get("result")))
	}
}

func (h *Handler) edit(spec resourceservice.Spec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.ParseID(chi.URLParam(r, "id"))
		if !ok {
			webutil.SeeOther(w, r, basePath(spec))
			return
		}
		info := middleware.SessionFrom(r.Context())

		row, err := h.Service.Find(r.Context(), info.Session, spec, id)
		if err != nil {
			if webutil.HandleUnauthorized(w, r, err, h.Sessions, h.Cookie, h.Logger) {
				return
			}
			webutil.SeeOther(w, r, basePath(spec))
			return
		}

		view := pageView{
			Spec:      spec,
			Values:    row.Values,
			EditingID: id,
			Action:    basePath(spec) + "/" + strconv.FormatInt(id, 10) + "/edit",
		}
		h.render(w, r, http.StatusOK, view, nil)
	}
}

func (h *Handler) save(spec resourceservice.Spec, editing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id int64
		action := basePath(spec)
		if editing {
			var ok bool
			if id, ok = domain.ParseID(chi.URLParam(r, "id")); !ok {
				webutil.SeeOther(w, r, basePath(spec))
				return
			}
			action = basePath(spec) + "/" + strconv.FormatInt(id, 10) + "/edit"
		}

		values, err := webutil.FormValues(r)
		if err != nil {
			webutil.SeeOther(w, r, action)
			return
		}

		info := middleware.SessionFrom(r.Context())
		err = h.Service.Save(r.Context(), info.Session, spec, id, values)
		if err == nil {
			webutil.SeeOther(w, r, basePath(spec)+"?result="+resultSaved)
			return
		}
		if webutil.HandleUnauthorized(w, r, err, h.Sessions, h.Cookie, h.Logger) {
			return
		}

		view := pageView{Spec: spec, Values: values, EditingID: id, Action: action}
		var notices []web.Notice
		if fields, ok := apperror.FieldErrors(err); ok {
			view.Errors = fields
		} else {
			verb := "criar"
			if editing {
				verb = "atualizar"
			}
			notices = append(notices, web.Notice{Kind: "error", Text: "Erro ao " + verb + " " + spec.Singular + "."})
		}
		h.render(w, r, webutil.Status(err), view, notices)
	}
}

func (h *Handler) delete(spec resourceservice.Spec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.ParseID(chi.URLParam(r, "id"))
		if !ok {
			webutil.SeeOther(w, r, basePath(spec))
			return
		}
		info := middleware.SessionFrom(r.Context())

		err := h.Service.Delete(r.Context(), info.Session, spec, id)
		switch {
		case err == nil:
			webutil.SeeOther(w, r, basePath(spec)+"?result="+resultDeleted)
		case webutil.HandleUnauthorized(w, r, err, h.Sessions, h.Cookie, h.Logger):
		default:
			webutil.SeeOther(w, r, basePath(spec)+"?result="+resultDeleteError)
		}
	}
}

// render carrega a tabela e apresenta a página com o formulário indicado.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view pageView, notices []web.Notice) {
	info := middleware.SessionFrom(r.Context())

	rows, err := h.Service.List(r.Context(), info.Session, view.Spec, view.Query)
	if err != nil {
		if webutil.HandleUnauthorized(w, r, err, h.Sessions, h.Cookie, h.Logger) {
			return
		}
		notices = append(notices, web.Notice{Kind: "error", Text: "Erro ao carregar " + strings.ToLower(view.Spec.Title) + "."})
	}
	view.Rows = rows

	h.Renderer.Render(w, r, status, "resource", web.Page{
		Title:   view.Spec.Title,
		Active:  view.Spec.Key,
		Notices: notices,
		Data:    view,
	})
}

func resultNotice(spec resourceservice.Spec, result string) []web.Notice {
	switch result {
	case resultSaved:
		return []web.Notice{{Kind: "success", Text: "Registo gravado com sucesso."}}
	case resultDeleted:
		return []web.Notice{{Kind: "success", Text: "Registo excluído com sucesso."}}
	case resultDeleteError:
		return []web.Notice{{Kind: "error", Text: "Erro ao excluir " + spec.Singular + "."}}
	}
	return nil
}
