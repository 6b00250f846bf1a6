package requisition

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form"

	"drive360/internal/api/webutil"
	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/service/requisitionservice"
	"drive360/internal/web"
)

const listPath = "/requests"

// Workspace devolve o orquestrador de uma sessão.
type Workspace interface {
	For(sessionID string) *requisitionservice.Orchestrator
}

// Handler agrupa as páginas de requisições.
type Handler struct {
	Workspace Workspace
	Sessions  webutil.SessionEnder
	Renderer  *web.Renderer
	Cookie    middleware.CookieConfig
	Logger    logger.Logger
	decoder   *form.Decoder
}

// NewHandler cria uma nova instância do Handler de requisições.
func NewHandler(ws Workspace, sessions webutil.SessionEnder, renderer *web.Renderer, cookie middleware.CookieConfig, log logger.Logger) *Handler {
	return &Handler{
		Workspace: ws,
		Sessions:  sessions,
		Renderer:  renderer,
		Cookie:    cookie,
		Logger:    log,
		decoder:   webutil.NewDecoder(),
	}
}

// Routes regista as rotas sob /requests.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/new", h.New)
	r.Post("/new", h.Create)
	r.Get("/edit/{id}", h.Edit)
	r.Post("/edit/{id}", h.Update)
	r.Post("/cancel", h.Cancel)
	r.Get("/{id}", h.Details)
	r.Post("/{id}/delete", h.Delete)
}

// --- Modelos das páginas ---

type listView struct {
	Rows       []domain.Requisition
	Query      requisitionservice.ListQuery
	Statuses   []domain.Status
	Categorias []domain.Categoria
}

type detailField struct {
	Name  string
	Label string
	Value string
}

type detailsView struct {
	Requisition domain.Requisition
	Details     []detailField
}

type formField struct {
	Name     string
	Label    string
	Widget   string
	Required bool
	Value    string
	Options  []requisitionservice.Option
	Error    string
}

type formView struct {
	Creating  bool
	Action    string
	Numero    string
	Categoria domain.Categoria
	Fields    []formField
	Saving    bool
}

// --- Helpers ---

func (h *Handler) orchestrator(r *http.Request) (*requisitionservice.Orchestrator, middleware.SessionInfo) {
	info := middleware.SessionFrom(r.Context())
	return h.Workspace.For(info.ID), info
}

func notices(o *requisitionservice.Orchestrator) []web.Notice {
	drained := o.DrainNotices()
	out := make([]web.Notice, 0, len(drained))
	for _, n := range drained {
		out = append(out, web.Notice{Kind: string(n.Kind), Text: n.Text})
	}
	return out
}

func idParam(r *http.Request) (int64, bool) {
	return domain.ParseID(chi.URLParam(r, "id"))
}

// unauthorized trata o 401 e devolve true se a resposta já foi escrita.
func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	return webutil.HandleUnauthorized(w, r, err, h.Sessions, h.Cookie, h.Logger)
}

// --- Handlers ---

// List lida com GET /requests. reload=1 corresponde a uma navegação nova e força a leitura.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	o, info := h.orchestrator(r)

	var q requisitionservice.ListQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		h.Logger.Debug("Filtros de lista inválidos.", map[string]interface{}{"error": err.Error()})
		q = requisitionservice.ListQuery{}
	}

	if q.Reload {
		o.Mount()
	} else if o.Snapshot().View != requisitionservice.ViewListing {
		o.Cancel()
	}

	list, err := o.List(r.Context(), info.Session)
	if err != nil && h.unauthorized(w, r, err) {
		return
	}

	h.Renderer.Render(w, r, http.StatusOK, "requests", web.Page{
		Title:   "Requisições",
		Active:  "requests",
		Notices: notices(o),
		Data: listView{
			Rows:       requisitionservice.Filter(list, q),
			Query:      q,
			Statuses:   domain.Statuses,
			Categorias: domain.Categorias,
		},
	})
}

// Details lida com GET /requests/{id}.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		webutil.SeeOther(w, r, listPath)
		return
	}
	o, info := h.orchestrator(r)

	req, err := o.Details(r.Context(), info.Session, id)
	if err != nil {
		if !h.unauthorized(w, r, err) {
			webutil.SeeOther(w, r, listPath)
		}
		return
	}

	view := detailsView{Requisition: req}
	variant := make(map[string]bool)
	for _, name := range requisitionservice.VariantFieldNames(req.Categoria) {
		variant[name] = true
	}
	if fields, err := requisitionservice.FieldsFor(req.Categoria); err == nil {
		for _, f := range fields {
			if !variant[f.Name] {
				continue
			}
			view.Details = append(view.Details, detailField{Name: f.Name, Label: f.Label, Value: req.DetailValue(f.Name)})
		}
	}

	h.Renderer.Render(w, r, http.StatusOK, "request_details", web.Page{
		Title:   "Requisição " + req.Numero,
		Active:  "requests",
		Notices: notices(o),
		Data:    view,
	})
}

// New lida com GET /requests/new.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	o, _ := h.orchestrator(r)
	o.BeginCreate()
	h.renderForm(w, r, o, http.StatusOK, nil)
}

// Create lida com POST /requests/new. O botão "Aplicar categoria" só troca a categoria.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	o, info := h.orchestrator(r)
	values, err := webutil.FormValues(r)
	if err != nil {
		webutil.SeeOther(w, r, "/requests/new")
		return
	}
	if o.Snapshot().View != requisitionservice.ViewCreating {
		o.BeginCreate()
	}

	if webutil.Action(r) == "switch" {
		_ = o.UpdateForm(values)
		h.renderForm(w, r, o, http.StatusOK, nil)
		return
	}

	h.afterSubmit(w, r, o, o.Create(r.Context(), info.Session, values))
}

// Edit lida com GET /requests/edit/{id}. Para quem não é admin a transição é suprimida em silêncio.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		webutil.SeeOther(w, r, listPath)
		return
	}
	o, info := h.orchestrator(r)

	if err := o.RequestEdit(r.Context(), info.Session, id); err != nil {
		if !h.unauthorized(w, r, err) {
			webutil.SeeOther(w, r, listPath)
		}
		return
	}
	h.renderForm(w, r, o, http.StatusOK, nil)
}

// Update lida com POST /requests/edit/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		webutil.SeeOther(w, r, listPath)
		return
	}
	o, info := h.orchestrator(r)
	values, err := webutil.FormValues(r)
	if err != nil {
		webutil.SeeOther(w, r, listPath)
		return
	}

	// O formulário aberto tem de ser o desta requisição.
	if snap := o.Snapshot(); snap.View != requisitionservice.ViewEditing || snap.Editing == nil || snap.Editing.ID != id {
		if err := o.RequestEdit(r.Context(), info.Session, id); err != nil {
			if !h.unauthorized(w, r, err) {
				webutil.SeeOther(w, r, listPath)
			}
			return
		}
	}

	if webutil.Action(r) == "switch" {
		_ = o.UpdateForm(values)
		h.renderForm(w, r, o, http.StatusOK, nil)
		return
	}

	h.afterSubmit(w, r, o, o.Save(r.Context(), info.Session, values))
}

// Cancel lida com POST /requests/cancel: volta à lista sem nova leitura.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	o, _ := h.orchestrator(r)
	o.Cancel()
	webutil.SeeOther(w, r, listPath)
}

// Delete lida com POST /requests/{id}/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		webutil.SeeOther(w, r, listPath)
		return
	}
	o, info := h.orchestrator(r)

	err := o.Delete(r.Context(), info.Session, id)
	if err != nil && h.unauthorized(w, r, err) {
		return
	}
	if errors.Is(err, requisitionservice.ErrDeleteInFlight) {
		o.Notify(requisitionservice.NoticeError, "A requisição já está a ser excluída.")
	}
	webutil.SeeOther(w, r, listPath)
}

// afterSubmit decide a resposta de uma gravação (criação ou edição).
func (h *Handler) afterSubmit(w http.ResponseWriter, r *http.Request, o *requisitionservice.Orchestrator, err error) {
	switch {
	case err == nil,
		errors.Is(err, requisitionservice.ErrStale),
		errors.Is(err, requisitionservice.ErrNotAdmin),
		errors.Is(err, requisitionservice.ErrWrongView):
		webutil.SeeOther(w, r, listPath)
	case h.unauthorized(w, r, err):
	case errors.Is(err, requisitionservice.ErrSaveInFlight):
		o.Notify(requisitionservice.NoticeError, "Já existe uma gravação em curso.")
		h.renderForm(w, r, o, http.StatusConflict, nil)
	default:
		fieldErrs, _ := apperror.FieldErrors(err)
		h.renderForm(w, r, o, webutil.Status(err), fieldErrs)
	}
}

// renderForm apresenta o formulário do ecrã atual com os dados de referência.
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, o *requisitionservice.Orchestrator, status int, fieldErrs map[string]string) {
	info := middleware.SessionFrom(r.Context())
	snap := o.Snapshot()
	if snap.Form == nil || snap.View == requisitionservice.ViewListing {
		webutil.SeeOther(w, r, listPath)
		return
	}

	refs, err := o.LoadReferences(r.Context(), info.Session)
	if err != nil && h.unauthorized(w, r, err) {
		return
	}

	view := formView{
		Creating:  snap.View == requisitionservice.ViewCreating,
		Action:    "/requests/new",
		Numero:    snap.Form.Numero,
		Categoria: snap.Form.Categoria,
		Saving:    snap.Saving,
	}
	title := "Nova Requisição"
	if !view.Creating {
		view.Action = "/requests/edit/" + strconv.FormatInt(snap.Form.ID, 10)
		title = "Editar Requisição"
	}

	for _, fd := range snap.Form.Fields() {
		ff := formField{
			Name:     fd.Name,
			Label:    fd.Label,
			Widget:   string(fd.Widget),
			Required: fd.Required,
			Value:    snap.Form.Value(fd.Name),
			Options:  fd.Options,
			Error:    fieldErrs[fd.Name],
		}
		switch fd.Source {
		case requisitionservice.SourceWarehouses:
			for _, wh := range refs.Warehouses {
				ff.Options = append(ff.Options, requisitionservice.Option{Value: strconv.FormatInt(wh.ID, 10), Label: wh.Nome})
			}
		case requisitionservice.SourceSuppliers:
			for _, s := range refs.Suppliers {
				ff.Options = append(ff.Options, requisitionservice.Option{Value: strconv.FormatInt(s.ID, 10), Label: s.Nome})
			}
		}
		view.Fields = append(view.Fields, ff)
	}

	h.Renderer.Render(w, r, status, "request_form", web.Page{
		Title:   title,
		Active:  "requests",
		Notices: notices(o),
		Data:    view,
	})
}
