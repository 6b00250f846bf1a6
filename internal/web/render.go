package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"drive360/internal/domain"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/service/accessservice"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Notice é uma mensagem transitória mostrada no topo da página.
type Notice struct {
	Kind string
	Text string
}

// NavItem é uma entrada do menu. Roles nil mostra a entrada a qualquer sessão.
type NavItem struct {
	Key   string
	Label string
	Href  string
	Roles domain.RoleSet
}

// Nav é o menu da consola.
var Nav = []NavItem{
	{Key: "dashboard", Label: "Painel", Href: "/dashboard"},
	{Key: "requests", Label: "Requisições", Href: "/requests?reload=1"},
	{Key: "warehouses", Label: "Armazéns", Href: "/warehouses", Roles: domain.Roles(domain.RoleAdmin)},
	{Key: "suppliers", Label: "Fornecedores", Href: "/suppliers", Roles: domain.Roles(domain.RoleAdmin)},
	{Key: "users", Label: "Usuários", Href: "/users", Roles: domain.Roles(domain.RoleAdmin)},
}

// Page é o modelo comum a todas as páginas.
type Page struct {
	Title     string
	Active    string
	Session   domain.Session
	Nav       []NavItem
	Notices   []Notice
	CSRFField template.HTML
	Year      int
	Data      any
}

// Renderer guarda os templates já compilados, um por página.
type Renderer struct {
	pages  map[string]*template.Template
	logger logger.Logger
}

// NewRenderer compila todas as páginas embutidas com o layout comum.
func NewRenderer(log logger.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template), logger: log}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(path.Base(layoutFile)).Funcs(Funcs()).ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Funcs são as funções disponíveis nos templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		// allowed é o filtro de papéis: um conjunto nil mostra sempre.
		"allowed": accessservice.Filter,
		"roles": func(names ...string) domain.RoleSet {
			out := domain.Roles()
			for _, n := range names {
				out[domain.UserRole(n)] = struct{}{}
			}
			return out
		},
		"datetime": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Local().Format("02/01/2006 15:04")
			case *time.Time:
				if v == nil || v.IsZero() {
					return ""
				}
				return v.Local().Format("02/01/2006 15:04")
			}
			return ""
		},
		"refName": func(ref *domain.Ref) string {
			if ref == nil {
				return "-"
			}
			return ref.Nome
		},
	}
}

// Render executa a página para um buffer e só depois escreve a resposta,
// para que um erro de template não deixe uma página a meio.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("Template inexistente.", fmt.Errorf("page %q", name))
		http.Error(w, "Erro interno.", http.StatusInternalServerError)
		return
	}

	page.Session = middleware.SessionFrom(req.Context()).Session
	page.Nav = Nav
	page.CSRFField = csrf.TemplateField(req)
	page.Year = time.Now().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("Falha ao renderizar página.", err)
		http.Error(w, "Erro interno.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
