package dashboard

import (
	"net/http"

	"drive360/internal/domain"
	"drive360/internal/pkg/logger"
	"drive360/internal/web"
)

// Card é um atalho do painel. Roles nil mostra o cartão a qualquer sessão.
type Card struct {
	Key   string
	Title string
	Text  string
	Href  string
	Roles domain.RoleSet
}

var admin = domain.Roles(domain.RoleAdmin)

// Cards são os atalhos do painel, pela ordem apresentada.
var Cards = []Card{
	{Key: "warehouses", Title: "Gerir Armazéns", Text: "Administre os armazéns do sistema de forma eficiente e organizada.", Href: "/warehouses", Roles: admin},
	{Key: "requests", Title: "Gerir Requisições", Text: "Visualize e gerencie todas as requisições do sistema.", Href: "/requests?reload=1"},
	{Key: "new-request", Title: "Nova Requisição", Text: "Crie e submeta novas requisições de forma rápida.", Href: "/requests/new"},
	{Key: "suppliers", Title: "Gerir Fornecedores", Text: "Administre os fornecedores do sistema.", Href: "/suppliers", Roles: admin},
	{Key: "users", Title: "Gerir Usuários", Text: "Crie contas e atribua papéis.", Href: "/users", Roles: admin},
}

// Handler apresenta o painel.
type Handler struct {
	Renderer *web.Renderer
	Logger   logger.Logger
}

// NewHandler cria o handler do painel.
func NewHandler(renderer *web.Renderer, log logger.Logger) *Handler {
	return &Handler{Renderer: renderer, Logger: log}
}

// Show lida com GET /dashboard.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, r, http.StatusOK, "dashboard", web.Page{
		Title:  "Painel",
		Active: "dashboard",
		Data:   struct{ Cards []Card }{Cards: Cards},
	})
}
