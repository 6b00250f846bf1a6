package resourceservice

import "drive360/internal/repository/resourcerepo"

// Field descreve uma coluna/input do ecrã genérico.
type Field struct {
	Name   string
	Label  string
	Widget string
	// Options para selects (valor -> rótulo), por ordem.
	Options []Option
	// Rules é a tag do validator aplicada ao valor submetido.
	Rules string
	// Secret é um campo só de escrita: não é listado e na edição vazio significa "manter".
	Secret bool
}

// Option é uma opção de um select.
type Option struct {
	Value string
	Label string
}

// Spec descreve um recurso gerido pelo ecrã genérico.
type Spec struct {
	Key      string
	Path     string
	Title    string
	Singular string
	Fields   []Field
}

// Columns devolve os campos que aparecem na tabela.
func (s Spec) Columns() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.Secret {
			out = append(out, f)
		}
	}
	return out
}

var (
	Warehouses = Spec{
		Key:      "warehouses",
		Path:     resourcerepo.PathWarehouses,
		Title:    "Armazéns",
		Singular: "armazém",
		Fields: []Field{
			{Name: "nome", Label: "Nome", Widget: "text", Rules: "required,max=120"},
			{Name: "codigo", Label: "Código", Widget: "text", Rules: "required,max=40"},
		},
	}

	Suppliers = Spec{
		Key:      "suppliers",
		Path:     resourcerepo.PathSuppliers,
		Title:    "Fornecedores",
		Singular: "fornecedor",
		Fields: []Field{
			{Name: "nome", Label: "Nome", Widget: "text", Rules: "required,max=120"},
			{Name: "email", Label: "Email", Widget: "email", Rules: "required,email"},
			{Name: "telefone", Label: "Telefone", Widget: "text", Rules: "omitempty,max=30"},
			{Name: "nif", Label: "NIF", Widget: "text", Rules: "omitempty,numeric,len=9"},
			{Name: "morada", Label: "Morada", Widget: "text", Rules: "omitempty,max=255"},
		},
	}

	Users = Spec{
		Key:      "users",
		Path:     resourcerepo.PathUsers,
		Title:    "Usuários",
		Singular: "usuário",
		Fields: []Field{
			{Name: "nome", Label: "Nome", Widget: "text", Rules: "required,max=120"},
			{Name: "email", Label: "Email", Widget: "email", Rules: "required,email"},
			{Name: "senha", Label: "Senha", Widget: "password", Rules: "required,min=6", Secret: true},
			{Name: "papel", Label: "Papel", Widget: "select", Rules: "required,oneof=usuario admin", Options: []Option{
				{Value: "usuario", Label: "Usuário"},
				{Value: "admin", Label: "Administrador"},
			}},
		},
	}

	// Specs indexa os recursos pela chave usada nas rotas.
	Specs = map[string]Spec{
		Warehouses.Key: Warehouses,
		Suppliers.Key:  Suppliers,
		Users.Key:      Users,
	}
)
