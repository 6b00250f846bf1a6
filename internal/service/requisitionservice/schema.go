package requisitionservice

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
)

// Widget é o tipo de input usado para apresentar um campo.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetNumber   Widget = "number"
	WidgetTextarea Widget = "textarea"
	WidgetSelect   Widget = "select"
)

// Fontes de opções dinâmicas, preenchidas com dados de referência do servidor.
const (
	SourceWarehouses = "warehouses"
	SourceSuppliers  = "suppliers"
)

// Option é uma opção fixa de um select.
type Option struct {
	Value string
	Label string
}

// FieldDescriptor descreve um campo do formulário de requisição.
// Rules é a tag do validator aplicada ao valor textual do campo.
type FieldDescriptor struct {
	Name     string
	Label    string
	Required bool
	Widget   Widget
	Options  []Option
	Source   string
	Rules    string
}

var (
	categoriaOptions = func() []Option {
		out := make([]Option, 0, len(domain.Categorias))
		for _, c := range domain.Categorias {
			out = append(out, Option{Value: string(c), Label: string(c)})
		}
		return out
	}()

	statusOptions = func() []Option {
		out := make([]Option, 0, len(domain.Statuses))
		for _, s := range domain.Statuses {
			out = append(out, Option{Value: string(s), Label: string(s)})
		}
		return out
	}()

	leadingFields = []FieldDescriptor{
		{Name: domain.FieldWarehouseID, Label: "Armazém", Required: true, Widget: WidgetSelect, Source: SourceWarehouses, Rules: "required,ref_id"},
		{Name: domain.FieldCategoria, Label: "Categoria", Required: true, Widget: WidgetSelect, Options: categoriaOptions, Rules: "required,categoria"},
		{Name: domain.FieldDepartamento, Label: "Departamento", Required: true, Widget: WidgetText, Rules: "required,max=120"},
	}

	trailingFields = []FieldDescriptor{
		{Name: domain.FieldSupplierID, Label: "Fornecedor", Widget: WidgetSelect, Source: SourceSuppliers, Rules: "omitempty,ref_id"},
		{Name: domain.FieldStatus, Label: "Estado", Widget: WidgetSelect, Options: statusOptions, Rules: "omitempty,status"},
	}

	// Campos específicos de cada categoria. Nenhum é obrigatório no formulário.
	variantFields = map[domain.Categoria][]FieldDescriptor{
		domain.CategoriaReparacao: {
			{Name: domain.FieldMarca, Label: "Marca", Widget: WidgetText, Rules: "omitempty,max=80"},
			{Name: domain.FieldModelo, Label: "Modelo", Widget: WidgetText, Rules: "omitempty,max=80"},
			{Name: domain.FieldMatricula, Label: "Matrícula", Widget: WidgetText, Rules: "omitempty,max=20"},
			{Name: domain.FieldQuilometros, Label: "Quilómetros", Widget: WidgetNumber, Rules: "omitempty,numeric"},
			{Name: domain.FieldDescricaoIntervencao, Label: "Descrição da Intervenção", Widget: WidgetTextarea, Rules: "omitempty,max=2000"},
		},
		domain.CategoriaAquisicao: {
			{Name: domain.FieldDescricaoMaterial, Label: "Descrição do Material", Widget: WidgetTextarea, Rules: "omitempty,max=2000"},
			{Name: domain.FieldFinalidade, Label: "Finalidade", Widget: WidgetText, Rules: "omitempty,max=255"},
		},
	}

	ruleMessages = map[string]string{
		"required":  "Campo obrigatório.",
		"ref_id":    "Selecione uma opção válida.",
		"categoria": "Categoria inválida.",
		"status":    "Estado inválido.",
		"numeric":   "Deve ser um número.",
		"max":       "Valor demasiado longo.",
	}
)

// FieldsFor devolve os campos, por ordem, de uma requisição da categoria indicada:
// armazém, categoria e departamento, os campos da variante, fornecedor e estado.
func FieldsFor(c domain.Categoria) ([]FieldDescriptor, error) {
	variant, ok := variantFields[c]
	if !ok {
		return nil, apperror.NewValidationError(fmt.Sprintf("categoria desconhecida '%s'", c))
	}

	out := make([]FieldDescriptor, 0, len(leadingFields)+len(variant)+len(trailingFields))
	out = append(out, leadingFields...)
	out = append(out, variant...)
	out = append(out, trailingFields...)
	return out, nil
}

// VisibleFields é como FieldsFor, mas sem categoria escolhida devolve só os campos comuns.
func VisibleFields(c domain.Categoria) []FieldDescriptor {
	if fields, err := FieldsFor(c); err == nil {
		return fields
	}
	out := make([]FieldDescriptor, 0, len(leadingFields)+len(trailingFields))
	out = append(out, leadingFields...)
	return append(out, trailingFields...)
}

// VariantFieldNames devolve os nomes dos campos específicos da categoria.
func VariantFieldNames(c domain.Categoria) []string {
	names := make([]string, 0, len(variantFields[c]))
	for _, f := range variantFields[c] {
		names = append(names, f.Name)
	}
	return names
}

func isVariantField(name string) bool {
	for _, fields := range variantFields {
		for _, f := range fields {
			if f.Name == name {
				return true
			}
		}
	}
	return false
}

// newValidator regista as regras do domínio no validator.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("categoria", func(fl validator.FieldLevel) bool {
		return domain.Categoria(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return domain.Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ref_id", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseID(fl.Field().String())
		return ok
	})
	return v
}

var validate = newValidator()

// Validate aplica as regras dos descritores aos valores e devolve um ValidationError
// com uma mensagem por campo. Não faz chamadas de rede.
func Validate(fields []FieldDescriptor, value func(name string) string) error {
	failures := make(map[string]string)
	for _, f := range fields {
		if f.Rules == "" {
			continue
		}
		err := validate.Var(strings.TrimSpace(value(f.Name)), f.Rules)
		if err == nil {
			continue
		}
		failures[f.Name] = messageFor(err)
	}
	if len(failures) > 0 {
		return apperror.NewFieldValidationError(failures)
	}
	return nil
}

func messageFor(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		if msg, ok := ruleMessages[verrs[0].Tag()]; ok {
			return msg
		}
	}
	return "Valor inválido."
}
