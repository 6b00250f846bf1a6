package requisitionservice

import (
	"strconv"
	"strings"

	"drive360/internal/domain"
)

// FormState é o estado em memória do formulário de requisição.
// Os valores das variantes são guardados por categoria: trocar de categoria
// esconde os campos da outra variante mas não os apaga, e voltar restaura-os.
type FormState struct {
	ID        int64
	Numero    string
	Categoria domain.Categoria

	common   map[string]string
	variants map[domain.Categoria]map[string]string
}

// NewForm devolve um formulário de criação vazio com estado Pendente.
func NewForm() *FormState {
	f := &FormState{
		common:   make(map[string]string),
		variants: make(map[domain.Categoria]map[string]string),
	}
	f.common[domain.FieldStatus] = string(domain.StatusPendente)
	return f
}

// FormFrom preenche o formulário de edição a partir de uma requisição do servidor.
func FormFrom(r domain.Requisition) *FormState {
	f := NewForm()
	f.ID = r.ID
	f.Numero = r.Numero
	f.Categoria = r.Categoria

	if r.WarehouseID > 0 {
		f.common[domain.FieldWarehouseID] = formatID(r.WarehouseID)
	}
	f.common[domain.FieldDepartamento] = r.Departamento
	if r.SupplierID != nil {
		f.common[domain.FieldSupplierID] = formatID(*r.SupplierID)
	}
	if r.Status != "" {
		f.common[domain.FieldStatus] = string(r.Status)
	}
	if r.Details != nil {
		f.variants[r.Details.Categoria()] = r.Details.Fields()
	}
	return f
}

// Value devolve o valor atual de um campo. Campos de variante são lidos na categoria atual.
func (f *FormState) Value(name string) string {
	if name == domain.FieldCategoria {
		return string(f.Categoria)
	}
	if isVariantField(name) {
		return f.variants[f.Categoria][name]
	}
	return f.common[name]
}

// Fields devolve os descritores visíveis na categoria atual.
func (f *FormState) Fields() []FieldDescriptor {
	return VisibleFields(f.Categoria)
}

// SetCategoria troca a categoria sem apagar valores de nenhuma variante.
func (f *FormState) SetCategoria(c domain.Categoria) {
	f.Categoria = c
}

// Apply aplica os valores submetidos pelo utilizador.
// Apenas os campos visíveis na categoria com que o formulário foi apresentado são
// aceites; a nova categoria (se vier) é aplicada no fim.
func (f *FormState) Apply(values map[string]string) {
	for _, field := range f.Fields() {
		if field.Name == domain.FieldCategoria {
			continue
		}
		v, ok := values[field.Name]
		if !ok {
			continue
		}
		f.set(field.Name, strings.TrimSpace(v))
	}

	if c, ok := values[domain.FieldCategoria]; ok {
		f.SetCategoria(domain.Categoria(strings.TrimSpace(c)))
	}
}

func (f *FormState) set(name, value string) {
	if !isVariantField(name) {
		f.common[name] = value
		return
	}
	vals, ok := f.variants[f.Categoria]
	if !ok {
		vals = make(map[string]string)
		f.variants[f.Categoria] = vals
	}
	vals[name] = value
}

// Validate valida os campos visíveis.
func (f *FormState) Validate() error {
	return Validate(f.Fields(), f.Value)
}

// Build valida o formulário e monta a requisição tipada.
// Só os campos da variante selecionada entram no resultado.
func (f *FormState) Build() (domain.Requisition, error) {
	if err := f.Validate(); err != nil {
		return domain.Requisition{}, err
	}

	warehouseID, _ := domain.ParseID(f.common[domain.FieldWarehouseID])
	r := domain.Requisition{
		ID:           f.ID,
		Numero:       f.Numero,
		Categoria:    f.Categoria,
		WarehouseID:  warehouseID,
		Departamento: f.common[domain.FieldDepartamento],
		Status:       domain.Status(f.common[domain.FieldStatus]),
	}
	if r.Status == "" {
		r.Status = domain.StatusPendente
	}
	if id, ok := domain.ParseID(f.common[domain.FieldSupplierID]); ok {
		r.SupplierID = &id
	}
	r.Details, _ = domain.DetailsFor(f.Categoria, f.variants[f.Categoria])
	return r, nil
}

// Clone devolve uma cópia independente, para apresentar fora do lock.
func (f *FormState) Clone() *FormState {
	if f == nil {
		return nil
	}
	out := &FormState{
		ID:        f.ID,
		Numero:    f.Numero,
		Categoria: f.Categoria,
		common:    make(map[string]string, len(f.common)),
		variants:  make(map[domain.Categoria]map[string]string, len(f.variants)),
	}
	for k, v := range f.common {
		out.common[k] = v
	}
	for c, vals := range f.variants {
		cp := make(map[string]string, len(vals))
		for k, v := range vals {
			cp[k] = v
		}
		out.variants[c] = cp
	}
	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
