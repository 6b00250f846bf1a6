package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Categoria é o discriminante que escolhe o conjunto de campos específicos de uma requisição.
type Categoria string

const (
	CategoriaReparacao Categoria = "Reparação/Manutenção"
	CategoriaAquisicao Categoria = "Aquisição de Material"
)

// Categorias lista as categorias na ordem apresentada ao utilizador.
var Categorias = []Categoria{CategoriaReparacao, CategoriaAquisicao}

// Valid informa se a categoria é uma das duas conhecidas.
func (c Categoria) Valid() bool {
	return c == CategoriaReparacao || c == CategoriaAquisicao
}

// Status é o estado de uma requisição. Não há máquina de estados: qualquer valor do enum é aceite.
type Status string

const (
	StatusPendente  Status = "Pendente"
	StatusAprovado  Status = "Aprovado"
	StatusConcluido Status = "Concluído"
	StatusCancelado Status = "Cancelado"
)

// Statuses lista os estados na ordem apresentada ao utilizador.
var Statuses = []Status{StatusPendente, StatusAprovado, StatusConcluido, StatusCancelado}

// Valid informa se o estado pertence ao enum.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Nomes dos campos tal como circulam no fio e no formulário.
const (
	FieldWarehouseID  = "warehouseId"
	FieldCategoria    = "categoria"
	FieldDepartamento = "departamento"
	FieldSupplierID   = "supplierId"
	FieldStatus       = "status"

	FieldMarca                = "marca"
	FieldModelo               = "modelo"
	FieldMatricula            = "matricula"
	FieldQuilometros          = "quilometros"
	FieldDescricaoIntervencao = "descricaoIntervencao"

	FieldDescricaoMaterial = "descricaoMaterial"
	FieldFinalidade        = "finalidade"
)

// FlexString aceita tanto string como número JSON (o servidor não é consistente em "numero").
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Ref é a referência desnormalizada (armazém, fornecedor, criador, editor) embutida na listagem.
type Ref struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// RequisitionDetails é a parte variante da requisição. Cada implementação pertence a uma categoria.
type RequisitionDetails interface {
	Categoria() Categoria
	// Fields devolve os valores da variante indexados pelo nome do campo.
	Fields() map[string]string
}

// RepairDetails são os campos de Reparação/Manutenção.
type RepairDetails struct {
	Marca                string
	Modelo               string
	Matricula            string
	Quilometros          string
	DescricaoIntervencao string
}

func (RepairDetails) Categoria() Categoria { return CategoriaReparacao }

func (d RepairDetails) Fields() map[string]string {
	return map[string]string{
		FieldMarca:                d.Marca,
		FieldModelo:               d.Modelo,
		FieldMatricula:            d.Matricula,
		FieldQuilometros:          d.Quilometros,
		FieldDescricaoIntervencao: d.DescricaoIntervencao,
	}
}

// AcquisitionDetails são os campos de Aquisição de Material.
type AcquisitionDetails struct {
	DescricaoMaterial string
	Finalidade        string
}

func (AcquisitionDetails) Categoria() Categoria { return CategoriaAquisicao }

func (d AcquisitionDetails) Fields() map[string]string {
	return map[string]string{
		FieldDescricaoMaterial: d.DescricaoMaterial,
		FieldFinalidade:        d.Finalidade,
	}
}

// DetailsFor constrói a variante da categoria a partir de valores por nome de campo.
// Valores que não pertencem à categoria são ignorados.
func DetailsFor(c Categoria, values map[string]string) (RequisitionDetails, bool) {
	switch c {
	case CategoriaReparacao:
		return RepairDetails{
			Marca:                values[FieldMarca],
			Modelo:               values[FieldModelo],
			Matricula:            values[FieldMatricula],
			Quilometros:          values[FieldQuilometros],
			DescricaoIntervencao: values[FieldDescricaoIntervencao],
		}, true
	case CategoriaAquisicao:
		return AcquisitionDetails{
			DescricaoMaterial: values[FieldDescricaoMaterial],
			Finalidade:        values[FieldFinalidade],
		}, true
	}
	return nil, false
}

// Requisition é a entidade principal do fluxo.
type Requisition struct {
	ID           int64
	Numero       string
	Categoria    Categoria
	WarehouseID  int64
	Departamento string
	SupplierID   *int64
	Status       Status
	Details      RequisitionDetails

	CreatedBy    *int64
	CreatedAt    time.Time
	LastEditedBy *int64
	LastEditedAt *time.Time

	Warehouse *Ref
	Supplier  *Ref
	Creator   *Ref
	Editor    *Ref
}

// DetailValue devolve o valor de um campo da variante ou "" quando não se aplica.
func (r Requisition) DetailValue(field string) string {
	if r.Details == nil {
		return ""
	}
	return r.Details.Fields()[field]
}

// requisitionRecord é a forma plana devolvida pelo servidor.
type requisitionRecord struct {
	ID           int64      `json:"id"`
	Numero       FlexString `json:"numero"`
	Categoria    Categoria  `json:"categoria"`
	WarehouseID  int64      `json:"warehouseId"`
	Departamento string     `json:"departamento"`
	SupplierID   *int64     `json:"supplierId"`
	Status       Status     `json:"status"`

	Marca                string     `json:"marca"`
	Modelo               string     `json:"modelo"`
	Matricula            string     `json:"matricula"`
	Quilometros          FlexString `json:"quilometros"`
	DescricaoIntervencao string     `json:"descricaoIntervencao"`
	DescricaoMaterial    string     `json:"descricaoMaterial"`
	Finalidade           string     `json:"finalidade"`

	CreatedBy    *int64     `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastEditedBy *int64     `json:"lastEditedBy"`
	LastEditedAt *time.Time `json:"lastEditedAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`

	Warehouse *Ref `json:"Warehouse"`
	Supplier  *Ref `json:"Supplier"`
	Creator   *Ref `json:"creator"`
	Editor    *Ref `json:"editor"`
}

// UnmarshalJSON converte o registo plano do servidor na união etiquetada.
// Campos de uma variante diferente da categoria do registo são descartados.
func (r *Requisition) UnmarshalJSON(b []byte) error {
	var rec requisitionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}

	out := Requisition{
		ID:           rec.ID,
		Numero:       string(rec.Numero),
		Categoria:    rec.Categoria,
		WarehouseID:  rec.WarehouseID,
		Departamento: rec.Departamento,
		SupplierID:   rec.SupplierID,
		Status:       rec.Status,
		CreatedBy:    rec.CreatedBy,
		CreatedAt:    rec.CreatedAt,
		LastEditedBy: rec.LastEditedBy,
		LastEditedAt: rec.LastEditedAt,
		Warehouse:    rec.Warehouse,
		Supplier:     rec.Supplier,
		Creator:      rec.Creator,
		Editor:       rec.Editor,
	}
	if out.Status == "" {
		out.Status = StatusPendente
	}
	// O servidor antigo só marca a edição com "editor" + "updatedAt".
	if out.LastEditedAt == nil && rec.Editor != nil {
		out.LastEditedAt = rec.UpdatedAt
	}

	out.Details, _ = DetailsFor(rec.Categoria, map[string]string{
		FieldMarca:                rec.Marca,
		FieldModelo:               rec.Modelo,
		FieldMatricula:            rec.Matricula,
		FieldQuilometros:          string(rec.Quilometros),
		FieldDescricaoIntervencao: rec.DescricaoIntervencao,
		FieldDescricaoMaterial:    rec.DescricaoMaterial,
		FieldFinalidade:           rec.Finalidade,
	})

	*r = out
	return nil
}

// Payload monta o corpo enviado em POST/PUT: campos comuns mais os campos da variante selecionada.
// Com omitEmpty (criação) campos opcionais vazios não são enviados; sem ele (edição)
// os campos da variante vão sempre, para que possam ser limpos.
func (r Requisition) Payload(omitEmpty bool) map[string]any {
	p := map[string]any{
		FieldCategoria:    string(r.Categoria),
		FieldWarehouseID:  r.WarehouseID,
		FieldDepartamento: r.Departamento,
		FieldStatus:       string(r.Status),
	}

	if r.SupplierID != nil {
		p[FieldSupplierID] = *r.SupplierID
	} else if !omitEmpty {
		p[FieldSupplierID] = nil
	}

	if r.Details != nil && r.Details.Categoria() == r.Categoria {
		for name, value := range r.Details.Fields() {
			if omitEmpty && value == "" {
				continue
			}
			p[name] = value
		}
	}
	return p
}

// ParseID converte um identificador textual (formulário, URL) num id do servidor.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
