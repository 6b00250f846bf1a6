package requisitionservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/service/requisitionservice"
)

func TestNewForm_DefaultsToPendente(t *testing.T) {
	f := requisitionservice.NewForm()

	assert.Equal(t, "Pendente", f.Value(domain.FieldStatus))
	assert.Empty(t, f.Categoria)
}

func TestForm_CategoriaRoundTripRestoresValues(t *testing.T) {
	f := requisitionservice.NewForm()
	f.Apply(map[string]string{"categoria": string(domain.CategoriaReparacao)})
	f.Apply(map[string]string{"marca": "Volvo", "matricula": "AA-00-BB"})

	f.Apply(map[string]string{"categoria": string(domain.CategoriaAquisicao)})
	assert.Empty(t, f.Value(domain.FieldMarca))
	f.Apply(map[string]string{"descricaoMaterial": "Parafusos"})

	f.Apply(map[string]string{"categoria": string(domain.CategoriaReparacao)})
	assert.Equal(t, "Volvo", f.Value(domain.FieldMarca))
	assert.Equal(t, "AA-00-BB", f.Value(domain.FieldMatricula))

	f.Apply(map[string]string{"categoria": string(domain.CategoriaAquisicao)})
	assert.Equal(t, "Parafusos", f.Value(domain.FieldDescricaoMaterial))
}

func TestForm_IgnoresInputForHiddenFields(t *testing.T) {
	f := requisitionservice.NewForm()
	f.Apply(map[string]string{"categoria": string(domain.CategoriaAquisicao)})

	f.Apply(map[string]string{"marca": "Volvo", "descricaoMaterial": "Cabos"})
	f.Apply(map[string]string{"categoria": string(domain.CategoriaReparacao)})

	assert.Empty(t, f.Value(domain.FieldMarca))
}

func TestForm_SwitchInSamePostKeepsPreviousVariantInput(t *testing.T) {
	f := requisitionservice.NewForm()
	f.Apply(map[string]string{"categoria": string(domain.CategoriaReparacao)})

	// O formulário foi apresentado em Reparação; o utilizador escreve a marca e troca de categoria.
	f.Apply(map[string]string{"marca": "Scania", "categoria": string(domain.CategoriaAquisicao)})

	assert.Equal(t, domain.CategoriaAquisicao, f.Categoria)
	f.SetCategoria(domain.CategoriaReparacao)
	assert.Equal(t, "Scania", f.Value(domain.FieldMarca))
}

func TestForm_BuildRequiresCommonFields(t *testing.T) {
	f := requisitionservice.NewForm()

	_, err := f.Build()

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fields, "warehouseId")
	assert.Contains(t, fields, "categoria")
	assert.Contains(t, fields, "departamento")
}

func TestForm_BuildStripsOtherVariant(t *testing.T) {
	f := requisitionservice.NewForm()
	f.Apply(map[string]string{"categoria": string(domain.CategoriaReparacao)})
	f.Apply(map[string]string{"marca": "Volvo", "quilometros": "120000"})
	f.Apply(map[string]string{"categoria": string(domain.CategoriaAquisicao)})
	f.Apply(map[string]string{
		"warehouseId":       "3",
		"departamento":      "Oficina",
		"descricaoMaterial": "Parafusos",
	})

	r, err := f.Build()
	require.NoError(t, err)

	assert.Equal(t, domain.CategoriaAquisicao, r.Categoria)
	assert.Equal(t, domain.AcquisitionDetails{DescricaoMaterial: "Parafusos"}, r.Details)
	assert.Equal(t, map[string]any{
		"categoria":         "Aquisição de Material",
		"warehouseId":       int64(3),
		"departamento":      "Oficina",
		"descricaoMaterial": "Parafusos",
		"status":            "Pendente",
	}, r.Payload(true))

	update := r.Payload(false)
	assert.Equal(t, "", update["finalidade"])
	assert.Contains(t, update, "supplierId")
	assert.Nil(t, update["supplierId"])
	assert.NotContains(t, update, "marca")
	assert.NotContains(t, update, "quilometros")
}

func TestFormFrom_Requisition(t *testing.T) {
	supplier := int64(8)
	r := domain.Requisition{
		ID:           5,
		Numero:       "REQ-5",
		Categoria:    domain.CategoriaReparacao,
		WarehouseID:  2,
		Departamento: "Frota",
		SupplierID:   &supplier,
		Status:       domain.StatusAprovado,
		Details:      domain.RepairDetails{Marca: "MAN", Quilometros: "90000"},
	}

	f := requisitionservice.FormFrom(r)

	assert.Equal(t, "2", f.Value("warehouseId"))
	assert.Equal(t, "8", f.Value("supplierId"))
	assert.Equal(t, "Aprovado", f.Value("status"))
	assert.Equal(t, "MAN", f.Value("marca"))

	built, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, r.ID, built.ID)
	assert.Equal(t, r.Details, built.Details)
	assert.Equal(t, &supplier, built.SupplierID)
}

func TestForm_CloneIsIndependent(t *testing.T) {
	f := requisitionservice.NewForm()
	f.Apply(map[string]string{"categoria": string(domain.CategoriaAquisicao)})
	f.Apply(map[string]string{"finalidade": "Stock"})

	c := f.Clone()
	f.Apply(map[string]string{"finalidade": "Outro"})

	assert.Equal(t, "Stock", c.Value("finalidade"))
}

func TestFilter(t *testing.T) {
	list := []domain.Requisition{
		{ID: 1, Numero: "R-001", Departamento: "Oficina", Status: domain.StatusPendente, Categoria: domain.CategoriaReparacao},
		{ID: 2, Numero: "R-002", Departamento: "Armazém", Status: domain.StatusAprovado, Categoria: domain.CategoriaAquisicao,
			Warehouse: &domain.Ref{ID: 1, Nome: "Central"}},
	}

	assert.Len(t, requisitionservice.Filter(list, requisitionservice.ListQuery{}), 2)
	assert.Equal(t, int64(1), requisitionservice.Filter(list, requisitionservice.ListQuery{Q: "oficina"})[0].ID)
	assert.Equal(t, int64(2), requisitionservice.Filter(list, requisitionservice.ListQuery{Q: "central"})[0].ID)
	assert.Empty(t, requisitionservice.Filter(list, requisitionservice.ListQuery{Status: domain.StatusCancelado}))
	assert.Len(t, requisitionservice.Filter(list, requisitionservice.ListQuery{Categoria: domain.CategoriaAquisicao}), 1)
}
