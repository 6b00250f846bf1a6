package resourceservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/repository/resourcerepo"
	"drive360/internal/service/resourceservice"
)

// MockResourceRepository é uma implementação mock da interface ResourceRepository.
type MockResourceRepository struct {
	mock.Mock
}

func (m *MockResourceRepository) List(ctx context.Context, token, path string) ([]resourcerepo.Record, error) {
	args := m.Called(ctx, token, path)
	return args.Get(0).([]resourcerepo.Record), args.Error(1)
}

func (m *MockResourceRepository) Create(ctx context.Context, token, path string, payload map[string]any) error {
	return m.Called(ctx, token, path, payload).Error(0)
}

func (m *MockResourceRepository) Update(ctx context.Context, token, path string, id int64, payload map[string]any) error {
	return m.Called(ctx, token, path, id, payload).Error(0)
}

func (m *MockResourceRepository) Delete(ctx context.Context, token, path string, id int64) error {
	return m.Called(ctx, token, path, id).Error(0)
}

var admin = domain.NewSession("tok", domain.RoleAdmin, "Ana")

func TestList_RowsAndSearch(t *testing.T) {
	repo := new(MockResourceRepository)
	svc := resourceservice.NewService(repo, logger.Nop())
	repo.On("List", mock.Anything, "tok", "/warehouses").Return([]resourcerepo.Record{
		{"id": json.Number("2"), "nome": "Norte", "codigo": "N1"},
		{"id": json.Number("1"), "nome": "Central", "codigo": json.Number("100")},
	}, nil)

	rows, err := svc.List(context.Background(), admin, resourceservice.Warehouses, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, "100", rows[0].Values["codigo"])

	rows, err = svc.List(context.Background(), admin, resourceservice.Warehouses, "nor")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Norte", rows[0].Values["nome"])

	row, err := svc.Find(context.Background(), admin, resourceservice.Warehouses, 2)
	require.NoError(t, err)
	assert.Equal(t, "N1", row.Values["codigo"])

	_, err = svc.Find(context.Background(), admin, resourceservice.Warehouses, 99)
	var nf *apperror.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUsers_SecretIsNotAColumn(t *testing.T) {
	for _, c := range resourceservice.Users.Columns() {
		assert.NotEqual(t, "senha", c.Name)
	}
}

func TestSave_CreateValidates(t *testing.T) {
	repo := new(MockResourceRepository)
	svc := resourceservice.NewService(repo, logger.Nop())

	err := svc.Save(context.Background(), admin, resourceservice.Users, 0, map[string]string{
		"nome": "Rui", "email": "rui", "papel": "root",
	})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Email inválido.", fields["email"])
	assert.Equal(t, "Campo obrigatório.", fields["senha"])
	assert.Equal(t, "Selecione uma opção válida.", fields["papel"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSave_CreateOmitsEmptyOptional(t *testing.T) {
	repo := new(MockResourceRepository)
	svc := resourceservice.NewService(repo, logger.Nop())
	repo.On("Create", mock.Anything, "tok", "/suppliers", map[string]any{
		"nome": "Fixa", "email": "geral@fixa.pt",
	}).Return(nil).Once()

	err := svc.Save(context.Background(), admin, resourceservice.Suppliers, 0, map[string]string{
		"nome": "Fixa", "email": "geral@fixa.pt", "telefone": " ",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSave_UpdateKeepsEmptySecret(t *testing.T) {
	repo := new(MockResourceRepository)
	svc := resourceservice.NewService(repo, logger.Nop())
	repo.On("Update", mock.Anything, "tok", "/users", int64(4), map[string]any{
		"nome": "Rui", "email": "rui@x.pt", "papel": "admin",
	}).Return(nil).Once()

	err := svc.Save(context.Background(), admin, resourceservice.Users, 4, map[string]string{
		"nome": "Rui", "email": "rui@x.pt", "papel": "admin", "senha": "",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDelete_PropagatesError(t *testing.T) {
	repo := new(MockResourceRepository)
	svc := resourceservice.NewService(repo, logger.Nop())
	repo.On("Delete", mock.Anything, "tok", "/warehouses", int64(3)).Return(errors.New("boom")).Once()

	assert.Error(t, svc.Delete(context.Background(), admin, resourceservice.Warehouses, 3))
}
