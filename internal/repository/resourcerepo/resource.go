package resourcerepo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/apiclient"
	"drive360/internal/pkg/logger"
)

// Caminhos dos recursos geridos pelo ecrã genérico.
const (
	PathWarehouses = "/warehouses"
	PathSuppliers  = "/suppliers"
	PathUsers      = "/users"
)

// Client é a parte do cliente REST usada pelo repositório.
type Client interface {
	Do(ctx context.Context, method, path, token string, body, out any) error
}

// Record é um registo genérico. Os números mantêm-se como json.Number.
type Record map[string]any

// ResourceRepository implementa list/create/update/delete sobre um caminho do servidor,
// e as leituras tipadas de armazéns e fornecedores usadas pelo formulário de requisições.
type ResourceRepository struct {
	client Client
	logger logger.Logger
}

// NewResourceRepository cria e retorna uma nova instância do repositório genérico.
func NewResourceRepository(client Client, logger logger.Logger) *ResourceRepository {
	return &ResourceRepository{client: client, logger: logger}
}

// List busca todos os registos do recurso.
func (r *ResourceRepository) List(ctx context.Context, token, path string) ([]Record, error) {
	r.logger.Debug("Iniciando List no repositório de recursos.", map[string]interface{}{"path": path})

	var raw []json.RawMessage
	if err := r.client.Do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, apperror.NewInternalError("registo inválido do servidor", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create cria um registo.
func (r *ResourceRepository) Create(ctx context.Context, token, path string, payload map[string]any) error {
	r.logger.Debug("Iniciando Create no repositório de recursos.", map[string]interface{}{"path": path})

	if err := r.client.Do(ctx, http.MethodPost, path, token, payload, nil); err != nil {
		return err
	}
	r.logger.Info("Registo criado no servidor.", map[string]interface{}{"path": path})
	return nil
}

// Update atualiza um registo.
func (r *ResourceRepository) Update(ctx context.Context, token, path string, id int64, payload map[string]any) error {
	r.logger.Debug("Iniciando Update no repositório de recursos.", map[string]interface{}{"path": path, "id": id})

	if err := r.client.Do(ctx, http.MethodPut, apiclient.ResourcePath(path, id), token, payload, nil); err != nil {
		return err
	}
	r.logger.Info("Registo atualizado no servidor.", map[string]interface{}{"path": path, "id": id})
	return nil
}

// Delete remove um registo.
func (r *ResourceRepository) Delete(ctx context.Context, token, path string, id int64) error {
	r.logger.Debug("Iniciando Delete no repositório de recursos.", map[string]interface{}{"path": path, "id": id})

	if err := r.client.Do(ctx, http.MethodDelete, apiclient.ResourcePath(path, id), token, nil, nil); err != nil {
		return err
	}
	r.logger.Info("Registo excluído no servidor.", map[string]interface{}{"path": path, "id": id})
	return nil
}

// Warehouses busca os armazéns para o select do formulário.
func (r *ResourceRepository) Warehouses(ctx context.Context, token string) ([]domain.Warehouse, error) {
	var out []domain.Warehouse
	if err := r.client.Do(ctx, http.MethodGet, PathWarehouses, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Suppliers busca os fornecedores para o select do formulário.
func (r *ResourceRepository) Suppliers(ctx context.Context, token string) ([]domain.Supplier, error) {
	var out []domain.Supplier
	if err := r.client.Do(ctx, http.MethodGet, PathSuppliers, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
