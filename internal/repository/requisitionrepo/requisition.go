package requisitionrepo

import (
	"context"
	"net/http"

	"drive360/internal/domain"
	"drive360/internal/pkg/apiclient"
	"drive360/internal/pkg/logger"
)

const basePath = "/requests"

// Client é a parte do cliente REST usada pelo repositório.
type Client interface {
	Do(ctx context.Context, method, path, token string, body, out any) error
}

// RequisitionRepository implementa as operações CRUD de requisições sobre o servidor REST.
type RequisitionRepository struct {
	client Client
	logger logger.Logger
}

// NewRequisitionRepository cria e retorna uma nova instância do Repositório de Requisições.
func NewRequisitionRepository(client Client, logger logger.Logger) *RequisitionRepository {
	return &RequisitionRepository{client: client, logger: logger}
}

// List busca todas as requisições, com as referências desnormalizadas.
func (r *RequisitionRepository) List(ctx context.Context, token string) ([]domain.Requisition, error) {
	r.logger.Debug("Iniciando List no repositório de requisições.", nil)

	var out []domain.Requisition
	if err := r.client.Do(ctx, http.MethodGet, basePath, token, nil, &out); err != nil {
		return nil, err
	}

	r.logger.Debug("Requisições carregadas.", map[string]interface{}{"count": len(out)})
	return out, nil
}

// Get busca uma requisição pelo ID.
func (r *RequisitionRepository) Get(ctx context.Context, token string, id int64) (domain.Requisition, error) {
	r.logger.Debug("Iniciando Get no repositório de requisições.", map[string]interface{}{"id": id})

	var out domain.Requisition
	if err := r.client.Do(ctx, http.MethodGet, apiclient.ResourcePath(basePath, id), token, nil, &out); err != nil {
		return domain.Requisition{}, err
	}
	return out, nil
}

// Create envia uma nova requisição. O servidor atribui id, numero e createdAt.
func (r *RequisitionRepository) Create(ctx context.Context, token string, payload map[string]any) (domain.Requisition, error) {
	r.logger.Debug("Iniciando Create no repositório de requisições.", map[string]interface{}{"categoria": payload[domain.FieldCategoria]})

	var out domain.Requisition
	if err := r.client.Do(ctx, http.MethodPost, basePath, token, payload, &out); err != nil {
		return domain.Requisition{}, err
	}

	r.logger.Info("Requisição criada no servidor.", map[string]interface{}{"id": out.ID, "numero": out.Numero})
	return out, nil
}

// Update atualiza uma requisição existente.
func (r *RequisitionRepository) Update(ctx context.Context, token string, id int64, payload map[string]any) (domain.Requisition, error) {
	r.logger.Debug("Iniciando Update no repositório de requisições.", map[string]interface{}{"id": id})

	var out domain.Requisition
	if err := r.client.Do(ctx, http.MethodPut, apiclient.ResourcePath(basePath, id), token, payload, &out); err != nil {
		return domain.Requisition{}, err
	}

	r.logger.Info("Requisição atualizada no servidor.", map[string]interface{}{"id": id})
	return out, nil
}

// Delete remove uma requisição.
func (r *RequisitionRepository) Delete(ctx context.Context, token string, id int64) error {
	r.logger.Debug("Iniciando Delete no repositório de requisições.", map[string]interface{}{"id": id})

	if err := r.client.Do(ctx, http.MethodDelete, apiclient.ResourcePath(basePath, id), token, nil, nil); err != nil {
		return err
	}

	r.logger.Info("Requisição excluída no servidor.", map[string]interface{}{"id": id})
	return nil
}
