package resourceservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
	"drive360/internal/repository/resourcerepo"
)

// ResourceRepository define o contrato que o serviço espera do servidor REST.
type ResourceRepository interface {
	List(ctx context.Context, token, path string) ([]resourcerepo.Record, error)
	Create(ctx context.Context, token, path string, payload map[string]any) error
	Update(ctx context.Context, token, path string, id int64, payload map[string]any) error
	Delete(ctx context.Context, token, path string, id int64) error
}

// Row é um registo pronto a apresentar.
type Row struct {
	ID     int64
	Values map[string]string
}

// Service implementa o ecrã genérico de recursos (armazéns, fornecedores, usuários).
type Service struct {
	repo     ResourceRepository
	validate *validator.Validate
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do serviço de recursos.
func NewService(repo ResourceRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, validate: validator.New(), logger: logger}
}

// List busca os registos e aplica a pesquisa textual q sobre as colunas visíveis.
func (s *Service) List(ctx context.Context, sess domain.Session, spec Spec, q string) ([]Row, error) {
	records, err := s.repo.List(ctx, sess.Token, spec.Path)
	if err != nil {
		s.logger.Warn("Falha ao carregar recurso.", map[string]interface{}{"resource": spec.Key, "error": err.Error()})
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q))
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := toRow(spec, rec)
		if needle != "" && !rowMatches(row, needle) {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

// Find devolve um registo pelo id, a partir da lista do servidor.
func (s *Service) Find(ctx context.Context, sess domain.Session, spec Spec, id int64) (Row, error) {
	rows, err := s.List(ctx, sess, spec, "")
	if err != nil {
		return Row{}, err
	}
	for _, r := range rows {
		if r.ID == id {
			return r, nil
		}
	}
	return Row{}, apperror.NewNotFoundError(fmt.Sprintf("%s %d", spec.Singular, id))
}

// Save valida e cria (id 0) ou atualiza um registo.
func (s *Service) Save(ctx context.Context, sess domain.Session, spec Spec, id int64, values map[string]string) error {
	creating := id == 0
	failures := make(map[string]string)
	payload := make(map[string]any, len(spec.Fields))

	for _, f := range spec.Fields {
		v := strings.TrimSpace(values[f.Name])
		if f.Secret && !creating && v == "" {
			continue
		}
		if err := s.validate.Var(v, f.Rules); err != nil {
			failures[f.Name] = fieldMessage(err)
			continue
		}
		if v == "" && creating {
			continue
		}
		payload[f.Name] = v
	}
	if len(failures) > 0 {
		return apperror.NewFieldValidationError(failures)
	}

	var err error
	if creating {
		err = s.repo.Create(ctx, sess.Token, spec.Path, payload)
	} else {
		err = s.repo.Update(ctx, sess.Token, spec.Path, id, payload)
	}
	if err != nil {
		s.logger.Warn("Falha ao gravar recurso.", map[string]interface{}{"resource": spec.Key, "id": id, "error": err.Error()})
		return err
	}
	s.logger.Info("Recurso gravado.", map[string]interface{}{"resource": spec.Key, "id": id})
	return nil
}

// Delete remove um registo.
func (s *Service) Delete(ctx context.Context, sess domain.Session, spec Spec, id int64) error {
	if err := s.repo.Delete(ctx, sess.Token, spec.Path, id); err != nil {
		s.logger.Warn("Falha ao excluir recurso.", map[string]interface{}{"resource": spec.Key, "id": id, "error": err.Error()})
		return err
	}
	s.logger.Info("Recurso excluído.", map[string]interface{}{"resource": spec.Key, "id": id})
	return nil
}

func toRow(spec Spec, rec resourcerepo.Record) Row {
	row := Row{Values: make(map[string]string, len(spec.Fields))}
	if n, ok := rec["id"].(json.Number); ok {
		row.ID, _ = n.Int64()
	}
	for _, f := range spec.Columns() {
		switch v := rec[f.Name].(type) {
		case nil:
			row.Values[f.Name] = ""
		case string:
			row.Values[f.Name] = v
		default:
			row.Values[f.Name] = fmt.Sprint(v)
		}
	}
	return row
}

func rowMatches(r Row, needle string) bool {
	for _, v := range r.Values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func fieldMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Valor inválido."
	}
	switch verrs[0].Tag() {
	case "required":
		return "Campo obrigatório."
	case "email":
		return "Email inválido."
	case "min":
		return fmt.Sprintf("Mínimo de %s caracteres.", verrs[0].Param())
	case "len":
		return fmt.Sprintf("Deve ter %s caracteres.", verrs[0].Param())
	case "numeric":
		return "Deve ser um número."
	case "oneof":
		return "Selecione uma opção válida."
	default:
		return "Valor demasiado longo."
	}
}
