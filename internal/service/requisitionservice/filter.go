package requisitionservice

import (
	"strings"

	"drive360/internal/domain"
)

// ListQuery são os filtros da lista de requisições.
type ListQuery struct {
	Q         string           `form:"q"`
	Status    domain.Status    `form:"status"`
	Categoria domain.Categoria `form:"categoria"`
	Reload    bool             `form:"reload"`
}

// Filter aplica a pesquisa textual (numero, departamento, estado, categoria,
// armazém) e os filtros exatos de estado e categoria.
func Filter(list []domain.Requisition, q ListQuery) []domain.Requisition {
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]domain.Requisition, 0, len(list))
	for _, r := range list {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.Categoria != "" && r.Categoria != q.Categoria {
			continue
		}
		if needle != "" && !matches(r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r domain.Requisition, needle string) bool {
	haystack := []string{r.Numero, r.Departamento, string(r.Status), string(r.Categoria)}
	if r.Warehouse != nil {
		haystack = append(haystack, r.Warehouse.Nome)
	}
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
