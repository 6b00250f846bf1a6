package domain

import "strings"

// User representa uma conta de utilizador gerida pelo servidor upstream.
type User struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Papel string `json:"papel"`
}

// UserRole é o papel grosso usado pela consola para decidir rotas e affordances.
type UserRole string

// Apenas "admin" é tratado de forma especial; qualquer outro papel do servidor é "user".
const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// ParseRole normaliza o papel devolvido pelo servidor.
// Um papel vazio não é válido e devolve ok=false.
func ParseRole(papel string) (UserRole, bool) {
	p := strings.TrimSpace(papel)
	if p == "" {
		return "", false
	}
	if strings.EqualFold(p, string(RoleAdmin)) {
		return RoleAdmin, true
	}
	return RoleUser, true
}

// RoleSet é um conjunto de papéis. O valor nil significa "conjunto ausente",
// que é diferente de um conjunto presente mas vazio.
type RoleSet map[UserRole]struct{}

// Roles constrói um conjunto presente (nunca nil), mesmo sem argumentos.
func Roles(roles ...UserRole) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has informa se o papel pertence ao conjunto.
func (s RoleSet) Has(role UserRole) bool {
	_, ok := s[role]
	return ok
}

// Present distingue um conjunto fornecido (mesmo vazio) de um conjunto ausente.
func (s RoleSet) Present() bool {
	return s != nil
}
