package sessionrepo

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"drive360/internal/domain"
)

// Nomes dos campos guardados por sessão.
const (
	fieldToken = "token"
	fieldPapel = "papel"
	fieldNome  = "nome"
)

// Key deriva a chave de armazenamento a partir do id da sessão (BLAKE2b-256 em hex).
// O id em claro só existe no cookie assinado.
func Key(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

func toFields(s domain.Session) map[string]string {
	return map[string]string{
		fieldToken: s.Token,
		fieldPapel: string(s.Role),
		fieldNome:  s.DisplayName,
	}
}

// fromFields reconstrói a sessão. partial indica que havia alguns campos mas não todos.
func fromFields(fields map[string]string) (s domain.Session, partial bool) {
	if len(fields) == 0 {
		return domain.AnonymousSession, false
	}
	role, ok := domain.ParseRole(fields[fieldPapel])
	if !ok {
		return domain.AnonymousSession, true
	}
	s = domain.NewSession(fields[fieldToken], role, fields[fieldNome])
	return s, !s.Authenticated()
}
