package domain

// Session é a identidade autenticada mantida pela consola: token do servidor,
// papel e nome de apresentação. Os três campos existem juntos ou nenhum existe.
type Session struct {
	Token       string
	Role        UserRole
	DisplayName string
}

// AnonymousSession é o valor usado sempre que não há sessão completa.
var AnonymousSession = Session{}

// NewSession valida os três campos e devolve anónimo se algum faltar.
func NewSession(token string, role UserRole, displayName string) Session {
	s := Session{Token: token, Role: role, DisplayName: displayName}
	if !s.Authenticated() {
		return AnonymousSession
	}
	return s
}

// Authenticated é verdadeiro apenas quando os três campos estão preenchidos.
// Estados parciais são anónimos.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Role != "" && s.DisplayName != ""
}

// IsAdmin devolve true para uma sessão autenticada com papel admin.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}
