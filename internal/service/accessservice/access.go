package accessservice

import "drive360/internal/domain"

// Destinos de redirecionamento do guarda.
const (
	LoginPath     = "/"
	DashboardPath = "/dashboard"
)

// Decision é o resultado do guarda: permitir ou redirecionar.
type Decision struct {
	Allow    bool
	Redirect string
}

// Allowed é a decisão de acesso permitido.
var Allowed = Decision{Allow: true}

// Guard decide o acesso a uma rota protegida.
// Sem sessão vai para o login; com papel fora de required (quando não vazio) vai para o dashboard.
func Guard(s domain.Session, required domain.RoleSet) Decision {
	if !s.Authenticated() {
		return Decision{Redirect: LoginPath}
	}
	if len(required) > 0 && !required.Has(s.Role) {
		return Decision{Redirect: DashboardPath}
	}
	return Allowed
}

// Filter decide se um elemento da página é mostrado. Nunca redireciona.
// Um conjunto ausente mostra sempre; um conjunto presente exige sessão e papel membro.
func Filter(s domain.Session, allowed domain.RoleSet) bool {
	if !allowed.Present() {
		return true
	}
	if !s.Authenticated() {
		return false
	}
	return allowed.Has(s.Role)
}

// Label devolve o resultado para métricas e logs.
func (d Decision) Label() string {
	switch {
	case d.Allow:
		return "allow"
	case d.Redirect == LoginPath:
		return "login"
	default:
		return "dashboard"
	}
}
