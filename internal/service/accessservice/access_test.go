package accessservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drive360/internal/domain"
	"drive360/internal/service/accessservice"
)

var (
	anon  = domain.AnonymousSession
	admin = domain.NewSession("t", domain.RoleAdmin, "Ana")
	user  = domain.NewSession("t", domain.RoleUser, "Rui")

	partials = []domain.Session{
		{Token: "t", Role: domain.RoleAdmin},
		{Token: "t", DisplayName: "Ana"},
		{Role: domain.RoleAdmin, DisplayName: "Ana"},
	}

	roleSets = map[string]domain.RoleSet{
		"ausente":    nil,
		"vazio":      domain.Roles(),
		"admin":      domain.Roles(domain.RoleAdmin),
		"user":       domain.Roles(domain.RoleUser),
		"admin+user": domain.Roles(domain.RoleAdmin, domain.RoleUser),
	}
)

func TestGuard_AnonymousAlwaysGoesToLogin(t *testing.T) {
	for name, set := range roleSets {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, accessservice.Decision{Redirect: "/"}, accessservice.Guard(anon, set))
			for _, p := range partials {
				assert.Equal(t, "/", accessservice.Guard(p, set).Redirect)
			}
		})
	}
}

func TestGuard_EmptyRequirementAllowsAnyAuthenticated(t *testing.T) {
	for _, s := range []domain.Session{admin, user} {
		assert.True(t, accessservice.Guard(s, nil).Allow)
		assert.True(t, accessservice.Guard(s, domain.Roles()).Allow)
	}
}

func TestGuard_RoleMismatchGoesToDashboard(t *testing.T) {
	d := accessservice.Guard(user, domain.Roles(domain.RoleAdmin))

	assert.False(t, d.Allow)
	assert.Equal(t, "/dashboard", d.Redirect)
	assert.Equal(t, "dashboard", d.Label())
}

func TestGuard_RoleMember(t *testing.T) {
	assert.True(t, accessservice.Guard(admin, domain.Roles(domain.RoleAdmin)).Allow)
	assert.True(t, accessservice.Guard(user, domain.Roles(domain.RoleAdmin, domain.RoleUser)).Allow)
	assert.Equal(t, "allow", accessservice.Guard(admin, nil).Label())
}

func TestFilter_AbsentSetIsAlwaysVisible(t *testing.T) {
	for _, s := range append([]domain.Session{anon, admin, user}, partials...) {
		assert.True(t, accessservice.Filter(s, nil))
	}
}

func TestFilter_PresentSetRequiresMembership(t *testing.T) {
	assert.True(t, accessservice.Filter(admin, domain.Roles(domain.RoleAdmin)))
	assert.False(t, accessservice.Filter(user, domain.Roles(domain.RoleAdmin)))
	assert.False(t, accessservice.Filter(admin, domain.Roles()))
	assert.False(t, accessservice.Filter(anon, domain.Roles(domain.RoleAdmin, domain.RoleUser)))
}

// Guard e Filter concordam para qualquer conjunto não vazio.
func TestGuardAndFilterAgree(t *testing.T) {
	sessions := append([]domain.Session{anon, admin, user}, partials...)
	for name, set := range roleSets {
		if len(set) == 0 {
			continue
		}
		for _, s := range sessions {
			assert.Equal(t, accessservice.Filter(s, set), accessservice.Guard(s, set).Allow, name)
		}
	}
}
