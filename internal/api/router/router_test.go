package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive360/internal/api/auth"
	"drive360/internal/api/dashboard"
	"drive360/internal/api/requisition"
	"drive360/internal/api/resource"
	"drive360/internal/api/router"
	"drive360/internal/pkg/apiclient"
	"drive360/internal/pkg/logger"
	"drive360/internal/pkg/middleware"
	"drive360/internal/pkg/token"
	"drive360/internal/repository/requisitionrepo"
	"drive360/internal/repository/resourcerepo"
	"drive360/internal/repository/sessionrepo"
	"drive360/internal/service/requisitionservice"
	"drive360/internal/service/resourceservice"
	"drive360/internal/service/sessionservice"
	"drive360/internal/web"
)

// fakeUpstream simula o servidor REST do Drive360.
type fakeUpstream struct {
	mu           sync.Mutex
	calls        map[string]int
	created      []map[string]any
	rejectTokens map[string]bool
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{calls: make(map[string]int), rejectTokens: make(map[string]bool)}
}

func (f *fakeUpstream) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeUpstream) reject(token string) {
	f.mu.Lock()
	f.rejectTokens[token] = true
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.calls[key]++
	rejected := f.rejectTokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	f.mu.Unlock()

	if r.URL.Path == "/api/v1/auth/login" {
		var body struct{ Email, Senha string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case body.Email == "ana@drive360.pt" && body.Senha == "segredo":
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-admin", "user": map[string]any{"id": 1, "nome": "Ana", "papel": "admin"}})
		case body.Email == "rui@drive360.pt" && body.Senha == "segredo":
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-user", "user": map[string]any{"id": 2, "nome": "Rui", "papel": "usuario"}})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Credenciais inválidas"})
		}
		return
	}

	if rejected {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expirado"})
		return
	}

	switch key {
	case "GET /api/v1/requests":
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "numero": "REQ-1", "categoria": "Reparação/Manutenção", "warehouseId": 1, "departamento": "Oficina", "status": "Pendente", "marca": "Volvo", "Warehouse": map[string]any{"id": 1, "nome": "Central"}},
			{"id": 2, "numero": 2, "categoria": "Aquisição de Material", "warehouseId": 1, "departamento": "Compras", "status": "Aprovado", "descricaoMaterial": "Pneus"},
		})
	case "POST /api/v1/requests":
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.created = append(f.created, payload)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "numero": "REQ-3"})
	case "GET /api/v1/warehouses":
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "nome": "Central", "codigo": "C1"}})
	case "GET /api/v1/suppliers":
		writeJSON(w, http.StatusOK, []map[string]any{})
	case "GET /api/v1/users":
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "nome": "Ana", "email": "ana@drive360.pt", "papel": "admin"}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "não encontrado"})
	}
}

type testEnv struct {
	handler  http.Handler
	store    *sessionrepo.MemoryStore
	upstream *fakeUpstream
}

func newTestEnv(t *testing.T, configure ...func(*router.Options)) *testEnv {
	t.Helper()
	log := logger.Nop()

	up := newFakeUpstream()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	api, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, log)
	require.NoError(t, err)

	store := sessionrepo.NewMemoryStore(0)
	sessions := sessionservice.NewService(store, api, token.NewService(strings.Repeat("k", 32), 0), log)

	requisitions := requisitionrepo.NewRequisitionRepository(api, log)
	resources := resourcerepo.NewResourceRepository(api, log)
	ws := requisitionservice.NewWorkspace(requisitions, resources, log)
	sessions.OnEnd(ws.Drop)

	renderer, err := web.NewRenderer(log)
	require.NoError(t, err)

	cookie := middleware.CookieConfig{Name: "drive360_session"}
	opts := router.Options{
		Sessions:       sessions,
		Cookie:         cookie,
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
		Logger:         log,
		AccessLog:      zerolog.Nop(),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h := router.NewRouter(router.Handlers{
		Auth:        auth.NewHandler(sessions, renderer, cookie, log),
		Dashboard:   dashboard.NewHandler(renderer, log),
		Requisition: requisition.NewHandler(ws, sessions, renderer, cookie, log),
		Resource:    resource.NewHandler(resourceservice.NewService(resources, log), sessions, renderer, cookie, log),
	}, opts)

	return &testEnv{handler: h, store: store, upstream: up}
}

func (e *testEnv) do(method, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := e.do(http.MethodPost, "/login", nil, url.Values{"email": {email}, "senha": {"segredo"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == "drive360_session" {
			return c
		}
	}
	t.Fatal("cookie de sessão não emitido")
	return nil
}

func document(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestGuard_AnonymousGoesToLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/dashboard", "/requests", "/requests/new", "/warehouses", "/users"} {
		rec := env.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestGuard_UserOnAdminRouteGoesToDashboard(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "rui@drive360.pt")

	for _, path := range []string{"/warehouses", "/suppliers", "/users"} {
		rec := env.do(http.MethodGet, path, cookie, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"), path)
	}
	assert.Zero(t, env.upstream.count("GET /api/v1/users"))
}

func TestLogin_FailureKeepsNoSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/login", nil, url.Values{"email": {"ana@drive360.pt"}, "senha": {"errada"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, sessionservice.MsgInvalidCredentials, strings.TrimSpace(document(t, rec).Find("#login-error").Text()))
	assert.Zero(t, env.store.Len())
}

func TestLoginThrottle_ProxyHeadersOnlyWhenTrusted(t *testing.T) {
	cases := []struct {
		name       string
		trustProxy bool
		second     int
	}{
		{"sem proxy confiável o cabeçalho é ignorado", false, http.StatusTooManyRequests},
		{"atrás de proxy cada IP tem o seu limite", true, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, func(o *router.Options) {
				o.TrustProxy = tc.trustProxy
				o.LoginThrottle = middleware.NewLoginThrottle(0.001, 1)
			})

			codes := make([]int, 0, 2)
			for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
				form := url.Values{"email": {"ana@drive360.pt"}, "senha": {"errada"}}
				req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.Header.Set("X-Real-IP", ip)
				rec := httptest.NewRecorder()
				env.handler.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
			}

			assert.Equal(t, []int{http.StatusUnauthorized, tc.second}, codes)
		})
	}
}

func TestLoginPage_AuthenticatedGoesToDashboard(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "ana@drive360.pt")

	rec := env.do(http.MethodGet, "/", cookie, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestDashboard_RoleFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/dashboard", env.login(t, "rui@drive360.pt"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	assert.Equal(t, 1, doc.Find(`[data-card="requests"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-card="new-request"]`).Length())
	assert.Zero(t, doc.Find(`[data-card="warehouses"]`).Length())
	assert.Zero(t, doc.Find(`[data-nav="users"]`).Length())
	assert.Contains(t, doc.Find(".greeting").Text(), "Rui")

	rec = env.do(http.MethodGet, "/dashboard", env.login(t, "ana@drive360.pt"), nil)
	doc = document(t, rec)
	assert.Equal(t, 1, doc.Find(`[data-card="warehouses"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-nav="users"]`).Length())
}

func TestRequests_ListShowsAdminControlsOnlyToAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/requests?reload=1", env.login(t, "rui@drive360.pt"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	assert.Equal(t, 2, doc.Find("#requests tbody tr[data-id]").Length())
	assert.Zero(t, doc.Find("#requests .edit").Length())
	assert.Zero(t, doc.Find("#requests form.delete").Length())

	rec = env.do(http.MethodGet, "/requests?reload=1&q=compras", env.login(t, "ana@drive360.pt"), nil)
	doc = document(t, rec)
	assert.Equal(t, 1, doc.Find("#requests tbody tr[data-id]").Length())
	assert.Equal(t, 1, doc.Find("#requests .edit").Length())
}

func TestRequests_ListIsCachedUntilReload(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "ana@drive360.pt")

	env.do(http.MethodGet, "/requests?reload=1", cookie, nil)
	env.do(http.MethodGet, "/requests", cookie, nil)
	assert.Equal(t, 1, env.upstream.count("GET /api/v1/requests"))

	env.do(http.MethodGet, "/requests?reload=1", cookie, nil)
	assert.Equal(t, 2, env.upstream.count("GET /api/v1/requests"))
}

func TestRequests_NonAdminEditIsSuppressed(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "rui@drive360.pt")

	rec := env.do(http.MethodGet, "/requests/edit/1", cookie, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/requests", rec.Header().Get("Location"))
	assert.Zero(t, env.upstream.count("GET /api/v1/requests/1"))

	rec = env.do(http.MethodGet, "/requests", cookie, nil)
	assert.Zero(t, document(t, rec).Find(".notice").Length(), "a supressão não mostra mensagem")
}

func TestRequests_CreateFlow(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "ana@drive360.pt")
	env.do(http.MethodGet, "/requests?reload=1", cookie, nil)

	rec := env.do(http.MethodGet, "/requests/new", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	assert.Equal(t, "Central", doc.Find(`select[name="warehouseId"] option[value="1"]`).Text())
	assert.Zero(t, doc.Find(`[name="descricaoMaterial"]`).Length())

	// Trocar a categoria mostra só os campos da variante escolhida.
	rec = env.do(http.MethodPost, "/requests/new", cookie, url.Values{
		"_action":      {"switch"},
		"warehouseId":  {"1"},
		"categoria":    {"Aquisição de Material"},
		"departamento": {"Oficina"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	doc = document(t, rec)
	assert.Equal(t, 1, doc.Find(`[name="descricaoMaterial"]`).Length())
	assert.Zero(t, doc.Find(`[name="marca"]`).Length())
	val, _ := doc.Find(`input[name="departamento"]`).Attr("value")
	assert.Equal(t, "Oficina", val)

	// Falta de campo obrigatório: nenhuma chamada de rede.
	rec = env.do(http.MethodPost, "/requests/new", cookie, url.Values{
		"warehouseId": {"1"}, "categoria": {"Aquisição de Material"}, "departamento": {""},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Campo obrigatório.", strings.TrimSpace(document(t, rec).Find(`[data-field="departamento"] .error`).Text()))
	assert.Zero(t, env.upstream.count("POST /api/v1/requests"))

	rec = env.do(http.MethodPost, "/requests/new", cookie, url.Values{
		"warehouseId":       {"1"},
		"categoria":         {"Aquisição de Material"},
		"departamento":      {"Oficina"},
		"descricaoMaterial": {"Parafusos"},
		"finalidade":        {""},
		"supplierId":        {""},
		"status":            {"Pendente"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/requests", rec.Header().Get("Location"))

	require.Len(t, env.upstream.created, 1)
	assert.Equal(t, map[string]any{
		"categoria":         "Aquisição de Material",
		"warehouseId":       float64(1),
		"departamento":      "Oficina",
		"status":            "Pendente",
		"descricaoMaterial": "Parafusos",
	}, env.upstream.created[0])

	// A lista é lida de novo depois da criação e a notificação aparece uma vez.
	rec = env.do(http.MethodGet, "/requests", cookie, nil)
	assert.Equal(t, 2, env.upstream.count("GET /api/v1/requests"))
	assert.Equal(t, "Requisição criada com sucesso.", document(t, rec).Find(".notice-success").Text())

	rec = env.do(http.MethodGet, "/requests", cookie, nil)
	assert.Zero(t, document(t, rec).Find(".notice").Length())
}

func TestUpstream401_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "ana@drive360.pt")
	require.Equal(t, 1, env.store.Len())
	env.upstream.reject("tok-admin")

	rec := env.do(http.MethodGet, "/requests?reload=1", cookie, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge)
	assert.Zero(t, env.store.Len())

	rec = env.do(http.MethodGet, "/dashboard", cookie, nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "rui@drive360.pt")

	rec := env.do(http.MethodPost, "/logout", cookie, url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, env.store.Len())
	assert.Equal(t, "/", env.do(http.MethodGet, "/dashboard", cookie, nil).Header().Get("Location"))
}

func TestResources_AdminSeesUsers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/users", env.login(t, "ana@drive360.pt"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	assert.Equal(t, 1, doc.Find("#resources tbody tr[data-id]").Length())
	assert.Zero(t, doc.Find(`#resources th:contains("Senha")`).Length())
}

func TestUnknownRouteAndPing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/nao-existe", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.do(http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, "pong", rec.Body.String())

	rec = env.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
