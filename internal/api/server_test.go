package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/identity"
	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/database"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/pairing"
	"github.com/nerrad567/homelink-core/internal/realtime"
	"github.com/nerrad567/homelink-core/internal/token"
	_ "github.com/nerrad567/homelink-core/migrations"
)

const (
	testAdminUser = "admin"
	testAdminPass = "correct horse battery staple"
	testJWTSecret = "test-secret-key-at-least-32-characters-long"
)

// testServer wires a Server over a real migrated SQLite database. The
// returned db handle lets tests seed rows directly.
func testServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	hdb, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := hdb.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { hdb.Close() })
	db := hdb.DB

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	sessions := pairing.NewSessionRepository(db)
	clients := pairing.NewClientRepository(db)
	tokens := pairing.NewTokenRepository(db)
	areas := area.NewRepository(db)
	tokenSvc := token.NewService(testJWTSecret, 12, 24)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(realtime.DispatcherDeps{
		Registry: registry,
		Areas:    clients,
		Logger:   log,
	})
	t.Cleanup(registry.CloseAll)

	mgr := pairing.NewManager(pairing.ManagerDeps{
		Sessions: sessions,
		Clients:  clients,
		Tokens:   tokens,
		TokenSvc: tokenSvc,
		Notifier: dispatcher,
		Config:   config.PairingConfig{Mode: config.PairingModeTwoStep, SessionTTL: 300},
		Logger:   log,
	})

	resolver := identity.NewResolver(tokenSvc, tokens, clients, testAdminUser, log)

	hash, err := identity.HashPassword(testAdminPass)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:        testJWTSecret,
				AdminTokenTTL: 12,
			},
			Admin: config.AdminConfig{
				Username:     testAdminUser,
				PasswordHash: hash,
			},
		},
		Logger:     log,
		Pairing:    mgr,
		Clients:    clients,
		Tokens:     tokens,
		Areas:      areas,
		Resolver:   resolver,
		TokenSvc:   tokenSvc,
		Registry:   registry,
		Dispatcher: dispatcher,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, db
}

// doJSON issues a request against the router and decodes the JSON body.
func doJSON(t *testing.T, router http.Handler, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal %s %s response (%d): %v\nbody: %s",
				method, path, w.Code, err, w.Body.String())
		}
	}
	return w.Code, resp
}

// adminToken logs in through the real endpoint so the whole credential
// path is exercised, not just the token service.
func adminToken(t *testing.T, router http.Handler) string {
	t.Helper()

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"`+testAdminUser+`","password":"`+testAdminPass+`"}`)
	if code != http.StatusOK {
		t.Fatalf("login status = %d, body: %v", code, resp)
	}
	tok, _ := resp["access_token"].(string)
	if tok == "" {
		t.Fatal("login response missing access_token")
	}
	return tok
}

// createArea provisions an area through the API and returns its ID.
func createArea(t *testing.T, router http.Handler, admin, name string) string {
	t.Helper()

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/areas", admin,
		`{"name":"`+name+`"}`)
	if code != http.StatusCreated {
		t.Fatalf("create area status = %d, body: %v", code, resp)
	}
	return resp["id"].(string)
}

// pairClient runs the full two-step flow and returns the client ID and
// its raw token.
func pairClient(t *testing.T, router http.Handler, admin, name string, areaIDs []string) (string, string) {
	t.Helper()

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d, body: %v", code, resp)
	}
	sessionID := resp["id"].(string)
	pin := resp["pin"].(string)

	code, resp = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/verify", "",
		`{"pin":"`+pin+`","device_name":"Test Device","device_type":"tablet"}`)
	if code != http.StatusOK {
		t.Fatalf("verify status = %d, body: %v", code, resp)
	}

	ids, err := json.Marshal(areaIDs)
	if err != nil {
		t.Fatalf("marshal area ids: %v", err)
	}
	code, resp = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/complete", admin,
		`{"name":"`+name+`","area_ids":`+string(ids)+`}`)
	if code != http.StatusOK {
		t.Fatalf("complete status = %d, body: %v", code, resp)
	}

	return resp["client_id"].(string), resp["client_token"].(string)
}

// ─── Health and Middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/health", "", "")
	if code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/areas"},
		{http.MethodPost, "/api/v1/pairing/sessions"},
		{http.MethodGet, "/api/v1/clients"},
	}
	for _, p := range paths {
		code, _ := doJSON(t, router, p.method, p.path, "", "")
		if code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", p.method, p.path, code)
		}
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "not-a-jwt", "")
	if code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", code)
	}
	if resp["code"] != "token_malformed" {
		t.Errorf("garbage token code = %v, want token_malformed", resp["code"])
	}
}

// ─── Login ─────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tok := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", tok, "")
	if code != http.StatusOK {
		t.Fatalf("me status = %d", code)
	}
	if resp["role"] != "admin" {
		t.Errorf("role = %v, want admin", resp["role"])
	}
	if resp["id"] != testAdminUser {
		t.Errorf("id = %v, want %s", resp["id"], testAdminUser)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"admin","password":"wrong"}`)
	if code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", code)
	}
	if resp["code"] != ErrCodeUnauthorized {
		t.Errorf("error code = %v, want %s", resp["code"], ErrCodeUnauthorized)
	}
}

func TestLogin_UnknownUsernameSameShape(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	codeUser, respUser := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"nobody","password":"wrong"}`)
	codePass, respPass := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"admin","password":"wrong"}`)

	if codeUser != codePass {
		t.Errorf("status differs: unknown user %d vs wrong password %d", codeUser, codePass)
	}
	ju, _ := json.Marshal(respUser)
	jp, _ := json.Marshal(respPass)
	if string(ju) != string(jp) {
		t.Errorf("body differs:\n  unknown user: %s\n  wrong password: %s", ju, jp)
	}
}

// ─── Pairing over HTTP ─────────────────────────────────────────────

func TestPairingFlow(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	areaID := createArea(t, router, admin, "Kitchen")
	clientID, clientTok := pairClient(t, router, admin, "Kitchen Panel", []string{areaID})

	// The minted credential authenticates as the new client.
	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", clientTok, "")
	if code != http.StatusOK {
		t.Fatalf("client me status = %d", code)
	}
	if resp["role"] != "client" {
		t.Errorf("role = %v, want client", resp["role"])
	}
	if resp["id"] != clientID {
		t.Errorf("id = %v, want %s", resp["id"], clientID)
	}
	areas, _ := resp["areas"].([]any)
	if len(areas) != 1 || areas[0] != areaID {
		t.Errorf("areas = %v, want [%s]", resp["areas"], areaID)
	}
}

func TestPairing_SessionViewOmitsPIN(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	sessionID := resp["id"].(string)

	// The device polls the session without credentials while waiting
	// for the administrator, so the view is public.
	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/pairing/sessions/"+sessionID, "", "")
	if code != http.StatusOK {
		t.Fatalf("get session status = %d", code)
	}
	if _, present := resp["pin"]; present {
		t.Error("session view must not expose the PIN")
	}
}

func TestPairing_UnauthenticatedStatusView(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	sessionID := resp["id"].(string)
	pin := resp["pin"].(string)

	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/pairing/sessions/"+sessionID, "", "")
	if code != http.StatusOK {
		t.Fatalf("unauthenticated get session status = %d, want 200", code)
	}
	if resp["status"] != "pending" {
		t.Errorf("session status = %v, want pending", resp["status"])
	}

	code, _ = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/verify", "",
		`{"pin":"`+pin+`","device_name":"kitchen tablet","device_type":"tablet"}`)
	if code != http.StatusOK {
		t.Fatalf("verify status = %d", code)
	}

	// The device sees the state transition through the same view.
	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/pairing/sessions/"+sessionID, "", "")
	if code != http.StatusOK {
		t.Fatalf("get session after verify status = %d", code)
	}
	if resp["status"] != "verified" {
		t.Errorf("session status = %v, want verified", resp["status"])
	}
	if _, present := resp["pin"]; present {
		t.Error("session view must not expose the PIN")
	}
}

func TestPairing_WrongPIN(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	sessionID := resp["id"].(string)
	pin := resp["pin"].(string)

	wrong := "123456"
	if wrong == pin {
		wrong = "654321"
	}
	code, resp = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/verify", "",
		`{"pin":"`+wrong+`","device_name":"d","device_type":"tablet"}`)
	if code != http.StatusBadRequest {
		t.Errorf("wrong PIN status = %d, want 400", code)
	}
	if resp["code"] != ErrCodeValidation {
		t.Errorf("error code = %v, want %s", resp["code"], ErrCodeValidation)
	}
}

func TestPairing_CompleteUnknownArea(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	sessionID := resp["id"].(string)
	pin := resp["pin"].(string)

	code, _ = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/verify", "",
		`{"pin":"`+pin+`","device_name":"d","device_type":"tablet"}`)
	if code != http.StatusOK {
		t.Fatalf("verify status = %d", code)
	}

	code, _ = doJSON(t, router, http.MethodPost,
		"/api/v1/pairing/sessions/"+sessionID+"/complete", admin,
		`{"name":"Panel","area_ids":["area-missing"]}`)
	if code != http.StatusBadRequest {
		t.Errorf("complete with unknown area status = %d, want 400", code)
	}
}

func TestPairing_Cancel(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", admin, "")
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	sessionID := resp["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/pairing/sessions/"+sessionID, nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d, want 204", w.Code)
	}

	code, _ = doJSON(t, router, http.MethodGet, "/api/v1/pairing/sessions/"+sessionID, admin, "")
	if code != http.StatusNotFound {
		t.Errorf("get cancelled session status = %d, want 404", code)
	}
}

// ─── Areas ─────────────────────────────────────────────────────────

func TestAreaCRUD(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	id := createArea(t, router, admin, "Living Room")

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/areas/"+id, admin, "")
	if code != http.StatusOK {
		t.Fatalf("get area status = %d", code)
	}
	if resp["slug"] != "living-room" {
		t.Errorf("slug = %v, want living-room", resp["slug"])
	}

	code, resp = doJSON(t, router, http.MethodPatch, "/api/v1/areas/"+id, admin,
		`{"name":"Lounge","sort_order":3}`)
	if code != http.StatusOK {
		t.Fatalf("update area status = %d, body: %v", code, resp)
	}
	if resp["name"] != "Lounge" {
		t.Errorf("name = %v, want Lounge", resp["name"])
	}
	if int(resp["sort_order"].(float64)) != 3 {
		t.Errorf("sort_order = %v, want 3", resp["sort_order"])
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/areas/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete area status = %d, want 204", w.Code)
	}

	code, _ = doJSON(t, router, http.MethodGet, "/api/v1/areas/"+id, admin, "")
	if code != http.StatusNotFound {
		t.Errorf("get deleted area status = %d, want 404", code)
	}
}

func TestArea_SlugConflict(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	createArea(t, router, admin, "Garage")
	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/areas", admin, `{"name":"Garage"}`)
	if code != http.StatusConflict {
		t.Errorf("duplicate slug status = %d, want 409", code)
	}
}

func TestArea_ClientScoping(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	bedroom := createArea(t, router, admin, "Bedroom")
	_, clientTok := pairClient(t, router, admin, "Kitchen Panel", []string{kitchen})

	// The client's list holds only its assigned areas.
	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/areas", clientTok, "")
	if code != http.StatusOK {
		t.Fatalf("client list areas status = %d", code)
	}
	list, _ := resp["areas"].([]any)
	if len(list) != 1 {
		t.Fatalf("client sees %d areas, want 1", len(list))
	}
	if list[0].(map[string]any)["id"] != kitchen {
		t.Errorf("client area = %v, want %s", list[0], kitchen)
	}

	// Unassigned areas read as missing, not forbidden.
	code, _ = doJSON(t, router, http.MethodGet, "/api/v1/areas/"+bedroom, clientTok, "")
	if code != http.StatusNotFound {
		t.Errorf("unassigned area status = %d, want 404", code)
	}

	// Disabling an assigned area hides it without unassigning.
	code, _ = doJSON(t, router, http.MethodPost, "/api/v1/areas/"+kitchen+"/disable", admin, "")
	if code != http.StatusOK {
		t.Fatalf("disable status = %d", code)
	}
	code, _ = doJSON(t, router, http.MethodGet, "/api/v1/areas/"+kitchen, clientTok, "")
	if code != http.StatusNotFound {
		t.Errorf("disabled area status = %d, want 404", code)
	}

	code, _ = doJSON(t, router, http.MethodPost, "/api/v1/areas/"+kitchen+"/enable", admin, "")
	if code != http.StatusOK {
		t.Fatalf("enable status = %d", code)
	}
	code, _ = doJSON(t, router, http.MethodGet, "/api/v1/areas/"+kitchen, clientTok, "")
	if code != http.StatusOK {
		t.Errorf("re-enabled area status = %d, want 200", code)
	}
}

func TestArea_AdminOnlyMutations(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	_, clientTok := pairClient(t, router, admin, "Panel", []string{kitchen})

	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/areas", clientTok, `{"name":"Attic"}`)
	if code != http.StatusForbidden {
		t.Errorf("client create area status = %d, want 403", code)
	}
	code, _ = doJSON(t, router, http.MethodPost, "/api/v1/pairing/sessions", clientTok, "")
	if code != http.StatusForbidden {
		t.Errorf("client create session status = %d, want 403", code)
	}
}

// ─── Clients ───────────────────────────────────────────────────────

func TestClientList(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	clientID, _ := pairClient(t, router, admin, "Kitchen Panel", []string{kitchen})

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/clients", admin, "")
	if code != http.StatusOK {
		t.Fatalf("list clients status = %d", code)
	}
	clients, _ := resp["clients"].([]any)
	if len(clients) != 1 {
		t.Fatalf("clients = %d, want 1", len(clients))
	}
	c := clients[0].(map[string]any)
	if c["id"] != clientID {
		t.Errorf("client id = %v, want %s", c["id"], clientID)
	}
	assigned, _ := c["assigned_areas"].([]any)
	if len(assigned) != 1 || assigned[0] != kitchen {
		t.Errorf("assigned_areas = %v, want [%s]", c["assigned_areas"], kitchen)
	}
}

func TestClientSetAreas(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	bedroom := createArea(t, router, admin, "Bedroom")
	clientID, clientTok := pairClient(t, router, admin, "Panel", []string{kitchen})

	code, resp := doJSON(t, router, http.MethodPut, "/api/v1/clients/"+clientID+"/areas", admin,
		`{"area_ids":["`+bedroom+`"]}`)
	if code != http.StatusOK {
		t.Fatalf("set areas status = %d, body: %v", code, resp)
	}
	assigned, _ := resp["assigned_areas"].([]any)
	if len(assigned) != 1 || assigned[0] != bedroom {
		t.Fatalf("assigned_areas = %v, want [%s]", resp["assigned_areas"], bedroom)
	}

	// The reassignment is visible on the client's next request.
	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/areas", clientTok, "")
	if code != http.StatusOK {
		t.Fatalf("client list areas status = %d", code)
	}
	list, _ := resp["areas"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["id"] != bedroom {
		t.Errorf("client areas after reassignment = %v, want [%s]", resp["areas"], bedroom)
	}
}

func TestClientSetAreas_UnknownArea(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	clientID, _ := pairClient(t, router, admin, "Panel", []string{kitchen})

	code, _ := doJSON(t, router, http.MethodPut, "/api/v1/clients/"+clientID+"/areas", admin,
		`{"area_ids":["area-missing"]}`)
	if code != http.StatusBadRequest {
		t.Errorf("unknown area status = %d, want 400", code)
	}
}

func TestClientRevoke(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	kitchen := createArea(t, router, admin, "Kitchen")
	clientID, clientTok := pairClient(t, router, admin, "Panel", []string{kitchen})

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/clients/"+clientID+"/revoke", admin,
		`{"reason":"device_lost"}`)
	if code != http.StatusOK {
		t.Fatalf("revoke status = %d, body: %v", code, resp)
	}
	if int(resp["tokens_revoked"].(float64)) != 1 {
		t.Errorf("tokens_revoked = %v, want 1", resp["tokens_revoked"])
	}
	if resp["reason"] != "device_lost" {
		t.Errorf("reason = %v, want device_lost", resp["reason"])
	}

	// The token dies immediately, long before its expiry.
	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", clientTok, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d, want 401", code)
	}
	if resp["code"] != "token_revoked" {
		t.Errorf("error code = %v, want token_revoked", resp["code"])
	}
}

func TestClientRevoke_Unknown(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	admin := adminToken(t, router)

	code, _ := doJSON(t, router, http.MethodPost, "/api/v1/clients/cl-missing/revoke", admin, "")
	if code != http.StatusNotFound {
		t.Errorf("revoke unknown client status = %d, want 404", code)
	}
}
