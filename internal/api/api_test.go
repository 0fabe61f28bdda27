package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/wellness-hub/internal/auth"
	"github.com/terra-clan/wellness-hub/internal/catalog"
	"github.com/terra-clan/wellness-hub/internal/config"
	"github.com/terra-clan/wellness-hub/internal/health"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/realtime"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

const (
	anonKey    = "anon-key-0123456789"
	serviceKey = "service-key-0123456789"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testEnv struct {
	repo   *storage.MemoryRepository
	server *Server
	health *health.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMemoryRepository()

	for _, c := range []*models.ApiClient{
		{ID: "c-anon", Name: "anon", Role: models.RoleAnon, ApiKey: anonKey, IsActive: true, Permissions: models.AnonPermissions},
		{ID: "c-service", Name: "service", Role: models.RoleService, ApiKey: serviceKey, IsActive: true, Permissions: []string{"*"}},
		{ID: "c-off", Name: "disabled", Role: models.RoleAnon, ApiKey: "disabled-key-000", IsActive: false, Permissions: []string{"*"}},
	} {
		if err := repo.UpsertClient(ctx, c); err != nil {
			t.Fatalf("upsert client: %v", err)
		}
	}

	tokens, err := auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	loader := catalog.NewLoader()
	if err := loader.LoadDefaults(); err != nil {
		t.Fatalf("catalog: %v", err)
	}

	hub := realtime.NewHub()
	registry := health.NewRegistry()
	registry.Register("memory", health.PingFunc{Kind: "memory", Ping: repo.Ping})

	srv := NewServer(config.ServerConfig{}, Dependencies{
		Repo:        repo,
		Resources:   services.NewResourceService(repo, hub),
		Users:       services.NewUserService(repo, tokens, auth.NewMemoryLimiter(100, time.Minute), auth.NewMemoryRevoker()),
		Diagnostics: services.NewDiagnosticService(repo, loader),
		Pages:       services.NewPageService(repo, hub),
		Hub:         hub,
		Health:      registry,
	})
	return &testEnv{repo: repo, server: srv, health: registry}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, key, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("apikey", key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (e *testEnv) signup(t *testing.T, email string, admin bool) (string, string) {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": email, "password": "longenough"}, anonKey, "")
	if code != http.StatusCreated {
		t.Fatalf("signup %s: %d %+v", email, code, env.Error)
	}
	var sess services.Session
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if admin {
		u, _ := e.repo.GetUserByID(context.Background(), sess.User.ID)
		u.IsAdmin = true
		if err := e.repo.UpdateUser(context.Background(), u); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}
	return sess.Token, sess.User.ID
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)

	code, env := e.do(t, http.MethodGet, "/health", nil, "", "")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("health: %d %+v", code, env)
	}

	code, _ = e.do(t, http.MethodGet, "/ready", nil, "", "")
	if code != http.StatusOK {
		t.Fatalf("ready: %d", code)
	}

	e.health.Register("broken", health.PingFunc{Kind: "broken", Ping: func(context.Context) error {
		return context.DeadlineExceeded
	}})
	code, env = e.do(t, http.MethodGet, "/ready", nil, "", "")
	if code != http.StatusServiceUnavailable || env.Success {
		t.Fatalf("ready with failing check: %d %+v", code, env)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	e := newTestEnv(t)

	code, env := e.do(t, http.MethodGet, "/api/v1/categories", nil, "", "")
	if code != http.StatusUnauthorized || env.Success || env.Error == nil || env.Error.Code != "missing_api_key" {
		t.Fatalf("missing key: %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/categories", nil, "nope-nope-nope", "")
	if code != http.StatusUnauthorized || env.Error.Code != "invalid_api_key" {
		t.Fatalf("bad key: %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/categories", nil, "disabled-key-000", "")
	if code != http.StatusUnauthorized || env.Error.Code != "client_inactive" {
		t.Fatalf("inactive key: %d %+v", code, env.Error)
	}

	// raw key in Authorization when no user token is sent
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("Authorization", "Bearer "+anonKey)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorization api key: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "Alice@Example.com", false)

	code, env := e.do(t, http.MethodGet, "/api/v1/auth/me", nil, anonKey, token)
	if code != http.StatusOK {
		t.Fatalf("me: %d %+v", code, env.Error)
	}
	var me models.User
	_ = json.Unmarshal(env.Data, &me)
	if me.Email != "alice@example.com" || me.IsAdmin {
		t.Fatalf("unexpected user: %+v", me)
	}
	if strings.Contains(string(env.Data), "assHash") {
		t.Fatalf("password hash leaked: %s", env.Data)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "alice@example.com", "password": "longenough"}, anonKey, "")
	if code != http.StatusConflict || env.Error.Code != "conflict" {
		t.Fatalf("duplicate signup: %d %+v", code, env.Error)
	}

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "alice@example.com", "password": "wrong-password"}, anonKey, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", code)
	}

	code, _ = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, anonKey, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: %d", code)
	}

	code, _ = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, anonKey, "a.b.c")
	if code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", code)
	}

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/logout", nil, anonKey, token)
	if code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	code, env = e.do(t, http.MethodGet, "/api/v1/auth/me", nil, anonKey, token)
	if code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: %d %+v", code, env)
	}
}

func TestResourceAdminGating(t *testing.T) {
	e := newTestEnv(t)
	userToken, _ := e.signup(t, "user@example.com", false)
	adminToken, _ := e.signup(t, "admin@example.com", true)

	code, _ := e.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Sleep"}, anonKey, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous category create: %d", code)
	}
	code, _ = e.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Sleep"}, anonKey, userToken)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin category create: %d", code)
	}
	code, _ = e.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Sleep"}, anonKey, adminToken)
	if code != http.StatusCreated {
		t.Fatalf("admin category create: %d", code)
	}
	// the service key needs no user
	code, _ = e.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Anxiety"}, serviceKey, "")
	if code != http.StatusCreated {
		t.Fatalf("service category create: %d", code)
	}

	in := map[string]interface{}{"title": "Respiration", "description": "4-7-8", "category": "sleep", "duration": 10, "isActive": true}
	code, env := e.do(t, http.MethodPost, "/api/v1/resources", in, anonKey, adminToken)
	if code != http.StatusCreated {
		t.Fatalf("create resource: %d %+v", code, env.Error)
	}
	var res models.Resource
	_ = json.Unmarshal(env.Data, &res)
	if res.Category != "Sleep" || res.UserID == "" {
		t.Fatalf("unexpected resource: %+v", res)
	}

	bad := map[string]interface{}{"title": "Trop long", "category": "Sleep", "duration": 500}
	code, env = e.do(t, http.MethodPost, "/api/v1/resources", bad, anonKey, adminToken)
	if code != http.StatusBadRequest || env.Error.Code != "invalid" {
		t.Fatalf("invalid duration: %d %+v", code, env.Error)
	}

	hidden := map[string]interface{}{"title": "Brouillon", "category": "Anxiety", "isActive": false}
	if code, _ = e.do(t, http.MethodPost, "/api/v1/resources", hidden, serviceKey, ""); code != http.StatusCreated {
		t.Fatalf("create inactive: %d", code)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/resources", nil, anonKey, userToken)
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	var list struct {
		Resources []*models.Resource `json:"resources"`
		Count     int                `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if list.Count != 1 || list.Resources[0].ID != res.ID {
		t.Fatalf("users must only see active resources: %+v", list)
	}

	_, env = e.do(t, http.MethodGet, "/api/v1/resources", nil, anonKey, adminToken)
	_ = json.Unmarshal(env.Data, &list)
	if list.Count != 2 {
		t.Fatalf("admins see inactive resources, got %d", list.Count)
	}

	code, env = e.do(t, http.MethodPut, "/api/v1/resources/"+res.ID+"/favorite", nil, anonKey, userToken)
	if code != http.StatusOK {
		t.Fatalf("favorite: %d %+v", code, env.Error)
	}
	_ = json.Unmarshal(env.Data, &res)
	if !res.IsFavorite {
		t.Fatalf("resource should be a favorite")
	}
	code, _ = e.do(t, http.MethodPut, "/api/v1/resources/"+res.ID+"/favorite", nil, anonKey, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous favorite: %d", code)
	}

	code, env = e.do(t, http.MethodDelete, "/api/v1/categories/"+mustCategoryID(t, e, "Sleep"), nil, anonKey, adminToken)
	if code != http.StatusConflict {
		t.Fatalf("delete used category: %d %+v", code, env.Error)
	}

	code, _ = e.do(t, http.MethodDelete, "/api/v1/resources/"+res.ID, nil, anonKey, userToken)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin delete: %d", code)
	}
	code, _ = e.do(t, http.MethodDelete, "/api/v1/resources/"+res.ID, nil, anonKey, adminToken)
	if code != http.StatusOK {
		t.Fatalf("admin delete: %d", code)
	}
	code, _ = e.do(t, http.MethodGet, "/api/v1/resources/"+res.ID, nil, anonKey, adminToken)
	if code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", code)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSignupInputErrors(t *testing.T) {
	e := newTestEnv(t)

	logs := &lockedBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logs, nil)))
	defer slog.SetDefault(prev)

	code, _ := e.do(t, http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "carol@example.com", "password": "longenough"}, anonKey, "")
	if code != http.StatusCreated {
		t.Fatalf("signup: %d", code)
	}
	if n := strings.Count(logs.String(), `"msg":"user signed up"`); n != 1 {
		t.Fatalf("signup logged %d times", n)
	}

	for _, body := range []map[string]string{
		{"email": "Carol <carol@example.com>", "password": "longenough"},
		{"email": "dave@example.com", "password": strings.Repeat("x", 80)},
	} {
		code, env := e.do(t, http.MethodPost, "/api/v1/auth/signup", body, anonKey, "")
		if code != http.StatusBadRequest || env.Error.Code != "invalid" {
			t.Fatalf("signup %q: %d %+v", body["email"], code, env.Error)
		}
	}
}

func mustCategoryID(t *testing.T, e *testEnv, name string) string {
	t.Helper()
	c, err := e.repo.GetCategoryByName(context.Background(), name)
	if err != nil || c == nil {
		t.Fatalf("category %s: %v", name, err)
	}
	return c.ID
}

func TestUserAdministration(t *testing.T) {
	e := newTestEnv(t)
	userToken, userID := e.signup(t, "user@example.com", false)
	adminToken, adminID := e.signup(t, "admin@example.com", true)

	code, _ := e.do(t, http.MethodGet, "/api/v1/users", nil, anonKey, userToken)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin list: %d", code)
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/users?q=user@", nil, anonKey, adminToken)
	if code != http.StatusOK {
		t.Fatalf("admin list: %d", code)
	}
	var list struct {
		Users []*models.User `json:"users"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if len(list.Users) != 1 || list.Users[0].ID != userID {
		t.Fatalf("search should match one user: %+v", list.Users)
	}

	code, _ = e.do(t, http.MethodPut, "/api/v1/users/"+adminID+"/admin", map[string]bool{"isAdmin": false}, anonKey, adminToken)
	if code != http.StatusForbidden {
		t.Fatalf("self demotion: %d", code)
	}

	// promotion applies to the token the user already holds
	code, _ = e.do(t, http.MethodPut, "/api/v1/users/"+userID+"/admin", map[string]bool{"isAdmin": true}, anonKey, adminToken)
	if code != http.StatusOK {
		t.Fatalf("promote: %d", code)
	}
	code, _ = e.do(t, http.MethodGet, "/api/v1/users", nil, anonKey, userToken)
	if code != http.StatusOK {
		t.Fatalf("promoted user list: %d", code)
	}

	code, _ = e.do(t, http.MethodDelete, "/api/v1/users/"+adminID, nil, anonKey, adminToken)
	if code != http.StatusForbidden {
		t.Fatalf("self delete: %d", code)
	}
	code, _ = e.do(t, http.MethodDelete, "/api/v1/users/"+userID, nil, anonKey, adminToken)
	if code != http.StatusOK {
		t.Fatalf("delete user: %d", code)
	}
	code, _ = e.do(t, http.MethodGet, "/api/v1/users", nil, anonKey, userToken)
	if code != http.StatusUnauthorized {
		t.Fatalf("deleted account must lose access: %d", code)
	}
}

func TestDiagnostics(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "user@example.com", false)

	code, env := e.do(t, http.MethodGet, "/api/v1/diagnostics/catalog", nil, anonKey, "")
	if code != http.StatusOK {
		t.Fatalf("catalog: %d", code)
	}
	var cat models.Catalog
	_ = json.Unmarshal(env.Data, &cat)
	if len(cat.Questions) != 10 || len(cat.HolmesRaheEvents) == 0 {
		t.Fatalf("unexpected catalog: %d questions, %d events", len(cat.Questions), len(cat.HolmesRaheEvents))
	}

	body := map[string]interface{}{"answers": map[string]bool{"hr-01": true, "hr-07": true, "hr-02": false}}
	code, env = e.do(t, http.MethodPost, "/api/v1/diagnostics/holmes-rahe", body, anonKey, token)
	if code != http.StatusCreated {
		t.Fatalf("holmes-rahe: %d %+v", code, env.Error)
	}
	var hr models.HolmesRaheResult
	_ = json.Unmarshal(env.Data, &hr)
	if hr.StressScore != 150 || hr.RiskCategory != models.RiskModerate {
		t.Fatalf("unexpected result: %+v", hr)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/diagnostics/stress",
		map[string]interface{}{"answers": map[string]int{"pss-01": 9}}, anonKey, "")
	if code != http.StatusBadRequest || env.Error.Code != "invalid" {
		t.Fatalf("invalid stress: %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/diagnostics/history", nil, anonKey, token)
	if code != http.StatusOK {
		t.Fatalf("history: %d", code)
	}
	var hist struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &hist)
	if hist.Count != 1 {
		t.Fatalf("history count: %d", hist.Count)
	}

	code, _ = e.do(t, http.MethodGet, "/api/v1/diagnostics/"+hr.ID, nil, anonKey, token)
	if code != http.StatusOK {
		t.Fatalf("owner get: %d", code)
	}
	other, _ := e.signup(t, "other@example.com", false)
	code, _ = e.do(t, http.MethodGet, "/api/v1/diagnostics/"+hr.ID, nil, anonKey, other)
	if code != http.StatusNotFound {
		t.Fatalf("other user must not see result: %d", code)
	}
}

func TestPages(t *testing.T) {
	e := newTestEnv(t)

	page := map[string]interface{}{
		"title": "À propos",
		"slug":  "a-propos",
		"sections": []map[string]interface{}{
			{"title": "Deux", "content": "b", "order": 2},
			{"title": "Un", "content": "a", "order": 1},
		},
	}
	code, env := e.do(t, http.MethodPost, "/api/v1/pages", page, serviceKey, "")
	if code != http.StatusCreated {
		t.Fatalf("create page: %d %+v", code, env.Error)
	}

	code, _ = e.do(t, http.MethodGet, "/api/v1/pages/a-propos", nil, anonKey, "")
	if code != http.StatusNotFound {
		t.Fatalf("draft must be hidden: %d", code)
	}

	code, _ = e.do(t, http.MethodPost, "/api/v1/pages/a-propos/publish", nil, serviceKey, "")
	if code != http.StatusOK {
		t.Fatalf("publish: %d", code)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/pages/a-propos", nil, anonKey, "")
	if code != http.StatusOK {
		t.Fatalf("get published: %d", code)
	}
	var p models.InfoPage
	_ = json.Unmarshal(env.Data, &p)
	if len(p.Sections) != 2 || p.Sections[0].Title != "Un" {
		t.Fatalf("sections must be ordered: %+v", p.Sections)
	}

	code, _ = e.do(t, http.MethodDelete, "/api/v1/pages/a-propos", nil, anonKey, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: %d", code)
	}
}

func TestRealtimeFeed(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/realtime?apikey=" + anonKey + "&topics=categories"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg RealtimeMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connected" {
		t.Fatalf("connected message: %+v %v", msg, err)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/categories", strings.NewReader(`{"name":"Sleep"}`))
	req.Header.Set("apikey", serviceKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	resp.Body.Close()

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if msg.Type != "change" || msg.Event == nil || msg.Event.Topic != services.TopicCategories || msg.Event.Action != services.ActionCreated {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if err := conn.WriteJSON(RealtimeMessage{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "pong" {
		t.Fatalf("pong: %+v %v", msg, err)
	}
}
