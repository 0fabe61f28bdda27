package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]interface{}{"success": status < 300}
	if data != nil {
		resp["data"] = data
	}
	if code != "" {
		resp["error"] = map[string]string{"code": code, "message": msg}
	}
	json.NewEncoder(w).Encode(resp)
}

// stubServer mimics the API for the calls exercised here.
func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon-key" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid_api_key", "bad key")
			return
		}
		var cred credentials
		json.NewDecoder(r.Body).Decode(&cred)
		if cred.Password != "longenough" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "unauthorized", "invalid credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, Session{
			Token:     "h.p.s",
			ExpiresAt: time.Now().Add(time.Hour),
			User:      &User{ID: "u1", Email: cred.Email},
		}, "", "")
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer h.p.s" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "unauthorized", "sign in required")
			return
		}
		writeEnvelope(w, http.StatusOK, User{ID: "u1", Email: "a@example.com"}, "", "")
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "signed_out"}, "", "")
	})
	mux.HandleFunc("/api/v1/resources", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("category"); got != "Sleep" {
			t.Errorf("category query = %q", got)
		}
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"resources": []*Resource{{ID: "r1", Title: "Respiration", Category: "Sleep"}},
			"count":     1,
		}, "", "")
	})
	mux.HandleFunc("/api/v1/diagnostics/holmes-rahe", func(w http.ResponseWriter, r *http.Request) {
		var sub DiagnosticSubmission
		json.NewDecoder(r.Body).Decode(&sub)
		if len(sub.Answers) != 2 {
			writeEnvelope(w, http.StatusBadRequest, nil, "invalid", "bad answers")
			return
		}
		score := 150
		writeEnvelope(w, http.StatusCreated, DiagnosticResult{
			ID: "d1", Kind: KindHolmesRahe, TotalScore: score, StressScore: &score, RiskCategory: RiskModerate,
		}, "", "")
	})
	return httptest.NewServer(mux)
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Fatalf("expected error without url")
	}
	if _, err := NewClient("http://localhost:8080", " "); err == nil {
		t.Fatalf("expected error without anon key")
	}

	t.Setenv(EnvURL, "http://localhost:8080/")
	t.Setenv(EnvAnonKey, "anon-key")
	c, err := NewClientFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Fatalf("trailing slash must be trimmed: %s", c.baseURL)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := stubServer(t)
	defer srv.Close()
	ctx := context.Background()

	c, err := NewClient(srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	if _, err := c.CurrentUser(ctx); !IsCode(err, "unauthorized") {
		t.Fatalf("anonymous me: %v", err)
	}

	if _, err := c.SignIn(ctx, "a@example.com", "wrong"); !IsCode(err, "unauthorized") {
		t.Fatalf("wrong password: %v", err)
	}

	if _, err := c.SignIn(ctx, "a@example.com", "longenough"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	u, err := c.CurrentUser(ctx)
	if err != nil || u.ID != "u1" {
		t.Fatalf("me: %+v %v", u, err)
	}

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if s, _ := c.Session(); s != nil {
		t.Fatalf("session should be cleared")
	}
}

func TestExpiredSessionIsIgnored(t *testing.T) {
	store := NewMemorySessionStore()
	store.Save(&Session{Token: "h.p.s", ExpiresAt: time.Now().Add(-time.Minute)})

	c, _ := NewClient("http://localhost:1", "anon-key", WithSessionStore(store))
	if c.token() != "" {
		t.Fatalf("expired token must not be sent")
	}
	if s, _ := c.Session(); s != nil {
		t.Fatalf("expired session must not be returned")
	}
}

func TestResourcesAndDiagnostics(t *testing.T) {
	srv := stubServer(t)
	defer srv.Close()
	ctx := context.Background()
	c, _ := NewClient(srv.URL, "anon-key")

	list, err := c.ListResources(ctx, ResourceQuery{Category: "Sleep"})
	if err != nil || len(list) != 1 || list[0].Title != "Respiration" {
		t.Fatalf("list: %+v %v", list, err)
	}

	hr, err := c.SubmitHolmesRahe(ctx, Answers{{QuestionID: "hr-01", Answer: 1}, {QuestionID: "hr-07", Answer: 1}})
	if err != nil {
		t.Fatalf("holmes-rahe: %v", err)
	}
	if hr.StressScore != 150 || hr.RiskCategory != RiskModerate {
		t.Fatalf("unexpected result: %+v", hr)
	}

	_, err = c.SubmitHolmesRahe(ctx, nil)
	if !IsCode(err, "invalid") {
		t.Fatalf("expected invalid: %v", err)
	}
}

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileSessionStore(path)

	if s, err := store.Load(); err != nil || s != nil {
		t.Fatalf("empty store: %+v %v", s, err)
	}

	want := &Session{Token: "h.p.s", ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second)}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v", info.Mode().Perm())
	}

	got, err := NewFileSessionStore(path).Load()
	if err != nil || got.Token != want.Token || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("reload: %+v %v", got, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
}
