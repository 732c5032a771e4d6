package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Asghar-123/health-agent/internal/agent"
	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/config"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/identity"
	"github.com/Asghar-123/health-agent/internal/store"
)

type testEnv struct {
	repo   *store.MemoryStore
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	completer := completion.CompleterFunc(func(context.Context, completion.Request) (*completion.Response, error) {
		return &completion.Response{Text: "ok"}, nil
	})
	o, err := agent.NewOrchestrator(agent.Options{Completer: completer})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	repo := store.NewMemory()
	cfg := &config.Config{SessionTTL: time.Hour, MaxRequestBody: 1024}
	cfg.Completion.Provider = "gemini"

	base := NewHandler(repo, agent.NewService(o, repo, nil), cfg)
	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	NewSessionHandler(base).RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return &testEnv{repo: repo, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(identity.SessionHeaderName, "tab-1")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func anonCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == identity.AnonCookieName {
			return c
		}
	}
	t.Fatal("anonymous cookie not set")
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/session/profile", `{"name":"Sam","diet_preferences":"vegetarian","injury_notes":"knee"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile update failed: %d %s", w.Code, w.Body.String())
	}
	cookie := anonCookie(t, w)

	w = env.do(t, http.MethodGet, "/api/session", "", cookie)
	var sc domain.SessionContext
	if err := json.NewDecoder(w.Body).Decode(&sc); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sc.Name != "Sam" || sc.DietPreferences != "vegetarian" || sc.InjuryNotes != "knee" {
		t.Fatalf("unexpected session: %+v", sc)
	}

	w = env.do(t, http.MethodPost, "/api/session/progress", `{"weight_kg":71}`, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "weight_kg") {
		t.Fatalf("progress failed: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/session/checkin", `{"cadence":"monthly"}`, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"cadence":"monthly"`) {
		t.Fatalf("checkin failed: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/session/escalate", `{"reason":"wants a coach"}`, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"route":"escalation"`) {
		t.Fatalf("escalate failed: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/me", "", cookie)
	var me map[string]any
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me["session_id"] != "tab-1" || me["session_ttl"].(float64) <= 0 {
		t.Fatalf("unexpected /me: %v", me)
	}

	w = env.do(t, http.MethodDelete, "/api/session", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", w.Code)
	}
	stored, _ := env.repo.GetSession(context.Background(), cookie.Value, "tab-1")
	if stored != nil {
		t.Fatal("session should be deleted after reset")
	}
}

func TestSessionValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name, method, path, body string
		status                   int
	}{
		{"bad cadence", http.MethodPost, "/api/session/checkin", `{"cadence":"hourly"}`, http.StatusBadRequest},
		{"empty progress", http.MethodPost, "/api/session/progress", `{}`, http.StatusBadRequest},
		{"missing reason", http.MethodPost, "/api/session/escalate", `{}`, http.StatusBadRequest},
		{"bad json", http.MethodPut, "/api/session/profile", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, nil)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/config", "", nil)
	if !strings.Contains(w.Body.String(), `"provider":"gemini"`) {
		t.Fatalf("unexpected config: %s", w.Body.String())
	}
}

type downRepo struct {
	*store.MemoryStore
}

func (downRepo) Ping(context.Context) error { return errors.New("disk gone") }

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(store.NewMemory()).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	NewHealthHandler(downRepo{store.NewMemory()}).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "unreachable") {
		t.Fatalf("unexpected degraded health: %d %s", w.Code, w.Body.String())
	}
}
