package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Asghar-123/health-agent/internal/config"
	"github.com/Asghar-123/health-agent/internal/identity"
	"github.com/Asghar-123/health-agent/internal/store"
)

func newTestHandler(t *testing.T, p Processor, limit int) *Handler {
	t.Helper()
	h := NewHandler(NewService(p, store.NewMemory(), nil), &config.Config{
		RateLimit:      config.RateLimitConfig{RequestsPerWindow: limit, WindowDuration: time.Minute},
		MaxRequestBody: 256,
	})
	t.Cleanup(h.Close)
	return h
}

func chatRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	return req.WithContext(identity.WithIdentity(req.Context(), "anon_1", "tab-1"))
}

func TestHandleChat(t *testing.T) {
	o, err := NewOrchestrator(Options{Completer: &fakeCompleter{text: "Sleep 7-9 hours."}})
	if err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(t, o, 10)

	w := httptest.NewRecorder()
	h.HandleChat(w, chatRequest(`{"message":"how long should adults sleep"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.OK || res.Route != RouteGeneral || !strings.HasPrefix(res.Response, "Sleep 7-9 hours.") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleChatRefusalIsOK200(t *testing.T) {
	o, _ := NewOrchestrator(Options{Completer: &fakeCompleter{}})
	h := newTestHandler(t, o, 10)

	w := httptest.NewRecorder()
	h.HandleChat(w, chatRequest(`{"message":"call an ambulance"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":false`) {
		t.Fatalf("expected not-ok result: %s", w.Body.String())
	}
}

func TestHandleChatErrors(t *testing.T) {
	boom := errors.New("upstream exploded with secret detail")
	o, _ := NewOrchestrator(Options{Completer: &fakeCompleter{err: boom}})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"empty message", chatRequest(`{"message":""}`), http.StatusBadRequest},
		{"bad json", chatRequest(`{`), http.StatusBadRequest},
		{"too large", chatRequest(`{"message":"` + strings.Repeat("a", 1024) + `"}`), http.StatusRequestEntityTooLarge},
		{"no identity", httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`)), http.StatusUnauthorized},
		{"completion failure", chatRequest(`{"message":"how do I sleep better"}`), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, o, 10)
			w := httptest.NewRecorder()
			h.HandleChat(w, tt.req)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "secret detail") {
				t.Fatal("internal error text leaked to client")
			}
		})
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	o, _ := NewOrchestrator(Options{Completer: &fakeCompleter{text: "ok"}})
	h := newTestHandler(t, o, 1)

	w := httptest.NewRecorder()
	h.HandleChat(w, chatRequest(`{"message":"hello"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.HandleChat(w, chatRequest(`{"message":"hello again"}`))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestHandleChatConflict(t *testing.T) {
	p := &blockingProcessor{entered: make(chan struct{}), release: make(chan struct{})}
	h := newTestHandler(t, p, 10)

	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.HandleChat(w, chatRequest(`{"message":"first"}`))
		done <- w.Code
	}()
	<-p.entered

	w := httptest.NewRecorder()
	h.HandleChat(w, chatRequest(`{"message":"second"}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	close(p.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", code)
	}
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other users are not affected")
	}
}
