package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/s1natex/taskmanager-api/internal/auth"
	"github.com/s1natex/taskmanager-api/internal/tasks"
	"github.com/s1natex/taskmanager-api/internal/users"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "taskmanager"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	a := app{
		users:  users.NewService(users.NewInMemoryRepo(), auth.NewPasswordHasher(4), tokens),
		tasks:  tasks.NewService(tasks.NewInMemoryRepo()),
		tokens: tokens,
	}
	return newRouter(a, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler, name, email string) string {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","password":"secret1"}`
	rec := call(t, h, http.MethodPost, "/api/auth/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Token == "" {
		t.Fatalf("register response: %s", rec.Body.String())
	}
	return out.Token
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	expected := `{"status":"ok"}`
	if got := strings.TrimSpace(w.Body.String()); got != expected {
		t.Errorf("expected body %s, got %s", expected, got)
	}
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestApp(t)

	if rec := call(t, r, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "running") {
		t.Fatalf("banner: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, r, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	rec := call(t, r, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("unknown route: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestApp(t)

	for _, path := range []string{"/api/tasks", "/api/user/profile"} {
		for _, token := range []string{"", "garbage", "a.b.c"} {
			rec := call(t, r, http.MethodGet, path, token, "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s with %q: expected 401, got %d", path, token, rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Not authorized"}` {
				t.Fatalf("%s with %q: body %s", path, token, got)
			}
		}
	}
}

func TestEndToEnd_TasksAreOwnerScoped(t *testing.T) {
	r := newTestApp(t)
	alice := register(t, r, "Alice", "alice@example.com")
	bob := register(t, r, "Bob", "bob@example.com")

	rec := call(t, r, http.MethodPost, "/api/tasks", alice, `{"title":"ship it","priority":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Task tasks.Task `json:"task"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	call(t, r, http.MethodPost, "/api/tasks", bob, `{"title":"bob's chore"}`)

	rec = call(t, r, http.MethodGet, "/api/tasks?sortBy=priority", alice, "")
	var list []tasks.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.Task.ID {
		t.Fatalf("alice sees %+v", list)
	}

	if rec := call(t, r, http.MethodGet, "/api/tasks/"+created.Task.ID, bob, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("bob reading alice's task: %d", rec.Code)
	}
	if rec := call(t, r, http.MethodDelete, "/api/tasks/"+created.Task.ID, bob, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("bob deleting alice's task: %d", rec.Code)
	}
	if rec := call(t, r, http.MethodDelete, "/api/tasks/"+created.Task.ID, alice, ""); rec.Code != http.StatusOK {
		t.Fatalf("alice deleting her task: %d", rec.Code)
	}
}

func TestEndToEnd_ProfileAndLogin(t *testing.T) {
	r := newTestApp(t)
	alice := register(t, r, "Alice", "alice@example.com")
	register(t, r, "Bob", "bob@example.com")

	rec := call(t, r, http.MethodPut, "/api/user/profile", alice, `{"email":"bob@example.com","name":"Eve"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("email conflict: %d %s", rec.Code, rec.Body.String())
	}
	rec = call(t, r, http.MethodGet, "/api/user/profile", alice, "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"name":"Alice"`)) {
		t.Fatalf("rejected update must not apply: %s", rec.Body.String())
	}

	rec = call(t, r, http.MethodPut, "/api/user/profile", alice, `{"password":"newsecret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("password change: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(t, r, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"secret1"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works: %d", rec.Code)
	}
	if rec := call(t, r, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"newsecret"}`); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d %s", rec.Code, rec.Body.String())
	}
}
