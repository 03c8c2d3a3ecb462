package tasks

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/taskmanager-api/internal/auth"
)

// newTestServer mounts the routes behind a stand-in gate that trusts X-Test-User.
func newTestServer() (*chi.Mux, *Service) {
	svc := newTestService(NewInMemoryRepo())
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if id := req.Header.Get("X-Test-User"); id != "" {
					req = req.WithContext(auth.WithIdentity(req.Context(), id))
				}
				next.ServeHTTP(w, req)
			})
		})
		RegisterRoutes(r, svc, logger)
	})
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse JSON: %v, body=%s", err, rec.Body.String())
	}
	msg, _ := body["message"].(string)
	return msg
}

func TestPostTasks_Success(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodPost, "/api/tasks", `{"title":"learn chi","dueDate":"2026-05-01"}`, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var got taskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if got.Message != "Task created successfully" {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.Task.ID == "" || got.Task.OwnerID != "alice" {
		t.Errorf("bad task identity: %+v", got.Task)
	}
	if got.Task.Status != StatusPending || got.Task.Priority != PriorityMedium {
		t.Errorf("defaults not applied: %+v", got.Task)
	}
	if got.Task.DueDate == nil || got.Task.DueDate.Format("2006-01-02") != "2026-05-01" {
		t.Errorf("due date not parsed: %v", got.Task.DueDate)
	}
}

func TestPostTasks_OwnerComesFromIdentity(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodPost, "/api/tasks", `{"title":"sneaky","ownerId":"bob"}`, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var got taskResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Task.OwnerID != "alice" {
		t.Fatalf("owner taken from body: %q", got.Task.OwnerID)
	}
}

func TestPostTasks_ValidationErrors(t *testing.T) {
	r, _ := newTestServer()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing title", `{"description":"x"}`, "Please provide a task title"},
		{"empty title", `{"title":""}`, "Please provide a task title"},
		{"invalid JSON", `{"title":`, "Invalid JSON"},
		{"bad status", `{"title":"x","status":"done"}`, "Status must be pending or completed"},
		{"bad due date", `{"title":"x","dueDate":"tomorrow"}`, "Due date must be YYYY-MM-DD or RFC 3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/tasks", tt.body, "alice")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d, body=%s", rec.Code, rec.Body.String())
			}
			if got := decodeMessage(t, rec); got != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestGetTasks_FiltersAndSorts(t *testing.T) {
	r, svc := newTestServer()
	seed := []NewTask{
		{Title: "x", Status: "pending", Priority: "high"},
		{Title: "y", Status: "completed", Priority: "low"},
		{Title: "z", Status: "completed", Priority: "high"},
	}
	for _, in := range seed {
		mustCreate(t, svc, "alice", in)
	}
	mustCreate(t, svc, "bob", NewTask{Title: "bob's", Status: "completed", Priority: "high"})

	rec := do(t, r, http.MethodGet, "/api/tasks?status=completed&sortBy=priority", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var list []Task
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if want := []string{"z", "y"}; !reflect.DeepEqual(titles(list), want) {
		t.Fatalf("got %v, want %v", titles(list), want)
	}

	rec = do(t, r, http.MethodGet, "/api/tasks?status=bogus&priority=urgent", "", "alice")
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 3 {
		t.Fatalf("invalid enum values should be ignored, got %d tasks", len(list))
	}
}

func TestGetTasks_EmptyListIsArray(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodGet, "/api/tasks", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestTaskByID_OtherOwnerIsNotFound(t *testing.T) {
	r, svc := newTestServer()
	task := mustCreate(t, svc, "alice", NewTask{Title: "private"})
	path := "/api/tasks/" + task.ID

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, r, method, path, `{"title":"mine now"}`, "bob")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s as bob: expected 404, got %d", method, rec.Code)
		}
		if got := decodeMessage(t, rec); got != "Task not found" {
			t.Fatalf("%s as bob: message %q", method, got)
		}
	}

	missing := do(t, r, http.MethodGet, "/api/tasks/does-not-exist", "", "alice")
	if missing.Code != http.StatusNotFound || decodeMessage(t, missing) != "Task not found" {
		t.Fatalf("missing task should look like someone else's: %d %s", missing.Code, missing.Body.String())
	}
}

func TestPutTask_PartialUpdateAndClearDueDate(t *testing.T) {
	r, svc := newTestServer()
	task := mustCreate(t, svc, "alice", NewTask{Title: "draft"})
	path := "/api/tasks/" + task.ID

	rec := do(t, r, http.MethodPut, path, `{"status":"completed","dueDate":"2026-08-01T12:00:00Z"}`, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var got taskResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Task.Title != "draft" || got.Task.Status != StatusCompleted || got.Task.DueDate == nil {
		t.Fatalf("unexpected task: %+v", got.Task)
	}

	rec = do(t, r, http.MethodPut, path, `{"dueDate":null}`, "alice")
	got = taskResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if rec.Code != http.StatusOK || got.Task.DueDate != nil {
		t.Fatalf("due date not cleared: %d %+v", rec.Code, got.Task)
	}

	rec = do(t, r, http.MethodPut, path, `{"title":"  "}`, "alice")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank title: expected 400, got %d", rec.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	r, svc := newTestServer()
	task := mustCreate(t, svc, "alice", NewTask{Title: "gone soon"})

	rec := do(t, r, http.MethodDelete, "/api/tasks/"+task.ID, "", "alice")
	if rec.Code != http.StatusOK || decodeMessage(t, rec) != "Task deleted successfully" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, "/api/tasks/"+task.ID, "", "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestTasks_NoIdentityIsUnauthorized(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodGet, "/api/tasks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Not authorized" {
		t.Fatalf("unexpected message %q", got)
	}
}
