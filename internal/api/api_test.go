package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/starford/notable/internal/models"
	"github.com/starford/notable/internal/noteservice"
	"github.com/starford/notable/internal/storage"
	"github.com/starford/notable/internal/testutil"
)

// envelope decodes either response shape.
type envelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// testEnv sets up a temp store, service, and router mounted under /api.
func testEnv(t *testing.T, opts Options) (*noteservice.Service, *storage.FS, http.Handler) {
	t.Helper()
	svc, store := testutil.TestService(t, testutil.NewClock())
	r := chi.NewRouter()
	r.Mount("/api", NewRouter(svc, opts))
	return svc, store, r
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestNoteLifecycle(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	// Create.
	w := do(t, router, http.MethodPost, "/api/notes", map[string]string{"title": "Hi there", "content": "hello world"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[models.Note](t, w)
	if !created.Success || created.Data.ID == "" {
		t.Fatalf("create envelope = %+v", created)
	}
	if !created.Data.CreatedAt.Equal(created.Data.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v", created.Data.CreatedAt, created.Data.UpdatedAt)
	}
	id := created.Data.ID

	// List.
	w = do(t, router, http.MethodGet, "/api/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[noteservice.ListResult](t, w)
	if list.Data.Total != 1 || len(list.Data.Notes) != 1 || list.Data.Notes[0].ID != id {
		t.Fatalf("list = %+v", list.Data)
	}

	// Update title only.
	w = do(t, router, http.MethodPut, "/api/notes/"+id, map[string]string{"title": "Updated"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	updated := decode[models.Note](t, w).Data
	if updated.Title != "Updated" {
		t.Errorf("title = %q, want Updated", updated.Title)
	}
	if updated.Content != "hello world" {
		t.Errorf("content = %q, want preserved", updated.Content)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updatedAt %v not after createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	// Get reflects the update.
	w = do(t, router, http.MethodGet, "/api/notes/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := decode[models.Note](t, w).Data; got.Title != "Updated" || !got.CreatedAt.Equal(created.Data.CreatedAt) {
		t.Errorf("get = %+v", got)
	}

	// Delete.
	w = do(t, router, http.MethodDelete, "/api/notes/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"success":true,"data":null}` {
		t.Errorf("delete body = %s", w.Body.String())
	}

	// Gone.
	w = do(t, router, http.MethodGet, "/api/notes/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", w.Code)
	}
	gone := decode[any](t, w)
	if gone.Success || gone.Message != "Note not found" {
		t.Errorf("404 envelope = %+v", gone)
	}
}

func TestCreateValidation(t *testing.T) {
	_, store, router := testEnv(t, Options{})

	w := do(t, router, http.MethodPost, "/api/notes", map[string]string{"title": "Hi", "content": "abc"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decode[any](t, w)
	if env.Success || env.Message != "Validation Error" {
		t.Errorf("envelope = %+v", env)
	}
	var issues []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Errors, &issues); err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %+v, want 2", issues)
	}
	if issues[0].Field != "title" || issues[0].Message != "Title must be at least 3 characters long" {
		t.Errorf("issue[0] = %+v", issues[0])
	}
	if issues[1].Field != "content" || issues[1].Message != "Content must be at least 5 characters long" {
		t.Errorf("issue[1] = %+v", issues[1])
	}

	// Nothing reached the store.
	notes, err := store.Load(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("store has %d notes after rejected create", len(notes))
	}
}

func TestCreateMissingFields(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	w := do(t, router, http.MethodPost, "/api/notes", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Title is required") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	w := do(t, router, http.MethodPost, "/api/notes", `{"title":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env := decode[any](t, w); env.Success || env.Message != "Invalid JSON body" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestCreateBodyTooLarge(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	big := `{"title":"big","content":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w := do(t, router, http.MethodPost, "/api/notes", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, _, router := testEnv(t, Options{})
	note, err := svc.Create(t.Context(), "Original", "original content")
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPut, "/api/notes/"+note.ID, map[string]string{"content": "tiny"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	got, err := svc.GetByID(t.Context(), note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "original content" {
		t.Errorf("content changed to %q", got.Content)
	}
}

func TestUpdateNotFound(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	w := do(t, router, http.MethodPut, "/api/notes/missing", map[string]string{"title": "Updated"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc, _, router := testEnv(t, Options{})
	if _, err := svc.Create(t.Context(), "Keep me", "still here"); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodDelete, "/api/notes/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	res, err := svc.List(t.Context(), noteservice.ListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("total = %d, want 1", res.Total)
	}
}

func TestListSearchAndPagination(t *testing.T) {
	svc, _, router := testEnv(t, Options{})
	for i := 0; i < 12; i++ {
		title := "Meeting notes"
		if i%2 == 1 {
			title = "Groceries"
		}
		if _, err := svc.Create(t.Context(), title, "some content"); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query     string
		wantLen   int
		wantTotal int
	}{
		{"", 12, 12},
		{"?search=MEETING", 6, 6},
		{"?search=nothing-matches", 0, 0},
		{"?page=2&limit=5", 5, 12},
		{"?page=3&limit=5", 2, 12},
		{"?page=4&limit=5", 0, 12},
		{"?limit=5", 5, 12},
		{"?page=2", 12, 12},
		{"?page=abc&limit=5", 12, 12},
		{"?page=1&limit=0", 12, 12},
		{"?search=groceries&page=1&limit=4", 4, 6},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/notes"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			res := decode[noteservice.ListResult](t, w).Data
			if len(res.Notes) != tt.wantLen || res.Total != tt.wantTotal {
				t.Errorf("len = %d total = %d, want %d/%d", len(res.Notes), res.Total, tt.wantLen, tt.wantTotal)
			}
		})
	}
}

func TestListEmptyIsArray(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	w := do(t, router, http.MethodGet, "/api/notes", nil)
	if strings.TrimSpace(w.Body.String()) != `{"success":true,"data":{"notes":[],"total":0}}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestStorageErrorIs500(t *testing.T) {
	_, store, router := testEnv(t, Options{})
	if err := os.WriteFile(store.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/api/notes", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	env := decode[any](t, w)
	if env.Success || env.Message != "Internal Server Error" {
		t.Errorf("envelope = %+v", env)
	}
	var errs []string
	if err := json.Unmarshal(env.Errors, &errs); err != nil || len(errs) != 1 {
		t.Errorf("errors = %s", env.Errors)
	}
}

func TestRecover(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Recover)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	w := do(t, r, http.MethodGet, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	env := decode[any](t, w)
	if env.Message != "Internal Server Error" || !strings.Contains(string(env.Errors), "kaboom") {
		t.Errorf("envelope = %+v", env)
	}
}

func TestCORS(t *testing.T) {
	_, _, router := testEnv(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("preflight allow-origin = %q, want *", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	_, _, router := testEnv(t, Options{CORSOrigins: []string{"https://notes.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q for disallowed origin", got)
	}
}

func TestRateLimit(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	_, _, router := testEnv(t, Options{RateLimiter: NewRateLimiter(0.001, 2, metrics), Metrics: metrics})

	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodGet, "/api/notes", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do(t, router, http.MethodGet, "/api/notes", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if env := decode[any](t, w); env.Success {
		t.Errorf("envelope = %+v", env)
	}
	if got := promtestutil.ToFloat64(metrics.rateLimited); got != 1 {
		t.Errorf("rate_limit_rejected_total = %v, want 1", got)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	svc, _ := testutil.TestService(t, testutil.NewClock(), noteservice.WithNotifier(metrics))
	r := chi.NewRouter()
	r.Mount("/api", NewRouter(svc, Options{Metrics: metrics}))

	do(t, r, http.MethodPost, "/api/notes", map[string]string{"title": "Metrics", "content": "counted once"})
	do(t, r, http.MethodGet, "/api/notes/missing", nil)

	if got := promtestutil.CollectAndCount(metrics.requests); got != 2 {
		t.Errorf("request series = %d, want 2", got)
	}
	if got := promtestutil.CollectAndCount(metrics.duration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
	if got := promtestutil.ToFloat64(metrics.mutations.WithLabelValues(noteservice.EventCreated)); got != 1 {
		t.Errorf("created mutations = %v, want 1", got)
	}
}

func TestEventsMounted(t *testing.T) {
	called := false
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	_, _, router := testEnv(t, Options{Events: events})

	do(t, router, http.MethodGet, "/api/events", nil)
	if !called {
		t.Error("events handler not mounted")
	}
}

func TestStaticHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewStaticHandler(dir)

	tests := []struct {
		path string
		want string
	}{
		{"/assets/app.js", "console.log(1)"},
		{"/", "<html>app</html>"},
		{"/notes/123/edit", "<html>app</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}

func TestStaticHandler_StaysUnderRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "site")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewStaticHandler(root)
	if got := h.resolve("/../secret.txt"); got != "" {
		t.Errorf("resolve escaped root: %q", got)
	}
}

func TestStaticHandler_NoIndex(t *testing.T) {
	h := NewStaticHandler(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListParams(t *testing.T) {
	tests := []struct {
		raw  string
		want noteservice.ListParams
	}{
		{"", noteservice.ListParams{Page: 1}},
		{"search=go&page=2&limit=5", noteservice.ListParams{Search: "go", Page: 2, Limit: 5}},
		{"page=-1&limit=5", noteservice.ListParams{Page: 0, Limit: 5}},
		{"limit=x", noteservice.ListParams{Page: 1}},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.raw, nil)
		if got := listParams(req.URL.Query()); got != tt.want {
			t.Errorf("listParams(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

// Ensure timestamps survive the envelope with sub-second precision.
func TestTimestampPrecision(t *testing.T) {
	clock := testutil.NewClock()
	clock.Step = 1500 * time.Microsecond
	svc, _ := testutil.TestService(t, clock)
	r := chi.NewRouter()
	r.Mount("/api", NewRouter(svc, Options{}))

	note, err := svc.Create(t.Context(), "Precise", "timestamps")
	if err != nil {
		t.Fatal(err)
	}
	got := decode[models.Note](t, do(t, r, http.MethodGet, "/api/notes/"+note.ID, nil)).Data
	if !got.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, note.CreatedAt)
	}
}
