package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/profileai/internal/export"
	"github.com/kalambet/profileai/internal/persist"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
	"github.com/kalambet/profileai/internal/storage"
	"github.com/kalambet/profileai/internal/templates"
)

const testToken = "test-token-12345"

// recordingNotifier counts autosave notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	notified int
	canceled int
}

func (n *recordingNotifier) Notify(resume.Document) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified++
}

func (n *recordingNotifier) Window() time.Duration { return 750 * time.Millisecond }

// Pending treats every notification since the last cancel as unsaved.
func (n *recordingNotifier) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notified > n.canceled
}

func (n *recordingNotifier) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.canceled++
}

type testEnv struct {
	handler  http.Handler
	store    *storage.Store
	session  *session.Session
	notifier *recordingNotifier
}

func setupAppHandler(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	notifier := &recordingNotifier{}
	sess := session.New(persist.NewGateway(store), notifier)

	handler := NewAppHandler(AppDeps{
		Session:  sess,
		Exports:  export.NewService(store),
		Autosave: notifier,
		Token:    testToken,
	})
	return &testEnv{handler: handler, store: store, session: sess, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Message string   `json:"message"`
		Type    string   `json:"type"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

func TestHealth_NoAuth(t *testing.T) {
	env := setupAppHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	env := setupAppHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/resume", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /resume with wrong token = %d, want 401", rec.Code)
	}
	body := decodeResponse[errorBody](t, rec)
	if body.Error.Type != "authentication_error" {
		t.Errorf("error type = %q", body.Error.Type)
	}
}

func TestGetResume_Default(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodGet, "/resume", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /resume = %d", rec.Code)
	}
	doc := decodeResponse[resume.Document](t, rec)
	if doc.PersonalInfo.FullName != "" || len(doc.WorkExperience) != 0 {
		t.Errorf("expected empty default document, got %+v", doc)
	}
}

func TestPatchPersonal(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPatch, "/resume/personal", `{"fullName":"Jane Doe","email":"jane@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH /resume/personal = %d: %s", rec.Code, rec.Body.String())
	}
	doc := decodeResponse[resume.Document](t, rec)
	if doc.PersonalInfo.FullName != "Jane Doe" || doc.PersonalInfo.Email != "jane@example.com" {
		t.Errorf("personal info = %+v", doc.PersonalInfo)
	}
	if env.notifier.notified != 1 {
		t.Errorf("notifications = %d, want 1", env.notifier.notified)
	}
}

func TestPatchPersonal_UnknownFieldRejected(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPatch, "/resume/personal", `{"fullName":"Jane","nickname":"JD"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PATCH with unknown field = %d, want 400", rec.Code)
	}
	if got := env.session.Document().PersonalInfo.FullName; got != "" {
		t.Errorf("partial update applied: fullName = %q", got)
	}
}

func TestEntryLifecycle(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPost, "/resume/skills", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /resume/skills = %d", rec.Code)
	}
	created := decodeResponse[struct {
		ID       string          `json:"id"`
		Document resume.Document `json:"document"`
	}](t, rec)
	if created.ID == "" || len(created.Document.Skills) != 1 {
		t.Fatalf("unexpected create response: %+v", created)
	}
	if created.Document.Skills[0].Level != 0 {
		t.Errorf("new skill level = %d, want 0", created.Document.Skills[0].Level)
	}

	rec = env.do(t, http.MethodPatch, "/resume/skills/"+created.ID, `{"name":"Go","level":120}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH skill = %d: %s", rec.Code, rec.Body.String())
	}
	doc := decodeResponse[resume.Document](t, rec)
	if doc.Skills[0].Name != "Go" || doc.Skills[0].Level != 100 {
		t.Errorf("skill = %+v, want Go at 100", doc.Skills[0])
	}

	rec = env.do(t, http.MethodDelete, "/resume/skills/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE skill = %d", rec.Code)
	}
	if doc := decodeResponse[resume.Document](t, rec); len(doc.Skills) != 0 {
		t.Errorf("skills after delete = %d, want 0", len(doc.Skills))
	}
}

func TestEntry_UnknownKind(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPost, "/resume/hobbies", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("POST /resume/hobbies = %d, want 404", rec.Code)
	}
}

func TestEntry_InvalidLevel(t *testing.T) {
	env := setupAppHandler(t)
	_, id := env.session.AddSkill()

	rec := env.do(t, http.MethodPatch, "/resume/skills/"+id, `{"level":"high"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PATCH with non-numeric level = %d, want 400", rec.Code)
	}
}

func TestEntry_WholeNumberLevelWithFraction(t *testing.T) {
	env := setupAppHandler(t)
	_, id := env.session.AddSkill()

	rec := env.do(t, http.MethodPatch, "/resume/skills/"+id, `{"level":85.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH level 85.0 = %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.session.Document().Skills[0].Level; got != 85 {
		t.Errorf("level = %d, want 85", got)
	}

	rec = env.do(t, http.MethodPatch, "/resume/skills/"+id, `{"level":85.5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PATCH level 85.5 = %d, want 400", rec.Code)
	}
}

func TestSelectTemplate(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPut, "/resume/template", `{"templateId":"4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /resume/template = %d", rec.Code)
	}
	if got := env.session.Document().SelectedTemplate; got != "4" {
		t.Errorf("SelectedTemplate = %q, want 4", got)
	}

	rec = env.do(t, http.MethodPut, "/resume/template", `{"templateId":"99"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown template = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/resume/template", `{"templateId":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clearing template = %d", rec.Code)
	}
	if got := env.session.Document().SelectedTemplate; got != "" {
		t.Errorf("SelectedTemplate = %q, want cleared", got)
	}
}

func TestImportAndReset(t *testing.T) {
	env := setupAppHandler(t)

	body := `{"personalInfo":{"fullName":"Ada","email":"ada@example.com","phone":"","address":"","summary":""},"workExperience":[],"education":[],"skills":[{"id":"s1","name":"Math","level":90}]}`
	rec := env.do(t, http.MethodPut, "/resume", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /resume = %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.session.Document().PersonalInfo.FullName; got != "Ada" {
		t.Errorf("fullName after import = %q", got)
	}

	rec = env.do(t, http.MethodDelete, "/resume", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /resume = %d", rec.Code)
	}
	if got := env.session.Document().PersonalInfo.FullName; got != "" {
		t.Errorf("fullName after reset = %q", got)
	}
	if env.notifier.canceled != 1 {
		t.Errorf("pending save canceled %d times, want 1", env.notifier.canceled)
	}
}

func TestImport_InvalidDocument(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPut, "/resume", `{"workExperience":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT invalid resume = %d, want 400", rec.Code)
	}
	body := decodeResponse[errorBody](t, rec)
	if body.Error.Type != "validation_error" || len(body.Error.Fields) == 0 {
		t.Errorf("error = %+v", body.Error)
	}

	rec = env.do(t, http.MethodPut, "/resume", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT empty body = %d, want 400", rec.Code)
	}
}

func TestImport_WholeNumberLevelWithFraction(t *testing.T) {
	env := setupAppHandler(t)

	body := `{"personalInfo":{"fullName":"Ada","email":"","phone":"","address":"","summary":""},"workExperience":[],"education":[],"skills":[{"id":"s1","name":"Math","level":85.0}]}`
	rec := env.do(t, http.MethodPut, "/resume", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /resume = %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.session.Document().Skills[0].Level; got != 85 {
		t.Errorf("level = %d, want 85", got)
	}
}

func TestStatus(t *testing.T) {
	env := setupAppHandler(t)

	type status struct {
		Autosave struct {
			Window  string `json:"window"`
			Pending bool   `json:"pending"`
		} `json:"autosave"`
		Exports bool `json:"exports"`
	}

	rec := env.do(t, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", rec.Code)
	}
	got := decodeResponse[status](t, rec)
	if got.Autosave.Window != "750ms" || got.Autosave.Pending || !got.Exports {
		t.Errorf("idle status = %+v", got)
	}

	env.session.UpdatePersonalInfo(resume.FullName("Jane"))
	got = decodeResponse[status](t, env.do(t, http.MethodGet, "/status", ""))
	if !got.Autosave.Pending {
		t.Error("status after an edit does not report a pending save")
	}
}

func TestTemplateCategories(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodGet, "/templates/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates/categories = %d", rec.Code)
	}
	cats := decodeResponse[[]string](t, rec)
	if len(cats) < 2 || cats[0] != templates.AllCategories || !slices.Contains(cats, "Healthcare") {
		t.Errorf("categories = %v", cats)
	}
}

func TestTemplates(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodGet, "/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates = %d", rec.Code)
	}
	if all := decodeResponse[[]map[string]any](t, rec); len(all) != 8 {
		t.Errorf("templates = %d, want 8", len(all))
	}

	rec = env.do(t, http.MethodGet, "/templates?q=zzz", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("no-match search body = %q, want []", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/templates/6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates/6 = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/templates/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /templates/42 = %d, want 404", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	env := setupAppHandler(t)
	env.session.UpdatePersonalInfo(resume.FullName("Jane Doe"))

	rec := env.do(t, http.MethodGet, "/preview?template=2&format=html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /preview html = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Jane Doe") {
		t.Errorf("html preview missing name: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/preview?template=1&format=text&sample=true", "")
	if !strings.Contains(rec.Body.String(), "John Doe") {
		t.Errorf("sample preview missing sample name: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/preview?format=json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /preview json = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/preview?format=pdf", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("GET /preview pdf = %d, want 400", rec.Code)
	}
}

func TestExport_MissingFields(t *testing.T) {
	env := setupAppHandler(t)

	rec := env.do(t, http.MethodPost, "/exports", `{"format":"pdf"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("POST /exports with empty name = %d, want 422", rec.Code)
	}
	body := decodeResponse[errorBody](t, rec)
	if body.Error.Type != "missing_fields" || len(body.Error.Fields) != 2 {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestExport_QueuedAndStatus(t *testing.T) {
	env := setupAppHandler(t)
	env.session.UpdatePersonalFields(map[string]any{"fullName": "Jane Doe", "email": "jane@example.com"})

	rec := env.do(t, http.MethodPost, "/exports", `{"format":"PDF"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /exports = %d: %s", rec.Code, rec.Body.String())
	}
	st := decodeResponse[export.Status](t, rec)
	if !st.Busy || st.Target != "pdf" || st.FileName != "Jane_Doe_Resume.pdf" {
		t.Errorf("status = %+v", st)
	}

	rec = env.do(t, http.MethodGet, "/exports/"+st.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /exports/{id} = %d", rec.Code)
	}
	if got := decodeResponse[export.Status](t, rec); got.ID != st.ID || got.Status != storage.JobPending {
		t.Errorf("status lookup = %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/exports/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET unknown export = %d, want 404", rec.Code)
	}
}

func TestExport_UnsupportedTarget(t *testing.T) {
	env := setupAppHandler(t)
	env.session.UpdatePersonalFields(map[string]any{"fullName": "Jane", "email": "jane@example.com"})

	rec := env.do(t, http.MethodPost, "/exports", `{"format":"odt"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /exports odt = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/shares", `{"channel":"fax"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /shares fax = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/shares", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /shares without channel = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/shares", `{"channel":"email"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /shares email = %d, want 202", rec.Code)
	}
}
