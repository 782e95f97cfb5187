package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/profileai/internal/export"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
	"github.com/kalambet/profileai/internal/storage"
	"github.com/kalambet/profileai/internal/templates"
)

// ExportService abstracts the simulated export queue for the API layer.
type ExportService interface {
	Request(doc resume.Document, kind export.Kind, target string) (export.Status, error)
	Status(id string) (export.Status, error)
}

// AutosaveState reports the debounced save scheduler's state for /status.
type AutosaveState interface {
	Window() time.Duration
	Pending() bool
}

type AppDeps struct {
	Session  *session.Session
	Exports  ExportService // optional; export routes answer 503 when nil
	Autosave AutosaveState // optional
	Token    string
}

// NewAppHandler returns the local HTTP API. Every route except /health
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/status", handleStatus(deps))
		r.Get("/resume", handleGetResume(deps))
		r.Put("/resume", handleImportResume(deps))
		r.Delete("/resume", handleResetResume(deps))
		r.Patch("/resume/personal", handlePatchPersonal(deps))
		r.Put("/resume/template", handleSelectTemplate(deps))
		r.Post("/resume/{kind}", handleAddEntry(deps))
		r.Patch("/resume/{kind}/{id}", handleUpdateEntry(deps))
		r.Delete("/resume/{kind}/{id}", handleRemoveEntry(deps))

		r.Get("/templates", handleListTemplates)
		r.Get("/templates/categories", handleListCategories)
		r.Get("/templates/{id}", handleGetTemplate)
		r.Get("/preview", handlePreview(deps))

		r.Post("/exports", handleRequest(deps, export.KindExport, "format"))
		r.Post("/shares", handleRequest(deps, export.KindShare, "channel"))
		r.Get("/exports/{id}", handleExportStatus(deps))
	})

	return r
}

type autosaveStatus struct {
	Window  string `json:"window"`
	Pending bool   `json:"pending"`
}

type statusResponse struct {
	Autosave *autosaveStatus `json:"autosave,omitempty"`
	Exports  bool            `json:"exports"`
}

func handleStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Exports: deps.Exports != nil}
		if deps.Autosave != nil {
			resp.Autosave = &autosaveStatus{
				Window:  deps.Autosave.Window().String(),
				Pending: deps.Autosave.Pending(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Document())
	}
}

func handleImportResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "request body is empty")
			return
		}

		doc, err := deps.Session.Import(data)
		if err != nil {
			editError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleResetResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Reset())
	}
}

func handlePatchPersonal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if !decodeBody(w, r, &fields) {
			return
		}
		doc, err := deps.Session.UpdatePersonalFields(fields)
		if err != nil {
			editError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

type selectTemplateRequest struct {
	TemplateID string `json:"templateId"`
}

func handleSelectTemplate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectTemplateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.TemplateID != "" {
			if _, ok := templates.Lookup(req.TemplateID); !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown template %q", req.TemplateID)
				return
			}
		}
		writeJSON(w, http.StatusOK, deps.Session.SetSelectedTemplate(req.TemplateID))
	}
}

func handleAddEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := session.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		doc, id, err := deps.Session.AddEntry(kind)
		if err != nil {
			editError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":       id,
			"document": doc,
		})
	}
}

func handleUpdateEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := session.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		var fields map[string]any
		if !decodeBody(w, r, &fields) {
			return
		}
		doc, err := deps.Session.UpdateEntry(kind, chi.URLParam(r, "id"), fields)
		if err != nil {
			editError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleRemoveEntry(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := session.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		doc, _, err := deps.Session.RemoveEntry(kind, chi.URLParam(r, "id"))
		if err != nil {
			editError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found := templates.Search(q.Get("q"), q.Get("category"))
	if found == nil {
		found = []templates.Template{}
	}
	writeJSON(w, http.StatusOK, found)
}

// handleListCategories returns the gallery tabs, AllCategories first.
func handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templates.Categories())
}

func handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := templates.Lookup(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func handlePreview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var doc resume.Document
		if q.Get("sample") == "true" {
			doc = templates.SampleDocument()
		} else {
			doc = deps.Session.Document()
		}
		templateID := q.Get("template")
		if templateID == "" {
			templateID = doc.SelectedTemplate
		}
		tree := templates.Render(templateID, doc)

		switch format := strings.ToLower(q.Get("format")); format {
		case "", "json":
			writeJSON(w, http.StatusOK, tree)
		case "html":
			out, err := templates.RenderHTML(tree)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, out)
		case "text":
			var buf bytes.Buffer
			if err := templates.RenderText(&buf, tree); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			buf.WriteTo(w)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unsupported preview format %q (want json, html or text)", format)
		}
	}
}

func handleRequest(deps AppDeps, kind export.Kind, targetField string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Exports == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "exports are not available")
			return
		}
		var body map[string]any
		if !decodeBody(w, r, &body) {
			return
		}
		target, _ := body[targetField].(string)
		if target == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s is required", targetField)
			return
		}

		st, err := deps.Exports.Request(deps.Session.Document(), kind, target)
		var missing *resume.MissingFieldsError
		switch {
		case errors.As(err, &missing):
			fieldsError(w, http.StatusUnprocessableEntity, "missing_fields", missing.Error(), missing.Fields)
			return
		case errors.Is(err, export.ErrUnsupportedTarget):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue %s: %v", kind, err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
	}
}

func handleExportStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Exports == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "exports are not available")
			return
		}
		st, err := deps.Exports.Status(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "export not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get export: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
