package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// fieldsError reports a failure tied to specific document fields.
func fieldsError(w http.ResponseWriter, code int, errType, msg string, fields []string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
			"fields":  fields,
		},
	})
}

// editError maps errors from the editing text boundary to a response.
func editError(w http.ResponseWriter, err error) {
	var verr *resume.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			fields = append(fields, fe.Field)
		}
		fieldsError(w, http.StatusBadRequest, "validation_error", verr.Error(), fields)
	case errors.Is(err, resume.ErrUnknownField),
		errors.Is(err, resume.ErrInvalidValue),
		errors.Is(err, session.ErrUnknownKind):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

// decodeBody decodes a size-limited JSON body, keeping numbers as json.Number.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}
