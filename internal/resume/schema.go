package resume

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed resume.schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Schema returns the JSON Schema describing the persisted layout.
func Schema() string {
	return schemaJSON
}

// ValidationError represents a schema validation error with field paths.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateJSON checks an externally supplied document against the resume
// schema. Ids must also be unique within each collection.
func ValidateJSON(data []byte) error {
	_, err := Parse(data)
	return err
}

// Parse validates data like ValidateJSON and returns the decoded document.
// Every rejection of the input itself is a *ValidationError.
func Parse(data []byte) (Document, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, fmt.Errorf("validating resume: %w", err)
	}

	if !result.Valid() {
		validationErr := &ValidationError{
			Errors: make([]FieldError, 0, len(result.Errors())),
		}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			validationErr.Errors = append(validationErr.Errors, FieldError{
				Field:   field,
				Message: desc.Description(),
			})
		}
		return Document{}, validationErr
	}

	doc, err := Decode(data)
	if err != nil {
		return Document{}, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if dups := duplicateIDs(doc); len(dups) > 0 {
		return Document{}, &ValidationError{Errors: dups}
	}
	return doc, nil
}

func duplicateIDs(doc Document) []FieldError {
	var errs []FieldError
	check := func(section string, ids []string) {
		seen := make(map[string]bool, len(ids))
		for i, id := range ids {
			if seen[id] {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.%d.id", section, i),
					Message: fmt.Sprintf("duplicate id %q", id),
				})
			}
			seen[id] = true
		}
	}
	check("workExperience", collectIDs(doc.WorkExperience))
	check("education", collectIDs(doc.Education))
	check("skills", collectIDs(doc.Skills))
	return errs
}

func collectIDs[E entry](entries []E) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.entryID()
	}
	return ids
}
