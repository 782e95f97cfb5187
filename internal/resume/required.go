package resume

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so messages match the persisted layout.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MissingFieldsError lists required personal info fields that are empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// CheckRequired reports whether doc has the fields needed before it can be
// downloaded or shared: personalInfo.fullName and personalInfo.email.
func CheckRequired(doc Document) error {
	err := validate.Struct(doc.PersonalInfo)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("checking required fields: %w", err)
	}
	missing := &MissingFieldsError{}
	for _, fe := range verrs {
		missing.Fields = append(missing.Fields, fe.Field())
	}
	return missing
}
