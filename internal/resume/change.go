package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownField is returned when a field name from outside the program
	// (HTTP, MCP, CLI) does not name an editable field.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a text value cannot be converted to the field's type.
	ErrInvalidValue = errors.New("invalid value")
)

// Change replaces one field of a value of type E. The set of changes is
// closed: only the constructors in this package can build one.
type Change[E any] interface {
	// Field is the JSON name of the field the change replaces.
	Field() string
	apply(*E)
}

type fieldChange[E any] struct {
	field string
	set   func(*E)
}

func (c fieldChange[E]) Field() string { return c.field }
func (c fieldChange[E]) apply(e *E)    { c.set(e) }

func change[E any](field string, set func(*E)) Change[E] {
	return fieldChange[E]{field: field, set: set}
}

// --- personal info ---

func FullName(v string) Change[PersonalInfo] {
	return change("fullName", func(p *PersonalInfo) { p.FullName = v })
}

func Email(v string) Change[PersonalInfo] {
	return change("email", func(p *PersonalInfo) { p.Email = v })
}

func Phone(v string) Change[PersonalInfo] {
	return change("phone", func(p *PersonalInfo) { p.Phone = v })
}

func Address(v string) Change[PersonalInfo] {
	return change("address", func(p *PersonalInfo) { p.Address = v })
}

func Summary(v string) Change[PersonalInfo] {
	return change("summary", func(p *PersonalInfo) { p.Summary = v })
}

// --- work experience ---

func JobTitle(v string) Change[ExperienceEntry] {
	return change("jobTitle", func(e *ExperienceEntry) { e.JobTitle = v })
}

func Company(v string) Change[ExperienceEntry] {
	return change("company", func(e *ExperienceEntry) { e.Company = v })
}

func StartDate(v string) Change[ExperienceEntry] {
	return change("startDate", func(e *ExperienceEntry) { e.StartDate = v })
}

func EndDate(v string) Change[ExperienceEntry] {
	return change("endDate", func(e *ExperienceEntry) { e.EndDate = v })
}

func Description(v string) Change[ExperienceEntry] {
	return change("description", func(e *ExperienceEntry) { e.Description = v })
}

// --- education ---

func Degree(v string) Change[EducationEntry] {
	return change("degree", func(e *EducationEntry) { e.Degree = v })
}

func Institution(v string) Change[EducationEntry] {
	return change("institution", func(e *EducationEntry) { e.Institution = v })
}

func GraduationYear(v string) Change[EducationEntry] {
	return change("graduationYear", func(e *EducationEntry) { e.GraduationYear = v })
}

func GPA(v string) Change[EducationEntry] {
	return change("gpa", func(e *EducationEntry) { e.GPA = v })
}

// --- skills ---

func SkillName(v string) Change[SkillEntry] {
	return change("name", func(e *SkillEntry) { e.Name = v })
}

// SkillLevel sets the proficiency, clamped to [MinLevel, MaxLevel].
func SkillLevel(v int) Change[SkillEntry] {
	v = ClampLevel(v)
	return change("level", func(e *SkillEntry) { e.Level = v })
}

// ClampLevel limits v to [MinLevel, MaxLevel].
func ClampLevel(v int) int {
	return min(max(v, MinLevel), MaxLevel)
}

// --- text boundary ---

var personalFields = map[string]func(string) Change[PersonalInfo]{
	"fullName": FullName,
	"email":    Email,
	"phone":    Phone,
	"address":  Address,
	"summary":  Summary,
}

var experienceFields = map[string]func(string) Change[ExperienceEntry]{
	"jobTitle":    JobTitle,
	"company":     Company,
	"startDate":   StartDate,
	"endDate":     EndDate,
	"description": Description,
}

var educationFields = map[string]func(string) Change[EducationEntry]{
	"degree":         Degree,
	"institution":    Institution,
	"graduationYear": GraduationYear,
	"gpa":            GPA,
}

// Field names in display order.
var (
	PersonalFields   = []string{"fullName", "email", "phone", "address", "summary"}
	ExperienceFields = []string{"jobTitle", "company", "startDate", "endDate", "description"}
	EducationFields  = []string{"degree", "institution", "graduationYear", "gpa"}
	SkillFields      = []string{"name", "level"}
)

// ParsePersonalChange builds a change from a field name and a decoded value.
func ParsePersonalChange(field string, value any) (Change[PersonalInfo], error) {
	return parseStringChange(personalFields, "personalInfo", field, value)
}

func ParseExperienceChange(field string, value any) (Change[ExperienceEntry], error) {
	return parseStringChange(experienceFields, "workExperience", field, value)
}

func ParseEducationChange(field string, value any) (Change[EducationEntry], error) {
	return parseStringChange(educationFields, "education", field, value)
}

// ParseSkillChange accepts a number or a numeric string for "level".
func ParseSkillChange(field string, value any) (Change[SkillEntry], error) {
	switch field {
	case "name":
		s, err := asString(field, value)
		if err != nil {
			return nil, err
		}
		return SkillName(s), nil
	case "level":
		n, err := asInt(field, value)
		if err != nil {
			return nil, err
		}
		return SkillLevel(n), nil
	}
	return nil, fmt.Errorf("%w %q in skills", ErrUnknownField, field)
}

func parseStringChange[E any](fields map[string]func(string) Change[E], section, field string, value any) (Change[E], error) {
	build, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("%w %q in %s", ErrUnknownField, field, section)
	}
	s, err := asString(field, value)
	if err != nil {
		return nil, err
	}
	return build(s), nil
}

func asString(field string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("%w for %s: %T", ErrInvalidValue, field, value)
}

func asInt(field string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%w for %s: %v is not a whole number", ErrInvalidValue, field, v)
		}
		return int(math.Max(math.Min(v, math.MaxInt32), math.MinInt32)), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return asInt(field, float64(n))
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w for %s: %q", ErrInvalidValue, field, v.String())
		}
		return asInt(field, f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w for %s: %q", ErrInvalidValue, field, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w for %s: %T", ErrInvalidValue, field, value)
}
