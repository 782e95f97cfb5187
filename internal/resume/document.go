// Package resume defines the resume document schema and the pure operations
// editing surfaces use to change it.
package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Document is the root aggregate for one user's resume.
type Document struct {
	PersonalInfo     PersonalInfo      `json:"personalInfo"`
	WorkExperience   []ExperienceEntry `json:"workExperience"`
	Education        []EducationEntry  `json:"education"`
	Skills           []SkillEntry      `json:"skills"`
	SelectedTemplate string            `json:"selectedTemplate,omitempty"`
}

type PersonalInfo struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Summary  string `json:"summary"`
}

type ExperienceEntry struct {
	ID        string `json:"id"`
	JobTitle  string `json:"jobTitle"`
	Company   string `json:"company"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	// Description may span several lines.
	Description string `json:"description"`
}

type EducationEntry struct {
	ID             string `json:"id"`
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	GraduationYear string `json:"graduationYear"`
	GPA            string `json:"gpa,omitempty"`
}

// SkillEntry holds a proficiency percentage in [MinLevel, MaxLevel].
type SkillEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

const (
	MinLevel = 0
	MaxLevel = 100
)

func (e ExperienceEntry) entryID() string { return e.ID }
func (e EducationEntry) entryID() string  { return e.ID }
func (e SkillEntry) entryID() string      { return e.ID }

// Default returns the empty document a brand-new user starts from.
func Default() Document {
	return Document{
		WorkExperience: []ExperienceEntry{},
		Education:      []EducationEntry{},
		Skills:         []SkillEntry{},
	}
}

// Clone returns a deep copy of d. Collections are never nil in the copy.
func (d Document) Clone() Document {
	cp := d
	cp.WorkExperience = cloneEntries(d.WorkExperience)
	cp.Education = cloneEntries(d.Education)
	cp.Skills = cloneEntries(d.Skills)
	return cp
}

func cloneEntries[E any](in []E) []E {
	if in == nil {
		return []E{}
	}
	return slices.Clone(in)
}

// Encode serializes d in the persisted JSON layout.
func Encode(d Document) ([]byte, error) {
	b, err := json.Marshal(d.Clone())
	if err != nil {
		return nil, fmt.Errorf("encoding resume: %w", err)
	}
	return b, nil
}

// Decode parses the persisted JSON layout. Missing collections decode as empty.
// Whole numbers written with a fraction or exponent (85.0, 8.5e1) are accepted
// for integer fields.
func Decode(data []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(data, &d)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Value == "number" {
		if norm, nerr := wholeNumbers(data); nerr == nil {
			d = Document{}
			err = json.Unmarshal(norm, &d)
		}
	}
	if err != nil {
		return Document{}, fmt.Errorf("decoding resume: %w", err)
	}
	return d.Clone(), nil
}

// wholeNumbers rewrites every integral JSON number in data as a plain integer.
func wholeNumbers(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeNumbers(v))
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return t
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
			return json.Number(strconv.FormatInt(int64(f), 10))
		}
	}
	return v
}
