// Package session holds the single in-memory resume being edited and routes
// every change through the pure document operations and the autosave boundary.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/kalambet/profileai/internal/resume"
)

// Store loads and clears the persisted document. Implemented by persist.Gateway.
type Store interface {
	Load() (resume.Document, bool)
	Clear()
}

// Notifier is told about every new document state. Implemented by
// autosave.Coordinator.
type Notifier interface {
	Notify(doc resume.Document)
	Cancel()
}

// Kind names one of the document's entry collections.
type Kind string

const (
	KindExperience Kind = "experience"
	KindEducation  Kind = "education"
	KindSkills     Kind = "skills"
)

// Kinds lists the entry collections in display order.
var Kinds = []Kind{KindExperience, KindEducation, KindSkills}

// ErrUnknownKind is returned for a collection name outside Kinds.
var ErrUnknownKind = errors.New("unknown entry kind")

// ParseKind converts a collection name from a request path or tool argument.
// "skill" and "work" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "experience", "work", "workExperience":
		return KindExperience, nil
	case "education":
		return KindEducation, nil
	case "skills", "skill":
		return KindSkills, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Session is the editing session. All methods are safe for concurrent use;
// each mutation is applied atomically and then handed to the notifier.
type Session struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger

	mu  sync.Mutex
	doc resume.Document
}

// New hydrates a session from store, falling back to the default document
// when nothing usable is stored.
func New(store Store, notifier Notifier) *Session {
	s := &Session{
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
	}
	if doc, ok := store.Load(); ok {
		s.doc = doc
		s.logger.Info("resume restored from local storage",
			"experience", len(doc.WorkExperience),
			"education", len(doc.Education),
			"skills", len(doc.Skills),
		)
	} else {
		s.doc = resume.Default()
	}
	return s
}

// Document returns a copy of the current state.
func (s *Session) Document() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// apply runs op against the current document, stores the result and
// notifies, all under the lock so notifications arrive in mutation order.
func (s *Session) apply(op func(resume.Document) resume.Document) resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = op(s.doc)
	s.notifier.Notify(s.doc)
	return s.doc.Clone()
}

func (s *Session) UpdatePersonalInfo(c resume.Change[resume.PersonalInfo]) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.UpdatePersonalInfo(d, c)
	})
}

func (s *Session) SetSelectedTemplate(templateID string) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.SetSelectedTemplate(d, templateID)
	})
}

// AddExperience appends an empty experience entry and returns its id.
func (s *Session) AddExperience() (resume.Document, string) {
	var id string
	doc := s.apply(func(d resume.Document) resume.Document {
		d, id = resume.AddExperience(d)
		return d
	})
	return doc, id
}

func (s *Session) UpdateExperience(id string, c resume.Change[resume.ExperienceEntry]) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.UpdateExperience(d, id, c)
	})
}

func (s *Session) RemoveExperience(id string) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.RemoveExperience(d, id)
	})
}

func (s *Session) AddEducation() (resume.Document, string) {
	var id string
	doc := s.apply(func(d resume.Document) resume.Document {
		d, id = resume.AddEducation(d)
		return d
	})
	return doc, id
}

func (s *Session) UpdateEducation(id string, c resume.Change[resume.EducationEntry]) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.UpdateEducation(d, id, c)
	})
}

func (s *Session) RemoveEducation(id string) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.RemoveEducation(d, id)
	})
}

func (s *Session) AddSkill() (resume.Document, string) {
	var id string
	doc := s.apply(func(d resume.Document) resume.Document {
		d, id = resume.AddSkill(d)
		return d
	})
	return doc, id
}

func (s *Session) UpdateSkill(id string, c resume.Change[resume.SkillEntry]) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.UpdateSkill(d, id, c)
	})
}

func (s *Session) RemoveSkill(id string) resume.Document {
	return s.apply(func(d resume.Document) resume.Document {
		return resume.RemoveSkill(d, id)
	})
}

// Replace swaps in doc wholesale, as an import does.
func (s *Session) Replace(doc resume.Document) resume.Document {
	doc = doc.Clone()
	return s.apply(func(resume.Document) resume.Document { return doc })
}

// Import validates data against the document schema and replaces the
// current state with it.
func (s *Session) Import(data []byte) (resume.Document, error) {
	doc, err := resume.Parse(data)
	if err != nil {
		return resume.Document{}, err
	}
	return s.Replace(doc), nil
}

// Reset drops the persisted copy and starts over from the default document.
func (s *Session) Reset() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifier.Cancel()
	s.store.Clear()
	s.doc = resume.Default()
	s.logger.Info("resume cleared")
	return s.doc.Clone()
}

// --- text boundary ---

// AddEntry appends an empty entry to the named collection.
func (s *Session) AddEntry(kind Kind) (resume.Document, string, error) {
	switch kind {
	case KindExperience:
		doc, id := s.AddExperience()
		return doc, id, nil
	case KindEducation:
		doc, id := s.AddEducation()
		return doc, id, nil
	case KindSkills:
		doc, id := s.AddSkill()
		return doc, id, nil
	}
	return resume.Document{}, "", fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// UpdateEntry applies a set of field changes, given by JSON field name, to
// one entry. Every field is parsed before any is applied, so a bad field
// leaves the document untouched. An unknown id is a no-op.
func (s *Session) UpdateEntry(kind Kind, id string, fields map[string]any) (resume.Document, error) {
	switch kind {
	case KindExperience:
		changes, err := parseAll(fields, resume.ParseExperienceChange)
		if err != nil {
			return resume.Document{}, err
		}
		return s.apply(func(d resume.Document) resume.Document {
			for _, c := range changes {
				d = resume.UpdateExperience(d, id, c)
			}
			return d
		}), nil
	case KindEducation:
		changes, err := parseAll(fields, resume.ParseEducationChange)
		if err != nil {
			return resume.Document{}, err
		}
		return s.apply(func(d resume.Document) resume.Document {
			for _, c := range changes {
				d = resume.UpdateEducation(d, id, c)
			}
			return d
		}), nil
	case KindSkills:
		changes, err := parseAll(fields, resume.ParseSkillChange)
		if err != nil {
			return resume.Document{}, err
		}
		return s.apply(func(d resume.Document) resume.Document {
			for _, c := range changes {
				d = resume.UpdateSkill(d, id, c)
			}
			return d
		}), nil
	}
	return resume.Document{}, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// RemoveEntry deletes one entry and reports whether it existed.
// An unknown id is a no-op.
func (s *Session) RemoveEntry(kind Kind, id string) (resume.Document, bool, error) {
	var remove func(resume.Document, string) resume.Document
	switch kind {
	case KindExperience:
		remove = resume.RemoveExperience
	case KindEducation:
		remove = resume.RemoveEducation
	case KindSkills:
		remove = resume.RemoveSkill
	default:
		return resume.Document{}, false, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	var found bool
	doc := s.apply(func(d resume.Document) resume.Document {
		found = HasEntry(d, kind, id)
		return remove(d, id)
	})
	return doc, found, nil
}

// HasEntry reports whether doc holds an entry with id in the kind collection.
func HasEntry(doc resume.Document, kind Kind, id string) bool {
	switch kind {
	case KindExperience:
		return slices.ContainsFunc(doc.WorkExperience, func(e resume.ExperienceEntry) bool { return e.ID == id })
	case KindEducation:
		return slices.ContainsFunc(doc.Education, func(e resume.EducationEntry) bool { return e.ID == id })
	case KindSkills:
		return slices.ContainsFunc(doc.Skills, func(e resume.SkillEntry) bool { return e.ID == id })
	}
	return false
}

// UpdatePersonalFields applies several personal info changes at once.
func (s *Session) UpdatePersonalFields(fields map[string]any) (resume.Document, error) {
	changes, err := parseAll(fields, resume.ParsePersonalChange)
	if err != nil {
		return resume.Document{}, err
	}
	return s.apply(func(d resume.Document) resume.Document {
		for _, c := range changes {
			d = resume.UpdatePersonalInfo(d, c)
		}
		return d
	}), nil
}

// CheckEntryFields parses fields for kind the way UpdateEntry does, without
// applying them.
func CheckEntryFields(kind Kind, fields map[string]any) error {
	var err error
	switch kind {
	case KindExperience:
		_, err = parseAll(fields, resume.ParseExperienceChange)
	case KindEducation:
		_, err = parseAll(fields, resume.ParseEducationChange)
	case KindSkills:
		_, err = parseAll(fields, resume.ParseSkillChange)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return err
}

func parseAll[E any](fields map[string]any, parse func(string, any) (resume.Change[E], error)) ([]resume.Change[E], error) {
	changes := make([]resume.Change[E], 0, len(fields))
	for name, value := range fields {
		c, err := parse(name, value)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}
