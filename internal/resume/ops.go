package resume

import (
	"slices"

	"github.com/google/uuid"
)

// newID returns a random 128-bit identifier for a new entry.
var newID = func() string {
	return uuid.New().String()
}

type entry interface {
	ExperienceEntry | EducationEntry | SkillEntry
	entryID() string
}

// appendEntry returns a copy of entries with e appended.
func appendEntry[E entry](entries []E, e E) []E {
	out := make([]E, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, e)
}

// updateEntry applies c to the entry with the given id. The second result is
// false, and entries is returned untouched, when no entry matches.
func updateEntry[E entry](entries []E, id string, c Change[E]) ([]E, bool) {
	i := slices.IndexFunc(entries, func(e E) bool { return e.entryID() == id })
	if i < 0 {
		return entries, false
	}
	out := slices.Clone(entries)
	c.apply(&out[i])
	return out, true
}

func removeEntry[E entry](entries []E, id string) ([]E, bool) {
	i := slices.IndexFunc(entries, func(e E) bool { return e.entryID() == id })
	if i < 0 {
		return entries, false
	}
	out := make([]E, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...), true
}

// UpdatePersonalInfo replaces one personal info field.
func UpdatePersonalInfo(doc Document, c Change[PersonalInfo]) Document {
	out := doc.Clone()
	c.apply(&out.PersonalInfo)
	return out
}

// SetSelectedTemplate records the chosen template. An empty id clears the choice.
func SetSelectedTemplate(doc Document, templateID string) Document {
	out := doc.Clone()
	out.SelectedTemplate = templateID
	return out
}

// AddExperience appends an empty entry and returns its id.
func AddExperience(doc Document) (Document, string) {
	id := newID()
	out := doc.Clone()
	out.WorkExperience = appendEntry(out.WorkExperience, ExperienceEntry{ID: id})
	return out, id
}

// UpdateExperience applies c to the entry with the given id. Unknown ids leave doc unchanged.
func UpdateExperience(doc Document, id string, c Change[ExperienceEntry]) Document {
	entries, ok := updateEntry(doc.WorkExperience, id, c)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.WorkExperience = entries
	return out
}

// RemoveExperience deletes the entry with the given id, keeping the order of the rest.
func RemoveExperience(doc Document, id string) Document {
	entries, ok := removeEntry(doc.WorkExperience, id)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.WorkExperience = entries
	return out
}

func AddEducation(doc Document) (Document, string) {
	id := newID()
	out := doc.Clone()
	out.Education = appendEntry(out.Education, EducationEntry{ID: id})
	return out, id
}

func UpdateEducation(doc Document, id string, c Change[EducationEntry]) Document {
	entries, ok := updateEntry(doc.Education, id, c)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.Education = entries
	return out
}

func RemoveEducation(doc Document, id string) Document {
	entries, ok := removeEntry(doc.Education, id)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.Education = entries
	return out
}

func AddSkill(doc Document) (Document, string) {
	id := newID()
	out := doc.Clone()
	out.Skills = appendEntry(out.Skills, SkillEntry{ID: id})
	return out, id
}

func UpdateSkill(doc Document, id string, c Change[SkillEntry]) Document {
	entries, ok := updateEntry(doc.Skills, id, c)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.Skills = entries
	return out
}

func RemoveSkill(doc Document, id string) Document {
	entries, ok := removeEntry(doc.Skills, id)
	if !ok {
		return doc
	}
	out := doc.Clone()
	out.Skills = entries
	return out
}
