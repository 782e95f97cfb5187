package templates

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kalambet/profileai/internal/resume"
)

// Placeholder text for empty personal info fields.
const (
	PlaceholderName    = "Your Name"
	PlaceholderEmail   = "your.email@example.com"
	PlaceholderPhone   = "+1 (555) 123-4567"
	PlaceholderAddress = "Your Address"
)

// dotCount is the number of dots in a SkillDots rating.
const dotCount = 5

// SectionKind identifies what a section holds.
type SectionKind string

const (
	SectionSummary    SectionKind = "summary"
	SectionExperience SectionKind = "experience"
	SectionSkills     SectionKind = "skills"
	SectionEducation  SectionKind = "education"
)

// RenderTree is a template applied to a document: everything a view needs
// to draw the resume, with placeholders already substituted.
type RenderTree struct {
	TemplateID    string    `json:"templateId"`
	TemplateTitle string    `json:"templateTitle"`
	Header        Header    `json:"header"`
	Sections      []Section `json:"sections"`
}

type Header struct {
	Name     string   `json:"name"`
	Initials string   `json:"initials,omitempty"`
	Headline string   `json:"headline"`
	Contact  []string `json:"contact"`
}

type Section struct {
	Kind    SectionKind `json:"kind"`
	Heading string      `json:"heading"`
	// Lines holds the summary text, one element per line.
	Lines      []string    `json:"lines,omitempty"`
	Items      []Item      `json:"items,omitempty"`
	Skills     []SkillItem `json:"skills,omitempty"`
	SkillStyle SkillStyle  `json:"skillStyle,omitempty"`
}

// Item is one experience or education entry.
type Item struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Period   string   `json:"period,omitempty"`
	Lines    []string `json:"lines,omitempty"`
}

type SkillItem struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	// Filled is the number of filled dots out of Dots, set for SkillDots.
	Filled int `json:"filled,omitempty"`
	Dots   int `json:"dots,omitempty"`
}

// Render lays doc out with the template identified by templateID. Unknown ids
// use a plain fallback layout. Render never mutates doc.
func Render(templateID string, doc resume.Document) RenderTree {
	t, ok := Lookup(templateID)
	if !ok {
		t = fallback
		t.ID = templateID
	}

	info := doc.PersonalInfo
	name := orDefault(info.FullName, PlaceholderName)

	tree := RenderTree{
		TemplateID:    t.ID,
		TemplateTitle: t.Title,
		Header: Header{
			Name:     name,
			Headline: t.Headline,
			Contact: []string{
				orDefault(info.Email, PlaceholderEmail),
				orDefault(info.Phone, PlaceholderPhone),
				orDefault(info.Address, PlaceholderAddress),
			},
		},
	}
	if t.Initials {
		tree.Header.Initials = initials(name)
	}
	if len(doc.WorkExperience) > 0 && strings.TrimSpace(doc.WorkExperience[0].JobTitle) != "" {
		tree.Header.Headline = doc.WorkExperience[0].JobTitle
	}

	tree.Sections = append(tree.Sections, Section{
		Kind:    SectionSummary,
		Heading: t.Headings.Summary,
		Lines:   splitLines(orDefault(info.Summary, t.SummaryPlaceholder)),
	})

	exp := Section{Kind: SectionExperience, Heading: t.Headings.Experience}
	for _, e := range doc.WorkExperience {
		exp.Items = append(exp.Items, Item{
			Title:    e.JobTitle,
			Subtitle: e.Company,
			Period:   period(e.StartDate, e.EndDate),
			Lines:    splitLines(e.Description),
		})
	}
	tree.Sections = append(tree.Sections, exp)

	if t.Headings.Skills != "" {
		sk := Section{Kind: SectionSkills, Heading: t.Headings.Skills, SkillStyle: t.SkillStyle}
		for _, s := range doc.Skills {
			item := SkillItem{Name: s.Name, Level: resume.ClampLevel(s.Level)}
			if t.SkillStyle == SkillDots {
				item.Dots = dotCount
				item.Filled = item.Level * dotCount / resume.MaxLevel
			}
			sk.Skills = append(sk.Skills, item)
		}
		tree.Sections = append(tree.Sections, sk)
	}

	if t.Headings.Education != "" {
		edu := Section{Kind: SectionEducation, Heading: t.Headings.Education}
		for _, e := range doc.Education {
			item := Item{
				Title:    e.Degree,
				Subtitle: e.Institution,
				Period:   e.GraduationYear,
			}
			if e.GPA != "" {
				item.Lines = []string{"GPA: " + e.GPA}
			}
			edu.Items = append(edu.Items, item)
		}
		tree.Sections = append(tree.Sections, edu)
	}

	return tree
}

// Section returns the first section of the given kind.
func (t RenderTree) Section(kind SectionKind) (Section, bool) {
	for _, s := range t.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

func orDefault(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func period(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " - Present"
	case start == "":
		return end
	}
	return start + " - " + end
}

// splitLines breaks text on newlines, keeping interior blank lines and
// dropping trailing ones.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func initials(name string) string {
	var sb strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}
