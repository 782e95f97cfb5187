// Package templates holds the fixed template catalog and the pure renderer
// that maps a resume document onto one template's layout.
package templates

import (
	"slices"
	"strings"
)

// SkillStyle is how a template lays out the skills section.
type SkillStyle string

const (
	SkillBars    SkillStyle = "bars"
	SkillTags    SkillStyle = "tags"
	SkillList    SkillStyle = "list"
	SkillBullets SkillStyle = "bullets"
	SkillDots    SkillStyle = "dots"
)

// Headings are the section titles a template prints. An empty heading
// drops that section from the layout.
type Headings struct {
	Summary    string `json:"summary"`
	Experience string `json:"experience"`
	Skills     string `json:"skills,omitempty"`
	Education  string `json:"education,omitempty"`
}

// Template describes one catalog entry.
type Template struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	// Headline is shown under the name when the first job has no title.
	Headline           string     `json:"headline"`
	SummaryPlaceholder string     `json:"summaryPlaceholder"`
	Headings           Headings   `json:"headings"`
	SkillStyle         SkillStyle `json:"skillStyle,omitempty"`
	// Initials puts a monogram of the name above the header.
	Initials bool `json:"initials,omitempty"`
}

// AllCategories matches every category in Search.
const AllCategories = "all"

var catalog = []Template{
	{
		ID: "1", Title: "Modern Professional", Category: "Business",
		Headline:           "Professional",
		SummaryPlaceholder: "Experienced professional with expertise in various technologies.",
		Headings:           Headings{Summary: "SUMMARY", Experience: "EXPERIENCE", Skills: "SKILLS", Education: "EDUCATION"},
		SkillStyle:         SkillBars,
	},
	{
		ID: "2", Title: "Creative Designer", Category: "Design",
		Headline:           "Creative Professional",
		SummaryPlaceholder: "Passionate creative professional with expertise in design and innovation.",
		Headings:           Headings{Summary: "CREATIVE SUMMARY", Experience: "EXPERIENCE", Skills: "SKILLS", Education: "EDUCATION"},
		SkillStyle:         SkillTags,
		Initials:           true,
	},
	{
		ID: "3", Title: "Tech Minimalist", Category: "Tech",
		Headline:           "Developer",
		SummaryPlaceholder: "Minimalist-focused developer with expertise in clean, efficient solutions.",
		Headings:           Headings{Summary: "Summary", Experience: "Experience", Skills: "Skills", Education: "Education"},
		SkillStyle:         SkillList,
	},
	{
		ID: "4", Title: "Executive Elite", Category: "Business",
		Headline:           "Executive",
		SummaryPlaceholder: "Visionary executive with proven track record of leadership and innovation.",
		Headings:           Headings{Summary: "EXECUTIVE SUMMARY", Experience: "LEADERSHIP EXPERIENCE", Skills: "CORE COMPETENCIES", Education: "EDUCATION & CREDENTIALS"},
		SkillStyle:         SkillBullets,
	},
	{
		ID: "5", Title: "Simple Clean", Category: "Simple",
		Headline:           "Professional",
		SummaryPlaceholder: "Experienced professional with expertise in various fields.",
		Headings:           Headings{Summary: "Professional Summary", Experience: "Work Experience", Skills: "Skills", Education: "Education"},
		SkillStyle:         SkillBars,
	},
	{
		ID: "6", Title: "Academic Scholar", Category: "Education",
		Headline:           "Academic Professional",
		SummaryPlaceholder: "Dedicated academic professional with expertise in research and education.",
		Headings:           Headings{Summary: "ACADEMIC PROFILE", Experience: "ACADEMIC EXPERIENCE", Skills: "RESEARCH AREAS", Education: "EDUCATION"},
		SkillStyle:         SkillBullets,
	},
	{
		ID: "7", Title: "Healthcare Pro", Category: "Healthcare",
		Headline:           "Healthcare Professional",
		SummaryPlaceholder: "Dedicated healthcare professional committed to providing excellent patient care.",
		Headings:           Headings{Summary: "PROFESSIONAL SUMMARY", Experience: "CLINICAL EXPERIENCE", Skills: "SPECIALIZATIONS", Education: "EDUCATION & CERTIFICATIONS"},
		SkillStyle:         SkillList,
	},
	{
		ID: "8", Title: "Finance Expert", Category: "Finance",
		Headline:           "Finance Professional",
		SummaryPlaceholder: "Experienced finance professional with expertise in financial analysis and strategic planning.",
		Headings:           Headings{Summary: "FINANCIAL EXPERTISE", Experience: "PROFESSIONAL EXPERIENCE", Skills: "CORE COMPETENCIES", Education: "EDUCATION & QUALIFICATIONS"},
		SkillStyle:         SkillDots,
	},
}

// fallback is the layout used for ids outside the catalog.
var fallback = Template{
	Title:              "Resume",
	Headline:           "Professional",
	SummaryPlaceholder: "Experienced professional with expertise in various fields.",
	Headings:           Headings{Summary: "Professional Summary", Experience: "Work Experience"},
}

// All returns the catalog in display order.
func All() []Template {
	return slices.Clone(catalog)
}

// Lookup returns the template with the given id.
func Lookup(id string) (Template, bool) {
	i := slices.IndexFunc(catalog, func(t Template) bool { return t.ID == id })
	if i < 0 {
		return Template{}, false
	}
	return catalog[i], true
}

// Categories returns AllCategories followed by each catalog category once,
// in order of first appearance.
func Categories() []string {
	out := []string{AllCategories}
	for _, t := range catalog {
		if !slices.Contains(out, t.Category) {
			out = append(out, t.Category)
		}
	}
	return out
}

// Search filters the catalog. query matches title or category case
// insensitively; category "" or AllCategories matches every template.
func Search(query, category string) []Template {
	query = strings.ToLower(strings.TrimSpace(query))
	matchAll := category == "" || strings.EqualFold(category, AllCategories)

	var out []Template
	for _, t := range catalog {
		if !matchAll && !strings.EqualFold(t.Category, category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Category), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}
