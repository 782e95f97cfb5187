package templates

import "github.com/kalambet/profileai/internal/resume"

// SampleDocument is the demo resume shown when browsing the catalog.
func SampleDocument() resume.Document {
	return resume.Document{
		PersonalInfo: resume.PersonalInfo{
			FullName: "John Doe",
			Email:    "john.doe@email.com",
			Phone:    "+1 (555) 123-4567",
			Address:  "New York, NY",
			Summary:  "Experienced professional with 5+ years in the industry.",
		},
		WorkExperience: []resume.ExperienceEntry{{
			ID:          "1",
			JobTitle:    "Senior Developer",
			Company:     "Tech Company Inc.",
			StartDate:   "2020",
			EndDate:     "Present",
			Description: "Led development of multiple web applications.",
		}},
		Education: []resume.EducationEntry{{
			ID:             "1",
			Degree:         "Bachelor of Computer Science",
			Institution:    "University",
			GraduationYear: "2020",
		}},
		Skills: []resume.SkillEntry{
			{ID: "1", Name: "JavaScript", Level: 90},
			{ID: "2", Name: "React", Level: 85},
			{ID: "3", Name: "Node.js", Level: 80},
		},
	}
}

// RenderSample renders the demo resume with the given template.
func RenderSample(templateID string) RenderTree {
	return Render(templateID, SampleDocument())
}
