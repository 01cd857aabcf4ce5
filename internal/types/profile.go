package types

// ResumeProfile is the structured form of a parsed resume. It mirrors the
// embedded resume_profile JSON schema; documents are validated against that
// schema before being decoded into this type.
type ResumeProfile struct {
	Name        string       `json:"name"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Skills      []string     `json:"skills"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education,omitempty"`
}

// Experience is a single position on a resume.
type Experience struct {
	Company string   `json:"company"`
	Title   string   `json:"title"`
	Start   string   `json:"start,omitempty"` // YYYY-MM
	End     string   `json:"end,omitempty"`   // YYYY-MM or "present"
	Bullets []string `json:"bullets,omitempty"`
}

// Education is a single education entry on a resume.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Year        string `json:"year,omitempty"`
}
