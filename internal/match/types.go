package match

import "time"

// LocationMode describes where work happens for an assignment or where a
// candidate prefers to work.
type LocationMode string

// Valid location modes.
const (
	ModeRemote LocationMode = "remote"
	ModeHybrid LocationMode = "hybrid"
	ModeOnsite LocationMode = "onsite"
)

// ValidLocationMode reports whether mode is one of remote, hybrid, onsite.
func ValidLocationMode(mode LocationMode) bool {
	switch mode {
	case ModeRemote, ModeHybrid, ModeOnsite:
		return true
	}
	return false
}

// Assignment status values. Only active assignments enter the ranking pool.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Skill is a candidate's proficiency in one skill.
type Skill struct {
	ID     string `json:"id"`
	Level  int    `json:"level"`            // 0-5
	Months int    `json:"months,omitempty"` // months of experience
}

// SkillRequirement is a skill an assignment asks for, with a minimum level.
type SkillRequirement struct {
	ID    string `json:"id"`
	Level int    `json:"level"` // minimum level 0-5
}

// Range is an inclusive numeric range (weekly hours, compensation).
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DateWindow is the earliest/latest acceptable start date for an assignment.
type DateWindow struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Language is a language code with a CEFR proficiency level (A1..C2).
type Language struct {
	Code  string `json:"code"`
	Level string `json:"level"`
}

// Profile holds the matching-relevant attributes of an individual.
// Optional attributes are pointers; absence degrades to a neutral default
// score for the affected dimension rather than an error.
type Profile struct {
	ID string `json:"id"`

	Values   []string         `json:"values,omitempty"`
	Causes   []string         `json:"causes,omitempty"`
	Skills   map[string]Skill `json:"skills,omitempty"`
	Verified map[string]bool  `json:"verified,omitempty"`

	AvailableFrom *time.Time `json:"available_from,omitempty"`
	Hours         *Range     `json:"hours,omitempty"`

	WorkMode LocationMode `json:"work_mode,omitempty"`
	Country  string       `json:"country,omitempty"`

	Compensation *Range     `json:"compensation,omitempty"`
	Languages    []Language `json:"languages,omitempty"`

	// Weights is an optional stored weight map used when a ranking request
	// supplies neither explicit weights nor a preset mode.
	Weights Weights `json:"weights,omitempty"`
}

// Assignment holds the requirements of an opportunity published by an
// organization, mirroring the profile shape where applicable.
type Assignment struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`

	// Identity-revealing fields, stripped by the redaction filter before
	// results cross the boundary in the blind phase.
	OrgID        string `json:"org_id,omitempty"`
	OrgName      string `json:"org_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`

	Title string `json:"title,omitempty"`

	Values []string `json:"values,omitempty"`
	Causes []string `json:"causes,omitempty"`

	MustHave   []SkillRequirement `json:"must_have,omitempty"`
	NiceToHave []SkillRequirement `json:"nice_to_have,omitempty"`

	VerificationGates []string `json:"verification_gates,omitempty"`

	StartWindow *DateWindow `json:"start_window,omitempty"`
	Hours       *Range      `json:"hours,omitempty"`

	LocationMode LocationMode `json:"location_mode,omitempty"`
	Country      string       `json:"country,omitempty"`

	Compensation *Range    `json:"compensation,omitempty"`
	MinLanguage  *Language `json:"min_language,omitempty"`
}

// SkillGap records a must-have skill the candidate holds below the
// required minimum level.
type SkillGap struct {
	ID       string `json:"id"`
	Required int    `json:"required"`
	Have     int    `json:"have"`
}

// SkillScore is the result of scoring the skills dimension. HardFail is set
// when any must-have skill is missing or under-leveled; in strict ranking
// mode a hard-failed candidate is excluded entirely.
type SkillScore struct {
	Score    float64    `json:"score"`
	Gaps     []SkillGap `json:"gaps,omitempty"`
	Missing  []string   `json:"missing,omitempty"`
	HardFail bool       `json:"hard_fail"`
}
