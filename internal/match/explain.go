package match

// Match classification thresholds for a single scored pair.
const (
	StrongMatchThreshold = 0.75
	NearMatchFloor       = 0.60
)

// Strength highlights a dimension where the pair aligns well.
type Strength struct {
	Area        string  `json:"area"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// FitGap flags a dimension dragging the score down, with an impact level.
type FitGap struct {
	Area        string `json:"area"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // high, medium, low
}

// Improvement suggests a concrete action the candidate can take, with the
// estimated score increase it could unlock.
type Improvement struct {
	Action       string  `json:"action"`
	PotentialMin float64 `json:"potential_increase_min"`
	PotentialMax float64 `json:"potential_increase_max"`
	Priority     string  `json:"priority"` // high, medium, low
}

// PairScore is the full explainable result of scoring one
// profile/assignment pair.
type PairScore struct {
	Total         float64            `json:"total"`
	Subscores     map[string]float64 `json:"subscores"`
	Weights       Weights            `json:"weights"`
	Contributions map[string]float64 `json:"contributions"`

	SkillGaps     []SkillGap `json:"skill_gaps,omitempty"`
	MissingSkills []string   `json:"missing_skills,omitempty"`
	HardFail      bool       `json:"hard_fail"`

	Strengths    []Strength    `json:"strengths"`
	Gaps         []FitGap      `json:"gaps"`
	Improvements []Improvement `json:"improvements"`

	StrongMatch bool `json:"is_strong_match"`
	NearMatch   bool `json:"is_near_match"`
}

// dimensionLabels are the human-readable area names used in explanations.
var dimensionLabels = map[string]string{
	DimValues:        "Values alignment",
	DimCauses:        "Cause alignment",
	DimSkills:        "Skills",
	DimExperience:    "Experience",
	DimVerifications: "Verifications",
	DimAvailability:  "Availability",
	DimLocation:      "Location",
	DimCompensation:  "Compensation",
	DimLanguage:      "Language",
}

// strengthDescriptions for dimensions scoring 0.8 or above.
var strengthDescriptions = map[string]string{
	DimValues:        "Strong alignment with the organization's values",
	DimCauses:        "Shared focus on the same causes",
	DimSkills:        "Excellent match for the required skills",
	DimExperience:    "Deep experience on relevant skills",
	DimVerifications: "Required verifications are in place",
	DimAvailability:  "Availability lines up with the start window",
	DimLocation:      "Location and work mode align well",
	DimCompensation:  "Compensation expectations are compatible",
	DimLanguage:      "Language proficiency exceeds the requirement",
}

// ScorePair scores a single profile/assignment pair under the given
// resolved weights and derives the explainability payload: strengths,
// fit gaps, improvement suggestions, and strong/near classification.
//
// Unlike strict ranking, a skill hard-fail does not short-circuit the
// result; the pair is fully scored so the caller can show the candidate
// exactly where they stand.
func ScorePair(profile Profile, assignment Assignment, weights Weights) PairScore {
	subscores, skillScore := Subscores(profile, assignment)
	composed := Compose(subscores, weights)

	result := PairScore{
		Total:         composed.Total,
		Subscores:     subscores,
		Weights:       composed.Weights,
		Contributions: composed.Contributions,
		SkillGaps:     skillScore.Gaps,
		MissingSkills: skillScore.Missing,
		HardFail:      skillScore.HardFail,
		Strengths:     []Strength{},
		Gaps:          []FitGap{},
		Improvements:  []Improvement{},
		StrongMatch:   composed.Total >= StrongMatchThreshold,
		NearMatch:     composed.Total >= NearMatchFloor && composed.Total < StrongMatchThreshold,
	}

	for _, dim := range Dimensions() {
		if subscores[dim] >= 0.8 {
			result.Strengths = append(result.Strengths, Strength{
				Area:        dimensionLabels[dim],
				Description: strengthDescriptions[dim],
				Score:       subscores[dim],
			})
		}
	}

	if subscores[DimSkills] < 0.6 {
		result.Gaps = append(result.Gaps, FitGap{
			Area:        dimensionLabels[DimSkills],
			Description: "Some required skills are missing or below the required level",
			Impact:      "high",
		})
	}
	if subscores[DimAvailability] < 0.5 {
		result.Gaps = append(result.Gaps, FitGap{
			Area:        dimensionLabels[DimAvailability],
			Description: "Declared availability does not fit the assignment's start window",
			Impact:      "medium",
		})
	}
	if subscores[DimValues] < 0.5 {
		result.Gaps = append(result.Gaps, FitGap{
			Area:        dimensionLabels[DimValues],
			Description: "Could strengthen values alignment in the profile",
			Impact:      "medium",
		})
	}
	if subscores[DimCompensation] < 0.5 {
		result.Gaps = append(result.Gaps, FitGap{
			Area:        dimensionLabels[DimCompensation],
			Description: "Compensation ranges barely overlap",
			Impact:      "low",
		})
	}

	if subscores[DimSkills] < 0.8 {
		result.Improvements = append(result.Improvements, Improvement{
			Action:       "Add or level up the assignment's must-have skills",
			PotentialMin: 0.08,
			PotentialMax: 0.12,
			Priority:     "high",
		})
	}
	if subscores[DimVerifications] < 1.0 {
		result.Improvements = append(result.Improvements, Improvement{
			Action:       "Complete the required verifications",
			PotentialMin: 0.05,
			PotentialMax: 0.10,
			Priority:     "medium",
		})
	}
	if subscores[DimExperience] < 0.7 {
		result.Improvements = append(result.Improvements, Improvement{
			Action:       "Record more months of experience on your skills",
			PotentialMin: 0.03,
			PotentialMax: 0.07,
			Priority:     "low",
		})
	}

	return result
}
