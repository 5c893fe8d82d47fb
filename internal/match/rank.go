package match

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// Mode selects the gating policy used when ranking a candidate pool.
type Mode string

const (
	// ModeStrict excludes any candidate with a hard skill failure.
	ModeStrict Mode = "strict"
	// ModeNear keeps hard-failed candidates and attaches a reason.
	ModeNear Mode = "near"
)

// Ranking defaults and bounds.
const (
	DefaultTopK            = 10
	MaxTopK                = 100
	DefaultStrictThreshold = 0.6
	DefaultNearThreshold   = 0.3
)

// RankParams controls a ranking pass over a candidate pool. Weights must
// already be resolved and normalized.
type RankParams struct {
	Weights   Weights
	Mode      Mode
	Threshold float64
	K         int
}

// RankedMatch is one scored candidate in a ranked result list.
type RankedMatch struct {
	AssignmentID  string             `json:"assignment_id"`
	Score         float64            `json:"score"`
	Subscores     map[string]float64 `json:"subscores"`
	Contributions map[string]float64 `json:"contributions"`
	Gaps          []SkillGap         `json:"gaps,omitempty"`
	Missing       []string           `json:"missing,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

// Subscores computes all dimension sub-scores for one profile/assignment
// pair. Absent attributes on either side degrade to a neutral default
// rather than an error, so the function is total over valid inputs.
// The skills result is returned separately because it carries gating
// detail (hard-fail flag, gaps, missing).
func Subscores(profile Profile, assignment Assignment) (map[string]float64, SkillScore) {
	skillScore := ScoreSkills(assignment.MustHave, assignment.NiceToHave, profile.Skills)

	subscores := map[string]float64{
		DimValues:        ScoreValues(profile.Values, assignment.Values),
		DimCauses:        ScoreCauses(profile.Causes, assignment.Causes),
		DimSkills:        skillScore.Score,
		DimExperience:    ScoreExperience(averageMonths(profile.Skills)),
		DimVerifications: ScoreVerifications(assignment.VerificationGates, profile.Verified),
	}

	switch {
	case assignment.LocationMode == ModeRemote:
		// Remote assignments have no scheduling constraint to violate.
		subscores[DimAvailability] = 1.0
	case assignment.StartWindow != nil && profile.AvailableFrom != nil:
		subscores[DimAvailability] = ScoreAvailability(
			*assignment.StartWindow,
			*profile.AvailableFrom,
			hoursOrDefault(assignment.Hours),
			hoursOrDefault(profile.Hours),
		)
	default:
		subscores[DimAvailability] = 1.0
	}

	if assignment.LocationMode != "" && profile.WorkMode != "" {
		subscores[DimLocation] = ScoreLocation(
			assignment.LocationMode, profile.WorkMode,
			assignment.Country, profile.Country,
		)
	} else {
		subscores[DimLocation] = 1.0
	}

	if assignment.Compensation != nil && profile.Compensation != nil {
		subscores[DimCompensation] = ScoreCompensation(*assignment.Compensation, *profile.Compensation)
	} else {
		subscores[DimCompensation] = 1.0
	}

	if assignment.MinLanguage != nil {
		subscores[DimLanguage] = 0
		for _, lang := range profile.Languages {
			if lang.Code == assignment.MinLanguage.Code {
				subscores[DimLanguage] = ScoreLanguage(assignment.MinLanguage.Level, lang.Level)
				break
			}
		}
	} else {
		subscores[DimLanguage] = 1.0
	}

	return subscores, skillScore
}

// averageMonths returns the mean months of experience across a candidate's
// skills, 0 for an empty skill map.
func averageMonths(skills map[string]Skill) float64 {
	if len(skills) == 0 {
		return 0
	}
	var sum float64
	for _, s := range skills {
		sum += float64(s.Months)
	}
	return sum / float64(len(skills))
}

// defaultHours is assumed when a side declares no weekly-hours range.
var defaultHours = Range{Min: 0, Max: 40}

func hoursOrDefault(r *Range) Range {
	if r == nil {
		return defaultHours
	}
	return *r
}

// Rank scores every assignment in the pool against the profile, applies
// the mode's gating policy, sorts with the deterministic comparator, and
// truncates to the requested top-K.
//
// In strict mode a hard skill failure excludes the candidate entirely. In
// near-match mode hard-failed candidates remain and carry a reason string;
// candidates in either mode are dropped when the composed total falls
// below the threshold.
//
// Candidates are scored concurrently across a bounded worker set; results
// are index-addressed so scheduling never affects the output. If the
// context is cancelled mid-pass the partial results are discarded and the
// context error is returned.
func Rank(ctx context.Context, profile Profile, pool []Assignment, params RankParams) ([]RankedMatch, error) {
	if len(pool) == 0 {
		return []RankedMatch{}, nil
	}

	k := params.K
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		return nil, fmt.Errorf("top-k %d exceeds maximum %d", params.K, MaxTopK)
	}

	scored := make([]*RankedMatch, len(pool))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(pool) {
		workers = len(pool)
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					return
				}
				scored[i] = scoreCandidate(profile, pool[i], params)
			}
		}()
	}

feed:
	for i := range pool {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]RankedMatch, 0, len(pool))
	for _, m := range scored {
		if m != nil {
			results = append(results, *m)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return Compare(
			SortKey{Score: results[i].Score, AssignmentID: results[i].AssignmentID, ProfileID: profile.ID},
			SortKey{Score: results[j].Score, AssignmentID: results[j].AssignmentID, ProfileID: profile.ID},
		) < 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// scoreCandidate scores one assignment and applies the gating policy.
// Returns nil when the candidate is excluded (strict hard-fail or below
// threshold).
func scoreCandidate(profile Profile, assignment Assignment, params RankParams) *RankedMatch {
	subscores, skillScore := Subscores(profile, assignment)

	if params.Mode == ModeStrict && skillScore.HardFail {
		return nil
	}

	composed := Compose(subscores, params.Weights)
	if composed.Total < params.Threshold {
		return nil
	}

	m := &RankedMatch{
		AssignmentID:  assignment.ID,
		Score:         composed.Total,
		Subscores:     subscores,
		Contributions: composed.Contributions,
		Gaps:          skillScore.Gaps,
		Missing:       skillScore.Missing,
	}

	if params.Mode == ModeNear {
		m.Reason = nearMatchReason(subscores, skillScore)
	}

	return m
}

// nearMatchReason derives the human-readable explanation for a near match
// using a fixed priority order: missing required skills, then skill-level
// gaps, then weak location, availability, compensation, and values
// alignment, falling back to a generic partial-match message.
func nearMatchReason(subscores map[string]float64, skillScore SkillScore) string {
	switch {
	case len(skillScore.Missing) > 0:
		return fmt.Sprintf("Missing %d required skill(s)", len(skillScore.Missing))
	case len(skillScore.Gaps) > 0:
		return fmt.Sprintf("Skill gaps in %d area(s)", len(skillScore.Gaps))
	case subscores[DimLocation] < 0.5:
		return "Location preference mismatch"
	case subscores[DimAvailability] < 0.5:
		return "Availability timing mismatch"
	case subscores[DimCompensation] < 0.5:
		return "Compensation range mismatch"
	case subscores[DimValues] < 0.5:
		return "Some values alignment differences"
	default:
		return "Good partial match"
	}
}
