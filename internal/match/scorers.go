package match

import (
	"math"
	"strings"
	"time"
)

// Experience curve parameters. The curve is logistic with its midpoint at
// 24 months, approaching 1 as experience grows. Tunable against product
// acceptance tests.
const (
	experienceSteepness = 0.08
	experienceMidpoint  = 24.0
)

// Per-skill level bonus cap: a candidate exceeding the required level can
// earn up to 1.5x on that skill before averaging.
const levelBonusCap = 1.5

// cefrOrder maps CEFR labels onto an ordinal scale A1..C2 -> 0..5.
var cefrOrder = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// Jaccard computes the Jaccard index |A∩B| / |A∪B| over case-normalized
// tag sets. Two empty sets are perfectly similar (1.0); one empty and one
// non-empty set score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := normalizeTags(a)
	setB := normalizeTags(b)

	intersection := 0
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}

	return float64(intersection) / float64(union)
}

// normalizeTags lowercases and trims tags into a set, dropping empties.
func normalizeTags(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		set[tag] = struct{}{}
	}
	return set
}

// ScoreValues scores values alignment (mission fit) between a profile and
// an assignment.
func ScoreValues(profileValues, assignmentValues []string) float64 {
	return Jaccard(profileValues, assignmentValues)
}

// ScoreCauses scores cause alignment (impact focus).
func ScoreCauses(profileCauses, assignmentCauses []string) float64 {
	return Jaccard(profileCauses, assignmentCauses)
}

// ScoreSkills scores the skills dimension with hard-fail gating.
//
// Any must-have skill that is absent is recorded in Missing; any present
// but below its required level is recorded in Gaps. Either condition sets
// HardFail and forces the score to 0. Otherwise the score is a weighted
// average over must-have (weight 2) and nice-to-have (weight 1) skills,
// where each matched skill contributes its level sufficiency
// (have/required, capped at 1.5 to reward exceeding the bar), with the
// final score capped at 1.
func ScoreSkills(required, niceToHave []SkillRequirement, have map[string]Skill) SkillScore {
	var gaps []SkillGap
	var missing []string

	for _, req := range required {
		candidate, ok := have[req.ID]
		if !ok {
			missing = append(missing, req.ID)
		} else if candidate.Level < req.Level {
			gaps = append(gaps, SkillGap{ID: req.ID, Required: req.Level, Have: candidate.Level})
		}
	}

	if len(missing) > 0 || len(gaps) > 0 {
		return SkillScore{Score: 0, Gaps: gaps, Missing: missing, HardFail: true}
	}

	var totalScore, maxScore float64

	for _, req := range required {
		candidate := have[req.ID]
		levelMatch := math.Min(float64(candidate.Level)/math.Max(float64(req.Level), 1), levelBonusCap)
		totalScore += levelMatch * 2
		maxScore += 2
	}

	for _, nice := range niceToHave {
		candidate, ok := have[nice.ID]
		if ok && candidate.Level >= nice.Level {
			levelMatch := math.Min(float64(candidate.Level)/math.Max(float64(nice.Level), 1), levelBonusCap)
			totalScore += levelMatch
		}
		maxScore += 1
	}

	score := 1.0
	if maxScore > 0 {
		score = math.Min(totalScore/maxScore, 1.0)
	}

	return SkillScore{Score: score, HardFail: false}
}

// ScoreExperience maps months of relevant experience onto [0, 1] via a
// logistic curve: near 0 at zero months, 0.5 at 24 months, asymptotically
// approaching 1. Negative input is clamped to 0 months.
func ScoreExperience(months float64) float64 {
	if months < 0 {
		return 0
	}
	return 1 / (1 + math.Exp(-experienceSteepness*(months-experienceMidpoint)))
}

// ScoreVerifications returns the fraction of required verification gates
// present and true in the candidate's verification map. No requirements
// means a perfect score.
func ScoreVerifications(required []string, have map[string]bool) float64 {
	if len(required) == 0 {
		return 1.0
	}

	passed := 0
	for _, req := range required {
		if have[req] {
			passed++
		}
	}
	return float64(passed) / float64(len(required))
}

// ScoreAvailability scores date-window and weekly-hours compatibility.
// A candidate whose start date falls outside the assignment window, or
// whose hours range does not overlap the assignment's, scores 0. Otherwise
// the score blends how early in the window the candidate can start with
// the hours overlap ratio.
func ScoreAvailability(window DateWindow, candidateStart time.Time, assignmentHours, candidateHours Range) float64 {
	if candidateStart.Before(window.Earliest) || candidateStart.After(window.Latest) {
		return 0
	}

	overlapMin := math.Max(assignmentHours.Min, candidateHours.Min)
	overlapMax := math.Min(assignmentHours.Max, candidateHours.Max)
	if overlapMin > overlapMax {
		return 0
	}

	windowSeconds := window.Latest.Sub(window.Earliest).Seconds() + 1
	dateScore := 1.0 - math.Abs(candidateStart.Sub(window.Earliest).Seconds())/windowSeconds

	hoursOverlap := overlapMax - overlapMin
	hoursUnion := math.Max(assignmentHours.Max, candidateHours.Max) - math.Min(assignmentHours.Min, candidateHours.Min)
	hoursScore := hoursOverlap / math.Max(hoursUnion, 1)

	return (dateScore + hoursScore) / 2
}

// ScoreLocation scores work-mode and country compatibility. Remote on
// either side is fully compatible. Hybrid combinations earn a high partial
// score. Onsite/onsite requires a country match; unknown countries earn a
// neutral partial score.
func ScoreLocation(assignmentMode, candidateMode LocationMode, assignmentCountry, candidateCountry string) float64 {
	if assignmentMode == ModeRemote || candidateMode == ModeRemote {
		return 1.0
	}

	if assignmentMode == ModeHybrid && (candidateMode == ModeHybrid || candidateMode == ModeOnsite) {
		return 0.9
	}
	if candidateMode == ModeHybrid && assignmentMode == ModeOnsite {
		return 0.9
	}

	if assignmentMode == ModeOnsite && candidateMode == ModeOnsite {
		if assignmentCountry == "" || candidateCountry == "" {
			return 0.5
		}
		if strings.EqualFold(assignmentCountry, candidateCountry) {
			return 1.0
		}
		return 0.0
	}

	return 0.5
}

// ScoreCompensation scores the overlap of the two compensation ranges
// relative to the candidate's range: 0 when the ranges do not overlap,
// 1 when they are identical.
func ScoreCompensation(assignmentRange, candidateRange Range) float64 {
	if assignmentRange == candidateRange {
		return 1.0
	}

	overlapMin := math.Max(assignmentRange.Min, candidateRange.Min)
	overlapMax := math.Min(assignmentRange.Max, candidateRange.Max)
	if overlapMin > overlapMax {
		return 0
	}

	overlapSize := overlapMax - overlapMin
	candidateSize := candidateRange.Max - candidateRange.Min

	return math.Min(overlapSize/math.Max(candidateSize, 1), 1.0)
}

// ScoreLanguage scores CEFR proficiency against a required minimum.
// Unrecognized labels or a candidate below the minimum score 0. Meeting
// the minimum scores 1, with a 0.1 bonus per level above it, capped at
// 1.5; the composer caps the weighted total so the bonus rewards
// exceeding the bar without letting this dimension dominate.
func ScoreLanguage(minLevel, candidateLevel string) float64 {
	minIdx := cefrIndex(minLevel)
	candidateIdx := cefrIndex(candidateLevel)

	if minIdx == -1 || candidateIdx == -1 {
		return 0
	}
	if candidateIdx < minIdx {
		return 0
	}

	delta := float64(candidateIdx - minIdx)
	return math.Min(1.0+delta*0.1, levelBonusCap)
}

// cefrIndex returns the ordinal position of a CEFR label, or -1 if the
// label is unrecognized. Comparison is case-insensitive.
func cefrIndex(level string) int {
	for i, l := range cefrOrder {
		if strings.EqualFold(l, level) {
			return i
		}
	}
	return -1
}
