package match

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"
)

// testProfile returns a profile with a typescript skill at the given level.
func testProfile(level int) Profile {
	return Profile{
		ID:     "profile-1",
		Values: []string{"transparency", "sustainability"},
		Skills: map[string]Skill{
			"typescript": {ID: "typescript", Level: level, Months: 18},
		},
	}
}

// testAssignment requires typescript at level 4.
func testAssignment(id string) Assignment {
	return Assignment{
		ID:       id,
		Status:   StatusActive,
		Values:   []string{"transparency", "sustainability"},
		MustHave: []SkillRequirement{{ID: "typescript", Level: 4}},
	}
}

// TestRank_StrictExcludesHardFails verifies hard-failed candidates never
// appear in strict results: the under-leveled candidate scenario.
func TestRank_StrictExcludesHardFails(t *testing.T) {
	profile := testProfile(2) // typescript level 2, required 4
	pool := []Assignment{testAssignment("a1")}

	weights := NormalizeWeights(Weights{
		DimSkills: 40, DimValues: 30, DimExperience: 10, DimAvailability: 10, DimVerifications: 10,
	})

	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights:   weights,
		Mode:      ModeStrict,
		Threshold: 0,
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("strict mode must exclude hard-failed candidates, got %d results", len(results))
	}
}

// TestRank_NearIncludesHardFailsWithReason verifies the relaxed gating:
// the same under-leveled candidate surfaces with a skill-gap reason and
// gap detail, not a missing-skill reason.
func TestRank_NearIncludesHardFailsWithReason(t *testing.T) {
	profile := testProfile(2)
	pool := []Assignment{testAssignment("a1")}

	weights := NormalizeWeights(Weights{
		DimSkills: 40, DimValues: 30, DimExperience: 10, DimAvailability: 10, DimVerifications: 10,
	})

	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights:   weights,
		Mode:      ModeNear,
		Threshold: 0.3,
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 near match, got %d", len(results))
	}

	m := results[0]
	if m.Score <= 0 {
		t.Errorf("near-match score should be positive, got %f", m.Score)
	}
	if strings.Contains(m.Reason, "Missing") {
		t.Errorf("under-leveled skill must yield a gap reason, got %q", m.Reason)
	}
	if !strings.Contains(m.Reason, "Skill gaps") {
		t.Errorf("expected a skill-gap reason, got %q", m.Reason)
	}
	want := SkillGap{ID: "typescript", Required: 4, Have: 2}
	if len(m.Gaps) != 1 || m.Gaps[0] != want {
		t.Errorf("expected gap %+v, got %+v", want, m.Gaps)
	}
}

// TestRank_NearMissingSkillReason verifies the highest-priority reason.
func TestRank_NearMissingSkillReason(t *testing.T) {
	profile := Profile{
		ID:     "profile-1",
		Values: []string{"transparency", "sustainability"},
		Skills: map[string]Skill{"go": {ID: "go", Level: 5, Months: 48}},
	}
	pool := []Assignment{testAssignment("a1")}

	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights:   NormalizeWeights(nil),
		Mode:      ModeNear,
		Threshold: 0.3,
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 near match, got %d", len(results))
	}
	if results[0].Reason != "Missing 1 required skill(s)" {
		t.Errorf("expected missing-skill reason, got %q", results[0].Reason)
	}
	if len(results[0].Missing) != 1 || results[0].Missing[0] != "typescript" {
		t.Errorf("expected missing [typescript], got %v", results[0].Missing)
	}
}

// TestRank_ThresholdDropsWeakCandidates verifies near-match candidates
// below the threshold are dropped entirely.
func TestRank_ThresholdDropsWeakCandidates(t *testing.T) {
	profile := Profile{ID: "profile-1"}
	pool := []Assignment{
		{
			ID:       "a1",
			Values:   []string{"nothing-in-common"},
			Causes:   []string{"different"},
			MustHave: []SkillRequirement{{ID: "rust", Level: 5}},
		},
	}

	// Weight only the dimensions this candidate fails.
	weights := NormalizeWeights(Weights{DimSkills: 70, DimValues: 20, DimCauses: 10})

	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights:   weights,
		Mode:      ModeNear,
		Threshold: 0.3,
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected candidate below threshold to be dropped, got %d results", len(results))
	}
}

// TestRank_DeterministicTieOrder ranks two identically-scoring candidates
// repeatedly and expects the same relative order every time.
func TestRank_DeterministicTieOrder(t *testing.T) {
	profile := Profile{
		ID:     "profile-1",
		Values: []string{"transparency"},
	}
	// Identical requirements produce identical scores for both assignments.
	pool := []Assignment{
		{ID: "assignment-a", Values: []string{"transparency"}},
		{ID: "assignment-b", Values: []string{"transparency"}},
	}

	params := RankParams{
		Weights:   NormalizeWeights(nil),
		Mode:      ModeNear,
		Threshold: 0,
		K:         10,
	}

	first, err := Rank(context.Background(), profile, pool, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 results, got %d", len(first))
	}
	if math.Abs(first[0].Score-first[1].Score) > 1e-9 {
		t.Fatalf("expected a tie, got %f vs %f", first[0].Score, first[1].Score)
	}

	for i := 0; i < 20; i++ {
		again, err := Rank(context.Background(), profile, pool, params)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again[0].AssignmentID != first[0].AssignmentID || again[1].AssignmentID != first[1].AssignmentID {
			t.Fatalf("tie order changed between runs: %s,%s vs %s,%s",
				first[0].AssignmentID, first[1].AssignmentID,
				again[0].AssignmentID, again[1].AssignmentID)
		}
	}

	// Reversing the pool must not change the final order either.
	reversed := []Assignment{pool[1], pool[0]}
	swapped, err := Rank(context.Background(), profile, reversed, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swapped[0].AssignmentID != first[0].AssignmentID {
		t.Error("input order changed the ranked order of tied candidates")
	}
}

// TestRank_TopKTruncation verifies sorting and truncation.
func TestRank_TopKTruncation(t *testing.T) {
	profile := Profile{
		ID:     "profile-1",
		Values: []string{"a", "b", "c", "d"},
	}

	// Varying value overlap produces distinct scores.
	pool := []Assignment{
		{ID: "low", Values: []string{"a", "x", "y", "z"}},
		{ID: "high", Values: []string{"a", "b", "c", "d"}},
		{ID: "mid", Values: []string{"a", "b", "c", "z"}},
	}

	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights:   NormalizeWeights(Weights{DimValues: 1}),
		Mode:      ModeNear,
		Threshold: 0,
		K:         2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after truncation, got %d", len(results))
	}
	if results[0].AssignmentID != "high" || results[1].AssignmentID != "mid" {
		t.Errorf("expected [high mid], got [%s %s]", results[0].AssignmentID, results[1].AssignmentID)
	}
}

// TestRank_KBounds verifies top-K limits.
func TestRank_KBounds(t *testing.T) {
	profile := Profile{ID: "p"}
	pool := []Assignment{{ID: "a"}}

	if _, err := Rank(context.Background(), profile, pool, RankParams{
		Weights: NormalizeWeights(nil),
		Mode:    ModeNear,
		K:       MaxTopK + 1,
	}); err == nil {
		t.Error("expected error for k above the maximum")
	}

	// k <= 0 falls back to the default.
	results, err := Rank(context.Background(), profile, pool, RankParams{
		Weights: NormalizeWeights(nil),
		Mode:    ModeNear,
		K:       0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result with default k, got %d", len(results))
	}
}

// TestRank_CancelledContext verifies partial results are discarded.
func TestRank_CancelledContext(t *testing.T) {
	profile := Profile{ID: "p", Values: []string{"v"}}
	pool := make([]Assignment, 500)
	for i := range pool {
		pool[i] = Assignment{ID: string(rune('a' + i%26)), Values: []string{"v"}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Rank(ctx, profile, pool, RankParams{
		Weights: NormalizeWeights(nil),
		Mode:    ModeNear,
		K:       10,
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	if results != nil {
		t.Errorf("expected no partial results, got %d", len(results))
	}
}

// TestRank_EmptyPool returns an empty list, not an error.
func TestRank_EmptyPool(t *testing.T) {
	results, err := Rank(context.Background(), Profile{ID: "p"}, nil, RankParams{
		Weights: NormalizeWeights(nil),
		Mode:    ModeStrict,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result set, got %d", len(results))
	}
}

// TestRank_SkillMonotonicity verifies that raising the candidate's skill
// level never lowers the composed score.
func TestRank_SkillMonotonicity(t *testing.T) {
	pool := []Assignment{testAssignment("a1")}
	weights := NormalizeWeights(Weights{DimSkills: 40, DimValues: 30, DimExperience: 30})

	prev := -1.0
	for level := 4; level <= 5; level++ {
		results, err := Rank(context.Background(), testProfile(level), pool, RankParams{
			Weights:   weights,
			Mode:      ModeStrict,
			Threshold: 0,
			K:         10,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected candidate at level %d to pass strict gating", level)
		}
		if results[0].Score < prev {
			t.Errorf("composed score decreased from %f to %f at level %d", prev, results[0].Score, level)
		}
		prev = results[0].Score
	}
}

// TestSubscores_NeutralDefaults verifies absent attributes degrade to
// neutral scores instead of failing.
func TestSubscores_NeutralDefaults(t *testing.T) {
	subscores, skillScore := Subscores(Profile{ID: "p"}, Assignment{ID: "a"})

	if skillScore.HardFail {
		t.Error("no requirements should never hard-fail")
	}

	neutral := []string{DimSkills, DimVerifications, DimAvailability, DimLocation, DimCompensation, DimLanguage}
	for _, dim := range neutral {
		if math.Abs(subscores[dim]-1.0) > 1e-9 {
			t.Errorf("dimension %s: expected neutral 1.0, got %f", dim, subscores[dim])
		}
	}

	// Both sides empty: values and causes are perfectly similar.
	if subscores[DimValues] != 1.0 || subscores[DimCauses] != 1.0 {
		t.Errorf("empty tag sets should be perfectly similar, got values=%f causes=%f",
			subscores[DimValues], subscores[DimCauses])
	}

	for dim, score := range subscores {
		if score < 0 {
			t.Errorf("dimension %s scored below zero: %f", dim, score)
		}
	}
}

// TestSubscores_RemoteAssignmentAvailability verifies remote assignments
// have no availability constraint.
func TestSubscores_RemoteAssignmentAvailability(t *testing.T) {
	earliest := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	outside := earliest.AddDate(-1, 0, 0)

	profile := Profile{ID: "p", AvailableFrom: &outside, WorkMode: ModeOnsite}
	assignment := Assignment{
		ID:           "a",
		LocationMode: ModeRemote,
		StartWindow:  &DateWindow{Earliest: earliest, Latest: latest},
	}

	subscores, _ := Subscores(profile, assignment)
	if subscores[DimAvailability] != 1.0 {
		t.Errorf("remote assignment availability should be 1.0, got %f", subscores[DimAvailability])
	}
}

// TestSubscores_LanguageRequirement verifies language lookup by code.
func TestSubscores_LanguageRequirement(t *testing.T) {
	assignment := Assignment{
		ID:          "a",
		MinLanguage: &Language{Code: "en", Level: "B2"},
	}

	t.Run("matching language meets the bar", func(t *testing.T) {
		profile := Profile{ID: "p", Languages: []Language{{Code: "en", Level: "C1"}}}
		subscores, _ := Subscores(profile, assignment)
		if subscores[DimLanguage] < 1.0 {
			t.Errorf("expected language score >= 1.0, got %f", subscores[DimLanguage])
		}
	})

	t.Run("no matching language code scores zero", func(t *testing.T) {
		profile := Profile{ID: "p", Languages: []Language{{Code: "sv", Level: "C2"}}}
		subscores, _ := Subscores(profile, assignment)
		if subscores[DimLanguage] != 0 {
			t.Errorf("expected language score 0, got %f", subscores[DimLanguage])
		}
	})
}
