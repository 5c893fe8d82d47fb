// Package match implements the match-scoring and ranking engine between
// individual profiles and published assignments.
//
// The engine is a set of pure, deterministic functions: primitive scorers
// map raw attributes of a profile/assignment pair onto [0, 1] sub-scores
// along independent dimensions, a weight resolver turns presets or partial
// client maps into a normalized weight vector, and the composer combines
// both into a total score with a per-dimension contribution breakdown.
// Ranking iterates a candidate pool in either strict mode (must-have skill
// failures exclude the candidate) or near-match mode (relaxed gating with
// an explanatory reason per candidate), sorts with a deterministic
// hash-based tie-break, and truncates to top-K.
//
// Nothing in this package performs I/O or holds mutable state; identical
// inputs always produce identical outputs.
package match
