package match

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// scoreEpsilon is the tolerance below which two composed scores are
// considered equal and the tie-break applies.
const scoreEpsilon = 1e-9

// SortKey identifies one ranked result for comparison purposes.
type SortKey struct {
	Score        float64
	AssignmentID string
	ProfileID    string
}

// TieBreak hashes an (assignment, profile) pair into a stable value in
// [0, 1]. The same pair always produces the same value, and the hash
// carries no structural bias toward lexicographically earlier identifiers.
func TieBreak(assignmentID, profileID string) float64 {
	h := sha256.Sum256([]byte(assignmentID + ":" + profileID))
	v := binary.BigEndian.Uint32(h[:4])
	return float64(v) / float64(0xffffffff)
}

// Compare orders two results: higher scores first, with a deterministic
// hash-based tie-break for equal (within epsilon) scores. Returns a
// negative value when a sorts before b, positive when after, 0 only when
// the keys are identical. Swapping the arguments negates the result.
func Compare(a, b SortKey) int {
	if math.Abs(a.Score-b.Score) > scoreEpsilon {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}

	tieA := TieBreak(a.AssignmentID, a.ProfileID)
	tieB := TieBreak(b.AssignmentID, b.ProfileID)
	switch {
	case tieA < tieB:
		return -1
	case tieA > tieB:
		return 1
	default:
		return 0
	}
}
