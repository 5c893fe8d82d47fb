package match

// Composed is the result of combining sub-scores with a normalized weight
// vector. Contributions always sum to Total within floating-point
// tolerance.
type Composed struct {
	Total         float64            `json:"total"`
	Weights       Weights            `json:"weights"`
	Contributions map[string]float64 `json:"contributions"`
}

// Compose combines per-dimension sub-scores with an already-normalized
// weight vector: total = Σ score[d] * weight[d]. Dimensions absent from
// the sub-score map count as score 0 with their weight still applied, so
// missing data lowers the total rather than being silently excluded.
//
// Bonus-carrying scorers (skills, language) may report sub-scores above 1;
// if the weighted sum exceeds 1 the total is capped at 1 and contributions
// are scaled down proportionally so the composition identity
// Σ contribution[d] == total still holds exactly.
func Compose(subscores map[string]float64, weights Weights) Composed {
	var total float64
	contributions := make(map[string]float64, len(weights))

	for dim, weight := range weights {
		contribution := subscores[dim] * weight
		contributions[dim] = contribution
		total += contribution
	}

	if total > 1.0 {
		scale := 1.0 / total
		for dim := range contributions {
			contributions[dim] *= scale
		}
		total = 1.0
	}

	return Composed{
		Total:         total,
		Weights:       weights,
		Contributions: contributions,
	}
}
