package wager

// DominantSide values for the influence result.
const (
	SideGood = "good"
	SideBad  = "bad"
	SideNone = "none"
)

// Odds-ratio cap for a fully one-sided pool, where the raw ratio diverges.
const maxInfluenceStrength = 100.0

type InfluenceResult struct {
	BetInfluence      float64 `json:"bet_influence"`      // [-2.0, +2.0]
	StakeRatio        float64 `json:"stake_ratio"`        // [0.5, 1.0], 0 when empty
	DominantSide      string  `json:"dominant_side"`
	InfluenceStrength float64 `json:"influence_strength"` // dominance odds-ratio
}

// Influence summarizes which side of the pool dominates and by how much.
// Pure and deterministic: equal stakes yield 0, an all-one-side pool yields
// exactly ±2.0, and the magnitude grows monotonically with skew.
func Influence(good, bad float64) InfluenceResult {
	total := good + bad
	if total <= 0 {
		return InfluenceResult{DominantSide: SideNone}
	}

	betInfluence := ((good - bad) / total) * 2.0

	dominant := good
	side := SideGood
	switch {
	case bad > good:
		dominant = bad
		side = SideBad
	case bad == good:
		side = SideNone
	}
	stakeRatio := dominant / total

	strength := 0.0
	if side != SideNone {
		if rem := 1 - stakeRatio; rem > 0 {
			strength = stakeRatio / rem
			if strength > maxInfluenceStrength {
				strength = maxInfluenceStrength
			}
		} else {
			strength = maxInfluenceStrength
		}
	}

	return InfluenceResult{
		BetInfluence:      betInfluence,
		StakeRatio:        stakeRatio,
		DominantSide:      side,
		InfluenceStrength: strength,
	}
}
