package wager

import (
	"math"
	"testing"
)

func TestInfluence_EmptyPool(t *testing.T) {
	r := Influence(0, 0)
	if r.BetInfluence != 0 {
		t.Fatalf("betInfluence=%v want=0", r.BetInfluence)
	}
	if r.DominantSide != SideNone {
		t.Fatalf("dominantSide=%s want=%s", r.DominantSide, SideNone)
	}
	if r.StakeRatio != 0 || r.InfluenceStrength != 0 {
		t.Fatalf("empty pool must be all zeros, got %+v", r)
	}
}

func TestInfluence_EqualStakes(t *testing.T) {
	r := Influence(250, 250)
	if r.BetInfluence != 0 {
		t.Fatalf("betInfluence=%v want=0", r.BetInfluence)
	}
	if r.DominantSide != SideNone {
		t.Fatalf("dominantSide=%s want=%s", r.DominantSide, SideNone)
	}
	if r.StakeRatio != 0.5 {
		t.Fatalf("stakeRatio=%v want=0.5", r.StakeRatio)
	}
}

func TestInfluence_OneSidedPools(t *testing.T) {
	r := Influence(500, 0)
	if r.BetInfluence != 2.0 {
		t.Fatalf("betInfluence=%v want=2.0", r.BetInfluence)
	}
	if r.DominantSide != SideGood {
		t.Fatalf("dominantSide=%s want=%s", r.DominantSide, SideGood)
	}
	if r.InfluenceStrength != maxInfluenceStrength {
		t.Fatalf("strength=%v want capped at %v", r.InfluenceStrength, maxInfluenceStrength)
	}

	r = Influence(0, 500)
	if r.BetInfluence != -2.0 {
		t.Fatalf("betInfluence=%v want=-2.0", r.BetInfluence)
	}
	if r.DominantSide != SideBad {
		t.Fatalf("dominantSide=%s want=%s", r.DominantSide, SideBad)
	}
}

func TestInfluence_Monotonic(t *testing.T) {
	prev := math.Inf(-1)
	for good := 0.0; good <= 1000; good += 100 {
		r := Influence(good, 1000-good)
		if r.BetInfluence < prev {
			t.Fatalf("betInfluence must grow with the good share: %v after %v", r.BetInfluence, prev)
		}
		if r.BetInfluence < -2.0 || r.BetInfluence > 2.0 {
			t.Fatalf("betInfluence=%v out of [-2,2]", r.BetInfluence)
		}
		prev = r.BetInfluence
	}
}

func TestInfluence_SkewedPool(t *testing.T) {
	// good=300, bad=100: ((300-100)/400)*2 = 1.0, ratio 0.75, odds 3.
	r := Influence(300, 100)
	if r.BetInfluence != 1.0 {
		t.Fatalf("betInfluence=%v want=1.0", r.BetInfluence)
	}
	if r.StakeRatio != 0.75 {
		t.Fatalf("stakeRatio=%v want=0.75", r.StakeRatio)
	}
	if math.Abs(r.InfluenceStrength-3.0) > 1e-9 {
		t.Fatalf("strength=%v want=3.0", r.InfluenceStrength)
	}
	if r.DominantSide != SideGood {
		t.Fatalf("dominantSide=%s want=%s", r.DominantSide, SideGood)
	}
}
