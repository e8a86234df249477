package location

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"strconv"

	"harvestcast/internal/models"
)

// Selection is the reproducible result of picking a location for a cycle.
// It can be recomputed from (cycleID, blockEntropy) alone.
type Selection struct {
	Location      models.Location
	SelectionHash string
	GridIndex     uint64
	BlockEntropy  string
}

// Selector deterministically maps cycle entropy onto one of a closed set of
// candidate locations. It performs no I/O and keeps no mutable state.
type Selector struct {
	locations   []models.Location
	totalWeight float64
}

func NewSelector(locations []models.Location) (*Selector, error) {
	if len(locations) == 0 {
		return nil, errors.New("location selector requires at least one candidate location")
	}
	total := 0.0
	for _, loc := range locations {
		if loc.PopulationWeight < 0 {
			return nil, errors.New("location population weight must be non-negative: " + loc.ID)
		}
		total += loc.PopulationWeight
	}
	if total <= 0 {
		return nil, errors.New("total population weight must be positive")
	}
	return &Selector{locations: locations, totalWeight: total}, nil
}

// GridSize scales with the aggregate population weight but never shrinks
// below 10x the candidate count.
func (s *Selector) GridSize() uint64 {
	byWeight := uint64(math.Floor(1000 * s.totalWeight / 100))
	floor := uint64(10 * len(s.locations))
	if byWeight < floor {
		return floor
	}
	return byWeight
}

// Select picks the cycle's location. Identical inputs always yield an
// identical selection.
//
// The target-weight step reproduces the original selection behavior: the
// target always lies strictly below the total weight, which can favor
// locations early in the list. Kept as-is so historical selections stay
// verifiable; see DESIGN.md before changing it.
func (s *Selector) Select(cycleID uint64, blockEntropy string) (Selection, error) {
	if s == nil || len(s.locations) == 0 {
		return Selection{}, errors.New("selector not initialized")
	}

	input := blockEntropy + strconv.FormatUint(cycleID, 10)
	sum := sha256.Sum256([]byte(input))
	selectionHash := hex.EncodeToString(sum[:])

	hashInt := binary.BigEndian.Uint64(sum[:8])
	gridIndex := hashInt % s.GridSize()

	chosen := s.locationForGridIndex(gridIndex)

	return Selection{
		Location:      chosen,
		SelectionHash: selectionHash,
		GridIndex:     gridIndex,
		BlockEntropy:  blockEntropy,
	}, nil
}

func (s *Selector) locationForGridIndex(gridIndex uint64) models.Location {
	weightMod := uint64(math.Floor(s.totalWeight * 100))
	if weightMod == 0 {
		return s.locations[len(s.locations)-1]
	}
	targetWeight := float64(gridIndex%weightMod) / 100

	cumulative := 0.0
	for _, loc := range s.locations {
		cumulative += loc.PopulationWeight
		if cumulative >= targetWeight {
			return loc
		}
	}
	// Floating-point edge case: cumulative never reached the target.
	return s.locations[len(s.locations)-1]
}

// Validate re-runs the selection and compares location ids. Used for
// independent verification of a revealed cycle.
func (s *Selector) Validate(cycleID uint64, blockEntropy string, expectedLocationID string) bool {
	sel, err := s.Select(cycleID, blockEntropy)
	if err != nil {
		return false
	}
	return sel.Location.ID == expectedLocationID
}
