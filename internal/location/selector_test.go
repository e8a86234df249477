package location

import (
	"strconv"
	"testing"

	"harvestcast/internal/models"
)

func testSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := NewSelector(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return s
}

func TestSelect_Deterministic(t *testing.T) {
	s := testSelector(t)
	a, err := s.Select(42, "0xdeadbeef")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	b, err := s.Select(42, "0xdeadbeef")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if a.Location.ID != b.Location.ID {
		t.Fatalf("location=%s want=%s", b.Location.ID, a.Location.ID)
	}
	if a.SelectionHash != b.SelectionHash {
		t.Fatalf("hash=%s want=%s", b.SelectionHash, a.SelectionHash)
	}
	if a.GridIndex != b.GridIndex {
		t.Fatalf("gridIndex=%d want=%d", b.GridIndex, a.GridIndex)
	}
}

func TestSelect_HashShape(t *testing.T) {
	s := testSelector(t)
	sel, err := s.Select(1, "entropy")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.SelectionHash) != 64 {
		t.Fatalf("hash length=%d want=64", len(sel.SelectionHash))
	}
	for _, r := range sel.SelectionHash {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Fatalf("hash contains non-hex rune %q", r)
		}
	}
	if sel.GridIndex >= s.GridSize() {
		t.Fatalf("gridIndex=%d must be below gridSize=%d", sel.GridIndex, s.GridSize())
	}
}

func TestSelect_DistinctCyclesDistinctHashes(t *testing.T) {
	s := testSelector(t)
	seen := map[string]uint64{}
	for id := uint64(1); id <= 100; id++ {
		sel, err := s.Select(id, "shared-entropy")
		if err != nil {
			t.Fatalf("Select(%d): %v", id, err)
		}
		if prev, dup := seen[sel.SelectionHash]; dup {
			t.Fatalf("cycles %d and %d produced the same hash", prev, id)
		}
		seen[sel.SelectionHash] = id
	}
}

func TestSelect_EntropyChangesSelectionHash(t *testing.T) {
	s := testSelector(t)
	a, _ := s.Select(7, "entropy-a")
	b, _ := s.Select(7, "entropy-b")
	if a.SelectionHash == b.SelectionHash {
		t.Fatalf("different entropy must not collide: %s", a.SelectionHash)
	}
}

func TestGridSize(t *testing.T) {
	// Weight-driven: total 100.0 -> floor(1000*100/100) = 1000.
	big := make([]models.Location, 0, 4)
	for i := 0; i < 4; i++ {
		big = append(big, models.Location{ID: "loc-" + strconv.Itoa(i), PopulationWeight: 25})
	}
	s, err := NewSelector(big)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	if got := s.GridSize(); got != 1000 {
		t.Fatalf("gridSize=%d want=1000", got)
	}

	// Floor-driven: tiny weights never shrink the grid below 10x count.
	small := []models.Location{
		{ID: "a", PopulationWeight: 0.1},
		{ID: "b", PopulationWeight: 0.1},
	}
	s, err = NewSelector(small)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	if got := s.GridSize(); got != 20 {
		t.Fatalf("gridSize=%d want=20", got)
	}
}

func TestValidate(t *testing.T) {
	s := testSelector(t)
	sel, err := s.Select(99, "block-entropy-99")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !s.Validate(99, "block-entropy-99", sel.Location.ID) {
		t.Fatalf("validation of the original selection must pass")
	}
	if s.Validate(99, "tampered-entropy-is-very-unlikely-to-match", sel.Location.ID) &&
		s.Validate(100, "block-entropy-99", sel.Location.ID) {
		t.Fatalf("validation accepted both a tampered entropy and a wrong cycle")
	}
	if s.Validate(99, "block-entropy-99", "no-such-location") {
		t.Fatalf("validation must reject an unknown location id")
	}
}

func TestNewSelector_Rejections(t *testing.T) {
	if _, err := NewSelector(nil); err == nil {
		t.Fatalf("empty catalog must be rejected")
	}
	if _, err := NewSelector([]models.Location{{ID: "x", PopulationWeight: -1}}); err == nil {
		t.Fatalf("negative weight must be rejected")
	}
	if _, err := NewSelector([]models.Location{{ID: "x", PopulationWeight: 0}}); err == nil {
		t.Fatalf("zero total weight must be rejected")
	}
}
