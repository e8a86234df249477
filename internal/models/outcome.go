package models

import (
	"fmt"
	"strings"
)

// Outcome is the closed two-value result of a cycle. The same values are
// used as the direction of a wager, so wagers, resolution, and settlement
// can never disagree on spelling.
type Outcome string

const (
	OutcomeGood Outcome = "good"
	OutcomeBad  Outcome = "bad"
)

func ParseOutcome(raw string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "good":
		return OutcomeGood, nil
	case "bad":
		return OutcomeBad, nil
	default:
		return "", fmt.Errorf("unknown outcome %q", raw)
	}
}

func (o Outcome) Valid() bool {
	return o == OutcomeGood || o == OutcomeBad
}
