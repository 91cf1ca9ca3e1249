package models

import (
	"fmt"
	"time"
)

// Outcome is the resolution state of a break event.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Terminal reports whether o is a final outcome.
func (o Outcome) Terminal() bool { return o == OutcomeSuccess || o == OutcomeFailure }

// IsValidOutcome returns true for a known outcome value.
func IsValidOutcome(o Outcome) bool {
	switch o {
	case OutcomePending, OutcomeSuccess, OutcomeFailure:
		return true
	default:
		return false
	}
}

// BreakEvent is the persisted record of one detected structural break.
// Immutable except for the single pending -> terminal outcome transition.
type BreakEvent struct {
	ID           string
	Symbol       string
	Timeframe    string
	Pattern      PatternType
	Direction    Direction
	BreakLevel   float64
	DetectedAt   time.Time
	Outcome      Outcome
	OutcomeSetAt *time.Time
}

// NewEventID derives a stable event identifier from the partition key, the
// pattern, the direction, and the detection time. Pattern and direction keep
// IDs distinct when several detectors fire on the same closed bar.
func NewEventID(symbol, timeframe string, pattern PatternType, dir Direction, detectedAt time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s-%d", symbol, timeframe, pattern, dir, detectedAt.UnixNano())
}
