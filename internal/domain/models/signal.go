package models

import "time"

// BaseSignal is a detector's raw output, before memory enrichment.
type BaseSignal struct {
	Pattern        PatternType
	Symbol         string
	Timeframe      string
	Direction      Direction
	BreakLevel     float64
	BaseConfidence int // 0..100
	Timestamp      time.Time
}

// PatternSignal is the final, enriched signal emitted to consumers.
// Note: no transport (json/http) concerns here.
type PatternSignal struct {
	Pattern         PatternType
	Symbol          string
	Timeframe       string
	Direction       Direction
	Timestamp       time.Time
	BreakLevel      float64
	BaseConfidence  int
	HistoricalBonus int // -20..+20, 0 when SampleCount == 0
	SampleCount     int
	FinalConfidence int // clamp(base+bonus, 0, 100)
	Narrative       string
}
