package models

import "time"

// SwingKind distinguishes local highs from local lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a local price extremum inside a candle window.
// Derived per detection pass, never persisted.
type SwingPoint struct {
	Index     int
	Price     float64
	Kind      SwingKind
	Timestamp time.Time
}

// Direction of a structural break.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// PatternType enumerates the structural patterns the engine detects.
type PatternType string

const (
	PatternBOS   PatternType = "BOS"
	PatternCHoCH PatternType = "CHoCH"
	PatternFVG   PatternType = "FVG"
	PatternMSS   PatternType = "MSS"
)

// IsValidPattern returns true if p is a known pattern type.
func IsValidPattern(p PatternType) bool {
	switch p {
	case PatternBOS, PatternCHoCH, PatternFVG, PatternMSS:
		return true
	default:
		return false
	}
}
