package service

import (
	"StructPulse/internal/domain/models"
)

// PatternDetector recognizes one structural pattern over a candle window.
// Detect returns at most one base signal per call; ok is false when no
// qualifying structure exists. Detectors never consult historical memory.
type PatternDetector interface {
	Type() models.PatternType
	Detect(window []models.Candle, swings []models.SwingPoint) (models.BaseSignal, bool)
}

// BonusCurve maps a success rate in [0,1] and its sample count to a bounded
// confidence adjustment. The linear additive curve is the standard mapping;
// the interface exists so divergent per-pattern curves can be plugged in.
type BonusCurve interface {
	Bonus(rate float64, samples int) int
}
