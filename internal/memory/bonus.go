package memory

import (
	"context"
	"fmt"
	"math"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	domsvc "StructPulse/internal/domain/service"
)

// LinearCurve maps a success rate to an additive confidence bonus:
// round((rate - 0.5) * Scale), clamped to [-Cap, +Cap]. Zero samples always
// map to a zero bonus.
type LinearCurve struct {
	Scale float64
	Cap   int
}

// DefaultCurve is the production mapping: +-20 at the extremes, 12 points for
// an 80% success rate.
func DefaultCurve() LinearCurve {
	return LinearCurve{Scale: 40, Cap: 20}
}

func (c LinearCurve) Bonus(rate float64, samples int) int {
	if samples == 0 {
		return 0
	}
	b := int(math.Round((rate - 0.5) * c.Scale))
	if b > c.Cap {
		return c.Cap
	}
	if b < -c.Cap {
		return -c.Cap
	}
	return b
}

// BonusCalculator derives the historical confidence bonus for a proposed
// break from nearby retained events in the store.
type BonusCalculator struct {
	store     *Store
	tolerance float64
	curve     domsvc.BonusCurve
}

// NewBonusCalculator builds a calculator over store with the given proximity
// tolerance in price units. A nil curve falls back to the default linear one.
func NewBonusCalculator(store *Store, tolerance float64, curve domsvc.BonusCurve) *BonusCalculator {
	if curve == nil {
		curve = DefaultCurve()
	}
	return &BonusCalculator{store: store, tolerance: tolerance, curve: curve}
}

// Compute returns (bonus, sampleCount) for a break at level. The sample count
// is the number of retained events within tolerance matching symbol,
// timeframe, and direction; with zero matches the bonus is zero. The rate
// behind the bonus uses only the resolved subset of those matches.
func (b *BonusCalculator) Compute(ctx context.Context, symbol string, tf domrepo.Timeframe, dir models.Direction, level float64) (int, int, error) {
	matched, err := b.store.QueryNear(ctx, symbol, tf, dir, level, b.tolerance)
	if err != nil {
		return 0, 0, fmt.Errorf("query near %s %s %.5f: %w", symbol, tf, level, err)
	}
	if len(matched) == 0 {
		return 0, 0, nil
	}
	rate, _ := SuccessRate(matched, nil)
	return b.curve.Bonus(rate, len(matched)), len(matched), nil
}
