package detect

import (
	"fmt"

	"StructPulse/internal/domain/models"
	domsvc "StructPulse/internal/domain/service"
	"StructPulse/pkg/config"
)

// Registry holds the wired pattern detectors in a stable evaluation order.
type Registry struct {
	detectors []domsvc.PatternDetector
}

// NewRegistry builds the standard four-detector registry from config.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{detectors: []domsvc.PatternDetector{
		NewBOSDetector(cfg.Detect.BOS.BaseConfidence),
		NewCHoCHDetector(cfg.Detect.CHoCH.BaseConfidence),
		NewFVGDetector(cfg.Detect.FVG.BaseConfidence, cfg.Detect.FVG.MinGapPips, cfg.Detect.FVG.MaxGapPips, cfg.Detect.FVG.PipSize),
		NewMSSDetector(cfg.Detect.MSS.MinDisplacementPips, cfg.Detect.FVG.PipSize, cfg.Detect.MSS.AvgRangeBars),
	}}
}

// All returns the detectors in evaluation order.
func (r *Registry) All() []domsvc.PatternDetector { return r.detectors }

// VerifyWired errors unless every known pattern type has exactly one detector.
// Run at startup; a missing detector is a wiring bug, not a silent no-op.
func (r *Registry) VerifyWired() error {
	seen := make(map[models.PatternType]bool, 4)
	for _, d := range r.detectors {
		t := d.Type()
		if !models.IsValidPattern(t) {
			return fmt.Errorf("detector reports unknown pattern type %q", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate detector for pattern %s", t)
		}
		seen[t] = true
	}
	for _, t := range []models.PatternType{models.PatternBOS, models.PatternCHoCH, models.PatternFVG, models.PatternMSS} {
		if !seen[t] {
			return fmt.Errorf("no detector wired for pattern %s", t)
		}
	}
	return nil
}
