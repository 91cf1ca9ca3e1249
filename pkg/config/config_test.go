package config

import (
	"errors"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Memory.RetentionDays != 180 {
		t.Fatalf("retention_days default = %d", c.Memory.RetentionDays)
	}
	if c.Memory.MaxRecords != 1000 {
		t.Fatalf("max_records default = %d", c.Memory.MaxRecords)
	}
	if c.Memory.ProximityTolerance != 0.001 {
		t.Fatalf("proximity_tolerance default = %v", c.Memory.ProximityTolerance)
	}
	if c.Window.MaxBars != 5000 || c.Window.LowMemoryCap != 750 {
		t.Fatalf("window defaults = %+v", c.Window)
	}
}

func TestParseInvalidMaxRecords(t *testing.T) {
	_, err := Parse([]byte("environment: test\nmemory:\n  max_records: -5\n"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseInvalidGapBounds(t *testing.T) {
	_, err := Parse([]byte("environment: test\ndetect:\n  fvg:\n    min_gap_pips: 50\n    max_gap_pips: 3\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEffectiveLowMemory(t *testing.T) {
	c, err := Parse([]byte("environment: test\nmemory:\n  low_memory: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lim := c.Effective()
	if lim.MaxRecords != 200 {
		t.Fatalf("low-memory max records = %d", lim.MaxRecords)
	}
	if lim.RetentionDays != 30 {
		t.Fatalf("low-memory retention = %d", lim.RetentionDays)
	}
	if lim.WindowCap != 750 {
		t.Fatalf("low-memory window cap = %d", lim.WindowCap)
	}
	if lim.FanOut {
		t.Fatalf("fan-out should be disabled in low-memory mode")
	}
}

func TestEffectiveNormal(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lim := c.Effective()
	if lim.MaxRecords != 1000 || lim.RetentionDays != 180 || !lim.FanOut {
		t.Fatalf("normal limits = %+v", lim)
	}
}
