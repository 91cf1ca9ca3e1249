package detect

import (
	"testing"

	domsvc "StructPulse/internal/domain/service"
	"StructPulse/pkg/config"
)

func TestRegistryVerifyWired(t *testing.T) {
	cfg, err := config.Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	r := NewRegistry(cfg)
	if err := r.VerifyWired(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(r.All()) != 4 {
		t.Fatalf("detector count = %d", len(r.All()))
	}
}

func TestRegistryMissingDetector(t *testing.T) {
	r := &Registry{detectors: []domsvc.PatternDetector{
		NewBOSDetector(70),
		NewCHoCHDetector(68),
		NewFVGDetector(72, 3, 50, 0.0001),
	}}
	if err := r.VerifyWired(); err == nil {
		t.Fatalf("expected error for missing MSS detector")
	}
}

func TestRegistryDuplicateDetector(t *testing.T) {
	r := &Registry{detectors: []domsvc.PatternDetector{
		NewBOSDetector(70),
		NewBOSDetector(70),
	}}
	if err := r.VerifyWired(); err == nil {
		t.Fatalf("expected error for duplicate detector")
	}
}
