package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidateRejectsNonPositiveSignal(t *testing.T) {
	cfg := Default()
	cfg.InterruptSignal = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for a non-positive signal")
	}
}

func TestValidateRejectsEmptyLogIdentifier(t *testing.T) {
	cfg := Default()
	cfg.LogIdentifier = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for an empty log identifier")
	}
}
