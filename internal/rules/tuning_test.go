package rules

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadTuningOverridesDefaults(t *testing.T) {
	c := DefaultConstants()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "lookahead: 12\nfull_slack: 80\nturn_budget: 750ms\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadTuning(path, c)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if got.Lookahead != 12 || got.FullSlack != 80 {
		t.Fatalf("lookahead=%d full_slack=%d want=12,80", got.Lookahead, got.FullSlack)
	}
	if got.TurnBudget != 750*time.Millisecond {
		t.Fatalf("turn_budget=%v want=750ms", got.TurnBudget)
	}
	if got.RiskPenalty != DefaultTuning(c).RiskPenalty {
		t.Fatalf("risk_penalty=%d want default", got.RiskPenalty)
	}
}

func TestLoadTuningRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("lookahead: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTuning(path, DefaultConstants()); err == nil {
		t.Fatalf("expected error for zero lookahead")
	}
}

func TestConstantsArithmetic(t *testing.T) {
	c := DefaultConstants()
	if got := c.Extract(100); got != 25 {
		t.Fatalf("Extract(100)=%d want=25", got)
	}
	if got := c.Extract(101); got != 26 {
		t.Fatalf("Extract(101)=%d want=26", got)
	}
	if got := c.MoveCost(99); got != 9 {
		t.Fatalf("MoveCost(99)=%d want=9", got)
	}
	if got := c.Inspire(25); got != 75 {
		t.Fatalf("Inspire(25)=%d want=75", got)
	}
}

func TestLoadTuningWrapsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := LoadTuning(path, DefaultConstants())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err=%v want fs.ErrNotExist", err)
	}
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("err=%v does not name %s", err, path)
	}
}

func TestConstantsValidateRejectsZeroRatios(t *testing.T) {
	if err := DefaultConstants().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	c := DefaultConstants()
	c.MoveCostRatio = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("zero MOVE_COST_RATIO accepted")
	}
	c = DefaultConstants()
	c.ExtractRatio = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("zero EXTRACT_RATIO accepted")
	}
}
