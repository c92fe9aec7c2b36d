package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadStation_Defaults(t *testing.T) {
	cfg, err := LoadStation("", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.GapThreshold != 100*time.Millisecond {
		t.Errorf("expected gap threshold 100ms, got %v", cfg.GapThreshold)
	}
	if cfg.MinCodeLength != 5 {
		t.Errorf("expected min code length 5, got %d", cfg.MinCodeLength)
	}
	if cfg.Cooldown != 3*time.Second {
		t.Errorf("expected cooldown 3s, got %v", cfg.Cooldown)
	}
}

func TestLoadStation_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.yaml")
	data := []byte("station_id: gate-a\ngap_threshold: 40ms\nmin_code_length: 8\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STATION_EVENT_ID", "event-1")

	cfg, err := LoadStation(path, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StationID != "gate-a" || cfg.EventID != "event-1" {
		t.Errorf("unexpected identity: %+v", cfg)
	}
	if cfg.GapThreshold != 40*time.Millisecond || cfg.MinCodeLength != 8 {
		t.Errorf("unexpected scanner tunables: %v %d", cfg.GapThreshold, cfg.MinCodeLength)
	}
}

func TestLoadStation_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.yaml")
	if err := os.WriteFile(path, []byte("station_id: gate-a\nevent_id: event-1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := pflag.NewFlagSet("station", pflag.ContinueOnError)
	fs.String("station-id", "", "")
	fs.String("event-id", "", "")
	if err := fs.Parse([]string{"--station-id", "gate-b"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadStation(path, fs)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StationID != "gate-b" {
		t.Errorf("station_id = %q, want flag value gate-b", cfg.StationID)
	}
	if cfg.EventID != "event-1" {
		t.Errorf("event_id = %q, want file value event-1", cfg.EventID)
	}
}

func TestLoadStation_Invalid(t *testing.T) {
	t.Setenv("STATION_GAP_THRESHOLD", "-5ms")
	if _, err := LoadStation("", nil); err == nil {
		t.Fatal("expected error for negative gap threshold")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENGINE_TIMEOUT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EngineTimeout != 3*time.Second {
		t.Errorf("expected engine timeout 3s, got %v", cfg.EngineTimeout)
	}
	if cfg.HTTPAddr == "" {
		t.Error("expected default http addr")
	}
}
