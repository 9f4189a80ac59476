package jigsaw

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// DefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Matching.CoarseCut != 1.0 || cfg.Matching.FineCut != 0.5 {
		t.Errorf("cuts = %v/%v, want 1/0.5", cfg.Matching.CoarseCut, cfg.Matching.FineCut)
	}
	if cfg.Matching.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Matching.Workers, runtime.NumCPU())
	}
	if cfg.Solver.MaxSolutions != DefaultMaxSolutions {
		t.Errorf("MaxSolutions = %d, want %d", cfg.Solver.MaxSolutions, DefaultMaxSolutions)
	}
	if cfg.HTTP.Port != 4040 {
		t.Errorf("Port = %d, want 4040", cfg.HTTP.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_MatcherConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matching.Window = 5
	cfg.Matching.Step = 2
	cfg.Matching.DumpDir = "/tmp/dump"

	mc := cfg.MatcherConfig()
	if mc.Scorer.Window != 5 || mc.Scorer.Step != 2 {
		t.Errorf("Scorer = %+v, want window 5 step 2", mc.Scorer)
	}
	if mc.DumpDir != "/tmp/dump" {
		t.Errorf("DumpDir = %q", mc.DumpDir)
	}

	cfg.Solver.Seed = 3
	s := cfg.NewSolver()
	if s.Seed != 3 || s.MaxSolutions != DefaultMaxSolutions {
		t.Errorf("solver = %+v", s)
	}
}

// ---------------------------------------------------------------------------
// LoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig_NotExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `matching:
  coarseCut: 1.5
  window: 6
solver:
  seed: 2
mqtt:
  broker: tcp://localhost:1883
render:
  background: "#102030"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Matching.CoarseCut != 1.5 {
		t.Errorf("CoarseCut = %v, want 1.5", cfg.Matching.CoarseCut)
	}
	if cfg.Matching.FineCut != 0.5 {
		t.Errorf("FineCut = %v, want default 0.5", cfg.Matching.FineCut)
	}
	if cfg.Matching.Window != 6 || cfg.Matching.Step != 3 {
		t.Errorf("Window/Step = %d/%d, want 6/3", cfg.Matching.Window, cfg.Matching.Step)
	}
	if cfg.Solver.Seed != 2 {
		t.Errorf("Seed = %d, want 2", cfg.Solver.Seed)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.PublishPrefix != "jigsolve" {
		t.Errorf("PublishPrefix = %q, want default", cfg.MQTT.PublishPrefix)
	}
	if cfg.Render.Background != "#102030" {
		t.Errorf("Background = %q", cfg.Render.Background)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero coarse cut", "matching:\n  coarseCut: 0\n"},
		{"negative fine cut", "matching:\n  fineCut: -1\n"},
		{"zero step", "matching:\n  step: 0\n"},
		{"negative window", "matching:\n  window: -2\n"},
		{"zero max solutions", "solver:\n  maxSolutions: 0\n"},
		{"negative seed", "solver:\n  seed: -1\n"},
		{"bad background", "render:\n  background: \"#12\"\n"},
		{"zero scale", "render:\n  scale: 0\n"},
		{"port out of range", "http:\n  port: 70000\n"},
		{"bad yaml", "matching: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matching.Step = 0
	cfg.Solver.MaxSolutions = 0
	cfg.HTTP.Port = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("got %d errors, want 3: %v", n, err)
	}
	for _, want := range []string{"matching.step", "solver.maxSolutions", "http.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.MaxSolutions = 50
	cfg.MQTT.Broker = "tcp://broker:1883"
	cfg.Render.Labels = false

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Solver.MaxSolutions != 50 {
		t.Errorf("MaxSolutions = %d, want 50", loaded.Solver.MaxSolutions)
	}
	if loaded.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("Broker = %q", loaded.MQTT.Broker)
	}
	if loaded.Render.Labels {
		t.Error("Labels should stay false")
	}
}

// ---------------------------------------------------------------------------
// ApplyEnv
// ---------------------------------------------------------------------------

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://env:1883")
	t.Setenv("MQTT_USERNAME", "user")
	t.Setenv("MQTT_PASSWORD", "secret")
	t.Setenv("MQTT_CLIENT_ID", "")
	t.Setenv("MQTT_PUBLISH_PREFIX", "puzzles")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Username != "user" || cfg.MQTT.Password != "secret" {
		t.Errorf("credentials = %q/%q", cfg.MQTT.Username, cfg.MQTT.Password)
	}
	if cfg.MQTT.ClientID != "jigsolve" {
		t.Errorf("ClientID = %q, empty env must keep the default", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.PublishPrefix != "puzzles" {
		t.Errorf("PublishPrefix = %q", cfg.MQTT.PublishPrefix)
	}
}

func TestConfig_Renderers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.Background = "#000000"
	cfg.Render.Scale = 2
	cfg.Render.Labels = false

	r := cfg.NewSolutionRenderer(nil, NewGrid(2))
	if r.Background.R != 0 || r.Background.A != 255 {
		t.Errorf("Background = %v, want black", r.Background)
	}
	if r.Scale != 2 || r.Labels {
		t.Errorf("Scale/Labels = %v/%v", r.Scale, r.Labels)
	}

	lr := cfg.NewLayoutRenderer(nil, NewGrid(2))
	if lr.Resolution <= 0 {
		t.Errorf("Resolution = %v", lr.Resolution)
	}
}
