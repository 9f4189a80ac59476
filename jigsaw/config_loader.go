package jigsaw

import (
	"fmt"
	"os"
	"runtime"

	"github.com/tdewolff/canvas"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration file
type Config struct {
	Matching MatchingConfig `yaml:"matching" json:"matching"`
	Solver   SolverConfig   `yaml:"solver" json:"solver"`
	Render   RenderConfig   `yaml:"render" json:"render"`
	MQTT     MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
}

// MatchingConfig tunes the match catalog construction
type MatchingConfig struct {
	CoarseCut float64 `yaml:"coarseCut" json:"coarseCut"` // multiplier on the median alignment cost
	FineCut   float64 `yaml:"fineCut" json:"fineCut"`     // multiplier on the median overlap score
	Workers   int     `yaml:"workers,omitempty" json:"workers,omitempty"`
	Window    int     `yaml:"window" json:"window"` // overlap sweep half-width in pixels
	Step      int     `yaml:"step" json:"step"`
	DumpDir   string  `yaml:"dumpDir,omitempty" json:"dumpDir,omitempty"`
}

// SolverConfig tunes the assembly search
type SolverConfig struct {
	MaxSolutions int `yaml:"maxSolutions" json:"maxSolutions"`
	Seed         int `yaml:"seed" json:"seed"`
}

// RenderConfig controls solution images
type RenderConfig struct {
	Background       string  `yaml:"background" json:"background"` // hex colour behind the pieces
	Scale            float64 `yaml:"scale" json:"scale"`           // raster output scale
	Labels           bool    `yaml:"labels" json:"labels"`         // draw piece ids on tiles
	VectorResolution float64 `yaml:"vectorResolution,omitempty" json:"vectorResolution,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"-"`
}

// HTTPConfig holds the HTTP server settings
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			CoarseCut: 1.0,
			FineCut:   0.5,
			Workers:   runtime.NumCPU(),
			Window:    3,
			Step:      3,
		},
		Solver: SolverConfig{
			MaxSolutions: DefaultMaxSolutions,
		},
		Render: RenderConfig{
			Background:       "#FFFFFF",
			Scale:            1.0,
			Labels:           true,
			VectorResolution: 300,
		},
		MQTT: MQTTConfig{
			PublishPrefix: "jigsolve",
			ClientID:      "jigsolve",
		},
		HTTP: HTTPConfig{
			Port: 4040,
		},
	}
}

// MatcherConfig converts the matching section for NewMatcher
func (c *Config) MatcherConfig() MatcherConfig {
	return MatcherConfig{
		CoarseCut: c.Matching.CoarseCut,
		FineCut:   c.Matching.FineCut,
		Workers:   c.Matching.Workers,
		Scorer:    OverlapScorer{Window: c.Matching.Window, Step: c.Matching.Step},
		DumpDir:   c.Matching.DumpDir,
	}
}

// NewSolver builds a solver from the solver section
func (c *Config) NewSolver() *Solver {
	return &Solver{MaxSolutions: c.Solver.MaxSolutions, Seed: c.Solver.Seed}
}

// NewSolutionRenderer builds a raster renderer with the render section applied
func (c *Config) NewSolutionRenderer(pieces []*Piece, g *Grid) *SolutionRenderer {
	r := NewSolutionRenderer(pieces, g)
	if bg, err := ParseHexColor(c.Render.Background); err == nil {
		r.Background = bg
	}
	if c.Render.Scale > 0 {
		r.Scale = c.Render.Scale
	}
	r.Labels = c.Render.Labels
	return r
}

// NewLayoutRenderer builds a vector renderer with the render section applied
func (c *Config) NewLayoutRenderer(pieces []*Piece, g *Grid) *LayoutRenderer {
	r := NewLayoutRenderer(pieces, g)
	if c.Render.VectorResolution > 0 {
		r.Resolution = canvas.DPI(c.Render.VectorResolution)
	}
	return r
}

// LoadConfig loads the configuration from a YAML file. Missing keys keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges and reports every violation at once
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Matching.CoarseCut > 0, "matching.coarseCut must be positive")
	check(c.Matching.FineCut > 0, "matching.fineCut must be positive")
	check(c.Matching.Window >= 0, "matching.window must not be negative")
	check(c.Matching.Step > 0, "matching.step must be positive")
	check(c.Matching.Workers >= 0, "matching.workers must not be negative")
	check(c.Solver.MaxSolutions > 0, "solver.maxSolutions must be positive")
	check(c.Solver.Seed >= 0, "solver.seed must not be negative")
	check(c.Render.Scale > 0, "render.scale must be positive")
	if _, err := ParseHexColor(c.Render.Background); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("render.background: %w", err))
	}
	check(c.HTTP.Port >= 0 && c.HTTP.Port <= 65535, "http.port %d out of range", c.HTTP.Port)
	return errs
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides MQTT settings from MQTT_BROKER, MQTT_CLIENT_ID,
// MQTT_USERNAME, MQTT_PASSWORD and MQTT_PUBLISH_PREFIX when they are set
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.MQTT.Broker, "MQTT_BROKER")
	override(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	override(&c.MQTT.Username, "MQTT_USERNAME")
	override(&c.MQTT.Password, "MQTT_PASSWORD")
	override(&c.MQTT.PublishPrefix, "MQTT_PUBLISH_PREFIX")
}
