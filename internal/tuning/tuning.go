// Package tuning loads match parameters from a YAML file.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

// Tuning is the on-disk shape of configs/tuning.yaml. Zero fields keep
// the built-in default.
type Tuning struct {
	Seed     int64 `yaml:"seed"`
	TickRate int   `yaml:"tick_rate_hz"`

	Board Board `yaml:"board"`
	Seats Seats `yaml:"seats"`

	PulseIntervalSec float64 `yaml:"pulse_interval_sec"`
	MaxOffers        int     `yaml:"max_offers_per_player"`
	SetupTurnTimeout float64 `yaml:"setup_turn_timeout_sec"`

	Journal Journal `yaml:"journal"`
}

type Board struct {
	LandRadius int     `yaml:"land_radius"`
	SeaRings   int     `yaml:"sea_rings"`
	HexSize    float64 `yaml:"hex_size"`
	Ports      int     `yaml:"ports"`
}

type Seats struct {
	Humans int                 `yaml:"humans"`
	AI     []agents.SkillLevel `yaml:"ai"`
}

type Journal struct {
	DBPath string `yaml:"db_path"`
	LogDir string `yaml:"log_dir"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	return Tuning{
		TickRate: engine.DefaultTickRate,
		Journal:  Journal{DBPath: "data/settlersim.db", LogDir: "data/events"},
	}
}

// Load reads path over the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	switch {
	case t.TickRate < 0:
		return fmt.Errorf("tick_rate_hz must not be negative")
	case t.Board.LandRadius < 0 || t.Board.SeaRings < 0:
		return fmt.Errorf("board radii must not be negative")
	case t.Board.HexSize < 0:
		return fmt.Errorf("hex_size must not be negative")
	case t.Seats.Humans < 0:
		return fmt.Errorf("seats.humans must not be negative")
	case t.Seats.Humans+len(t.Seats.AI) > 6:
		return fmt.Errorf("at most 6 seats, got %d", t.Seats.Humans+len(t.Seats.AI))
	}
	return nil
}

// MatchConfig applies the tuning to the default match config. Distances
// that scale with the hex size are re-derived when it changes.
func (t Tuning) MatchConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Seed = t.Seed

	if t.Board.LandRadius > 0 {
		cfg.Gen.LandRadius = t.Board.LandRadius
	}
	if t.Board.SeaRings > 0 {
		cfg.Gen.SeaRings = t.Board.SeaRings
	}
	if t.Board.Ports > 0 {
		cfg.Gen.PortCount = t.Board.Ports
	}
	if t.Board.HexSize > 0 && t.Board.HexSize != world.DefaultHexSize {
		cfg.Gen.HexSize = t.Board.HexSize
		cfg.Rules = rules.ConfigForHexSize(t.Board.HexSize)
		cfg.AI = agents.AIConfigForHexSize(t.Board.HexSize)
	}

	if t.Seats.Humans > 0 || len(t.Seats.AI) > 0 {
		cfg.Seats = agents.SeatConfig{Humans: t.Seats.Humans, AI: t.Seats.AI}
	}
	if t.PulseIntervalSec > 0 {
		cfg.PulseInterval = t.PulseIntervalSec
	}
	if t.MaxOffers > 0 {
		cfg.MaxOffers = t.MaxOffers
	}
	if t.SetupTurnTimeout > 0 {
		cfg.SetupTurnTimeout = t.SetupTurnTimeout
	}
	return cfg
}
