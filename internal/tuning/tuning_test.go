package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/rules"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadShippedTuning(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, tu.TickRate)
	assert.Equal(t, []agents.SkillLevel{agents.SkillBeginner, agents.SkillIntermediate, agents.SkillExpert, agents.SkillIntermediate}, tu.Seats.AI)

	assert.Equal(t, engine.DefaultConfig(), tu.MatchConfig(), "shipped file matches the defaults")
}

func TestLoadOverrides(t *testing.T) {
	path := writeTuning(t, `
seed: 99
board:
  land_radius: 1
  hex_size: 20
seats:
  humans: 1
  ai: [expert]
pulse_interval_sec: 30
journal:
  db_path: /tmp/m.db
`)
	tu, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/m.db", tu.Journal.DBPath)
	assert.Equal(t, "data/events", tu.Journal.LogDir, "unset keeps default")

	cfg := tu.MatchConfig()
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 1, cfg.Gen.LandRadius)
	assert.Equal(t, 20.0, cfg.Gen.HexSize)
	assert.Equal(t, rules.ConfigForHexSize(20), cfg.Rules)
	assert.Equal(t, agents.AIConfigForHexSize(20), cfg.AI)
	assert.Equal(t, agents.SeatConfig{Humans: 1, AI: []agents.SkillLevel{agents.SkillExpert}}, cfg.Seats)
	assert.Equal(t, 30.0, cfg.PulseInterval)
	assert.Equal(t, engine.DefaultConfig().MaxOffers, cfg.MaxOffers)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(writeTuning(t, "seats:\n  ai: [Grandmaster]\n"))
	assert.ErrorContains(t, err, "unknown skill level")

	_, err = Load(writeTuning(t, "seats:\n  humans: 3\n  ai: [Beginner, Beginner, Beginner, Beginner]\n"))
	assert.ErrorContains(t, err, "at most 6 seats")

	_, err = Load(writeTuning(t, "board: [1, 2]\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
