package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/world"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalBuffersUntilFlush(t *testing.T) {
	j := openJournal(t)
	bus := engine.NewEventBus()
	bus.Subscribe(j.Add)

	bus.Publish(engine.Event{Tick: 10, Time: 1, Category: engine.CategoryDice, Description: "Rolled 8 (3+5)", Data: map[string]any{"roll": 8}})
	bus.Publish(engine.Event{Tick: 12, Time: 1.2, Category: engine.CategoryConstruction, PlayerID: "p1", Description: "p1 completed a Town"})

	n, err := j.CountEvents()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, j.Flush())
	n, err = j.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events, err := j.RecentEvents(10, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, engine.CategoryConstruction, events[0].Category, "newest first")
	assert.Equal(t, world.PlayerID("p1"), events[0].PlayerID)
	assert.Nil(t, events[0].Data)
	assert.Equal(t, 8.0, events[1].Data["roll"])

	dice, err := j.RecentEvents(10, engine.CategoryDice)
	require.NoError(t, err)
	require.Len(t, dice, 1)
	assert.Equal(t, uint64(10), dice[0].Tick)

	require.NoError(t, j.Flush(), "empty flush is a no-op")
}

func TestJournalFlushKeepsFailedBatch(t *testing.T) {
	j := openJournal(t)
	j.Add(engine.Event{Tick: 1, Category: engine.CategoryDice, Description: "first"})

	_, err := j.conn.Exec(`DROP TABLE events`)
	require.NoError(t, err)
	require.Error(t, j.Flush())

	j.Add(engine.Event{Tick: 2, Category: engine.CategoryDice, Description: "second"})
	require.NoError(t, j.migrate())
	require.NoError(t, j.Flush())

	events, err := j.RecentEvents(10, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[0].Description)
	assert.Equal(t, "first", events[1].Description)
}

func TestOpenCreatesJournalDir(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "data", "nested", "match.db"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// A file where the directory should be cannot be opened past.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = Open(filepath.Join(blocker, "match.db"))
	assert.ErrorContains(t, err, "journal dir")
}

func TestJournalStandingsAndMeta(t *testing.T) {
	j := openJournal(t)

	require.NoError(t, j.SaveStandings([]engine.Standing{{PlayerID: "p2", Name: "Ada", Score: 4}, {PlayerID: "p1", Name: "Bo", Score: 2}}))
	require.NoError(t, j.SaveStandings([]engine.Standing{{PlayerID: "p1", Name: "Bo", Score: 5}, {PlayerID: "p2", Name: "Ada", Score: 4}}))
	got, err := j.Standings()
	require.NoError(t, err)
	assert.Equal(t, []engine.Standing{{PlayerID: "p1", Name: "Bo", Score: 5}, {PlayerID: "p2", Name: "Ada", Score: 4}}, got)

	require.NoError(t, j.SaveMeta("seed", "7"))
	require.NoError(t, j.SaveMeta("seed", "8"))
	v, err := j.GetMeta("seed")
	require.NoError(t, err)
	assert.Equal(t, "8", v)
	_, err = j.GetMeta("missing")
	assert.Error(t, err)
}

func TestSaveMatch(t *testing.T) {
	j := openJournal(t)
	cfg := engine.DefaultConfig()
	cfg.Gen = world.SmallTestConfig()
	cfg.Seed = 3
	m := engine.NewMatch(cfg)
	m.Bus.Subscribe(j.Add)
	m.Step(1, 0.1, 0.1)
	m.Bus.Publish(engine.Event{Category: engine.CategorySetup, Description: "probe"})

	require.NoError(t, j.SaveMatch(m))

	standings, err := j.Standings()
	require.NoError(t, err)
	assert.Len(t, standings, len(cfg.Seats.AI))
	seed, err := j.GetMeta("seed")
	require.NoError(t, err)
	assert.Equal(t, "3", seed)
	phase, err := j.GetMeta("phase")
	require.NoError(t, err)
	assert.Equal(t, "setup", phase)
	n, err := j.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEventLogRoundTripAndRotation(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir, "events")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	bus := engine.NewEventBus()
	bus.Subscribe(l.Observe)
	bus.Publish(engine.Event{Tick: 1, Category: engine.CategoryDice, Description: "first"})
	bus.Publish(engine.Event{Tick: 2, Category: engine.CategoryScore, PlayerID: "p1", Description: "second", Data: map[string]any{"score": 3}})
	require.NoError(t, l.Flush())

	clock = clock.Add(2 * time.Minute)
	bus.Publish(engine.Event{Tick: 3, Category: engine.CategoryMarket, Description: "third"})
	require.NoError(t, l.Close())
	require.NoError(t, l.Err())

	files, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, files, 2, "one file per hour")

	events, err := ReadEventLog(dir, "events")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{events[0].Description, events[1].Description, events[2].Description})
	assert.Equal(t, 3.0, events[1].Data["score"])
	assert.Equal(t, world.PlayerID("p1"), events[1].PlayerID)
}

func TestEventLogAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		l := NewEventLog(dir, "events")
		l.now = fixed
		require.NoError(t, l.Write(engine.Event{Tick: uint64(i), Category: engine.CategoryDice}))
		require.NoError(t, l.Close())
	}

	events, err := ReadEventLog(dir, "events")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[1].Tick)
}
