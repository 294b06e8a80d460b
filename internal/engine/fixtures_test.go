package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

const me, rival = world.PlayerID("me"), world.PlayerID("rival")

var (
	forestTile = world.HexCoord{Q: 0, R: 0}
	hillsTile  = world.HexCoord{Q: 1, R: 0}
	seaTile    = world.HexCoord{Q: 0, R: 1}
)

// testBoard is a hand-built strip: A and B share the forest tile, A also
// touches the hills and the sea, C is far away. A carries a 3:1 port.
func testBoard() *world.Store {
	s := world.NewStore()
	s.RegisterTile(world.Tile{Q: 0, R: 0, Type: world.TileForest, DiceNumber: 6})
	s.RegisterTile(world.Tile{Q: 1, R: 0, Type: world.TileHills, DiceNumber: 8})
	s.RegisterTile(world.Tile{Q: 0, R: 1, Type: world.TileSea})

	s.RegisterVertex(world.Vertex{
		Key: "A", Position: world.Vec3{X: 0}, AdjacentLandTileCount: 2, AdjacentTileCount: 3,
		AdjacentTiles: []world.HexCoord{forestTile, hillsTile, seaTile},
	})
	s.RegisterVertex(world.Vertex{
		Key: "B", Position: world.Vec3{X: 46}, AdjacentLandTileCount: 2, AdjacentTileCount: 2,
		AdjacentTiles: []world.HexCoord{forestTile, hillsTile},
	})
	s.RegisterVertex(world.Vertex{
		Key: "C", Position: world.Vec3{X: 300}, AdjacentLandTileCount: 2, AdjacentTileCount: 2,
		AdjacentTiles: []world.HexCoord{forestTile, hillsTile},
	})
	key := world.EdgeKey("A", "B")
	v1, v2, _ := world.SplitEdgeKey(key)
	s.RegisterEdge(world.Edge{
		Key: key, Vertex1: v1, Vertex2: v2, AdjacentLandTileCount: 2, AdjacentTileCount: 2,
		Center: world.Vec3{X: 23},
	})
	s.RegisterPort("A", world.Port{Generic: true})
	return s
}

func testSeat(id world.PlayerID, have economy.Bundle) *agents.Player {
	p := agents.NewPlayer(id, string(id), agents.KindAI, agents.SkillIntermediate)
	p.Inventory = economy.NewInventory(have)
	p.Ports = economy.NewPortDesk(p.Inventory)
	return p
}

type buildFixture struct {
	store  *world.Store
	own    *TileOwnership
	bus    *EventBus
	mgr    *BuildingManager
	events []Event
}

func newBuildFixture(t *testing.T, players ...*agents.Player) *buildFixture {
	t.Helper()
	f := &buildFixture{store: testBoard(), own: NewTileOwnership(), bus: NewEventBus()}
	f.bus.Subscribe(func(e Event) { f.events = append(f.events, e) })
	byID := make(map[world.PlayerID]*agents.Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	lookup := func(id world.PlayerID) (*agents.Player, bool) {
		p, ok := byID[id]
		return p, ok
	}
	f.mgr = NewBuildingManager(f.store, rules.New(rules.DefaultConfig()), f.own, f.bus, lookup)
	return f
}

func (f *buildFixture) place(t *testing.T, owner world.PlayerID, kind world.BuildingType, key string) {
	t.Helper()
	v, _ := f.store.Vertex(key)
	_, err := f.store.AddBuilding(owner, kind, key, v.Position)
	require.NoError(t, err)
}

func (f *buildFixture) categories() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Category)
	}
	return out
}

// fixedDice replays a fixed sequence of Intn results.
type fixedDice struct {
	seq []int
	i   int
}

func (d *fixedDice) Intn(n int) int {
	v := d.seq[d.i%len(d.seq)]
	d.i++
	return v % n
}

func (d *fixedDice) Float64() float64 { return 0.5 }
