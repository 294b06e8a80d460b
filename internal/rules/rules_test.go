package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/world"
)

const me, them = world.PlayerID("me"), world.PlayerID("them")

func landVertex(key string, x, z float64) world.Vertex {
	return world.Vertex{
		Key:                   key,
		Position:              world.Vec3{X: x, Z: z},
		AdjacentLandTileCount: 3,
		AdjacentTileCount:     3,
	}
}

func landEdge(a, b string) world.Edge {
	v1, v2, _ := world.SplitEdgeKey(world.EdgeKey(a, b))
	return world.Edge{Key: world.EdgeKey(a, b), Vertex1: v1, Vertex2: v2, AdjacentLandTileCount: 2, AdjacentTileCount: 2}
}

func place(t *testing.T, s *world.Store, owner world.PlayerID, kind world.BuildingType, key string) {
	t.Helper()
	var pos world.Vec3
	if v, ok := s.Vertex(key); ok {
		pos = v.Position
	}
	_, err := s.AddBuilding(owner, kind, key, pos)
	require.NoError(t, err)
}

func TestValidateTownFirstPlacement(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("V", 0, 0))

	got := New(DefaultConfig()).ValidateTown(s, me, "V", true, false)
	assert.Equal(t, Result{Valid: true}, got)
}

func TestValidateTownRejections(t *testing.T) {
	s := world.NewStore()
	sea := landVertex("sea", 500, 0)
	sea.AdjacentLandTileCount = 0
	s.RegisterVertex(sea)
	lonely := landVertex("lonely", 1000, 0)
	lonely.AdjacentTileCount = 1
	s.RegisterVertex(lonely)
	s.RegisterVertex(landVertex("taken", 2000, 0))
	place(t, s, them, world.BuildingTown, "taken")

	v := New(DefaultConfig())
	tests := []struct {
		key    string
		reason string
	}{
		{"missing", ReasonInvalidLocation},
		{"sea", ReasonOpenSea},
		{"lonely", ReasonTooFewHexes},
		{"taken", ReasonOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.ValidateTown(s, me, tt.key, true, false)
			assert.False(t, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestValidateTownDistanceRule(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("A", 0, 0))
	s.RegisterVertex(landVertex("near", 49.9, 0))
	s.RegisterVertex(landVertex("far", 0, 50))
	place(t, s, them, world.BuildingTown, "A")

	v := New(DefaultConfig())
	near := v.ValidateTown(s, me, "near", false, false)
	assert.False(t, near.Valid)
	assert.Equal(t, ReasonTooClose, near.Reason)

	assert.True(t, v.ValidateTown(s, me, "far", false, false).Valid)
}

func TestValidateTownSpacingScalesWithHexSize(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("A", 0, 0))
	s.RegisterVertex(landVertex("B", 60, 0))
	place(t, s, them, world.BuildingTown, "A")

	assert.True(t, New(ConfigForHexSize(40)).ValidateTown(s, me, "B", true, false).Valid)
	assert.False(t, New(ConfigForHexSize(80)).ValidateTown(s, me, "B", true, false).Valid)
}

func TestValidateTownConnectionRule(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("T1", 0, 0))
	s.RegisterVertex(landVertex("T2", 200, 0))
	s.RegisterVertex(landVertex("V", 400, 0))
	s.RegisterVertex(landVertex("X", 400, 46))
	s.RegisterEdge(landEdge("V", "X"))
	v := New(DefaultConfig())

	// First and second towns never need a road.
	place(t, s, me, world.BuildingTown, "T1")
	assert.True(t, v.ValidateTown(s, me, "T2", false, true).Valid)
	place(t, s, me, world.BuildingTown, "T2")

	got := v.ValidateTown(s, me, "V", false, true)
	assert.False(t, got.Valid)
	assert.Contains(t, got.Reason, "connected")

	// Setup placements skip the road requirement.
	assert.True(t, v.ValidateTown(s, me, "V", true, true).Valid)

	// Someone else's road does not help.
	place(t, s, them, world.BuildingRoad, world.EdgeKey("V", "X"))
	assert.False(t, v.ValidateTown(s, me, "V", false, true).Valid)
	require.True(t, s.RemoveBuilding(world.EdgeKey("V", "X")))

	place(t, s, me, world.BuildingRoad, world.EdgeKey("V", "X"))
	assert.Equal(t, Result{Valid: true}, v.ValidateTown(s, me, "V", false, true))
}

func TestValidateTownIgnoresSetupProgressFlag(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("T1", 0, 0))
	s.RegisterVertex(landVertex("T2", 200, 0))
	s.RegisterVertex(landVertex("V", 400, 0))
	v := New(DefaultConfig())

	// Connectivity follows the owned-town count whatever the caller tracks.
	assert.Equal(t, v.ValidateTown(s, me, "T1", false, false), v.ValidateTown(s, me, "T1", false, true))
	place(t, s, me, world.BuildingTown, "T1")
	place(t, s, me, world.BuildingTown, "T2")
	for _, placed := range []bool{false, true} {
		got := v.ValidateTown(s, me, "V", false, placed)
		assert.False(t, got.Valid)
		assert.Contains(t, got.Reason, "connected")
	}
}

func TestValidateCity(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("mine", 0, 0))
	s.RegisterVertex(landVertex("theirs", 200, 0))
	s.RegisterVertex(landVertex("empty", 400, 0))
	place(t, s, me, world.BuildingTown, "mine")
	place(t, s, them, world.BuildingTown, "theirs")
	v := New(DefaultConfig())

	assert.True(t, v.ValidateCity(s, me, "mine").Valid)
	assert.Equal(t, ReasonNotYourTown, v.ValidateCity(s, me, "theirs").Reason)
	assert.Equal(t, ReasonNoTown, v.ValidateCity(s, me, "empty").Reason)

	_, err := s.ReplaceBuilding("mine", world.BuildingCity)
	require.NoError(t, err)
	assert.Equal(t, ReasonOnlyTowns, v.ValidateCity(s, me, "mine").Reason)
}

func TestValidateRoad(t *testing.T) {
	s := world.NewStore()
	for i, k := range []string{"A", "B", "C", "D", "E"} {
		s.RegisterVertex(landVertex(k, float64(i)*46, 0))
	}
	ab, bc, cd, de := landEdge("A", "B"), landEdge("B", "C"), landEdge("C", "D"), landEdge("D", "E")
	for _, e := range []world.Edge{ab, bc, cd, de} {
		s.RegisterEdge(e)
	}
	sea := landEdge("A", "E")
	sea.AdjacentLandTileCount = 0
	s.RegisterEdge(sea)
	v := New(DefaultConfig())

	assert.Equal(t, ReasonInvalidLocation, v.ValidateRoad(s, me, "nope", false, "").Reason)
	assert.Equal(t, ReasonOpenSea, v.ValidateRoad(s, me, sea.Key, true, "A").Reason)
	assert.Equal(t, ReasonRoadNotConnected, v.ValidateRoad(s, me, ab.Key, false, "").Reason)

	place(t, s, me, world.BuildingTown, "A")

	// Setup road must touch the town just placed.
	assert.True(t, v.ValidateRoad(s, me, ab.Key, true, "A").Valid)
	assert.Equal(t, ReasonRoadNotAtSetup, v.ValidateRoad(s, me, cd.Key, true, "A").Reason)

	// Town at an endpoint connects.
	assert.True(t, v.ValidateRoad(s, me, ab.Key, false, "").Valid)
	place(t, s, me, world.BuildingRoad, ab.Key)
	assert.Equal(t, ReasonRoadExists, v.ValidateRoad(s, me, ab.Key, false, "").Reason)

	// Road chaining through a shared vertex.
	assert.True(t, v.ValidateRoad(s, me, bc.Key, false, "").Valid)
	assert.False(t, v.ValidateRoad(s, me, cd.Key, false, "").Valid)
	assert.False(t, v.ValidateRoad(s, them, bc.Key, false, "").Valid)
}

func TestOpenSeaAlwaysRejected(t *testing.T) {
	b := world.Generate(world.SmallTestConfig())
	v := New(DefaultConfig())
	for _, vert := range b.Vertices() {
		if vert.AdjacentLandTileCount == 0 {
			assert.False(t, v.ValidateTown(b, me, vert.Key, true, false).Valid, vert.Key)
		}
	}
	for _, e := range b.Edges() {
		if e.AdjacentLandTileCount == 0 {
			assert.False(t, v.ValidateRoad(b, me, e.Key, false, "").Valid, e.Key)
			assert.False(t, v.ValidateRoad(b, me, e.Key, true, e.Vertex1).Valid, e.Key)
		}
	}
}

func TestOccupancyUnderSequentialPlacement(t *testing.T) {
	b := world.Generate(world.SmallTestConfig())
	v := New(DefaultConfig())
	players := []world.PlayerID{"a", "b", "c"}
	placed := 0
	for i, vert := range b.Vertices() {
		p := players[i%len(players)]
		if !v.ValidateTown(b, p, vert.Key, true, false).Valid {
			continue
		}
		_, err := b.AddBuilding(p, world.BuildingTown, vert.Key, vert.Position)
		require.NoError(t, err)
		placed++
	}
	assert.Positive(t, placed)

	seen := make(map[string]bool)
	for _, bld := range b.Buildings() {
		assert.False(t, seen[bld.Key], bld.Key)
		seen[bld.Key] = true
	}
	// No two towns ended up closer than the spacing.
	towns := b.Buildings()
	for i := range towns {
		for j := i + 1; j < len(towns); j++ {
			assert.GreaterOrEqual(t, towns[i].Position.Dist(towns[j].Position), DefaultConfig().TownSpacing)
		}
	}
}
