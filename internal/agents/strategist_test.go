package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

const me, rival = world.PlayerID("me"), world.PlayerID("rival")

// diceBoard has a rich vertex "rich" (6, 8, 5) and a poor one "poor"
// (2, 12, 3) far apart.
func diceBoard() *world.Store {
	s := world.NewStore()
	dice := map[world.HexCoord]int{
		{Q: 0, R: 0}: 6, {Q: 1, R: 0}: 8, {Q: 0, R: 1}: 5,
		{Q: 5, R: 0}: 2, {Q: 6, R: 0}: 12, {Q: 5, R: 1}: 3,
	}
	for c, d := range dice {
		s.RegisterTile(world.Tile{Q: c.Q, R: c.R, Type: world.TileFields, DiceNumber: d})
	}
	s.RegisterVertex(landVertex("rich", 0, 0, world.HexCoord{Q: 0, R: 0}, world.HexCoord{Q: 1, R: 0}, world.HexCoord{Q: 0, R: 1}))
	s.RegisterVertex(landVertex("poor", 400, 0, world.HexCoord{Q: 5, R: 0}, world.HexCoord{Q: 6, R: 0}, world.HexCoord{Q: 5, R: 1}))
	return s
}

func newStrategist(skill SkillLevel, seed int64) *Strategist {
	return NewStrategist(me, skill, StrategyConfigForHexSize(world.DefaultHexSize), rules.New(rules.DefaultConfig()), entropy.New(seed), nil)
}

func TestBestTownSpotSingleVertex(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("V", 12, 34))

	pos, ok := newStrategist(SkillIntermediate, 1).BestTownSpot(s, true, 0)
	require.True(t, ok)
	assert.Equal(t, world.Vec3{X: 12, Z: 34}, pos)
}

func TestBestTownSpotPrefersFrequentRolls(t *testing.T) {
	s := diceBoard()
	st := newStrategist(SkillIntermediate, 3)

	rich, _ := s.Vertex("rich")
	poor, _ := s.Vertex("poor")
	assert.Equal(t, 14.0, st.SpotScore(rich, s))
	assert.Equal(t, 4.0, st.SpotScore(poor, s))
	assert.Equal(t, 66.0, newStrategist(SkillExpert, 3).SpotScore(rich, s))

	pos, ok := st.BestTownSpot(s, true, 0)
	require.True(t, ok)
	assert.Equal(t, rich.Position, pos)
}

func TestBestTownSpotSkipsFailedSpots(t *testing.T) {
	s := diceBoard()
	st := newStrategist(SkillIntermediate, 3)
	rich, _ := s.Vertex("rich")
	poor, _ := s.Vertex("poor")

	st.RecordFailedPlacement(world.Vec3{X: 3}, 10)
	pos, ok := st.BestTownSpot(s, true, 10)
	require.True(t, ok)
	assert.Equal(t, poor.Position, pos)

	pos, _ = st.BestTownSpot(s, true, 10+FailedSpotTTL+1)
	assert.Equal(t, rich.Position, pos, "expired failures no longer block")
}

func TestSpotMemoryIsBounded(t *testing.T) {
	m := NewSpotMemory(4, 0)
	for i := 0; i < 10; i++ {
		m.Add(world.Vec3{X: float64(i * 100)}, 0)
	}
	assert.Equal(t, 4, m.Len())
	assert.False(t, m.Near(world.Vec3{X: 0}, 5, 0))
	assert.True(t, m.Near(world.Vec3{X: 902}, 5, 0))
}

func TestDecideActionBuildsWhenAffordable(t *testing.T) {
	s := diceBoard()
	p := testPlayer(me, SkillIntermediate, economy.StartingResources)
	st := newStrategist(SkillIntermediate, 5)

	tasks := st.DecideAction(p, s, world.Vec3{}, 0, economy.CanAfford)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskBuild, tasks[0].Kind)
	assert.Equal(t, world.BuildingTown, tasks[0].Building)

	target, ok := st.LastTarget()
	require.True(t, ok)
	assert.Equal(t, world.BuildingTown, target.Type)
}

func TestDecideActionCollectsNearestFirst(t *testing.T) {
	s := diceBoard()
	for _, x := range []float64{90, 10, 70, 30, 50, 20, 80} {
		s.SpawnResource(wood, me, "0_0", world.Vec3{X: x})
	}
	s.SpawnResource(ore, rival, "0_0", world.Vec3{X: 1})

	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	never := func(world.BuildingType, economy.Bundle) bool { return false }
	tasks := newStrategist(SkillIntermediate, 5).DecideAction(p, s, world.Vec3{}, 0, never)

	require.Len(t, tasks, 5)
	var xs []float64
	for _, task := range tasks {
		assert.Equal(t, TaskCollect, task.Kind)
		assert.Equal(t, wood, task.Resource)
		xs = append(xs, task.Position.X)
	}
	assert.Equal(t, []float64{10, 20, 30, 50, 70}, xs)
}

func TestTargetBuildingPrefersCityAtThreeTowns(t *testing.T) {
	s := world.NewStore()
	for i, key := range []string{"a", "b", "c"} {
		s.RegisterVertex(landVertex(key, float64(i)*200, 0))
		_, err := s.AddBuilding(me, world.BuildingTown, key, world.Vec3{X: float64(i) * 200})
		require.NoError(t, err)
	}
	s.RegisterVertex(landVertex("free", 1000, 0))

	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	target, ok := newStrategist(SkillIntermediate, 1).TargetBuilding(p, s, 0)
	require.True(t, ok)
	assert.Equal(t, Target{Type: world.BuildingCity, Position: world.Vec3{}}, target)
}

func TestTargetBuildingFallsBackToRoad(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("a", 0, 0))
	s.RegisterVertex(landVertex("b", 46, 0))
	s.RegisterVertex(landVertex("c", 0, 300))
	landEdge(s, "a", "b")
	_, err := s.AddBuilding(me, world.BuildingTown, "a", world.Vec3{})
	require.NoError(t, err)
	_, err = s.AddBuilding(me, world.BuildingTown, "c", world.Vec3{Z: 300})
	require.NoError(t, err)

	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	target, ok := newStrategist(SkillIntermediate, 1).TargetBuilding(p, s, 0)
	require.True(t, ok)
	assert.Equal(t, world.BuildingRoad, target.Type)
	assert.Equal(t, world.Vec3{X: 23}, target.Position)
}

func TestTargetBuildingNothingLegal(t *testing.T) {
	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	_, ok := newStrategist(SkillIntermediate, 1).TargetBuilding(p, world.NewStore(), 0)
	assert.False(t, ok)
}

func TestBestRoadSpotSetupTouchesTown(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("v", 0, 0))
	s.RegisterVertex(landVertex("a", 46, 0))
	s.RegisterVertex(landVertex("b", -23, 40))
	s.RegisterVertex(landVertex("c", 300, 0))
	s.RegisterVertex(landVertex("d", 346, 0))
	landEdge(s, "v", "a")
	landEdge(s, "v", "b")
	landEdge(s, "c", "d")
	_, err := s.AddBuilding(me, world.BuildingTown, "v", world.Vec3{})
	require.NoError(t, err)

	st := newStrategist(SkillIntermediate, 9)
	for i := 0; i < 20; i++ {
		pos, ok := st.BestRoadSpot(s, nil, true, "v")
		require.True(t, ok)
		e, found := s.NearestEdge(pos, 1)
		require.True(t, found)
		assert.True(t, e.Touches("v"))
	}

	_, ok := st.BestRoadSpot(s, nil, true, "c")
	assert.True(t, ok, "setup roads only need to touch the named town")
	_, ok = st.BestRoadSpot(world.NewStore(), nil, true, "v")
	assert.False(t, ok)
}

func TestBestRoadSpotTowardTarget(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("v", 0, 0))
	s.RegisterVertex(landVertex("east", 200, 0))
	s.RegisterVertex(landVertex("west", -200, 0))
	landEdge(s, "v", "east")
	landEdge(s, "v", "west")
	_, err := s.AddBuilding(me, world.BuildingTown, "v", world.Vec3{})
	require.NoError(t, err)

	toward := world.Vec3{X: 900}
	pos, ok := newStrategist(SkillIntermediate, 2).BestRoadSpot(s, &toward, false, "")
	require.True(t, ok)
	assert.Equal(t, world.Vec3{X: 100}, pos)
}
