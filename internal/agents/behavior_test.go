package agents

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/nav"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

type harness struct {
	store   *world.Store
	builder *directBuilder
	market  *economy.Market
	planner *stubPlanner
	body    *stubMover
	ai      *AIPlayer
	log     *bytes.Buffer
	trail   []string
}

func newHarness(t *testing.T, s *world.Store, p *Player, body *stubMover) *harness {
	t.Helper()
	v := rules.New(rules.DefaultConfig())
	h := &harness{
		store:   s,
		builder: &directBuilder{store: s, v: v},
		market:  newMarket(p),
		planner: &stubPlanner{err: nav.ErrNoPath},
		body:    body,
		log:     &bytes.Buffer{},
	}
	deps := Deps{
		State:     s,
		Buildings: h.builder,
		Market:    h.market,
		Resources: s,
		Planner:   h.planner,
		Validator: v,
		Rng:       entropy.New(11),
		Log:       slog.New(slog.NewTextHandler(h.log, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	h.ai = NewAIPlayer(p, body, DefaultAIConfig(), deps, 0)
	h.ai.OnTransition = func(from, to State) {
		h.trail = append(h.trail, fmt.Sprintf("%s>%s", from, to))
	}
	return h
}

func TestAIPlayerPlacesFirstTown(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("V", 10, 0))
	p := testPlayer(me, SkillIntermediate, economy.StartingResources)
	h := newHarness(t, s, p, &stubMover{pos: world.Vec3{X: 11}})

	h.ai.Update(Clock{Now: 5})
	assert.Empty(t, h.trail, "startup delay")

	for _, now := range []float64{15, 15.1, 15.2, 15.3} {
		h.ai.Update(Clock{Now: now})
	}
	assert.Equal(t, []string{"Idle>Thinking", "Thinking>Moving", "Moving>Executing", "Executing>Idle"}, h.trail)

	b, ok := s.BuildingAt("V")
	require.True(t, ok)
	assert.Equal(t, world.BuildingTown, b.Type)
	assert.Equal(t, me, b.OwnerID)
	assert.False(t, p.NeedsFirstTown)
	assert.Equal(t, economy.StartingResources.Minus(economy.TownCost), p.Resources())
}

func TestAIPlayerRemembersRejectedTown(t *testing.T) {
	s := world.NewStore()
	s.RegisterVertex(landVertex("V", 10, 0))
	p := testPlayer(me, SkillIntermediate, economy.StartingResources)
	h := newHarness(t, s, p, &stubMover{pos: world.Vec3{X: 11}})

	h.ai.Update(Clock{Now: 15})
	h.ai.Update(Clock{Now: 15.1})
	h.ai.Update(Clock{Now: 15.2})
	require.Equal(t, StateExecuting, h.ai.State())

	// Someone else takes the spot between planning and building.
	_, err := s.AddBuilding(rival, world.BuildingTown, "V", world.Vec3{X: 10})
	require.NoError(t, err)
	h.ai.Update(Clock{Now: 15.3})

	assert.Equal(t, StateIdle, h.ai.State())
	assert.True(t, p.NeedsFirstTown)
	assert.True(t, h.ai.Strategist().FailedSpots().Near(world.Vec3{X: 10}, 5, 15.3))
	assert.Equal(t, economy.StartingResources, p.Resources())
}

func collectBoard(p *Player) *world.Store {
	s := world.NewStore()
	for _, x := range []float64{100, 200, 300} {
		s.SpawnResource(wood, p.ID, "0_0", world.Vec3{X: x})
	}
	return s
}

func TestAIPlayerStuckClearsWholeQueue(t *testing.T) {
	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	s := collectBoard(p)
	h := newHarness(t, s, p, &stubMover{})
	h.planner.err = nil
	h.planner.path = []nav.Waypoint{{Position: world.Vec3{X: 100}}}

	var queuedAtDispatch, queuedAtAbandon = -1, -1
	h.ai.OnTransition = func(from, to State) {
		if to == StateMovingToResource && queuedAtDispatch < 0 {
			queuedAtDispatch = len(h.ai.Queue())
		}
		if from == StateMovingToResource && to == StateIdle && queuedAtAbandon < 0 {
			queuedAtAbandon = len(h.ai.Queue())
		}
	}

	for now := 15.0; now < 60 && queuedAtAbandon < 0; now += 0.5 {
		h.ai.Update(Clock{Now: now})
	}
	assert.Equal(t, 2, queuedAtDispatch)
	assert.Equal(t, 0, queuedAtAbandon)
	_, pending := h.ai.Pending()
	assert.False(t, pending)
	assert.Contains(t, h.log.String(), "abandoning plan")
}

func TestAIPlayerVanishedResourceCancelsOnlyCurrentTask(t *testing.T) {
	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	s := collectBoard(p)
	h := newHarness(t, s, p, &stubMover{})

	h.ai.Update(Clock{Now: 15})
	h.ai.Update(Clock{Now: 15.1})
	require.Equal(t, StateMovingToResource, h.ai.State())
	task, ok := h.ai.Pending()
	require.True(t, ok)
	assert.Equal(t, 100.0, task.Position.X)

	s.RemoveResource(task.ResourceKey)
	h.ai.Update(Clock{Now: 15.2})
	assert.Equal(t, StateIdle, h.ai.State())
	assert.Len(t, h.ai.Queue(), 2)

	h.ai.Update(Clock{Now: 15.3})
	assert.Equal(t, StateMovingToResource, h.ai.State())
	next, _ := h.ai.Pending()
	assert.Equal(t, 200.0, next.Position.X)
}

func TestAIPlayerCollectArrivalReturnsToIdle(t *testing.T) {
	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	s := world.NewStore()
	s.SpawnResource(wool, me, "0_0", world.Vec3{X: 10, Y: 8})
	h := newHarness(t, s, p, &stubMover{follow: true})

	for _, now := range []float64{15, 15.1, 15.2, 15.3} {
		h.ai.Update(Clock{Now: now})
	}
	assert.Equal(t, []string{"Idle>Thinking", "Thinking>MovingToResource", "MovingToResource>Idle"}, h.trail)
	assert.Equal(t, world.Vec3{X: 10}, h.body.pos)
}

func TestAIPlayerIdleWaitsForTrigger(t *testing.T) {
	p := testPlayer(me, SkillIntermediate, economy.Bundle{})
	p.NeedsFirstTown = false
	h := newHarness(t, world.NewStore(), p, &stubMover{})

	h.ai.Update(Clock{Now: 15})
	h.ai.Update(Clock{Now: 15.1})
	require.Equal(t, []string{"Idle>Thinking", "Thinking>Idle"}, h.trail)

	h.ai.Update(Clock{Now: 16})
	assert.Len(t, h.trail, 2, "no trigger yet")

	h.ai.Update(Clock{Now: 16.1, Pulse: 1})
	assert.Len(t, h.trail, 3, "pulse change triggers a think")

	h.ai.Update(Clock{Now: 16.2, Pulse: 1})
	h.ai.Update(Clock{Now: 17, Pulse: 1})
	assert.Len(t, h.trail, 4)
	h.ai.Update(Clock{Now: 19.3, Pulse: 1})
	assert.Len(t, h.trail, 5, "idle timeout triggers a think")
}

func setupBoard() *world.Store {
	s := world.NewStore()
	s.RegisterVertex(landVertex("v", 0, 0))
	s.RegisterVertex(landVertex("a", 46, 0))
	s.RegisterVertex(landVertex("b", -23, 40))
	landEdge(s, "v", "a")
	landEdge(s, "v", "b")
	return s
}

func TestAIPlayerSetupTurn(t *testing.T) {
	s := setupBoard()
	p := testPlayer(me, SkillIntermediate, economy.StartingResources)
	h := newHarness(t, s, p, &stubMover{})

	h.ai.HandleSetupTurn(SetupTown, 20)
	assert.True(t, h.ai.SetupPending())
	h.ai.Update(Clock{Now: 20.5, Setup: true})
	assert.Empty(t, s.Buildings(), "placement waits out the delay")

	h.ai.Update(Clock{Now: 21, Setup: true})
	towns := world.OwnedTowns(s, me)
	require.Len(t, towns, 1)
	assert.False(t, p.NeedsFirstTown)

	h.ai.HandleSetupTurn(SetupRoad, 21)
	h.ai.Update(Clock{Now: 22, Setup: true})
	roads := world.OwnedRoads(s, me)
	require.Len(t, roads, 1)
	e, _ := s.Edge(roads[0].Key)
	assert.True(t, e.Touches(towns[0].Key))

	assert.Equal(t, economy.StartingResources, p.Resources(), "setup placements are free")

	h.ai.Update(Clock{Now: 25, Setup: true})
	assert.Len(t, s.Buildings(), 2, "no normal play during setup")
}

func TestAIPlayerSetupRoadWithoutTown(t *testing.T) {
	s := setupBoard()
	p := testPlayer(me, SkillIntermediate, economy.StartingResources)
	h := newHarness(t, s, p, &stubMover{})

	h.ai.HandleSetupTurn(SetupRoad, 20)
	h.ai.Update(Clock{Now: 21, Setup: true})
	assert.Empty(t, s.Buildings())
	assert.False(t, h.ai.SetupPending())
	assert.Contains(t, h.log.String(), "setup road step without a placed town")
}
