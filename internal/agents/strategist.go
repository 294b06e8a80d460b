package agents

import (
	"log/slog"
	"math"
	"sort"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

// StrategyConfig tunes the planner's sampling.
type StrategyConfig struct {
	TownSamples      int
	RoadSamples      int
	MaxCollect       int
	FailedSpotRadius float64
	CityAtTowns      int // prefer city upgrades once this many towns are owned
}

// StrategyConfigForHexSize scales distance thresholds to the board.
func StrategyConfigForHexSize(size float64) StrategyConfig {
	return StrategyConfig{
		TownSamples:      50,
		RoadSamples:      30,
		MaxCollect:       5,
		FailedSpotRadius: size * 0.125,
		CityAtTowns:      3,
	}
}

// AffordFunc reports whether holdings cover a building.
type AffordFunc func(kind world.BuildingType, have economy.Bundle) bool

// Strategist decides what a single AI should do next.
type Strategist struct {
	id        world.PlayerID
	skill     SkillLevel
	cfg       StrategyConfig
	validator *rules.Validator
	rng       entropy.Source
	failed    *SpotMemory
	log       *slog.Logger

	lastTarget *Target
}

// NewStrategist creates a planner for player id.
func NewStrategist(id world.PlayerID, skill SkillLevel, cfg StrategyConfig, v *rules.Validator, rng entropy.Source, log *slog.Logger) *Strategist {
	if log == nil {
		log = slog.Default()
	}
	return &Strategist{
		id:        id,
		skill:     skill,
		cfg:       cfg,
		validator: v,
		rng:       rng,
		failed:    NewSpotMemory(MaxFailedSpots, FailedSpotTTL),
		log:       log,
	}
}

// RecordFailedPlacement remembers a spot the building service rejected.
func (s *Strategist) RecordFailedPlacement(pos world.Vec3, now float64) {
	s.failed.Add(pos, now)
}

// FailedSpots exposes the negative memory.
func (s *Strategist) FailedSpots() *SpotMemory {
	return s.failed
}

// LastTarget returns the target chosen by the most recent DecideAction.
func (s *Strategist) LastTarget() (Target, bool) {
	if s.lastTarget == nil {
		return Target{}, false
	}
	return *s.lastTarget, true
}

// DecideAction returns the next tasks: a single build when the target is
// affordable, otherwise up to MaxCollect owned resources, nearest first.
func (s *Strategist) DecideAction(p *Player, state world.GameState, myPos world.Vec3, now float64, canAfford AffordFunc) []Task {
	target, found := s.TargetBuilding(p, state, now)
	s.lastTarget = nil
	if found {
		s.lastTarget = &target
		if canAfford(target.Type, p.Resources()) {
			s.log.Info("decided to build", "type", target.Type)
			return []Task{{Kind: TaskBuild, Building: target.Type, Position: target.Position}}
		}
	}

	owned := state.ResourcesOwnedBy(s.id)
	if len(owned) == 0 {
		return nil
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].Position.DistXZ(myPos) < owned[j].Position.DistXZ(myPos)
	})
	n := min(len(owned), s.cfg.MaxCollect)
	tasks := make([]Task, 0, n)
	for _, r := range owned[:n] {
		tasks = append(tasks, Task{Kind: TaskCollect, Position: r.Position, ResourceKey: r.Key, Resource: r.Type})
	}
	s.log.Debug("queued collection", "owned", len(owned), "queued", n)
	return tasks
}

// TargetBuilding picks the structure to work toward. First match wins:
// first town, city upgrade at CityAtTowns towns, expansion town, road,
// any city upgrade.
func (s *Strategist) TargetBuilding(p *Player, state world.GameState, now float64) (Target, bool) {
	if p.NeedsFirstTown {
		if pos, ok := s.BestTownSpot(state, true, now); ok {
			return Target{Type: world.BuildingTown, Position: pos}, true
		}
	}

	expansion, haveExpansion := s.BestTownSpot(state, false, now)

	towns := world.OwnedTowns(state, s.id)
	if len(towns) >= s.cfg.CityAtTowns {
		if t, ok := firstTown(towns); ok {
			return Target{Type: world.BuildingCity, Position: t.Position}, true
		}
	}
	if haveExpansion {
		return Target{Type: world.BuildingTown, Position: expansion}, true
	}
	if pos, ok := s.BestRoadSpot(state, nil, false, ""); ok {
		return Target{Type: world.BuildingRoad, Position: pos}, true
	}
	if t, ok := firstTown(towns); ok {
		return Target{Type: world.BuildingCity, Position: t.Position}, true
	}
	return Target{}, false
}

func firstTown(buildings []world.Building) (world.Building, bool) {
	for _, b := range buildings {
		if b.Type == world.BuildingTown {
			return b, true
		}
	}
	return world.Building{}, false
}

// BestTownSpot samples vertices, skips remembered failures, validates, and
// returns the best-scoring legal position.
func (s *Strategist) BestTownSpot(state world.GameState, initial bool, now float64) (world.Vec3, bool) {
	vertices := state.Vertices()
	if len(vertices) == 0 {
		return world.Vec3{}, false
	}

	best := math.Inf(-1)
	var bestPos world.Vec3
	found := false
	for i := 0; i < s.cfg.TownSamples; i++ {
		v := vertices[s.rng.Intn(len(vertices))]
		if s.failed.Near(v.Position, s.cfg.FailedSpotRadius, now) {
			continue
		}
		if res := s.validator.ValidateTown(state, s.id, v.Key, initial, !initial); !res.Valid {
			continue
		}
		score := s.SpotScore(v, state)
		if score > best {
			best, bestPos, found = score, v.Position, true
		}
	}
	return bestPos, found
}

// SpotScore sums dice pips of the tiles around v: 6 and 8 score 5, 2 and
// 12 score 1. Experts square the pips to favor frequent rolls harder.
func (s *Strategist) SpotScore(v world.Vertex, state world.GameState) float64 {
	total := 0.0
	for _, c := range v.AdjacentTiles {
		t, ok := state.Tile(c.Q, c.R)
		if !ok || t.DiceNumber == 0 {
			continue
		}
		pips := float64(6 - abs(7-t.DiceNumber))
		if s.skill == SkillExpert {
			pips *= pips
		}
		total += pips
	}
	return total
}

// BestRoadSpot returns the center of the best legal edge. During setup
// with a town key, only edges touching that town are considered.
// Otherwise random edges are sampled, scored by closeness to toward when given.
func (s *Strategist) BestRoadSpot(state world.GameState, toward *world.Vec3, setup bool, setupTownKey string) (world.Vec3, bool) {
	edges := state.Edges()
	if len(edges) == 0 {
		return world.Vec3{}, false
	}

	best := math.Inf(-1)
	var bestPos world.Vec3
	found := false
	consider := func(e world.Edge, score float64) {
		if score > best {
			best, bestPos, found = score, e.Center, true
		}
	}

	if setup && setupTownKey != "" {
		for _, e := range edges {
			if !e.Touches(setupTownKey) {
				continue
			}
			if !s.validator.ValidateRoad(state, s.id, e.Key, true, setupTownKey).Valid {
				continue
			}
			consider(e, float64(e.AdjacentLandTileCount*100+entropy.Between(s.rng, 1, 50)))
		}
		return bestPos, found
	}

	for i := 0; i < s.cfg.RoadSamples; i++ {
		e := edges[s.rng.Intn(len(edges))]
		if !s.validator.ValidateRoad(state, s.id, e.Key, setup, setupTownKey).Valid {
			continue
		}
		score := float64(entropy.Between(s.rng, 1, 100))
		if toward != nil {
			score += 1000 - e.Center.Dist(*toward)
		}
		consider(e, score)
	}
	return bestPos, found
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
