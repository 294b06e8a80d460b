package agents

import (
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/nav"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

const (
	wood  = world.ResourceWood
	brick = world.ResourceBrick
	wheat = world.ResourceWheat
	ore   = world.ResourceOre
	wool  = world.ResourceWool
)

// stubMover records commands. With follow set it teleports to each MoveTo.
type stubMover struct {
	pos    world.Vec3
	moves  []world.Vec3
	jumps  int
	speed  float64
	follow bool
}

func (m *stubMover) Position() world.Vec3 { return m.pos }
func (m *stubMover) MoveTo(p world.Vec3) {
	m.moves = append(m.moves, p)
	if m.follow {
		m.pos = p
	}
}
func (m *stubMover) Jump()                  { m.jumps++ }
func (m *stubMover) SetWalkSpeed(s float64) { m.speed = s }

type stubPlanner struct {
	path  []nav.Waypoint
	err   error
	calls int
	last  nav.PathOptions
}

func (p *stubPlanner) ComputePath(start, end world.Vec3, opts nav.PathOptions) ([]nav.Waypoint, error) {
	p.calls++
	p.last = opts
	if p.err != nil {
		return nil, p.err
	}
	return append([]nav.Waypoint(nil), p.path...), nil
}

// directBuilder commits straight into the store after validating.
type directBuilder struct {
	store *world.Store
	v     *rules.Validator
	calls int
}

func (d *directBuilder) StartBuilding(p *Player, req BuildRequest) BuildResult {
	d.calls++
	var key string
	var pos world.Vec3
	var res rules.Result
	switch req.Type {
	case world.BuildingRoad:
		e, ok := d.store.NearestEdge(req.Position, 20)
		if !ok {
			return BuildResult{Reason: rules.ReasonInvalidLocation}
		}
		key, pos = e.Key, e.Center
		res = d.v.ValidateRoad(d.store, p.ID, key, req.Setup, req.SetupTownKey)
	default:
		vx, ok := d.store.NearestVertex(req.Position, 15)
		if !ok {
			return BuildResult{Reason: rules.ReasonInvalidLocation}
		}
		key, pos = vx.Key, vx.Position
		if req.Type == world.BuildingCity {
			res = d.v.ValidateCity(d.store, p.ID, key)
		} else {
			res = d.v.ValidateTown(d.store, p.ID, key, req.Setup || p.NeedsFirstTown, false)
		}
	}
	if !res.Valid {
		return BuildResult{Reason: res.Reason}
	}
	if !req.Free {
		cost, _ := economy.CostOf(req.Type)
		if !p.Inventory.Pay(cost) {
			return BuildResult{Reason: "not enough resources"}
		}
	}
	var b world.Building
	var err error
	if req.Type == world.BuildingCity {
		b, err = d.store.ReplaceBuilding(key, world.BuildingCity)
	} else {
		b, err = d.store.AddBuilding(p.ID, req.Type, key, pos)
	}
	if err != nil {
		return BuildResult{Reason: err.Error()}
	}
	return BuildResult{OK: true, BuildingID: b.ID, Key: b.Key}
}

type ledger map[world.PlayerID]*economy.Inventory

func (l ledger) Inventory(id world.PlayerID) (*economy.Inventory, bool) {
	inv, ok := l[id]
	return inv, ok
}

func testPlayer(id world.PlayerID, skill SkillLevel, have economy.Bundle) *Player {
	p := NewPlayer(id, string(id), KindAI, skill)
	p.Inventory = economy.NewInventory(have)
	p.Ports = economy.NewPortDesk(p.Inventory)
	return p
}

func landVertex(key string, x, z float64, tiles ...world.HexCoord) world.Vertex {
	return world.Vertex{
		Key:                   key,
		Position:              world.Vec3{X: x, Z: z},
		AdjacentLandTileCount: 3,
		AdjacentTileCount:     3,
		AdjacentTiles:         tiles,
	}
}

func landEdge(s *world.Store, a, b string) {
	va, _ := s.Vertex(a)
	vb, _ := s.Vertex(b)
	key := world.EdgeKey(a, b)
	v1, v2, _ := world.SplitEdgeKey(key)
	s.RegisterEdge(world.Edge{
		Key:                   key,
		Vertex1:               v1,
		Vertex2:               v2,
		AdjacentLandTileCount: 2,
		AdjacentTileCount:     2,
		Center:                world.Vec3{X: (va.Position.X + vb.Position.X) / 2, Z: (va.Position.Z + vb.Position.Z) / 2},
	})
}
