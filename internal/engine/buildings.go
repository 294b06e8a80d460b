package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

// Rejection reasons the building service adds on top of the validator's.
const (
	ReasonInProgress   = "Construction already in progress"
	ReasonCannotAfford = "Not enough resources"
	ReasonUnknownType  = "Unknown building type"
)

// Construction is a building that has been paid for but not committed.
type Construction struct {
	Owner      world.PlayerID     `json:"owner"`
	Type       world.BuildingType `json:"type"`
	Key        string             `json:"key"`
	Position   world.Vec3         `json:"position"`
	StartedAt  float64            `json:"started_at"`
	CompleteAt float64            `json:"complete_at"`
	Free       bool               `json:"free"`

	setup        bool
	setupTownKey string
}

// BuildingManager is the authoritative construction service. Every start
// is validated, paid for, and re-validated at commit.
type BuildingManager struct {
	store     *world.Store
	validator *rules.Validator
	ownership *TileOwnership
	bus       *EventBus
	players   func(world.PlayerID) (*agents.Player, bool)

	vertexSnap float64
	edgeSnap   float64

	pending map[string]*Construction
	now     float64
	tick    uint64
}

// NewBuildingManager wires the construction service. Snap distances are
// derived from the validator's hex size.
func NewBuildingManager(store *world.Store, v *rules.Validator, own *TileOwnership, bus *EventBus, players func(world.PlayerID) (*agents.Player, bool)) *BuildingManager {
	size := v.Config().HexSize
	return &BuildingManager{
		store:      store,
		validator:  v,
		ownership:  own,
		bus:        bus,
		players:    players,
		vertexSnap: size * 0.375,
		edgeSnap:   size * 0.5,
		pending:    make(map[string]*Construction),
	}
}

// SetClock sets the time used for new constructions.
func (m *BuildingManager) SetClock(tick uint64, now float64) {
	m.tick, m.now = tick, now
}

// Pending lists constructions in progress, ordered by completion time.
func (m *BuildingManager) Pending() []Construction {
	out := make([]Construction, 0, len(m.pending))
	for _, c := range m.pending {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompleteAt != out[j].CompleteAt {
			return out[i].CompleteAt < out[j].CompleteAt
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// StartBuilding implements agents.BuildingService. Instant buildings are
// committed before returning; timed ones report OK with a zero BuildingID
// and commit from Advance.
func (m *BuildingManager) StartBuilding(p *agents.Player, req agents.BuildRequest) agents.BuildResult {
	cost, known := economy.CostOf(req.Type)
	if !known {
		return agents.BuildResult{Reason: ReasonUnknownType}
	}

	key, pos, found := m.snap(req.Type, req.Position)
	if !found {
		return agents.BuildResult{Reason: rules.ReasonInvalidLocation}
	}
	if _, busy := m.pending[key]; busy {
		return agents.BuildResult{Key: key, Reason: ReasonInProgress}
	}

	if res := m.validate(p, req.Type, key, req.Setup, req.SetupTownKey); !res.Valid {
		return agents.BuildResult{Key: key, Reason: res.Reason}
	}
	if !req.Free && !p.Inventory.Pay(cost) {
		return agents.BuildResult{Key: key, Reason: ReasonCannotAfford}
	}

	c := &Construction{
		Owner:        p.ID,
		Type:         req.Type,
		Key:          key,
		Position:     pos,
		StartedAt:    m.now,
		CompleteAt:   m.now + economy.BuildTime(req.Type),
		Free:         req.Free,
		setup:        req.Setup,
		setupTownKey: req.SetupTownKey,
	}
	if c.CompleteAt <= m.now {
		b, ok := m.commit(p, c)
		if !ok {
			return agents.BuildResult{Key: key, Reason: rules.ReasonOccupied}
		}
		return agents.BuildResult{OK: true, BuildingID: b.ID, Key: key}
	}

	// Only timed builds announce a start; instant ones report completion.
	m.emit(Event{
		Category:    CategoryConstruction,
		PlayerID:    p.ID,
		Description: fmt.Sprintf("%s started a %s", p.Name, req.Type),
		Data:        map[string]any{"kind": "started", "type": req.Type.String(), "key": key, "complete_at": c.CompleteAt},
	})
	m.pending[key] = c
	return agents.BuildResult{OK: true, Key: key}
}

// Advance commits every construction due by now.
func (m *BuildingManager) Advance(now float64) {
	due := make([]*Construction, 0)
	for _, c := range m.pending {
		if c.CompleteAt <= now {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Key < due[j].Key })
	for _, c := range due {
		delete(m.pending, c.Key)
		p, ok := m.players(c.Owner)
		if !ok {
			continue
		}
		m.commit(p, c)
	}
}

func (m *BuildingManager) snap(kind world.BuildingType, pos world.Vec3) (string, world.Vec3, bool) {
	if kind.OnVertex() {
		v, ok := m.store.NearestVertex(pos, m.vertexSnap)
		return v.Key, v.Position, ok
	}
	e, ok := m.store.NearestEdge(pos, m.edgeSnap)
	return e.Key, e.Center, ok
}

func (m *BuildingManager) validate(p *agents.Player, kind world.BuildingType, key string, setup bool, setupTownKey string) rules.Result {
	switch kind {
	case world.BuildingTown:
		return m.validator.ValidateTown(m.store, p.ID, key, setup, !p.NeedsFirstTown)
	case world.BuildingCity:
		return m.validator.ValidateCity(m.store, p.ID, key)
	default:
		return m.validator.ValidateRoad(m.store, p.ID, key, setup, setupTownKey)
	}
}

// commit re-checks the placement against the live board and applies it.
// A failed re-check refunds the cost.
func (m *BuildingManager) commit(p *agents.Player, c *Construction) (world.Building, bool) {
	var b world.Building
	err := fmt.Errorf("%s at %s: %s", c.Type, c.Key, rules.ReasonOccupied)
	if res := m.validate(p, c.Type, c.Key, c.setup, c.setupTownKey); res.Valid {
		if c.Type == world.BuildingCity {
			b, err = m.store.ReplaceBuilding(c.Key, world.BuildingCity)
		} else {
			b, err = m.store.AddBuilding(p.ID, c.Type, c.Key, c.Position)
		}
	} else {
		err = fmt.Errorf("%s at %s: %s", c.Type, c.Key, res.Reason)
	}
	if err != nil {
		if !c.Free {
			cost, _ := economy.CostOf(c.Type)
			p.Inventory.AddBundle(cost)
		}
		slog.Debug("construction failed at commit", "player", p.ID, "error", err)
		m.emit(Event{
			Category:    CategoryConstruction,
			PlayerID:    p.ID,
			Description: fmt.Sprintf("%s's %s could not be completed", p.Name, c.Type),
			Data:        map[string]any{"kind": "failed", "type": c.Type.String(), "key": c.Key, "refunded": !c.Free},
		})
		return world.Building{}, false
	}

	if c.Type.OnVertex() {
		claimed := m.ownership.Claim(m.store, p.ID, c.Key)
		if port, ok := m.store.PortAt(c.Key); ok {
			p.Ports.Claim(port)
			m.emit(Event{
				Category:    CategoryPort,
				PlayerID:    p.ID,
				Description: fmt.Sprintf("%s gained a %s port", p.Name, port),
				Data:        map[string]any{"port": port.String(), "ratio": port.Ratio()},
			})
		}
		if c.Type == world.BuildingTown {
			p.NeedsFirstTown = false
		}
		if len(claimed) > 0 {
			slog.Debug("tiles claimed", "player", p.ID, "tiles", claimed)
		}
	}

	m.emit(Event{
		Category:    CategoryConstruction,
		PlayerID:    p.ID,
		Description: fmt.Sprintf("%s completed a %s", p.Name, c.Type),
		Data:        map[string]any{"kind": "completed", "type": c.Type.String(), "key": c.Key, "building_id": b.ID},
	})
	if b.Score() > 0 {
		score := world.Score(m.store, p.ID)
		m.emit(Event{
			Category:    CategoryScore,
			PlayerID:    p.ID,
			Description: fmt.Sprintf("%s now has %d points", p.Name, score),
			Data:        map[string]any{"score": score},
		})
	}
	return b, true
}

func (m *BuildingManager) emit(e Event) {
	if m.bus == nil {
		return
	}
	e.Tick, e.Time = m.tick, m.now
	m.bus.Publish(e)
}
