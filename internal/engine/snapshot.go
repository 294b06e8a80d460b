package engine

import (
	"sort"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/world"
)

// MatchStatus is the headline state of a match.
type MatchStatus struct {
	Tick          uint64         `json:"tick"`
	Time          float64        `json:"time"`
	Clock         string         `json:"clock"`
	Phase         string         `json:"phase"`
	Seed          int64          `json:"seed"`
	Seats         int            `json:"seats"`
	Pulse         int            `json:"pulse"`
	LastRoll      int            `json:"last_roll"`
	NextPulse     float64        `json:"next_pulse,omitempty"`
	OpenOffers    int            `json:"open_offers"`
	Escrow        economy.Bundle `json:"escrow"`
	ResourceNodes int            `json:"resource_nodes"`
	Buildings     int            `json:"buildings"`
	Robber        string         `json:"robber,omitempty"` // tile key
}

// PlayerView is a read-only snapshot of one seat.
type PlayerView struct {
	ID        world.PlayerID    `json:"id"`
	Name      string            `json:"name"`
	Kind      agents.Kind       `json:"kind"`
	Skill     agents.SkillLevel `json:"skill"`
	Resources economy.Bundle    `json:"resources"`
	Score     int               `json:"score"`
	Towns     int               `json:"towns"`
	Cities    int               `json:"cities"`
	Roads     int               `json:"roads"`
	Tiles     []string          `json:"tiles"`
	Ports     []string          `json:"ports"`
	Position  world.Vec3        `json:"position"`
	State     string            `json:"state,omitempty"`
	Priority  string            `json:"priority"`
}

// Standing is one row of the score table.
type Standing struct {
	PlayerID world.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Score    int            `json:"score"`
}

// Status returns the headline state.
func (m *Match) Status() MatchStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	phase := "play"
	if !m.setup.done {
		phase = "setup"
	}
	st := MatchStatus{
		Tick:          m.tick,
		Time:          m.now,
		Clock:         SimTime(m.now),
		Phase:         phase,
		Seed:          m.seed,
		Seats:         len(m.seats),
		Pulse:         m.pulse,
		LastRoll:      m.lastRoll,
		OpenOffers:    len(m.Market.Offers()),
		Escrow:        m.Market.Escrow(),
		ResourceNodes: len(m.Board.Resources()),
		Buildings:     len(m.Board.Buildings()),
		Robber:        m.robber.key(),
	}
	if m.setup.done {
		st.NextPulse = m.nextPulse
	}
	return st
}

// Players returns a snapshot of every seat in table order.
func (m *Match) Players() []PlayerView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PlayerView, 0, len(m.seats))
	for _, s := range m.seats {
		p := s.Player
		v := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Kind:      p.Kind,
			Skill:     p.Skill,
			Resources: p.Resources(),
			Score:     world.Score(m.Board, p.ID),
			Roads:     len(world.OwnedRoads(m.Board, p.ID)),
			Tiles:     m.Ownership.OwnedBy(p.ID),
			Position:  s.Body.Position(),
		}
		for _, b := range world.OwnedTowns(m.Board, p.ID) {
			if b.Type == world.BuildingCity {
				v.Cities++
			} else {
				v.Towns++
			}
		}
		for _, port := range p.Ports.Owned() {
			v.Ports = append(v.Ports, port.String())
		}
		if s.AI != nil {
			v.State = s.AI.State().String()
		}
		v.Priority = p.Priority(v.Towns + v.Cities)
		out = append(out, v)
	}
	return out
}

// Standings returns the score table, best first.
func (m *Match) Standings() []Standing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Standing, 0, len(m.seats))
	for _, s := range m.seats {
		out = append(out, Standing{PlayerID: s.Player.ID, Name: s.Player.Name, Score: world.Score(m.Board, s.Player.ID)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// BuildingList returns committed buildings and constructions in progress.
func (m *Match) BuildingList() ([]world.Building, []Construction) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Board.Buildings(), m.Buildings.Pending()
}

// Offers returns the open market offers.
func (m *Match) Offers() []economy.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Market.Offers()
}

// TileView is a tile with its current payout owner.
type TileView struct {
	world.Tile
	Key   string         `json:"key"`
	Owner world.PlayerID `json:"owner,omitempty"`
}

// PortView is a port keyed by the vertex it sits on.
type PortView struct {
	Vertex string `json:"vertex"`
	Kind   string `json:"kind"`
	Ratio  int    `json:"ratio"`
}

// BoardView is the static layout plus tile ownership.
type BoardView struct {
	HexSize  float64    `json:"hex_size"`
	Tiles    []TileView `json:"tiles"`
	Vertices int        `json:"vertices"`
	Edges    int        `json:"edges"`
	Ports    []PortView `json:"ports"`
	Robber   string     `json:"robber,omitempty"`
}

// BoardLayout returns the board as observers see it.
func (m *Match) BoardLayout() BoardView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := BoardView{
		HexSize:  m.Board.Config.HexSize,
		Vertices: len(m.Board.Vertices()),
		Edges:    len(m.Board.Edges()),
		Robber:   m.robber.key(),
	}
	for _, t := range m.Board.Tiles() {
		tv := TileView{Tile: t, Key: t.Key()}
		tv.Owner, _ = m.Ownership.Owner(t.Key())
		v.Tiles = append(v.Tiles, tv)
	}
	for key, p := range m.Board.Ports() {
		v.Ports = append(v.Ports, PortView{Vertex: key, Kind: p.String(), Ratio: p.Ratio()})
	}
	sort.Slice(v.Ports, func(i, j int) bool { return v.Ports[i].Vertex < v.Ports[j].Vertex })
	return v
}
