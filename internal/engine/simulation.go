// Match ties the board, the seats, and the authoritative services together
// and advances them once per tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/nav"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

// Config holds match parameters.
type Config struct {
	Gen   world.GenConfig
	Rules rules.Config
	AI    agents.AIConfig
	Seats agents.SeatConfig

	MaxOffers        int     // open offers per player
	PulseInterval    float64 // seconds between dice rolls after setup
	CollectRadius    float64 // XZ pickup distance for resource nodes
	SetupTurnTimeout float64 // seconds before a setup turn is re-issued
	SetupAttempts    int     // issues per setup turn before it is skipped
	Seed             int64   // 0 = random
}

// DefaultConfig returns a four-seat AI match on the standard board.
func DefaultConfig() Config {
	gen := world.DefaultGenConfig()
	return Config{
		Gen:   gen,
		Rules: rules.ConfigForHexSize(gen.HexSize),
		AI:    agents.AIConfigForHexSize(gen.HexSize),
		Seats: agents.SeatConfig{
			AI: []agents.SkillLevel{agents.SkillBeginner, agents.SkillIntermediate, agents.SkillExpert, agents.SkillIntermediate},
		},
		MaxOffers:        economy.DefaultMaxOffersPerPlayer,
		PulseInterval:    60,
		CollectRadius:    6,
		SetupTurnTimeout: 10,
		SetupAttempts:    3,
	}
}

// Seat is one player at the table with the body they move around in. AI
// is nil for human seats.
type Seat struct {
	Player *agents.Player
	Body   *nav.Body
	AI     *agents.AIPlayer
}

// Match holds the complete match state. All mutation happens inside Step
// under mu; snapshot methods take the read lock.
type Match struct {
	mu  sync.RWMutex
	cfg Config

	Board     *world.Board
	Bus       *EventBus
	Buildings *BuildingManager
	Market    *economy.Market
	Ownership *TileOwnership
	Planner   *nav.GridPlanner
	Validator *rules.Validator

	seats []*Seat
	byID  map[world.PlayerID]*Seat
	seed  int64

	setup     *setupPhase
	dice      entropy.Source
	robber    *robber
	pulse     int
	lastRoll  int
	nextPulse float64

	offerQueue []economy.Offer

	tick uint64
	now  float64
}

// NewMatch generates the board and seats everyone.
func NewMatch(cfg Config) *Match {
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.Seed()
	}
	if cfg.Gen.Seed == 0 {
		cfg.Gen.Seed = seed
	}

	board := world.Generate(cfg.Gen)
	m := &Match{
		cfg:       cfg,
		Board:     board,
		Bus:       NewEventBus(),
		Ownership: NewTileOwnership(),
		Planner:   nav.ForBoard(board),
		Validator: rules.New(cfg.Rules),
		byID:      make(map[world.PlayerID]*Seat),
		seed:      seed,
		dice:      entropy.Derive(seed, 0),
		robber:    newRobber(board),
	}
	m.Buildings = NewBuildingManager(board.Store, m.Validator, m.Ownership, m.Bus, m.player)
	m.Market = economy.NewMarket(m, cfg.MaxOffers)
	m.Market.OnChange = m.onMarketChange

	spawn := world.Vec3{Y: world.GroundHeight}
	if t, ok := board.Tile(0, 0); ok {
		spawn = t.Position
	}
	rng := entropy.Derive(seed, 1)
	for i, p := range agents.NewSpawner(seed).SpawnSeats(cfg.Seats) {
		pos := spawn.Add(world.Vec3{X: entropy.Spread(rng, 6), Z: entropy.Spread(rng, 6)})
		body := nav.NewBody(board, pos, cfg.AI.BaseSpeed)
		seat := &Seat{Player: p, Body: body}
		if p.Kind == agents.KindAI {
			seat.AI = agents.NewAIPlayer(p, body, cfg.AI, agents.Deps{
				State:     board.Store,
				Buildings: m.Buildings,
				Market:    m.Market,
				Resources: board.Store,
				Planner:   m.Planner,
				Validator: m.Validator,
				Rng:       entropy.Derive(seed, uint64(i)+2),
			}, 0)
		}
		m.seats = append(m.seats, seat)
		m.byID[p.ID] = seat
	}
	m.setup = newSetupPhase(len(m.seats), cfg.AI.StartupDelay, cfg.SetupTurnTimeout, cfg.SetupAttempts)

	slog.Info("match created",
		"seed", seed,
		"tiles", len(board.Tiles()),
		"vertices", len(board.Vertices()),
		"ports", len(board.Ports()),
		"seats", len(m.seats),
	)
	return m
}

// Seed returns the seed the match was generated from.
func (m *Match) Seed() int64 { return m.seed }

// Seats returns the seats in table order.
func (m *Match) Seats() []*Seat { return m.seats }

// Inventory implements economy.Accounts. Callers hold mu.
func (m *Match) Inventory(id world.PlayerID) (*economy.Inventory, bool) {
	s, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return s.Player.Inventory, true
}

func (m *Match) player(id world.PlayerID) (*agents.Player, bool) {
	s, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return s.Player, true
}

// Step advances the match by one tick of dt seconds ending at now.
func (m *Match) Step(tick uint64, now, dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tick, m.now = tick, now
	m.Buildings.SetClock(tick, now)

	if !m.setup.done {
		if m.advanceSetup(now) {
			m.nextPulse = now + m.cfg.PulseInterval
		}
	} else if now >= m.nextPulse {
		m.rollPulse()
		m.nextPulse += m.cfg.PulseInterval
	}
	m.Buildings.Advance(now)

	clock := agents.Clock{Now: now, Pulse: m.pulse, Setup: !m.setup.done}
	for _, s := range m.seats {
		if s.AI != nil {
			s.AI.Update(clock)
		}
	}
	for _, s := range m.seats {
		s.Body.Step(dt)
	}
	m.collect()
	m.deliverOffers(now)
}

func (m *Match) onMarketChange(c economy.Change, o economy.Offer, by world.PlayerID) {
	name := string(by)
	if p, ok := m.player(by); ok {
		name = p.Name
	}
	m.publish(Event{
		Category:    CategoryMarket,
		PlayerID:    by,
		Description: fmt.Sprintf("%s %s offer %s", name, c, o.Give),
		Data: map[string]any{
			"change":      c.String(),
			"offer_id":    o.ID,
			"poster":      string(o.PosterID),
			"give":        o.Give.Map(),
			"want_type":   o.WantType.String(),
			"want_amount": o.WantAmount,
		},
	})
	if c == economy.OfferPosted {
		m.offerQueue = append(m.offerQueue, o)
	}
}

// deliverOffers lets every AI except the poster look at offers posted
// during this tick. Offers posted in response wait for the next tick.
func (m *Match) deliverOffers(now float64) {
	queue := m.offerQueue
	m.offerQueue = nil
	for _, o := range queue {
		for _, s := range m.seats {
			if s.AI == nil || s.Player.ID == o.PosterID {
				continue
			}
			s.AI.OnOfferPosted(o, now)
		}
	}
}

func (m *Match) publish(e Event) {
	e.Tick, e.Time = m.tick, m.now
	m.Bus.Publish(e)
}

// Report logs a one-line summary of the standings.
func (m *Match) Report() {
	st := m.Status()
	attrs := []any{
		"tick", st.Tick,
		"time", st.Clock,
		"phase", st.Phase,
		"pulse", st.Pulse,
		"last_roll", st.LastRoll,
		"open_offers", st.OpenOffers,
		"resource_nodes", st.ResourceNodes,
	}
	for _, s := range m.Standings() {
		attrs = append(attrs, string(s.PlayerID), s.Score)
	}
	slog.Info("match report", attrs...)
}
