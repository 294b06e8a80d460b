// AI orchestration: an explicit state machine evaluated once per tick.
// Each tick an AI thinks, takes a movement step, or executes a build,
// never more than one of these.
package agents

import (
	"log/slog"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/nav"
	"github.com/talgya/settlersim/internal/rules"
	"github.com/talgya/settlersim/internal/world"
)

// State is the AI's position in its plan.
type State uint8

const (
	StateIdle State = iota
	StateThinking
	StateMoving
	StateMovingToResource
	StateExecuting
)

var stateNames = [...]string{"Idle", "Thinking", "Moving", "MovingToResource", "Executing"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SetupStep is one placement of the mandatory opening.
type SetupStep uint8

const (
	SetupTown SetupStep = iota
	SetupRoad
)

func (s SetupStep) String() string {
	if s == SetupRoad {
		return "road"
	}
	return "town"
}

// Clock is the world time an AI sees each tick.
type Clock struct {
	Now   float64 // simulated seconds
	Pulse int     // bumps every world pulse
	Setup bool    // setup phase in progress: only setup turns run
}

// AIConfig tunes an AI seat.
type AIConfig struct {
	StartupDelay float64
	IdleThink    float64
	SetupDelay   float64
	BaseSpeed    float64
	Path         PathConfig
	Strategy     StrategyConfig
}

// AIConfigForHexSize returns defaults with distances scaled to the board.
func AIConfigForHexSize(size float64) AIConfig {
	return AIConfig{
		StartupDelay: 15,
		IdleThink:    3,
		SetupDelay:   1,
		BaseSpeed:    16,
		Path:         DefaultPathConfig(),
		Strategy:     StrategyConfigForHexSize(size),
	}
}

// DefaultAIConfig returns defaults for the standard hex size.
func DefaultAIConfig() AIConfig {
	return AIConfigForHexSize(world.DefaultHexSize)
}

// Deps are the shared services an AI plays against.
type Deps struct {
	State     world.GameState
	Buildings BuildingService
	Market    Market
	Resources ResourceLocator
	Planner   nav.Planner
	Validator *rules.Validator
	Rng       entropy.Source
	Log       *slog.Logger
}

// AIPlayer drives one seat.
type AIPlayer struct {
	Player *Player
	Body   Mover

	cfg  AIConfig
	deps Deps
	log  *slog.Logger

	strategist *Strategist
	economist  *Economist
	pathfinder *Pathfinder

	state     State
	queue     []Task
	pending   *Task
	spawnedAt float64
	lastThink float64
	lastPulse int

	setupPending bool
	setupStep    SetupStep
	setupAt      float64

	// OnTransition, if set, observes every state change.
	OnTransition func(from, to State)
}

// NewAIPlayer creates the orchestrator for p steering body.
func NewAIPlayer(p *Player, body Mover, cfg AIConfig, deps Deps, now float64) *AIPlayer {
	base := deps.Log
	if base == nil {
		base = slog.Default()
	}
	log := base.With("agent", p.Name)
	return &AIPlayer{
		Player:     p,
		Body:       body,
		cfg:        cfg,
		deps:       deps,
		log:        log,
		strategist: NewStrategist(p.ID, p.Skill, cfg.Strategy, deps.Validator, deps.Rng, log),
		economist:  NewEconomist(p.ID, p.Skill, log),
		pathfinder: NewPathfinder(cfg.Path, deps.Planner, deps.Rng),
		spawnedAt:  now,
		lastThink:  now,
	}
}

// State returns the current FSM state.
func (a *AIPlayer) State() State { return a.state }

// Pending returns the task in flight.
func (a *AIPlayer) Pending() (Task, bool) {
	if a.pending == nil {
		return Task{}, false
	}
	return *a.pending, true
}

// Queue returns a copy of the tasks waiting behind the pending one.
func (a *AIPlayer) Queue() []Task {
	return append([]Task(nil), a.queue...)
}

// Strategist exposes the planner, mostly for inspection.
func (a *AIPlayer) Strategist() *Strategist { return a.strategist }

// Economist exposes the trade policy.
func (a *AIPlayer) Economist() *Economist { return a.economist }

// Update runs one tick.
func (a *AIPlayer) Update(clock Clock) {
	now := clock.Now
	if now-a.spawnedAt < a.cfg.StartupDelay {
		return
	}
	if a.setupPending {
		if now >= a.setupAt {
			a.runSetup(now)
		}
		return
	}
	if clock.Setup {
		return
	}

	switch a.state {
	case StateIdle:
		if len(a.queue) > 0 {
			a.dispatch()
			return
		}
		if clock.Pulse != a.lastPulse || now-a.lastThink >= a.cfg.IdleThink || a.Player.NeedsFirstTown {
			a.transition(StateThinking)
		}
	case StateThinking:
		a.think(clock)
	case StateMoving, StateMovingToResource:
		a.move(now)
	case StateExecuting:
		a.execute(now)
	}
}

func (a *AIPlayer) transition(to State) {
	from := a.state
	a.state = to
	if from != to && a.OnTransition != nil {
		a.OnTransition(from, to)
	}
}

func (a *AIPlayer) think(clock Clock) {
	now := clock.Now
	a.lastThink = now
	a.lastPulse = clock.Pulse

	a.economist.CancelStaleOffers(a.deps.Market, now)
	a.queue = a.strategist.DecideAction(a.Player, a.deps.State, a.Body.Position(), now, a.economist.CanAfford)

	if target, ok := a.strategist.LastTarget(); ok && !a.economist.CanAfford(target.Type, a.Player.Resources()) {
		a.economist.TryTradeForNeeds(a.Player, target.Type, a.deps.Market, now)
	}
	a.economist.TryMarketTrade(a.Player, a.deps.Market, now)
	a.economist.TryPortBalance(a.Player)

	if len(a.queue) == 0 {
		a.transition(StateIdle)
		return
	}
	a.dispatch()
}

func (a *AIPlayer) dispatch() {
	task := a.queue[0]
	a.queue = a.queue[1:]
	a.pending = &task
	a.pathfinder.Reset()
	if task.Kind == TaskCollect {
		a.transition(StateMovingToResource)
		return
	}
	a.transition(StateMoving)
}

func (a *AIPlayer) move(now float64) {
	task := a.pending
	if task == nil {
		a.transition(StateIdle)
		return
	}
	target := task.Position
	if task.Kind == TaskCollect {
		pos, ok := a.deps.Resources.ResourcePosition(task.ResourceKey)
		if !ok {
			a.log.Debug("resource vanished", "key", task.ResourceKey)
			a.pending = nil
			a.transition(StateIdle)
			return
		}
		target = pos
		task.Position = pos
	}

	switch res := a.pathfinder.Update(a.Body, target, now, a.cfg.BaseSpeed); res {
	case MoveArrived:
		if task.Kind == TaskCollect {
			a.pending = nil
			a.transition(StateIdle)
			return
		}
		a.transition(StateExecuting)
	case MoveStuck, MoveTimeout:
		a.log.Info("abandoning plan", "result", res, "task", task.Kind, "dropped", len(a.queue))
		a.pending = nil
		a.queue = nil
		a.transition(StateIdle)
	}
}

func (a *AIPlayer) execute(now float64) {
	task := a.pending
	a.pending = nil
	defer a.transition(StateIdle)
	if task == nil || task.Kind != TaskBuild {
		return
	}

	res := a.deps.Buildings.StartBuilding(a.Player, BuildRequest{Type: task.Building, Position: task.Position})
	if res.OK {
		if task.Building == world.BuildingTown {
			a.Player.NeedsFirstTown = false
		}
		a.log.Info("started building", "type", task.Building, "key", res.Key, "id", res.BuildingID)
		return
	}
	a.log.Debug("build rejected", "type", task.Building, "reason", res.Reason)
	if task.Building == world.BuildingTown {
		a.strategist.RecordFailedPlacement(task.Position, now)
	}
}

// HandleSetupTurn schedules this AI's setup placement SetupDelay seconds
// from now. The placement runs on a later Update.
func (a *AIPlayer) HandleSetupTurn(step SetupStep, now float64) {
	a.setupPending = true
	a.setupStep = step
	a.setupAt = now + a.cfg.SetupDelay
	a.pending = nil
	a.queue = nil
	a.transition(StateIdle)
}

// SetupPending reports whether a setup placement is scheduled.
func (a *AIPlayer) SetupPending() bool { return a.setupPending }

func (a *AIPlayer) runSetup(now float64) {
	a.setupPending = false

	if a.setupStep == SetupTown {
		pos, ok := a.strategist.BestTownSpot(a.deps.State, true, now)
		if !ok {
			a.log.Warn("no legal setup town spot")
			return
		}
		res := a.deps.Buildings.StartBuilding(a.Player, BuildRequest{Type: world.BuildingTown, Position: pos, Free: true, Setup: true})
		if !res.OK {
			a.log.Debug("setup town rejected", "reason", res.Reason)
			a.strategist.RecordFailedPlacement(pos, now)
			return
		}
		a.Player.NeedsFirstTown = false
		a.log.Info("placed setup town", "key", res.Key)
		return
	}

	town, ok := latestTown(a.deps.State, a.Player.ID)
	if !ok {
		a.log.Warn("setup road step without a placed town")
		return
	}
	pos, ok := a.strategist.BestRoadSpot(a.deps.State, nil, true, town.Key)
	if !ok {
		a.log.Warn("no legal setup road spot", "town", town.Key)
		return
	}
	res := a.deps.Buildings.StartBuilding(a.Player, BuildRequest{
		Type: world.BuildingRoad, Position: pos, Free: true, Setup: true, SetupTownKey: town.Key,
	})
	if !res.OK {
		a.log.Debug("setup road rejected", "reason", res.Reason)
		return
	}
	a.log.Info("placed setup road", "key", res.Key)
}

func latestTown(state world.GameState, id world.PlayerID) (world.Building, bool) {
	var best world.Building
	found := false
	for _, b := range world.OwnedTowns(state, id) {
		if b.Type == world.BuildingTown && (!found || b.ID > best.ID) {
			best, found = b, true
		}
	}
	return best, found
}

// OnOfferPosted lets the AI react to a new market offer.
func (a *AIPlayer) OnOfferPosted(o economy.Offer, now float64) {
	if now-a.spawnedAt < a.cfg.StartupDelay {
		return
	}
	a.economist.EvaluateMarketOffer(o, a.Player, a.deps.Market, now)
}
