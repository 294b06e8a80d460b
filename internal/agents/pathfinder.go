package agents

import (
	"math"

	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/nav"
	"github.com/talgya/settlersim/internal/world"
)

// MoveResult is the outcome of one pathfinder step.
type MoveResult uint8

const (
	MoveContinue MoveResult = iota
	MoveArrived
	MoveStuck
	MoveTimeout
)

var moveResultNames = [...]string{"Continue", "Arrived", "Stuck", "Timeout"}

func (r MoveResult) String() string {
	if int(r) < len(moveResultNames) {
		return moveResultNames[r]
	}
	return "Unknown"
}

// PathConfig holds the movement tuning. Distances are world units, times
// are simulated seconds.
type PathConfig struct {
	DirectRange       float64 // below this XZ distance, walk straight at the target
	ArriveDist        float64
	ArriveDistStuck   float64 // looser arrival once the agent has been stuck
	UnstickJumpRange  float64 // jump near the target while recovering
	RecomputeInterval float64
	StuckWindow       float64
	StuckDisplacement float64
	MaxStuck          int
	HeavyStuck        int // above this count: wider radius and vertical nudge
	Timeout           float64
	AgentRadius       float64
	AgentRadiusStuck  float64
	NudgeRange        float64
	NudgeLift         float64
	DropPathDist      float64 // waypoints exhausted but still farther than this: recompute
	MudCost           float64
}

// DefaultPathConfig returns the standard movement tuning.
func DefaultPathConfig() PathConfig {
	return PathConfig{
		DirectRange:       25,
		ArriveDist:        2,
		ArriveDistStuck:   3,
		UnstickJumpRange:  10,
		RecomputeInterval: 2,
		StuckWindow:       2,
		StuckDisplacement: 3,
		MaxStuck:          8,
		HeavyStuck:        4,
		Timeout:           30,
		AgentRadius:       3,
		AgentRadiusStuck:  6,
		NudgeRange:        15,
		NudgeLift:         10,
		DropPathDist:      20,
		MudCost:           10,
	}
}

// SpeedMultiplier scales walk speed with XZ distance so long treks finish
// in reasonable time while keeping fine control near the target.
func SpeedMultiplier(dist float64) float64 {
	switch {
	case dist > 800:
		return 12
	case dist > 400:
		return 8
	case dist > 200:
		return 5
	case dist > 100:
		return 3
	case dist > 50:
		return 2
	case dist > 25:
		return 1.4
	}
	return 1
}

// Pathfinder steers one mover toward one target at a time. Reset between
// targets.
type Pathfinder struct {
	cfg     PathConfig
	planner nav.Planner
	rng     entropy.Source

	path []nav.Waypoint
	next int

	computed    bool
	lastCompute float64

	started bool
	startAt float64

	checkPos   world.Vec3
	checkAt    float64
	stuckCount int
}

// NewPathfinder creates a pathfinder that plans with planner and draws
// nudges from rng.
func NewPathfinder(cfg PathConfig, planner nav.Planner, rng entropy.Source) *Pathfinder {
	return &Pathfinder{cfg: cfg, planner: planner, rng: rng}
}

// Reset clears path, stuck, and timeout state.
func (p *Pathfinder) Reset() {
	p.path = nil
	p.next = 0
	p.computed = false
	p.started = false
	p.stuckCount = 0
}

// StuckCount returns consecutive stuck windows observed.
func (p *Pathfinder) StuckCount() int {
	return p.stuckCount
}

// HasPath reports whether waypoints are being followed.
func (p *Pathfinder) HasPath() bool {
	return p.path != nil
}

// Update advances the mover one tick toward target.
func (p *Pathfinder) Update(m Mover, target world.Vec3, now, baseSpeed float64) MoveResult {
	pos := m.Position()
	dist := pos.DistXZ(target)
	speed := baseSpeed * SpeedMultiplier(dist)
	m.SetWalkSpeed(speed)

	if !p.started {
		p.started = true
		p.startAt = now
	}
	ground := target.WithY(pos.Y)

	if dist < p.cfg.DirectRange {
		p.path = nil
		arrive := p.cfg.ArriveDist
		if p.stuckCount > 0 {
			arrive = p.cfg.ArriveDistStuck
		}
		if dist < arrive {
			return MoveArrived
		}
		m.MoveTo(ground)
		if dist < p.cfg.UnstickJumpRange && p.stuckCount > 0 {
			m.Jump()
		}
		if now-p.startAt > p.cfg.Timeout {
			return MoveTimeout
		}
		return MoveContinue
	}

	if now-p.startAt > p.cfg.Timeout {
		return MoveTimeout
	}

	if p.path == nil {
		if p.computed && now-p.lastCompute < p.cfg.RecomputeInterval {
			return MoveContinue
		}
		p.computed = true
		p.lastCompute = now

		radius := p.cfg.AgentRadius
		if p.stuckCount > p.cfg.HeavyStuck {
			radius = p.cfg.AgentRadiusStuck
		}
		path, err := p.planner.ComputePath(pos, ground, nav.PathOptions{
			AgentRadius: radius,
			Costs: map[world.Terrain]float64{
				world.TerrainWater: math.Inf(1),
				world.TerrainMud:   p.cfg.MudCost,
			},
		})
		if err != nil || len(path) == 0 {
			m.MoveTo(ground)
			return MoveContinue
		}
		p.path = path
		p.next = 0
		p.checkAt = now
		p.checkPos = pos
	}

	if now-p.checkAt > p.cfg.StuckWindow {
		moved := pos.Dist(p.checkPos)
		p.checkAt = now
		p.checkPos = pos
		if moved < p.cfg.StuckDisplacement {
			p.stuckCount++
			if p.stuckCount >= p.cfg.MaxStuck {
				return MoveStuck
			}
			p.path = nil
			m.Jump()
			lift := 0.0
			if p.stuckCount > p.cfg.HeavyStuck {
				lift = p.cfg.NudgeLift
			}
			m.MoveTo(pos.Add(world.Vec3{
				X: entropy.Spread(p.rng, p.cfg.NudgeRange),
				Y: lift,
				Z: entropy.Spread(p.rng, p.cfg.NudgeRange),
			}))
			return MoveContinue
		}
		p.stuckCount = 0
	}

	if p.next < len(p.path) {
		wp := p.path[p.next]
		m.MoveTo(wp.Position)
		if pos.DistXZ(wp.Position) < clamp(speed/12, 4, 15) {
			p.next++
			if wp.Action == nav.ActionJump {
				m.Jump()
			}
		}
		return MoveContinue
	}

	m.MoveTo(ground)
	if dist > p.cfg.DropPathDist {
		p.path = nil
	}
	return MoveContinue
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
