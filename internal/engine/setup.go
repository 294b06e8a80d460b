package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/settlersim/internal/agents"
	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/world"
)

type setupTurn struct {
	seat  int
	round int
	step  agents.SetupStep
}

// setupPhase runs the opening placements in snake order: every seat places
// a town then a road going forward round the table, then again in reverse.
type setupPhase struct {
	turns []setupTurn
	idx   int

	startAt     float64
	timeout     float64
	maxAttempts int

	issued   bool
	issuedAt float64
	attempts int
	baseline int
	done     bool
}

func newSetupPhase(seats int, startAt, timeout float64, maxAttempts int) *setupPhase {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	p := &setupPhase{startAt: startAt, timeout: timeout, maxAttempts: maxAttempts}
	for round := 0; round < 2; round++ {
		for i := 0; i < seats; i++ {
			seat := i
			if round == 1 {
				seat = seats - 1 - i
			}
			p.turns = append(p.turns,
				setupTurn{seat: seat, round: round, step: agents.SetupTown},
				setupTurn{seat: seat, round: round, step: agents.SetupRoad},
			)
		}
	}
	p.done = len(p.turns) == 0
	return p
}

func (p *setupPhase) next() {
	p.idx++
	p.issued = false
	p.attempts = 0
	if p.idx >= len(p.turns) {
		p.done = true
	}
}

// InSetup reports whether the opening placements are still running.
func (m *Match) InSetup() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.setup.done
}

func (m *Match) placedCount(id world.PlayerID, step agents.SetupStep) int {
	if step == agents.SetupRoad {
		return len(world.OwnedRoads(m.Board, id))
	}
	return len(world.OwnedTowns(m.Board, id))
}

// advanceSetup drives the current setup turn and reports whether the phase
// finished during this call.
func (m *Match) advanceSetup(now float64) bool {
	p := m.setup
	if p.done || now < p.startAt {
		return false
	}

	for !p.done {
		turn := p.turns[p.idx]
		seat := m.seats[turn.seat]
		id := seat.Player.ID

		if !p.issued {
			if seat.AI == nil {
				slog.Info("setup turn skipped, seat has no controller", "player", id, "step", turn.step)
				p.next()
				continue
			}
			p.baseline = m.placedCount(id, turn.step)
			seat.AI.HandleSetupTurn(turn.step, now)
			p.issued, p.issuedAt = true, now
			p.attempts++
			return false
		}

		if m.placedCount(id, turn.step) > p.baseline {
			m.completeSetupTurn(seat, turn)
			p.next()
			continue
		}

		if now-p.issuedAt < p.timeout {
			return false
		}
		if p.attempts < p.maxAttempts {
			slog.Debug("setup turn stalled, re-issuing", "player", id, "step", turn.step, "attempt", p.attempts+1)
			p.issued = false
			continue
		}
		slog.Warn("setup turn skipped after retries", "player", id, "step", turn.step, "attempts", p.attempts)
		m.publish(Event{
			Category:    CategorySetup,
			PlayerID:    id,
			Description: fmt.Sprintf("%s missed their setup %s", seat.Player.Name, turn.step),
			Data:        map[string]any{"kind": "skipped", "step": turn.step.String(), "round": turn.round},
		})
		p.next()
	}

	m.publish(Event{
		Category:    CategorySetup,
		Description: "Setup complete",
		Data:        map[string]any{"kind": "complete"},
	})
	slog.Info("setup complete", "time", SimTime(now), "buildings", len(m.Board.Buildings()))
	return true
}

func (m *Match) completeSetupTurn(seat *Seat, turn setupTurn) {
	data := map[string]any{"kind": "placed", "step": turn.step.String(), "round": turn.round}
	if turn.round == 1 && turn.step == agents.SetupTown {
		if granted := m.grantSecondTown(seat.Player); !granted.IsZero() {
			data["granted"] = granted.Map()
		}
	}
	m.publish(Event{
		Category:    CategorySetup,
		PlayerID:    seat.Player.ID,
		Description: fmt.Sprintf("%s placed a setup %s", seat.Player.Name, turn.step),
		Data:        data,
	})
}

// grantSecondTown pays out one resource per producing tile around the
// player's newest town.
func (m *Match) grantSecondTown(p *agents.Player) economy.Bundle {
	var granted economy.Bundle
	town, ok := newestTown(m.Board, p.ID)
	if !ok {
		return granted
	}
	v, ok := m.Board.Vertex(town.Key)
	if !ok {
		return granted
	}
	for _, c := range v.AdjacentTiles {
		t, ok := m.Board.Tile(c.Q, c.R)
		if !ok {
			continue
		}
		if r, ok := t.Resource(); ok {
			granted[r]++
		}
	}
	p.Inventory.AddBundle(granted)
	return granted
}

func newestTown(state world.GameState, id world.PlayerID) (world.Building, bool) {
	var best world.Building
	found := false
	for _, b := range world.OwnedTowns(state, id) {
		if !found || b.ID > best.ID {
			best, found = b, true
		}
	}
	return best, found
}
