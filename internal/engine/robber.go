// The robber. A 7 makes every seat holding too many cards discard half,
// then moves the robber onto the leader's best producing tile and steals
// one card from someone building there. The robber's tile produces nothing
// until it moves again.
package engine

import (
	"fmt"

	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/world"
)

const (
	// discardAt is the hand size at which a 7 costs half the cards.
	discardAt = 8
	// robberPatience is how many non-seven pulses the robber stays out
	// before returning home.
	robberPatience = 5
)

type robber struct {
	home    world.HexCoord
	hasHome bool // false on boards without a desert

	at     world.HexCoord
	placed bool
	idle   int // pulses since the last 7
}

// newRobber parks the robber on the first desert tile, or off the board.
func newRobber(state world.GameState) *robber {
	r := &robber{}
	for _, t := range state.Tiles() {
		if t.Type == world.TileDesert {
			r.home, r.hasHome = t.Coord(), true
			break
		}
	}
	r.at, r.placed = r.home, r.hasHome
	return r
}

// blocks reports whether the robber sits on c.
func (r *robber) blocks(c world.HexCoord) bool {
	return r.placed && r.at == c
}

// key returns the robber's tile key, or "" while off the board.
func (r *robber) key() string {
	if !r.placed {
		return ""
	}
	return world.TileKey(r.at.Q, r.at.R)
}

func (r *robber) atHome() bool {
	return r.placed == r.hasHome && (!r.placed || r.at == r.home)
}

// onQuietPulse counts a non-seven pulse and sends the robber home once it
// has idled long enough.
func (m *Match) onQuietPulse() {
	r := m.robber
	r.idle++
	if r.idle <= robberPatience || r.atHome() {
		return
	}
	from := r.key()
	r.at, r.placed = r.home, r.hasHome
	m.publish(Event{
		Category:    CategoryRobber,
		Description: "The robber returned to the desert",
		Data:        map[string]any{"kind": "reset", "from": from, "tile": r.key()},
	})
}

// onSeven runs the discard, the move, and the theft.
func (m *Match) onSeven() {
	m.robber.idle = 0
	m.discardHalf()

	leader, ok := m.leader()
	if !ok {
		return
	}
	tile, ok := m.robberTarget(leader)
	if !ok {
		return
	}
	from := m.robber.key()
	m.robber.at, m.robber.placed = tile.Coord(), true
	m.publish(Event{
		Category:    CategoryRobber,
		PlayerID:    leader,
		Description: fmt.Sprintf("The robber moved to %s %d", tile.Type, tile.DiceNumber),
		Data:        map[string]any{"kind": "moved", "from": from, "tile": tile.Key(), "dice": tile.DiceNumber},
	})
	m.stealFrom(tile)
}

func (m *Match) discardHalf() {
	for _, s := range m.seats {
		inv := s.Player.Inventory
		total := inv.Total()
		if total < discardAt {
			continue
		}
		lost := inv.RemoveRandom(m.dice, total/2)
		m.publish(Event{
			Category:    CategoryRobber,
			PlayerID:    s.Player.ID,
			Description: fmt.Sprintf("%s was caught with %d cards and lost %d", s.Player.Name, total, lost.Total()),
			Data:        map[string]any{"kind": "discard", "held": total, "lost": lost.Map()},
		})
	}
}

// leader is the first seat with the highest score.
func (m *Match) leader() (world.PlayerID, bool) {
	best, found := -1, world.PlayerID("")
	for _, s := range m.seats {
		if score := world.Score(m.Board, s.Player.ID); score > best {
			best, found = score, s.Player.ID
		}
	}
	return found, found != ""
}

// robberTarget picks the leader's most productive claimed tile, preferring
// to move rather than stay.
func (m *Match) robberTarget(leader world.PlayerID) (world.Tile, bool) {
	var best world.Tile
	bestScore, found := 0, false
	for _, key := range m.Ownership.OwnedBy(leader) {
		c, ok := world.ParseTileKey(key)
		if !ok {
			continue
		}
		t, ok := m.Board.Tile(c.Q, c.R)
		if !ok || t.DiceNumber == 0 {
			continue
		}
		score := diceWeight(t.DiceNumber)
		if m.robber.blocks(c) {
			score -= 100
		}
		if !found || score > bestScore {
			best, bestScore, found = t, score, true
		}
	}
	return best, found
}

func diceWeight(n int) int {
	switch n {
	case 6, 8:
		return 10
	case 5, 9:
		return 5
	}
	return 1
}

// stealFrom takes one random card from a random seat building on t.
func (m *Match) stealFrom(t world.Tile) {
	claim, _ := m.Ownership.Owner(t.Key())
	var victims []*Seat
	for _, s := range m.seats {
		if s.Player.Inventory.Total() == 0 {
			continue
		}
		if s.Player.ID == claim || yieldFor(m.Board, s.Player.ID, t.Coord()) > 0 {
			victims = append(victims, s)
		}
	}
	if len(victims) == 0 {
		return
	}
	v := victims[entropy.Between(m.dice, 0, len(victims)-1)]
	stolen := v.Player.Inventory.RemoveRandom(m.dice, 1)
	for _, r := range world.AllResources {
		if stolen[r] == 0 {
			continue
		}
		m.publish(Event{
			Category:    CategoryRobber,
			PlayerID:    v.Player.ID,
			Description: fmt.Sprintf("The robber stole %s from %s", r, v.Player.Name),
			Data:        map[string]any{"kind": "stolen", "tile": t.Key(), "type": r.String()},
		})
	}
}
