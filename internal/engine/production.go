// Dice production and pickup. Each pulse rolls 2d6; every tile showing the
// roll drops resource nodes for its owner, who has to walk over to collect
// them.
package engine

import (
	"fmt"

	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/world"
)

// Yield per adjacent building of the tile owner.
const (
	townYield = 1
	cityYield = 2
)

// rollPulse rolls the dice and spawns the produced nodes. A 7 produces
// nothing and sets the robber loose.
func (m *Match) rollPulse() int {
	d1, d2 := entropy.Between(m.dice, 1, 6), entropy.Between(m.dice, 1, 6)
	roll := d1 + d2
	m.pulse++
	m.lastRoll = roll

	produced := 0
	if roll != 7 {
		m.onQuietPulse()
		for _, t := range m.Board.Tiles() {
			if t.DiceNumber == roll && !m.robber.blocks(t.Coord()) {
				produced += m.produceTile(t)
			}
		}
	}

	m.publish(Event{
		Category:    CategoryDice,
		Description: fmt.Sprintf("Rolled %d (%d+%d)", roll, d1, d2),
		Data:        map[string]any{"roll": roll, "dice": []int{d1, d2}, "pulse": m.pulse, "produced": produced},
	})
	if roll == 7 {
		m.onSeven()
	}
	return roll
}

// produceTile spawns the tile owner's share of t and returns the node count.
func (m *Match) produceTile(t world.Tile) int {
	res, ok := t.Resource()
	if !ok {
		return 0
	}
	owner, ok := m.Ownership.Owner(t.Key())
	if !ok {
		return 0
	}
	n := yieldFor(m.Board, owner, t.Coord())
	if n == 0 {
		return 0
	}

	jitter := m.cfg.Gen.HexSize * 0.5
	for i := 0; i < n; i++ {
		pos := t.Position.Add(world.Vec3{X: entropy.Spread(m.dice, jitter), Z: entropy.Spread(m.dice, jitter)})
		m.Board.SpawnResource(res, owner, t.Key(), pos)
	}
	m.publish(Event{
		Category:    CategoryResource,
		PlayerID:    owner,
		Description: fmt.Sprintf("%s produced %d %s", owner, n, res),
		Data:        map[string]any{"kind": "produced", "tile": t.Key(), "type": res.String(), "count": n},
	})
	return n
}

// yieldFor counts the nodes a tile produces for owner: one per adjacent
// town, two per adjacent city.
func yieldFor(state world.GameState, owner world.PlayerID, tile world.HexCoord) int {
	n := 0
	for _, b := range world.OwnedTowns(state, owner) {
		v, ok := state.Vertex(b.Key)
		if !ok {
			continue
		}
		for _, c := range v.AdjacentTiles {
			if c != tile {
				continue
			}
			if b.Type == world.BuildingCity {
				n += cityYield
			} else {
				n += townYield
			}
		}
	}
	return n
}

// collect moves nodes into the inventory of any owner standing close
// enough. A node stays on the board while its owner's stack is full.
func (m *Match) collect() {
	for _, s := range m.seats {
		pos := s.Body.Position()
		for _, n := range m.Board.ResourcesOwnedBy(s.Player.ID) {
			if pos.DistXZ(n.Position) > m.cfg.CollectRadius {
				continue
			}
			if s.Player.Inventory.Collect(n.Type, 1) == 0 {
				continue
			}
			m.Board.RemoveResource(n.Key)
			m.publish(Event{
				Category:    CategoryResource,
				PlayerID:    s.Player.ID,
				Description: fmt.Sprintf("%s collected %s", s.Player.Name, n.Type),
				Data:        map[string]any{"kind": "deposited", "node": n.Key, "type": n.Type.String(), "held": s.Player.Inventory.Get(n.Type)},
			})
		}
	}
}
