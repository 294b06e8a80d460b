package economy

import (
	"github.com/talgya/settlersim/internal/entropy"
	"github.com/talgya/settlersim/internal/world"
)

// MaxStack caps how many of one resource a player can pick up from the board.
const MaxStack = 50

// Inventory is a player's resource ledger. Trades and escrow moves are
// exact; only pickups from the board respect MaxStack.
type Inventory struct {
	res Bundle
}

// NewInventory returns a ledger holding start.
func NewInventory(start Bundle) *Inventory {
	return &Inventory{res: start}
}

// Get returns the count of one resource.
func (inv *Inventory) Get(r world.Resource) int {
	if !r.Valid() {
		return 0
	}
	return inv.res[r]
}

// Resources returns a copy of the current holdings.
func (inv *Inventory) Resources() Bundle {
	return inv.res
}

// Total returns the number of cards held.
func (inv *Inventory) Total() int {
	return inv.res.Total()
}

// Has reports whether the ledger covers cost.
func (inv *Inventory) Has(cost Bundle) bool {
	return inv.res.Covers(cost)
}

// Add credits n of a resource.
func (inv *Inventory) Add(r world.Resource, n int) {
	if r.Valid() && n > 0 {
		inv.res[r] += n
	}
}

// AddBundle credits every count in b.
func (inv *Inventory) AddBundle(b Bundle) {
	for _, r := range world.AllResources {
		inv.Add(r, b[r])
	}
}

// Remove debits n of a resource. Fails without change if short.
func (inv *Inventory) Remove(r world.Resource, n int) bool {
	if !r.Valid() || n < 0 || inv.res[r] < n {
		return false
	}
	inv.res[r] -= n
	return true
}

// Pay debits cost in full, or nothing if the ledger cannot cover it.
func (inv *Inventory) Pay(cost Bundle) bool {
	if !inv.res.Covers(cost) {
		return false
	}
	inv.res = inv.res.Minus(cost)
	return true
}

// Collect credits up to n of a resource without exceeding MaxStack and
// returns how many were taken.
func (inv *Inventory) Collect(r world.Resource, n int) int {
	if !r.Valid() || n <= 0 {
		return 0
	}
	room := MaxStack - inv.res[r]
	if room <= 0 {
		return 0
	}
	if n > room {
		n = room
	}
	inv.res[r] += n
	return n
}

// RemoveRandom debits up to n single cards, each drawn uniformly from the
// cards held, and returns what was taken.
func (inv *Inventory) RemoveRandom(src entropy.Source, n int) Bundle {
	var taken Bundle
	for ; n > 0; n-- {
		total := inv.res.Total()
		if total == 0 {
			break
		}
		pick := src.Intn(total)
		for _, r := range world.AllResources {
			if pick < inv.res[r] {
				inv.res[r]--
				taken[r]++
				break
			}
			pick -= inv.res[r]
		}
	}
	return taken
}
