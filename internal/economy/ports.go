package economy

import (
	"errors"
	"fmt"

	"github.com/talgya/settlersim/internal/world"
)

// DefaultTradeRatio is the bank rate without a port.
const DefaultTradeRatio = 4

var ErrSameResource = errors.New("cannot trade a resource for itself")

// PortDesk executes bank trades for one player at the best ratio their
// ports allow.
type PortDesk struct {
	inv     *Inventory
	generic bool
	special [world.NumResources]bool
}

// NewPortDesk returns a desk trading out of inv with no ports claimed.
func NewPortDesk(inv *Inventory) *PortDesk {
	return &PortDesk{inv: inv}
}

// Claim records a port the player has built on. Claiming twice is harmless.
func (d *PortDesk) Claim(p world.Port) {
	if p.Generic {
		d.generic = true
		return
	}
	if p.Resource.Valid() {
		d.special[p.Resource] = true
	}
}

// Owned lists the claimed ports.
func (d *PortDesk) Owned() []world.Port {
	var out []world.Port
	if d.generic {
		out = append(out, world.Port{Generic: true})
	}
	for _, r := range world.AllResources {
		if d.special[r] {
			out = append(out, world.Port{Resource: r})
		}
	}
	return out
}

// BestTradeRatio returns how many of give buy one of anything.
func (d *PortDesk) BestTradeRatio(give world.Resource) int {
	if give.Valid() && d.special[give] {
		return 2
	}
	if d.generic {
		return 3
	}
	return DefaultTradeRatio
}

// ExecuteTrade converts BestTradeRatio(give) of give into one want.
func (d *PortDesk) ExecuteTrade(give, want world.Resource) error {
	if !give.Valid() || !want.Valid() {
		return ErrInvalidOffer
	}
	if give == want {
		return ErrSameResource
	}
	ratio := d.BestTradeRatio(give)
	if !d.inv.Remove(give, ratio) {
		return fmt.Errorf("%d %s for %s: %w", ratio, give, want, ErrInsufficient)
	}
	d.inv.Add(want, 1)
	return nil
}
