// Package economy provides resource bundles, the build cost table, player
// inventories, the escrow market, and bank trades through ports.
package economy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/settlersim/internal/world"
)

// Bundle is a count per resource, indexed by world.Resource.
type Bundle [world.NumResources]int

// BundleOf builds a bundle from resource/amount pairs.
func BundleOf(pairs map[world.Resource]int) Bundle {
	var b Bundle
	for r, n := range pairs {
		if r.Valid() {
			b[r] += n
		}
	}
	return b
}

// Total returns the sum of all counts.
func (b Bundle) Total() int {
	total := 0
	for _, n := range b {
		total += n
	}
	return total
}

// IsZero reports whether every count is zero.
func (b Bundle) IsZero() bool {
	return b == Bundle{}
}

// Covers reports whether b holds at least cost of every resource.
func (b Bundle) Covers(cost Bundle) bool {
	for i, n := range cost {
		if b[i] < n {
			return false
		}
	}
	return true
}

// Plus returns b + o.
func (b Bundle) Plus(o Bundle) Bundle {
	for i := range b {
		b[i] += o[i]
	}
	return b
}

// Minus returns b - o. Counts may go negative.
func (b Bundle) Minus(o Bundle) Bundle {
	for i := range b {
		b[i] -= o[i]
	}
	return b
}

// Shortfall returns the positive amount of each resource that have lacks
// to cover b, omitting resources with no shortfall.
func (b Bundle) Shortfall(have Bundle) map[world.Resource]int {
	out := make(map[world.Resource]int)
	for _, r := range world.AllResources {
		if missing := b[r] - have[r]; missing > 0 {
			out[r] = missing
		}
	}
	return out
}

// Map returns the non-zero counts keyed by resource.
func (b Bundle) Map() map[world.Resource]int {
	out := make(map[world.Resource]int)
	for _, r := range world.AllResources {
		if b[r] != 0 {
			out[r] = b[r]
		}
	}
	return out
}

// MarshalJSON encodes the bundle as {"Wood": 1, ...}, omitting zeros.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Map())
}

// UnmarshalJSON decodes the map form written by MarshalJSON.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var m map[world.Resource]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = BundleOf(m)
	return nil
}

func (b Bundle) String() string {
	var parts []string
	for _, r := range world.AllResources {
		if b[r] != 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", r, b[r]))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Build costs.
var (
	TownCost = Bundle{world.ResourceWood: 1, world.ResourceBrick: 1, world.ResourceWheat: 1, world.ResourceWool: 1}
	CityCost = Bundle{world.ResourceWheat: 2, world.ResourceOre: 3}
	RoadCost = Bundle{world.ResourceWood: 1, world.ResourceBrick: 1}
)

// StartingResources is what every seat holds when the match begins.
var StartingResources = Bundle{world.ResourceWood: 2, world.ResourceBrick: 2, world.ResourceWheat: 1, world.ResourceWool: 1}

// CostOf returns the cost of a building type.
func CostOf(kind world.BuildingType) (Bundle, bool) {
	switch kind {
	case world.BuildingTown:
		return TownCost, true
	case world.BuildingCity:
		return CityCost, true
	case world.BuildingRoad:
		return RoadCost, true
	}
	return Bundle{}, false
}

// BuildTime returns the construction time in simulated seconds.
func BuildTime(kind world.BuildingType) float64 {
	if kind == world.BuildingCity {
		return 10
	}
	return 0
}

// CanAfford reports whether have covers the cost of kind.
func CanAfford(kind world.BuildingType, have Bundle) bool {
	cost, ok := CostOf(kind)
	return ok && have.Covers(cost)
}

// MissingResources returns the positive shortfall for kind, zeros omitted.
func MissingResources(kind world.BuildingType, have Bundle) map[world.Resource]int {
	cost, ok := CostOf(kind)
	if !ok {
		return map[world.Resource]int{}
	}
	return cost.Shortfall(have)
}
