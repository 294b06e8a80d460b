package engine

import (
	"sort"

	"github.com/talgya/settlersim/internal/world"
)

// TileOwnership records which player a producing tile pays out to. The
// first town touching a tile claims it; later towns of other players do not
// take it over.
type TileOwnership struct {
	owners map[string]world.PlayerID
}

// NewTileOwnership creates an empty ownership table.
func NewTileOwnership() *TileOwnership {
	return &TileOwnership{owners: make(map[string]world.PlayerID)}
}

// Claim gives owner every unclaimed land tile around vertexKey and returns
// the newly claimed tile keys.
func (o *TileOwnership) Claim(state world.GameState, owner world.PlayerID, vertexKey string) []string {
	v, ok := state.Vertex(vertexKey)
	if !ok {
		return nil
	}
	var claimed []string
	for _, c := range v.AdjacentTiles {
		t, ok := state.Tile(c.Q, c.R)
		if !ok || !t.Type.IsLand() {
			continue
		}
		key := t.Key()
		if _, taken := o.owners[key]; taken {
			continue
		}
		o.owners[key] = owner
		claimed = append(claimed, key)
	}
	return claimed
}

// Owner returns who a tile pays out to.
func (o *TileOwnership) Owner(tileKey string) (world.PlayerID, bool) {
	id, ok := o.owners[tileKey]
	return id, ok
}

// OwnedBy lists the tiles owner holds, sorted.
func (o *TileOwnership) OwnedBy(owner world.PlayerID) []string {
	var out []string
	for k, id := range o.owners {
		if id == owner {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Clear forgets every claim.
func (o *TileOwnership) Clear() {
	clear(o.owners)
}
