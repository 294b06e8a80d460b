package world

// GameState is the read port over the live board. Rules and AI planning
// consume only this interface.
type GameState interface {
	BuildingAt(key string) (Building, bool)
	Buildings() []Building
	Vertex(key string) (Vertex, bool)
	Edge(key string) (Edge, bool)
	Tile(q, r int) (Tile, bool)
	Tiles() []Tile
	Vertices() []Vertex
	Edges() []Edge
	ResourcesOwnedBy(owner PlayerID) []ResourceNode
}

// OwnedTowns returns the Town and City buildings owned by player.
func OwnedTowns(state GameState, player PlayerID) []Building {
	var out []Building
	for _, b := range state.Buildings() {
		if b.OwnerID == player && b.Type.OnVertex() {
			out = append(out, b)
		}
	}
	return out
}

// OwnedRoads returns the roads owned by player.
func OwnedRoads(state GameState, player PlayerID) []Building {
	var out []Building
	for _, b := range state.Buildings() {
		if b.OwnerID == player && b.Type == BuildingRoad {
			out = append(out, b)
		}
	}
	return out
}

// Score sums the victory points of everything player owns.
func Score(state GameState, player PlayerID) int {
	total := 0
	for _, b := range state.Buildings() {
		if b.OwnerID == player {
			total += b.Score()
		}
	}
	return total
}
