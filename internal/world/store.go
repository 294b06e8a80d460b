package world

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrOccupied is returned when a building key already holds a building.
var ErrOccupied = errors.New("location occupied")

// Store is the authoritative in-memory board. It implements GameState.
// Not safe for concurrent use; the match serializes access per tick.
type Store struct {
	tiles    map[HexCoord]int // index into tileList
	tileList []Tile

	vertices   map[string]int
	vertexList []Vertex

	edges    map[string]int
	edgeList []Edge

	ports map[string]Port // by vertex key

	buildings      map[string]Building
	nextBuildingID BuildingID

	resources      map[string]ResourceNode
	nextResourceID uint64
}

// NewStore returns an empty board.
func NewStore() *Store {
	return &Store{
		tiles:     make(map[HexCoord]int),
		vertices:  make(map[string]int),
		edges:     make(map[string]int),
		ports:     make(map[string]Port),
		buildings: make(map[string]Building),
		resources: make(map[string]ResourceNode),
	}
}

// RegisterTile adds or replaces a tile.
func (s *Store) RegisterTile(t Tile) {
	c := t.Coord()
	if i, ok := s.tiles[c]; ok {
		s.tileList[i] = t
		return
	}
	s.tiles[c] = len(s.tileList)
	s.tileList = append(s.tileList, t)
}

// RegisterVertex adds or replaces a vertex.
func (s *Store) RegisterVertex(v Vertex) {
	if i, ok := s.vertices[v.Key]; ok {
		s.vertexList[i] = v
		return
	}
	s.vertices[v.Key] = len(s.vertexList)
	s.vertexList = append(s.vertexList, v)
}

// RegisterEdge adds or replaces an edge.
func (s *Store) RegisterEdge(e Edge) {
	if i, ok := s.edges[e.Key]; ok {
		s.edgeList[i] = e
		return
	}
	s.edges[e.Key] = len(s.edgeList)
	s.edgeList = append(s.edgeList, e)
}

// RegisterPort attaches a port to a vertex.
func (s *Store) RegisterPort(vertexKey string, p Port) {
	s.ports[vertexKey] = p
}

// PortAt returns the port at a vertex, if any.
func (s *Store) PortAt(vertexKey string) (Port, bool) {
	p, ok := s.ports[vertexKey]
	return p, ok
}

// Ports returns a copy of the vertex to port mapping.
func (s *Store) Ports() map[string]Port {
	out := make(map[string]Port, len(s.ports))
	for k, p := range s.ports {
		out[k] = p
	}
	return out
}

// AddBuilding commits a new building. The key must be free.
func (s *Store) AddBuilding(owner PlayerID, kind BuildingType, key string, pos Vec3) (Building, error) {
	if _, ok := s.buildings[key]; ok {
		return Building{}, fmt.Errorf("%s at %s: %w", kind, key, ErrOccupied)
	}
	s.nextBuildingID++
	b := Building{ID: s.nextBuildingID, OwnerID: owner, Type: kind, Key: key, Position: pos}
	s.buildings[key] = b
	return b, nil
}

// ReplaceBuilding swaps the building at key for a new record of a new type,
// keeping the key and owner. Used for Town to City upgrades.
func (s *Store) ReplaceBuilding(key string, kind BuildingType) (Building, error) {
	old, ok := s.buildings[key]
	if !ok {
		return Building{}, fmt.Errorf("replace %s: no building", key)
	}
	s.nextBuildingID++
	b := Building{ID: s.nextBuildingID, OwnerID: old.OwnerID, Type: kind, Key: key, Position: old.Position}
	s.buildings[key] = b
	return b, nil
}

// RemoveBuilding deletes the building at key.
func (s *Store) RemoveBuilding(key string) bool {
	if _, ok := s.buildings[key]; !ok {
		return false
	}
	delete(s.buildings, key)
	return true
}

// SpawnResource places a resource node on the board.
func (s *Store) SpawnResource(kind Resource, owner PlayerID, tileKey string, pos Vec3) ResourceNode {
	s.nextResourceID++
	n := ResourceNode{
		Key:      fmt.Sprintf("res-%06d", s.nextResourceID),
		Type:     kind,
		OwnerID:  owner,
		TileKey:  tileKey,
		Position: pos,
	}
	s.resources[n.Key] = n
	return n
}

// RemoveResource deletes a resource node.
func (s *Store) RemoveResource(key string) bool {
	if _, ok := s.resources[key]; !ok {
		return false
	}
	delete(s.resources, key)
	return true
}

// ResourcePosition returns the live position of a resource node.
func (s *Store) ResourcePosition(key string) (Vec3, bool) {
	n, ok := s.resources[key]
	return n.Position, ok
}

// Resources returns every resource node on the board, ordered by key.
func (s *Store) Resources() []ResourceNode {
	out := make([]ResourceNode, 0, len(s.resources))
	for _, n := range s.resources {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NearestVertex returns the closest vertex within maxDist (XZ).
func (s *Store) NearestVertex(pos Vec3, maxDist float64) (Vertex, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, v := range s.vertexList {
		if d := v.Position.DistXZ(pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > maxDist {
		return Vertex{}, false
	}
	return s.vertexList[best], true
}

// NearestEdge returns the closest edge center within maxDist (XZ).
func (s *Store) NearestEdge(pos Vec3, maxDist float64) (Edge, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, e := range s.edgeList {
		if d := e.Center.DistXZ(pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > maxDist {
		return Edge{}, false
	}
	return s.edgeList[best], true
}

// BuildingAt implements GameState.
func (s *Store) BuildingAt(key string) (Building, bool) {
	b, ok := s.buildings[key]
	return b, ok
}

// Buildings implements GameState. Ordered by ID, oldest first.
func (s *Store) Buildings() []Building {
	out := make([]Building, 0, len(s.buildings))
	for _, b := range s.buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Vertex implements GameState.
func (s *Store) Vertex(key string) (Vertex, bool) {
	i, ok := s.vertices[key]
	if !ok {
		return Vertex{}, false
	}
	return s.vertexList[i], true
}

// Edge implements GameState.
func (s *Store) Edge(key string) (Edge, bool) {
	i, ok := s.edges[key]
	if !ok {
		return Edge{}, false
	}
	return s.edgeList[i], true
}

// Tile implements GameState.
func (s *Store) Tile(q, r int) (Tile, bool) {
	i, ok := s.tiles[HexCoord{Q: q, R: r}]
	if !ok {
		return Tile{}, false
	}
	return s.tileList[i], true
}

// Tiles implements GameState.
func (s *Store) Tiles() []Tile {
	return append([]Tile(nil), s.tileList...)
}

// Vertices implements GameState. The slice is shared; callers must not modify it.
func (s *Store) Vertices() []Vertex {
	return s.vertexList
}

// Edges implements GameState. The slice is shared; callers must not modify it.
func (s *Store) Edges() []Edge {
	return s.edgeList
}

// ResourcesOwnedBy implements GameState.
func (s *Store) ResourcesOwnedBy(owner PlayerID) []ResourceNode {
	var out []ResourceNode
	for _, n := range s.Resources() {
		if n.OwnerID == owner {
			out = append(out, n)
		}
	}
	return out
}
