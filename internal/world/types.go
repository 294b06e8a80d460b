package world

import (
	"fmt"
	"strings"
)

// PlayerID identifies a seat at the table, human or AI.
type PlayerID string

// Resource enumerates the five tradeable resources.
type Resource uint8

const (
	ResourceWood Resource = iota
	ResourceBrick
	ResourceWheat
	ResourceOre
	ResourceWool
)

// NumResources is the number of resource types.
const NumResources = 5

var resourceNames = [NumResources]string{"Wood", "Brick", "Wheat", "Ore", "Wool"}

// AllResources lists resources in canonical order.
var AllResources = [NumResources]Resource{ResourceWood, ResourceBrick, ResourceWheat, ResourceOre, ResourceWool}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("Resource(%d)", r)
}

// Valid reports whether r is one of the five resources.
func (r Resource) Valid() bool {
	return r < NumResources
}

func (r Resource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resource) UnmarshalText(b []byte) error {
	res, ok := ParseResource(string(b))
	if !ok {
		return fmt.Errorf("unknown resource %q", b)
	}
	*r = res
	return nil
}

// ParseResource resolves a resource by name, case-insensitively.
func ParseResource(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if strings.EqualFold(n, name) {
			return Resource(i), true
		}
	}
	return 0, false
}

// TileType is the terrain of a hex tile.
type TileType uint8

const (
	TileSea TileType = iota
	TileDesert
	TileForest
	TileFields
	TilePasture
	TileHills
	TileMountains
)

var tileNames = [...]string{"Sea", "Desert", "Forest", "Fields", "Pasture", "Hills", "Mountains"}

func (t TileType) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("TileType(%d)", t)
}

func (t TileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TileType) UnmarshalText(b []byte) error {
	i, ok := lookupName(tileNames[:], string(b))
	if !ok {
		return fmt.Errorf("unknown tile type %q", b)
	}
	*t = TileType(i)
	return nil
}

// Resource returns what the tile produces. Desert and Sea produce nothing.
func (t TileType) Resource() (Resource, bool) {
	switch t {
	case TileForest:
		return ResourceWood, true
	case TileFields:
		return ResourceWheat, true
	case TilePasture:
		return ResourceWool, true
	case TileHills:
		return ResourceBrick, true
	case TileMountains:
		return ResourceOre, true
	}
	return 0, false
}

// IsLand reports whether the tile is buildable ground.
func (t TileType) IsLand() bool {
	return t != TileSea
}

// BuildingType is a placeable structure.
type BuildingType uint8

const (
	BuildingTown BuildingType = iota
	BuildingCity
	BuildingRoad
)

var buildingNames = [...]string{"Town", "City", "Road"}

func (b BuildingType) String() string {
	if int(b) < len(buildingNames) {
		return buildingNames[b]
	}
	return fmt.Sprintf("BuildingType(%d)", b)
}

func (b BuildingType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BuildingType) UnmarshalText(text []byte) error {
	i, ok := lookupName(buildingNames[:], string(text))
	if !ok {
		return fmt.Errorf("unknown building type %q", text)
	}
	*b = BuildingType(i)
	return nil
}

func lookupName(names []string, name string) (int, bool) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

// OnVertex reports whether the building occupies a vertex (Town, City).
func (b BuildingType) OnVertex() bool {
	return b == BuildingTown || b == BuildingCity
}

// Tile is one hex cell.
type Tile struct {
	Q          int      `json:"q"`
	R          int      `json:"r"`
	Type       TileType `json:"type"`
	DiceNumber int      `json:"dice_number,omitempty"` // 0 = none
	Position   Vec3     `json:"position"`
}

// Coord returns the tile's axial coordinate.
func (t Tile) Coord() HexCoord {
	return HexCoord{Q: t.Q, R: t.R}
}

// Key returns the tile key.
func (t Tile) Key() string {
	return TileKey(t.Q, t.R)
}

// Resource returns what the tile produces.
func (t Tile) Resource() (Resource, bool) {
	return t.Type.Resource()
}

// Vertex is an intersection point where towns and cities stand.
type Vertex struct {
	Key                   string     `json:"key"`
	Position              Vec3       `json:"position"`
	AdjacentLandTileCount int        `json:"adjacent_land_tile_count"`
	AdjacentTileCount     int        `json:"adjacent_tile_count"`
	AdjacentTiles         []HexCoord `json:"adjacent_tiles"`
}

// Edge connects two vertices. Roads occupy edges.
type Edge struct {
	Key                   string `json:"key"`
	Vertex1               string `json:"vertex1"`
	Vertex2               string `json:"vertex2"`
	AdjacentLandTileCount int    `json:"adjacent_land_tile_count"`
	AdjacentTileCount     int    `json:"adjacent_tile_count"`
	Center                Vec3   `json:"center"`
}

// Touches reports whether the edge ends at the given vertex.
func (e Edge) Touches(vertexKey string) bool {
	return e.Vertex1 == vertexKey || e.Vertex2 == vertexKey
}

// SplitEdgeKey decomposes an edge key into its two vertex keys.
func SplitEdgeKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, ":")
	if !ok || a == "" || b == "" || strings.Contains(b, ":") {
		return "", "", false
	}
	return a, b, true
}

// BuildingID is a monotonic building identifier. Larger is newer.
type BuildingID uint64

// Building is a committed structure.
type Building struct {
	ID       BuildingID   `json:"id"`
	OwnerID  PlayerID     `json:"owner_id"`
	Type     BuildingType `json:"type"`
	Key      string       `json:"key"`
	Position Vec3         `json:"position"`
}

// Score returns the victory points the building is worth.
func (b Building) Score() int {
	switch b.Type {
	case BuildingTown:
		return 1
	case BuildingCity:
		return 2
	}
	return 0
}

// ResourceNode is a produced resource lying on the board waiting to be
// picked up by its owner.
type ResourceNode struct {
	Key      string   `json:"key"`
	Type     Resource `json:"type"`
	OwnerID  PlayerID `json:"owner_id"`
	TileKey  string   `json:"tile_key"`
	Position Vec3     `json:"position"`
}

// Port grants a better bank trade ratio to whoever builds on its vertices.
type Port struct {
	Generic  bool     `json:"generic"`
	Resource Resource `json:"resource"` // meaningful when !Generic
}

// Ratio returns the trade ratio the port grants.
func (p Port) Ratio() int {
	if p.Generic {
		return 3
	}
	return 2
}

func (p Port) String() string {
	if p.Generic {
		return "3:1"
	}
	return "2:1 " + p.Resource.String()
}

// Terrain is a navigation tag consumed by path-planning cost tables.
type Terrain string

const (
	TerrainGround Terrain = "Ground"
	TerrainMud    Terrain = "Mud"
	TerrainWater  Terrain = "Water"
)
