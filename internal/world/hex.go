// Package world provides the hex board, its vertex/edge topology, and the
// GameState read port the rules and AI plan against.
// Uses axial coordinates (q, r) for the hex grid.
package world

import (
	"fmt"
	"math"
)

// DefaultHexSize is the hex spacing unit used by the reference board.
const DefaultHexSize = 40.0

// KeyGrid is the snapping grid for vertex keys. Corners computed from
// neighboring hexes differ by float noise; snapping merges them.
const KeyGrid = 8.0

// GroundHeight is the world Y of the land surface before elevation.
const GroundHeight = 4.0

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Key returns the tile key "q_r".
func (h HexCoord) Key() string {
	return TileKey(h.Q, h.R)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	ds := a.S() - b.S()
	if dq < 0 {
		dq = -dq
	}
	if dr < 0 {
		dr = -dr
	}
	if ds < 0 {
		ds = -ds
	}
	// Max of the three absolute differences in cube coordinates.
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// Vec3 is a world-space position. Y is up; the board lies in the XZ plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Dist returns the full 3D distance.
func (v Vec3) Dist(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// DistXZ returns the horizontal distance, ignoring height.
func (v Vec3) DistXZ(o Vec3) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// WithY returns v with its height replaced.
func (v Vec3) WithY(y float64) Vec3 {
	v.Y = y
	return v
}

// AxialToWorld returns the world-space center of a hex.
func AxialToWorld(c HexCoord, size float64) Vec3 {
	q, r := float64(c.Q), float64(c.R)
	return Vec3{
		X: size * 2 * (q + r/2),
		Z: size * math.Sqrt(3) * r,
	}
}

// WorldToAxial returns the hex containing the world point (x, z).
func WorldToAxial(x, z, size float64) HexCoord {
	r := z / (size * math.Sqrt(3))
	q := x/(size*2) - r/2
	return cubeRound(q, r)
}

func cubeRound(q, r float64) HexCoord {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}
	return HexCoord{Q: int(rq), R: int(rr)}
}

// CornerRadius is the center-to-corner distance for a hex whose
// center-to-center spacing is 2*size.
func CornerRadius(size float64) float64 {
	return size * 2 / math.Sqrt(3)
}

// Corners returns the six corner positions of a pointy-top hex.
func Corners(center Vec3, size float64) [6]Vec3 {
	var out [6]Vec3
	radius := CornerRadius(size)
	for i := 0; i < 6; i++ {
		angle := math.Pi/3*float64(i) + math.Pi/6
		out[i] = Vec3{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y,
			Z: center.Z + radius*math.Sin(angle),
		}
	}
	return out
}

// VertexKey snaps a world point to the vertex key grid.
func VertexKey(x, z float64) string {
	return fmt.Sprintf("%d_%d", int(math.Floor(x/KeyGrid+0.5)), int(math.Floor(z/KeyGrid+0.5)))
}

// EdgeKey joins two vertex keys in canonical sorted order.
func EdgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// TileKey returns the "q_r" key for a tile.
func TileKey(q, r int) string {
	return fmt.Sprintf("%d_%d", q, r)
}

// ParseTileKey reverses TileKey.
func ParseTileKey(key string) (HexCoord, bool) {
	var c HexCoord
	if _, err := fmt.Sscanf(key, "%d_%d", &c.Q, &c.R); err != nil {
		return HexCoord{}, false
	}
	return c, TileKey(c.Q, c.R) == key
}
