// Board generation: land/sea layout, terrain and dice shuffles, vertex and
// edge derivation, port placement. Elevation and mud use layered simplex noise.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds board generation parameters.
type GenConfig struct {
	LandRadius   int     // Hex radius of the island (2 = 19 land tiles)
	SeaRings     int     // Rings of sea around the island
	HexSize      float64 // Spacing unit; hex centers are 2*HexSize apart
	Seed         int64   // Random seed (0 = random)
	PortCount    int     // Maximum ports placed on coastal edges
	MudThreshold float64 // Mud noise level (0.0–1.0) above which ground is mud
	MaxElevation float64 // Peak tile elevation above GroundHeight
}

// DefaultGenConfig returns the standard four-player board.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		LandRadius:   2,
		SeaRings:     1,
		HexSize:      DefaultHexSize,
		Seed:         0,
		PortCount:    9,
		MudThreshold: 0.72,
		MaxElevation: 2,
	}
}

// SmallTestConfig returns a seven-tile island for fast tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		LandRadius:   1,
		SeaRings:     1,
		HexSize:      DefaultHexSize,
		Seed:         42,
		PortCount:    3,
		MudThreshold: 0.8,
		MaxElevation: 1,
	}
}

// terrainBag is one full set of land terrain for a radius-2 island.
var terrainBag = []TileType{
	TileForest, TileForest, TileForest, TileForest,
	TileFields, TileFields, TileFields, TileFields,
	TilePasture, TilePasture, TilePasture, TilePasture,
	TileHills, TileHills, TileHills,
	TileMountains, TileMountains, TileMountains,
	TileDesert,
}

// diceBag is one full set of production numbers. 7 is never assigned.
var diceBag = []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 8, 8, 9, 9, 10, 10, 11, 11, 12}

// Board is a generated store plus the noise fields used for navigation.
type Board struct {
	*Store
	Config GenConfig

	elevNoise opensimplex.Noise
	mudNoise  opensimplex.Noise
}

type vertexAcc struct {
	pos   Vec3
	tiles map[HexCoord]bool
	land  int
}

type edgeAcc struct {
	v1, v2 string
	tiles  map[HexCoord]bool
	land   int
}

// Generate builds a complete board: tiles, vertices, edges and ports.
func Generate(cfg GenConfig) *Board {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	b := &Board{
		Store:     NewStore(),
		Config:    cfg,
		elevNoise: opensimplex.NewNormalized(seed),
		mudNoise:  opensimplex.NewNormalized(seed + 1),
	}

	origin := HexCoord{}
	outer := cfg.LandRadius + cfg.SeaRings

	var land, all []HexCoord
	for q := -outer; q <= outer; q++ {
		for r := -outer; r <= outer; r++ {
			c := HexCoord{Q: q, R: r}
			d := Distance(origin, c)
			if d > outer {
				continue
			}
			all = append(all, c)
			if d <= cfg.LandRadius {
				land = append(land, c)
			}
		}
	}

	types := fillBag(terrainBag, len(land))
	rng.Shuffle(len(types), func(i, j int) { types[i], types[j] = types[j], types[i] })

	producing := 0
	for _, t := range types {
		if t != TileDesert {
			producing++
		}
	}
	dice := fillBag(diceBag, producing)
	rng.Shuffle(len(dice), func(i, j int) { dice[i], dice[j] = dice[j], dice[i] })

	landType := make(map[HexCoord]TileType, len(land))
	for i, c := range land {
		landType[c] = types[i]
	}

	vertices := make(map[string]*vertexAcc)
	var vertexOrder []string
	edges := make(map[string]*edgeAcc)
	var edgeOrder []string

	di := 0
	for _, c := range all {
		t := Tile{Q: c.Q, R: c.R, Type: TileSea}
		if lt, ok := landType[c]; ok {
			t.Type = lt
			if lt != TileDesert {
				t.DiceNumber = dice[di]
				di++
			}
		}
		t.Position = AxialToWorld(c, cfg.HexSize)
		t.Position.Y = GroundHeight
		if t.Type.IsLand() {
			t.Position.Y += b.elevation(t.Position.X, t.Position.Z)
		}
		b.RegisterTile(t)

		corners := Corners(t.Position.WithY(GroundHeight+0.5), cfg.HexSize)
		var keys [6]string
		for i, p := range corners {
			k := VertexKey(p.X, p.Z)
			keys[i] = k
			acc, ok := vertices[k]
			if !ok {
				acc = &vertexAcc{pos: p, tiles: make(map[HexCoord]bool)}
				vertices[k] = acc
				vertexOrder = append(vertexOrder, k)
			}
			if !acc.tiles[c] {
				acc.tiles[c] = true
				if t.Type.IsLand() {
					acc.land++
				}
			}
		}
		for i := 0; i < 6; i++ {
			a, z := keys[i], keys[(i+1)%6]
			k := EdgeKey(a, z)
			acc, ok := edges[k]
			if !ok {
				v1, v2, _ := SplitEdgeKey(k)
				acc = &edgeAcc{v1: v1, v2: v2, tiles: make(map[HexCoord]bool)}
				edges[k] = acc
				edgeOrder = append(edgeOrder, k)
			}
			if !acc.tiles[c] {
				acc.tiles[c] = true
				if t.Type.IsLand() {
					acc.land++
				}
			}
		}
	}

	for _, k := range vertexOrder {
		acc := vertices[k]
		adj := make([]HexCoord, 0, len(acc.tiles))
		for c := range acc.tiles {
			adj = append(adj, c)
		}
		sort.Slice(adj, func(i, j int) bool {
			if adj[i].Q != adj[j].Q {
				return adj[i].Q < adj[j].Q
			}
			return adj[i].R < adj[j].R
		})
		b.RegisterVertex(Vertex{
			Key:                   k,
			Position:              acc.pos,
			AdjacentLandTileCount: acc.land,
			AdjacentTileCount:     len(acc.tiles),
			AdjacentTiles:         adj,
		})
	}

	for _, k := range edgeOrder {
		acc := edges[k]
		p1 := vertices[acc.v1].pos
		p2 := vertices[acc.v2].pos
		b.RegisterEdge(Edge{
			Key:                   k,
			Vertex1:               acc.v1,
			Vertex2:               acc.v2,
			AdjacentLandTileCount: acc.land,
			AdjacentTileCount:     len(acc.tiles),
			Center:                Vec3{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2, Z: (p1.Z + p2.Z) / 2},
		})
	}

	b.placePorts(rng)
	return b
}

// placePorts puts ports on coastal edges, never two sharing a vertex.
func (b *Board) placePorts(rng *rand.Rand) {
	var coastal []Edge
	for _, e := range b.Edges() {
		if e.AdjacentLandTileCount == 1 && e.AdjacentTileCount == 2 {
			coastal = append(coastal, e)
		}
	}
	rng.Shuffle(len(coastal), func(i, j int) { coastal[i], coastal[j] = coastal[j], coastal[i] })

	kinds := []Port{{Generic: true}, {Generic: true}, {Generic: true}, {Generic: true}}
	for _, r := range AllResources {
		kinds = append(kinds, Port{Resource: r})
	}
	rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })

	used := make(map[string]bool)
	placed := 0
	for _, e := range coastal {
		if placed >= b.Config.PortCount || placed >= len(kinds) {
			break
		}
		if used[e.Vertex1] || used[e.Vertex2] {
			continue
		}
		used[e.Vertex1], used[e.Vertex2] = true, true
		b.RegisterPort(e.Vertex1, kinds[placed])
		b.RegisterPort(e.Vertex2, kinds[placed])
		placed++
	}
}

// TerrainAt classifies a world point for navigation. A point counts as land
// when it lies within a corner radius of any land tile center, so coastal
// vertices stay reachable.
func (b *Board) TerrainAt(x, z float64) (Terrain, float64) {
	size := b.Config.HexSize
	reach := CornerRadius(size) + 2
	c := WorldToAxial(x, z, size)
	p := Vec3{X: x, Z: z}

	best, bestDist := Tile{}, math.Inf(1)
	found := false
	nb := c.Neighbors()
	candidates := append([]HexCoord{c}, nb[:]...)
	for _, n := range candidates {
		t, ok := b.Tile(n.Q, n.R)
		if !ok || !t.Type.IsLand() {
			continue
		}
		if d := t.Position.DistXZ(p); d <= reach && d < bestDist {
			best, bestDist, found = t, d, true
		}
	}
	if !found {
		return TerrainWater, GroundHeight
	}
	if octaveNoise(b.mudNoise, x, z, 2, 1.0/60, 0.5) > b.Config.MudThreshold {
		return TerrainMud, best.Position.Y
	}
	return TerrainGround, best.Position.Y
}

// Bounds returns the XZ extent of the board.
func (b *Board) Bounds() (minX, minZ, maxX, maxZ float64) {
	minX, minZ = math.Inf(1), math.Inf(1)
	maxX, maxZ = math.Inf(-1), math.Inf(-1)
	for _, v := range b.Vertices() {
		minX = math.Min(minX, v.Position.X)
		minZ = math.Min(minZ, v.Position.Z)
		maxX = math.Max(maxX, v.Position.X)
		maxZ = math.Max(maxZ, v.Position.Z)
	}
	return minX, minZ, maxX, maxZ
}

func (b *Board) elevation(x, z float64) float64 {
	return octaveNoise(b.elevNoise, x, z, 3, 1.0/200, 0.5) * b.Config.MaxElevation
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// fillBag repeats bag until n items are produced.
func fillBag[T any](bag []T, n int) []T {
	out := make([]T, 0, n)
	for len(out) < n {
		need := n - len(out)
		if need > len(bag) {
			need = len(bag)
		}
		out = append(out, bag[:need]...)
	}
	return out
}

// TileCounts returns a summary of tile type distribution.
func TileCounts(s GameState) map[TileType]int {
	counts := make(map[TileType]int)
	for _, t := range s.Tiles() {
		counts[t.Type]++
	}
	return counts
}
