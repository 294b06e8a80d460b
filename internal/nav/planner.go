// Package nav plans walkable paths across the board and moves kinematic
// bodies along them.
package nav

import (
	"container/heap"
	"errors"
	"math"

	"github.com/talgya/settlersim/internal/world"
)

// ErrNoPath is returned when no walkable route exists.
var ErrNoPath = errors.New("no path")

// Action tells the mover what to do on reaching a waypoint.
type Action uint8

const (
	ActionWalk Action = iota
	ActionJump
)

// Waypoint is one step of a planned path.
type Waypoint struct {
	Position world.Vec3
	Action   Action
}

// PathOptions configures a path query. A cost of +Inf makes a terrain tag
// impassable; tags missing from Costs cost 1.
type PathOptions struct {
	AgentRadius float64
	Costs       map[world.Terrain]float64
}

// Planner computes paths between world points.
type Planner interface {
	ComputePath(start, end world.Vec3, opts PathOptions) ([]Waypoint, error)
}

// TerrainSource classifies world points. *world.Board implements it.
type TerrainSource interface {
	TerrainAt(x, z float64) (world.Terrain, float64)
}

// GridPlanner runs A* over a square grid laid across the board.
type GridPlanner struct {
	terrain    TerrainSource
	cell       float64
	minX, minZ float64
	w, h       int

	// JumpStep is the height rise between cells that is flagged as a jump.
	JumpStep float64
	// MaxExpanded bounds the search; 0 means the whole grid.
	MaxExpanded int
}

// NewGridPlanner lays a grid of cell-sized squares over the given extent.
func NewGridPlanner(terrain TerrainSource, minX, minZ, maxX, maxZ, cell float64) *GridPlanner {
	if cell <= 0 {
		cell = 8
	}
	return &GridPlanner{
		terrain:  terrain,
		cell:     cell,
		minX:     minX,
		minZ:     minZ,
		w:        int(math.Ceil((maxX-minX)/cell)) + 1,
		h:        int(math.Ceil((maxZ-minZ)/cell)) + 1,
		JumpStep: 1,
	}
}

// ForBoard returns a planner covering the whole board with an 8-unit grid.
func ForBoard(b *world.Board) *GridPlanner {
	minX, minZ, maxX, maxZ := b.Bounds()
	const margin = 16
	return NewGridPlanner(b, minX-margin, minZ-margin, maxX+margin, maxZ+margin, 8)
}

type cellID int

func (g *GridPlanner) id(cx, cz int) cellID { return cellID(cz*g.w + cx) }
func (g *GridPlanner) xy(c cellID) (int, int) {
	return int(c) % g.w, int(c) / g.w
}

func (g *GridPlanner) center(cx, cz int) (float64, float64) {
	return g.minX + float64(cx)*g.cell, g.minZ + float64(cz)*g.cell
}

func (g *GridPlanner) cellOf(p world.Vec3) (int, int) {
	cx := int(math.Round((p.X - g.minX) / g.cell))
	cz := int(math.Round((p.Z - g.minZ) / g.cell))
	return clampInt(cx, 0, g.w-1), clampInt(cz, 0, g.h-1)
}

// query holds per-call cost lookups so each cell is classified once.
type query struct {
	g      *GridPlanner
	opts   PathOptions
	cost   map[cellID]float64
	height map[cellID]float64
}

func (q *query) tagCost(tag world.Terrain) float64 {
	if c, ok := q.opts.Costs[tag]; ok {
		return c
	}
	return 1
}

// cellCost returns the cost multiplier for entering a cell, +Inf if any
// probe within the agent radius lands on impassable terrain.
func (q *query) cellCost(c cellID) float64 {
	if v, ok := q.cost[c]; ok {
		return v
	}
	cx, cz := q.g.xy(c)
	x, z := q.g.center(cx, cz)
	tag, h := q.g.terrain.TerrainAt(x, z)
	cost := q.tagCost(tag)
	if r := q.opts.AgentRadius; r > 0 && !math.IsInf(cost, 1) {
		for i := 0; i < 8; i++ {
			a := math.Pi / 4 * float64(i)
			ptag, _ := q.g.terrain.TerrainAt(x+r*math.Cos(a), z+r*math.Sin(a))
			if math.IsInf(q.tagCost(ptag), 1) {
				cost = math.Inf(1)
				break
			}
		}
	}
	q.cost[c] = cost
	q.height[c] = h
	return cost
}

// ComputePath implements Planner.
func (g *GridPlanner) ComputePath(start, end world.Vec3, opts PathOptions) ([]Waypoint, error) {
	q := &query{g: g, opts: opts, cost: make(map[cellID]float64), height: make(map[cellID]float64)}

	sx, sz := g.cellOf(start)
	from := g.id(sx, sz)
	to, ok := q.nearestOpen(g.cellOf(end))
	if !ok {
		return nil, ErrNoPath
	}

	cells, ok := q.search(from, to)
	if !ok {
		return nil, ErrNoPath
	}

	var out []Waypoint
	prevH := start.Y
	for i, c := range cells {
		if i == 0 {
			q.cellCost(c)
			prevH = q.height[c]
			continue
		}
		cx, cz := g.xy(c)
		x, z := g.center(cx, cz)
		h := q.height[c]
		act := ActionWalk
		if h-prevH > g.JumpStep {
			act = ActionJump
		}
		prevH = h
		out = append(out, Waypoint{Position: world.Vec3{X: x, Y: h, Z: z}, Action: act})
	}
	out = simplify(out)
	out = append(out, Waypoint{Position: end, Action: ActionWalk})
	return out, nil
}

// nearestOpen returns the closest passable cell within two rings of (cx, cz).
func (q *query) nearestOpen(cx, cz int) (cellID, bool) {
	g := q.g
	if c := g.id(cx, cz); !math.IsInf(q.cellCost(c), 1) {
		return c, true
	}
	best, bestD := cellID(-1), math.Inf(1)
	for dz := -2; dz <= 2; dz++ {
		for dx := -2; dx <= 2; dx++ {
			nx, nz := cx+dx, cz+dz
			if nx < 0 || nz < 0 || nx >= g.w || nz >= g.h {
				continue
			}
			c := g.id(nx, nz)
			if math.IsInf(q.cellCost(c), 1) {
				continue
			}
			if d := math.Hypot(float64(dx), float64(dz)); d < bestD {
				best, bestD = c, d
			}
		}
	}
	return best, best >= 0
}

var neighborSteps = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

func (q *query) search(from, to cellID) ([]cellID, bool) {
	g := q.g
	tx, tz := g.xy(to)
	heuristic := func(c cellID) float64 {
		x, z := g.xy(c)
		return math.Hypot(float64(x-tx), float64(z-tz)) * g.cell
	}

	gScore := map[cellID]float64{from: 0}
	cameFrom := make(map[cellID]cellID)
	open := &openSet{}
	heap.Push(open, &node{id: from, f: heuristic(from)})
	closed := make(map[cellID]bool)
	limit := g.MaxExpanded
	if limit <= 0 {
		limit = g.w * g.h
	}

	for expanded := 0; open.Len() > 0 && expanded < limit; expanded++ {
		cur := heap.Pop(open).(*node)
		if cur.id == to {
			return rebuild(cameFrom, from, to), true
		}
		if closed[cur.id] {
			continue
		}
		closed[cur.id] = true

		cx, cz := g.xy(cur.id)
		for _, st := range neighborSteps {
			nx, nz := cx+st[0], cz+st[1]
			if nx < 0 || nz < 0 || nx >= g.w || nz >= g.h {
				continue
			}
			next := g.id(nx, nz)
			if closed[next] {
				continue
			}
			mult := q.cellCost(next)
			if math.IsInf(mult, 1) {
				continue
			}
			// No corner cutting past blocked cells.
			if st[0] != 0 && st[1] != 0 {
				if math.IsInf(q.cellCost(g.id(cx+st[0], cz)), 1) || math.IsInf(q.cellCost(g.id(cx, cz+st[1])), 1) {
					continue
				}
			}
			step := g.cell * math.Hypot(float64(st[0]), float64(st[1])) * mult
			tentative := gScore[cur.id] + step
			if old, seen := gScore[next]; seen && tentative >= old {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = cur.id
			heap.Push(open, &node{id: next, f: tentative + heuristic(next)})
		}
	}
	return nil, false
}

func rebuild(cameFrom map[cellID]cellID, from, to cellID) []cellID {
	path := []cellID{to}
	for cur := to; cur != from; {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// simplify drops walk waypoints that continue in a straight line.
func simplify(in []Waypoint) []Waypoint {
	if len(in) < 3 {
		return in
	}
	out := []Waypoint{in[0]}
	for i := 1; i < len(in)-1; i++ {
		prev, cur, next := out[len(out)-1].Position, in[i].Position, in[i+1].Position
		d1x, d1z := cur.X-prev.X, cur.Z-prev.Z
		d2x, d2z := next.X-cur.X, next.Z-cur.Z
		straight := math.Abs(d1x*d2z-d1z*d2x) < 1e-9 && d1x*d2x+d1z*d2z > 0
		if straight && in[i].Action == ActionWalk && math.Abs(cur.Y-prev.Y) < 1e-9 {
			continue
		}
		out = append(out, in[i])
	}
	return append(out, in[len(in)-1])
}

type node struct {
	id cellID
	f  float64
}

type openSet []*node

func (s openSet) Len() int           { return len(s) }
func (s openSet) Less(i, j int) bool { return s[i].f < s[j].f }
func (s openSet) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)        { *s = append(*s, x.(*node)) }
func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	*s = old[:len(old)-1]
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
