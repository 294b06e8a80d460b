package nav

import (
	"math"

	"github.com/talgya/settlersim/internal/world"
)

const (
	jumpDuration = 0.5
	jumpHeight   = 1.5
	mudFactor    = 0.5
)

// Body is a kinematic walker. It heads for its goal in the XZ plane at its
// walk speed, slows in mud, and never steps onto water.
type Body struct {
	terrain TerrainSource

	pos       world.Vec3
	goal      world.Vec3
	hasGoal   bool
	walkSpeed float64
	airborne  float64
	jumps     int
	blocked   bool
}

// NewBody places a body at pos.
func NewBody(terrain TerrainSource, pos world.Vec3, walkSpeed float64) *Body {
	return &Body{terrain: terrain, pos: pos, walkSpeed: walkSpeed}
}

// Position returns the current position.
func (b *Body) Position() world.Vec3 { return b.pos }

// MoveTo sets the walk goal.
func (b *Body) MoveTo(p world.Vec3) {
	b.goal = p
	b.hasGoal = true
}

// Jump starts a short hop. Airborne bodies ignore mud.
func (b *Body) Jump() {
	if b.airborne <= 0 {
		b.airborne = jumpDuration
		b.jumps++
	}
}

// SetWalkSpeed sets the speed in world units per second.
func (b *Body) SetWalkSpeed(s float64) { b.walkSpeed = s }

// WalkSpeed returns the current walk speed.
func (b *Body) WalkSpeed() float64 { return b.walkSpeed }

// Jumps returns how many jumps the body has started.
func (b *Body) Jumps() int { return b.jumps }

// Blocked reports whether the last step was refused by water.
func (b *Body) Blocked() bool { return b.blocked }

// Step advances the body by dt seconds.
func (b *Body) Step(dt float64) {
	b.blocked = false
	if b.airborne > 0 {
		b.airborne -= dt
	}
	if !b.hasGoal {
		return
	}

	dx, dz := b.goal.X-b.pos.X, b.goal.Z-b.pos.Z
	dist := math.Hypot(dx, dz)
	if dist < 1e-6 {
		b.settle()
		return
	}

	speed := b.walkSpeed
	if tag, _ := b.terrain.TerrainAt(b.pos.X, b.pos.Z); tag == world.TerrainMud && b.airborne <= 0 {
		speed *= mudFactor
	}
	step := math.Min(dist, speed*dt)
	nx, nz := b.pos.X+dx/dist*step, b.pos.Z+dz/dist*step

	tag, _ := b.terrain.TerrainAt(nx, nz)
	if tag == world.TerrainWater {
		b.blocked = true
		return
	}
	b.pos.X, b.pos.Z = nx, nz
	b.settle()
}

// settle puts the body on the ground, or above it while airborne.
func (b *Body) settle() {
	_, h := b.terrain.TerrainAt(b.pos.X, b.pos.Z)
	b.pos.Y = h
	if b.airborne > 0 {
		b.pos.Y += jumpHeight
	}
}
