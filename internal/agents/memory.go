// Negative memory of rejected town spots. Bounded so long matches do not
// grow it without limit: a ring of recent rejections that also expire.
package agents

import (
	"github.com/talgya/settlersim/internal/world"
)

const (
	MaxFailedSpots = 32
	FailedSpotTTL  = 120.0 // simulated seconds
)

type failedSpot struct {
	pos world.Vec3
	at  float64
}

// SpotMemory remembers recently rejected positions.
type SpotMemory struct {
	spots []failedSpot
	next  int
	ttl   float64
}

// NewSpotMemory returns a ring holding up to capacity spots for ttl seconds.
func NewSpotMemory(capacity int, ttl float64) *SpotMemory {
	if capacity <= 0 {
		capacity = MaxFailedSpots
	}
	return &SpotMemory{spots: make([]failedSpot, 0, capacity), ttl: ttl}
}

// Add records a rejected spot. When full, overwrites the oldest entry.
func (m *SpotMemory) Add(pos world.Vec3, now float64) {
	s := failedSpot{pos: pos, at: now}
	if len(m.spots) < cap(m.spots) {
		m.spots = append(m.spots, s)
		return
	}
	m.spots[m.next] = s
	m.next = (m.next + 1) % len(m.spots)
}

// Near reports whether pos lies within radius (XZ) of a live entry.
func (m *SpotMemory) Near(pos world.Vec3, radius, now float64) bool {
	for _, s := range m.spots {
		if m.ttl > 0 && now-s.at > m.ttl {
			continue
		}
		if s.pos.DistXZ(pos) < radius {
			return true
		}
	}
	return false
}

// Len returns how many entries are held, expired or not.
func (m *SpotMemory) Len() int {
	return len(m.spots)
}
