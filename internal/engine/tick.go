// Package engine provides the tick-based match loop and the authoritative
// services every seat plays against.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// DefaultTickRate is ticks per simulated second.
const DefaultTickRate = 10

// Engine drives the match forward in fixed simulated steps.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Dt       float64       // Simulated seconds per tick
	Interval time.Duration // Wall-clock time per tick at speed 1

	speed   atomic.Uint64 // float64 bits; 1.0 = real time, 0 = paused
	running atomic.Bool

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64, now float64) // Every tick
	OnSecond func(tick uint64, now float64) // Every simulated second
	OnMinute func(tick uint64, now float64) // Every simulated minute
}

// NewEngine creates an engine running tickRate ticks per simulated second.
func NewEngine(tickRate int) *Engine {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	e := &Engine{
		Dt:       1 / float64(tickRate),
		Interval: time.Second / time.Duration(tickRate),
	}
	e.SetSpeed(1)
	return e
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the speed multiplier. Zero pauses.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.speed.Store(math.Float64bits(s))
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Now returns simulated seconds elapsed.
func (e *Engine) Now() float64 {
	return float64(e.Tick) * e.Dt
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("match engine started", "tick", e.Tick, "speed", e.Speed(), "dt", e.Dt)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("match engine stopped", "tick", e.Tick, "time", SimTime(e.Now()))
}

// Stop halts the loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// StepN advances n ticks immediately, without pacing.
func (e *Engine) StepN(n int) {
	for i := 0; i < n; i++ {
		e.step()
	}
}

func (e *Engine) ticksPer(seconds float64) uint64 {
	n := uint64(math.Round(seconds / e.Dt))
	if n == 0 {
		return 1
	}
	return n
}

// step advances the match by one tick.
func (e *Engine) step() {
	e.Tick++
	now := e.Now()

	if e.OnTick != nil {
		e.OnTick(e.Tick, now)
	}
	if e.Tick%e.ticksPer(1) == 0 && e.OnSecond != nil {
		e.OnSecond(e.Tick, now)
	}
	if e.Tick%e.ticksPer(60) == 0 && e.OnMinute != nil {
		e.OnMinute(e.Tick, now)
	}
}

// SimTime formats simulated seconds as a match clock.
func SimTime(now float64) string {
	total := int(now)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}
