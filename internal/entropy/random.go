// Package entropy provides the random sources the simulation draws from.
// Every stochastic decision takes an injected Source so matches and tests
// replay exactly from a seed. Falls back to crypto/rand for seeding.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"math"
	mrand "math/rand"
	"time"
)

// Source is the subset of *math/rand.Rand the simulation uses.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a deterministic source for seed.
func New(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// Derive returns an independent deterministic source for a sub-stream,
// so adding consumers does not shift other streams.
func Derive(seed int64, stream uint64) *mrand.Rand {
	return New(seed ^ int64(splitmix(stream)))
}

// Seed returns a random seed from crypto/rand, falling back to the clock.
func Seed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto/rand failed, seeding from clock", "error", err)
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) & math.MaxInt64)
}

// Between returns a uniform integer in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Spread returns a uniform float in [-r, r).
func Spread(src Source, r float64) float64 {
	return (src.Float64()*2 - 1) * r
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
