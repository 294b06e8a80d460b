// Package rules answers "is this placement legal?" against a GameState.
// Validators are pure: no mutation, no I/O.
package rules

import (
	"github.com/talgya/settlersim/internal/world"
)

// Rejection reasons.
const (
	ReasonInvalidLocation  = "Invalid location"
	ReasonOpenSea          = "Cannot build in the open sea!"
	ReasonTooFewHexes      = "Invalid town location (must touch 2+ hexes)"
	ReasonOccupied         = "Location occupied"
	ReasonTooClose         = "Too close to existing town"
	ReasonTownNotConnected = "Town must be connected to one of your roads"
	ReasonNoTown           = "No town to upgrade"
	ReasonNotYourTown      = "You don't own this town"
	ReasonOnlyTowns        = "Can only upgrade Towns"
	ReasonRoadExists       = "Road already exists here"
	ReasonRoadNotAtSetup   = "Road must connect to your placed town"
	ReasonRoadNotConnected = "Road must be connected to one of your towns or roads"
)

// connectionFreeTownCount is how many towns a player may own before new
// towns must sit on their road network.
const connectionFreeTownCount = 2

// Config holds the distance thresholds. They scale with hex size.
type Config struct {
	HexSize float64

	// TownSpacing is the minimum world distance between any two towns.
	// Approximates "two edges apart" without walking the graph.
	TownSpacing float64

	// MinAdjacentTiles is the fewest tiles a town vertex may touch.
	MinAdjacentTiles int
}

// ConfigForHexSize derives thresholds proportional to the hex size.
func ConfigForHexSize(size float64) Config {
	return Config{
		HexSize:          size,
		TownSpacing:      size * 1.25,
		MinAdjacentTiles: 2,
	}
}

// DefaultConfig returns thresholds for the standard 40-unit hex.
func DefaultConfig() Config {
	return ConfigForHexSize(world.DefaultHexSize)
}

// Result is a validation outcome. Reason is set when Valid is false.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func accept() Result {
	return Result{Valid: true}
}

func reject(reason string) Result {
	return Result{Reason: reason}
}

// Validator checks placements with a fixed set of thresholds.
type Validator struct {
	cfg Config
}

// New returns a validator for cfg.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Config returns the thresholds in use.
func (v *Validator) Config() Config {
	return v.cfg
}

// ValidateTown checks a new town at vertexKey.
//
// The first two towns a player owns never need a road. Past that, outside
// the setup phase, the vertex must be the end of one of the player's roads.
// The last flag is accepted for callers that track setup progress; the
// owned-town count is what decides connectivity.
func (v *Validator) ValidateTown(state world.GameState, player world.PlayerID, vertexKey string, setupTurn, _ bool) Result {
	vertex, found := state.Vertex(vertexKey)
	if !found {
		return reject(ReasonInvalidLocation)
	}
	if vertex.AdjacentLandTileCount == 0 {
		return reject(ReasonOpenSea)
	}
	if vertex.AdjacentTileCount < v.cfg.MinAdjacentTiles {
		return reject(ReasonTooFewHexes)
	}
	if _, taken := state.BuildingAt(vertexKey); taken {
		return reject(ReasonOccupied)
	}

	owned := 0
	for _, b := range state.Buildings() {
		if !b.Type.OnVertex() {
			continue
		}
		if b.OwnerID == player {
			owned++
		}
		if b.Position.Dist(vertex.Position) < v.cfg.TownSpacing {
			return reject(ReasonTooClose)
		}
	}

	if owned >= connectionFreeTownCount && !setupTurn {
		if !IsConnectedToNetwork(state, player, vertexKey) {
			return reject(ReasonTownNotConnected)
		}
	}
	return accept()
}

// ValidateCity checks upgrading the town at vertexKey.
func (v *Validator) ValidateCity(state world.GameState, player world.PlayerID, vertexKey string) Result {
	b, found := state.BuildingAt(vertexKey)
	if !found {
		return reject(ReasonNoTown)
	}
	if b.OwnerID != player {
		return reject(ReasonNotYourTown)
	}
	if b.Type != world.BuildingTown {
		return reject(ReasonOnlyTowns)
	}
	return accept()
}

// ValidateRoad checks a road at edgeKey. During setup, when lastSetupTownKey
// is set, the road must touch that town instead of the general network.
func (v *Validator) ValidateRoad(state world.GameState, player world.PlayerID, edgeKey string, setupTurn bool, lastSetupTownKey string) Result {
	edge, found := state.Edge(edgeKey)
	if !found {
		return reject(ReasonInvalidLocation)
	}
	if edge.AdjacentLandTileCount == 0 {
		return reject(ReasonOpenSea)
	}
	if _, taken := state.BuildingAt(edgeKey); taken {
		return reject(ReasonRoadExists)
	}

	if setupTurn && lastSetupTownKey != "" {
		if !edge.Touches(lastSetupTownKey) {
			return reject(ReasonRoadNotAtSetup)
		}
		return accept()
	}

	if !IsEdgeConnectedToNetwork(state, player, edgeKey) {
		return reject(ReasonRoadNotConnected)
	}
	return accept()
}

// IsConnectedToNetwork reports whether the player owns the building at the
// vertex or a road ending at it.
func IsConnectedToNetwork(state world.GameState, player world.PlayerID, vertexKey string) bool {
	if b, found := state.BuildingAt(vertexKey); found && b.OwnerID == player {
		return true
	}
	for _, b := range state.Buildings() {
		if b.OwnerID != player || b.Type != world.BuildingRoad {
			continue
		}
		v1, v2, valid := world.SplitEdgeKey(b.Key)
		if valid && (v1 == vertexKey || v2 == vertexKey) {
			return true
		}
	}
	return false
}

// IsEdgeConnectedToNetwork reports whether either end of the edge holds one
// of the player's towns, or one of the player's other roads shares a vertex.
func IsEdgeConnectedToNetwork(state world.GameState, player world.PlayerID, edgeKey string) bool {
	v1, v2, valid := world.SplitEdgeKey(edgeKey)
	if !valid {
		return false
	}
	for _, end := range [2]string{v1, v2} {
		if b, found := state.BuildingAt(end); found && b.OwnerID == player && b.Type.OnVertex() {
			return true
		}
	}
	for _, b := range state.Buildings() {
		if b.OwnerID != player || b.Type != world.BuildingRoad || b.Key == edgeKey {
			continue
		}
		r1, r2, ok := world.SplitEdgeKey(b.Key)
		if !ok {
			continue
		}
		if r1 == v1 || r1 == v2 || r2 == v1 || r2 == v2 {
			return true
		}
	}
	return false
}
