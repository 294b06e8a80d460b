// Package agents defines seats at the table and the autonomous players
// that plan, trade, walk, and build on their own.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/world"
)

// Kind distinguishes who drives a seat. Planning code never branches on it;
// only delivery of events and turn handling do.
type Kind uint8

const (
	KindHuman Kind = iota
	KindAI
)

func (k Kind) String() string {
	if k == KindAI {
		return "ai"
	}
	return "human"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "ai":
		*k = KindAI
	case "human":
		*k = KindHuman
	default:
		return fmt.Errorf("unknown seat kind %q", b)
	}
	return nil
}

// SkillLevel tunes how greedy and how picky an AI is.
type SkillLevel uint8

const (
	SkillBeginner SkillLevel = iota
	SkillIntermediate
	SkillExpert
)

var skillNames = [...]string{"Beginner", "Intermediate", "Expert"}

func (s SkillLevel) String() string {
	if int(s) < len(skillNames) {
		return skillNames[s]
	}
	return "Intermediate"
}

func (s SkillLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SkillLevel) UnmarshalText(b []byte) error {
	for i, n := range skillNames {
		if strings.EqualFold(n, string(b)) {
			*s = SkillLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown skill level %q", b)
}

// Player is one seat: identity, ledger, ports, and setup progress.
type Player struct {
	ID        world.PlayerID     `json:"id"`
	Name      string             `json:"name"`
	Kind      Kind               `json:"kind"`
	Skill     SkillLevel         `json:"skill"`
	Inventory *economy.Inventory `json:"-"`
	Ports     *economy.PortDesk  `json:"-"`

	// NeedsFirstTown is set until the player's first town is committed.
	NeedsFirstTown bool `json:"needs_first_town"`
}

// NewPlayer creates a seat holding the starting resources.
func NewPlayer(id world.PlayerID, name string, kind Kind, skill SkillLevel) *Player {
	inv := economy.NewInventory(economy.StartingResources)
	return &Player{
		ID:             id,
		Name:           name,
		Kind:           kind,
		Skill:          skill,
		Inventory:      inv,
		Ports:          economy.NewPortDesk(inv),
		NeedsFirstTown: true,
	}
}

// Resources returns the player's current holdings.
func (p *Player) Resources() economy.Bundle {
	return p.Inventory.Resources()
}

// TaskKind enumerates what a queued intent asks for.
type TaskKind uint8

const (
	TaskBuild TaskKind = iota
	TaskCollect
)

func (k TaskKind) String() string {
	if k == TaskCollect {
		return "COLLECT"
	}
	return "BUILD"
}

// Task is one step of an AI plan.
type Task struct {
	Kind     TaskKind
	Building world.BuildingType // TaskBuild
	Position world.Vec3

	ResourceKey string // TaskCollect
	Resource    world.Resource
}

// Target is a building goal chosen by the strategist.
type Target struct {
	Type     world.BuildingType
	Position world.Vec3
}

// Mover is the body an AI steers.
type Mover interface {
	Position() world.Vec3
	MoveTo(p world.Vec3)
	Jump()
	SetWalkSpeed(s float64)
}

// BuildRequest asks the building service to start a structure.
type BuildRequest struct {
	Type     world.BuildingType
	Position world.Vec3
	Free     bool

	// Setup placements skip the road requirement for towns; setup roads
	// must touch SetupTownKey.
	Setup        bool
	SetupTownKey string
}

// BuildResult is the building service's answer. Reason is set on failure.
type BuildResult struct {
	OK         bool
	BuildingID world.BuildingID
	Key        string
	Reason     string
}

// BuildingService is the authoritative construction service.
type BuildingService interface {
	StartBuilding(p *Player, req BuildRequest) BuildResult
}

// Market is the shared trade board.
type Market interface {
	Offers() []economy.Offer
	PostOffer(poster world.PlayerID, give economy.Bundle, want world.Resource, wantAmount int, now float64) (economy.Offer, error)
	AcceptOffer(accepter world.PlayerID, offerID string) error
	CancelOffer(poster world.PlayerID, offerID string) error
}

// PortTrader executes bank trades for one player. *economy.PortDesk is the
// live implementation.
type PortTrader interface {
	ExecuteTrade(give, want world.Resource) error
	BestTradeRatio(give world.Resource) int
}

var _ PortTrader = (*economy.PortDesk)(nil)

// ResourceLocator reports where a resource node currently lies.
type ResourceLocator interface {
	ResourcePosition(key string) (world.Vec3, bool)
}
