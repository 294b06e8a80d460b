// Seat spawning: creates the players at the table with names and skills.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/settlersim/internal/world"
)

// SeatConfig describes who sits at the table.
type SeatConfig struct {
	Humans int
	AI     []SkillLevel // one entry per AI seat
}

// Spawner creates seats for a match.
type Spawner struct {
	rng    *rand.Rand
	nextID int
	used   map[string]bool
}

// NewSpawner creates a seat spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		used:   make(map[string]bool),
	}
}

// SpawnSeats creates human seats first, then AI seats, in seating order.
func (s *Spawner) SpawnSeats(cfg SeatConfig) []*Player {
	seats := make([]*Player, 0, cfg.Humans+len(cfg.AI))
	for i := 0; i < cfg.Humans; i++ {
		seats = append(seats, s.spawnOne(KindHuman, SkillIntermediate, fmt.Sprintf("Player %d", i+1)))
	}
	for _, skill := range cfg.AI {
		seats = append(seats, s.spawnOne(KindAI, skill, s.generateName()))
	}
	return seats
}

func (s *Spawner) spawnOne(kind Kind, skill SkillLevel, name string) *Player {
	id := world.PlayerID(fmt.Sprintf("p%d", s.nextID))
	s.nextID++
	return NewPlayer(id, name, kind, skill)
}

func (s *Spawner) generateName() string {
	for tries := 0; tries < 16; tries++ {
		name := firstNames[s.rng.Intn(len(firstNames))] + " " + lastNames[s.rng.Intn(len(lastNames))]
		if !s.used[name] {
			s.used[name] = true
			return name
		}
	}
	return fmt.Sprintf("Settler %d", s.nextID)
}

var firstNames = []string{
	"Aldric", "Brenna", "Cedric", "Dara", "Edric", "Fiona", "Garrick", "Helena",
	"Ivo", "Jorunn", "Kestrel", "Lena", "Magnus", "Nessa", "Osric", "Perrin",
	"Quill", "Rowena", "Soren", "Talia", "Ulric", "Vera", "Wystan", "Yara",
}

var lastNames = []string{
	"Ashford", "Brightwater", "Claymoor", "Dunmore", "Eastbrook", "Fernhill",
	"Greystone", "Hollowell", "Ironside", "Kettleby", "Longmere", "Millbrook",
	"Northcott", "Oakhurst", "Redfern", "Stonebridge", "Thornbury", "Whitlock",
}
