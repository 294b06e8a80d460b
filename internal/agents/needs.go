// Skill profiles: the thresholds that make a Beginner opportunistic and an
// Expert stingy.
package agents

// SkillProfile holds the trade thresholds for one skill level.
type SkillProfile struct {
	Keep      int // must still hold this many of the wanted resource after paying
	NeedLimit int // an offered resource helps only if held below this
	Surplus   int // balancing: offer a resource held above this
	Short     int // balancing: ask for a resource held below this
	Comfort   int // react to a new offer when holding more than this of its want
	PortAbove int // port balance: trade from a resource held above this
	OpenCap   int // need-driven posting stops at this many open offers
	BalCap    int // balancing posting stops at this many open offers
}

// Profile returns the thresholds for s.
func (s SkillLevel) Profile() SkillProfile {
	p := SkillProfile{
		Keep:      2,
		NeedLimit: 2,
		Surplus:   3,
		Short:     2,
		Comfort:   2,
		PortAbove: 5,
		OpenCap:   4,
		BalCap:    3,
	}
	switch s {
	case SkillBeginner:
		p.Keep = 1
		p.NeedLimit = 3
	case SkillExpert:
		p.Keep = 3
		p.NeedLimit = 1
	}
	return p
}

// Priority orders what an AI works toward when nothing forces a choice.
// Lower needs dominate: an AI without a town only thinks about its town.
func (p *Player) Priority(ownedTowns int) string {
	switch {
	case p.NeedsFirstTown:
		return "first-town"
	case ownedTowns < 3:
		return "expand"
	default:
		return "upgrade"
	}
}
