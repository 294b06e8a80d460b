package agents

import (
	"log/slog"
	"sort"

	"github.com/talgya/settlersim/internal/economy"
	"github.com/talgya/settlersim/internal/world"
)

// DefaultOfferTTL is how long an AI leaves its own offer up before
// withdrawing it, in simulated seconds.
const DefaultOfferTTL = 90.0

// Economist decides trades for one AI. Every Try method makes at most one
// trade and reports whether it did.
type Economist struct {
	id       world.PlayerID
	profile  SkillProfile
	log      *slog.Logger
	OfferTTL float64
}

// NewEconomist creates the trade policy for player id.
func NewEconomist(id world.PlayerID, skill SkillLevel, log *slog.Logger) *Economist {
	if log == nil {
		log = slog.Default()
	}
	return &Economist{id: id, profile: skill.Profile(), log: log, OfferTTL: DefaultOfferTTL}
}

// CanAfford reports whether have covers kind.
func (e *Economist) CanAfford(kind world.BuildingType, have economy.Bundle) bool {
	return economy.CanAfford(kind, have)
}

// ResourceNeeds returns the positive shortfall for kind.
func (e *Economist) ResourceNeeds(kind world.BuildingType, have economy.Bundle) map[world.Resource]int {
	return economy.MissingResources(kind, have)
}

// TryPortBalance trades one surplus resource for one the player has none
// of, at the best port rate.
func (e *Economist) TryPortBalance(p *Player) bool {
	return e.balanceAt(p.Resources(), p.Ports)
}

func (e *Economist) balanceAt(res economy.Bundle, ports PortTrader) bool {
	for _, give := range world.AllResources {
		if res[give] <= e.profile.PortAbove {
			continue
		}
		for _, want := range world.AllResources {
			if res[want] >= 1 {
				continue
			}
			if err := ports.ExecuteTrade(give, want); err != nil {
				e.log.Debug("port balance failed", "give", give, "want", want, "error", err)
				return false
			}
			e.log.Info("port balance", "give", give, "want", want)
			return true
		}
	}
	return false
}

type surplus struct {
	res world.Resource
	amt int
}

// TryTradeForNeeds works toward the next missing resource for target. A
// 1:1 market offer is preferred; a port trade from the largest surplus is
// the fallback.
func (e *Economist) TryTradeForNeeds(p *Player, target world.BuildingType, market Market, now float64) bool {
	cost, ok := economy.CostOf(target)
	if !ok {
		return false
	}
	res := p.Resources()
	needs := e.ResourceNeeds(target, res)
	var need world.Resource
	found := false
	for _, r := range world.AllResources {
		if needs[r] > 0 {
			need, found = r, true
			break
		}
	}
	if !found {
		return false
	}

	var spare []surplus
	for _, r := range world.AllResources {
		if res[r] > cost[r] {
			spare = append(spare, surplus{r, res[r] - cost[r]})
		}
	}
	if len(spare) == 0 {
		return false
	}
	sort.SliceStable(spare, func(i, j int) bool { return spare[i].amt > spare[j].amt })

	mine := e.ownOffers(market)
	if len(mine) < e.profile.OpenCap && !seeking(mine, need) {
		for _, s := range spare {
			give := economy.Bundle{}
			give[s.res] = 1
			if _, err := market.PostOffer(e.id, give, need, 1, now); err != nil {
				e.log.Debug("market post failed", "give", s.res, "want", need, "error", err)
				continue
			}
			e.log.Info("posted market trade", "give", s.res, "want", need)
			return true
		}
	}

	return e.portForNeed(spare, need, p.Ports)
}

// portForNeed spends the first surplus that covers its port ratio on need.
func (e *Economist) portForNeed(spare []surplus, need world.Resource, ports PortTrader) bool {
	for _, s := range spare {
		if s.amt < ports.BestTradeRatio(s.res) {
			continue
		}
		if err := ports.ExecuteTrade(s.res, need); err != nil {
			continue
		}
		e.log.Info("port trade for need", "give", s.res, "want", need)
		return true
	}
	return false
}

// TryMarketTrade accepts the first useful offer from someone else, or
// failing that posts a 1:1 offer to balance holdings.
func (e *Economist) TryMarketTrade(p *Player, market Market, now float64) bool {
	offers := market.Offers()
	res := p.Resources()

	for _, o := range offers {
		if o.PosterID == e.id || o.Give.Total() < 1 {
			continue
		}
		if res[o.WantType]-o.WantAmount < e.profile.Keep {
			continue
		}
		if !e.helps(o.Give, res) {
			continue
		}
		if err := market.AcceptOffer(e.id, o.ID); err != nil {
			e.log.Debug("accept failed", "offer", o.ID, "error", err)
			continue
		}
		e.log.Info("accepted market trade", "offer", o.ID, "paid", o.WantAmount, "type", o.WantType)
		return true
	}

	if len(ownOf(offers, e.id)) >= e.profile.BalCap {
		return false
	}
	for _, give := range world.AllResources {
		if res[give] <= e.profile.Surplus {
			continue
		}
		for _, want := range world.AllResources {
			if want == give || res[want] >= e.profile.Short {
				continue
			}
			b := economy.Bundle{}
			b[give] = 1
			if _, err := market.PostOffer(e.id, b, want, 1, now); err != nil {
				continue
			}
			e.log.Info("posted balancing trade", "give", give, "want", want)
			return true
		}
	}
	return false
}

// EvaluateMarketOffer reacts to a freshly posted offer by rescanning the
// market when the agent is comfortable in what the offer wants.
func (e *Economist) EvaluateMarketOffer(o economy.Offer, p *Player, market Market, now float64) bool {
	if o.PosterID == e.id {
		return false
	}
	if p.Inventory.Get(o.WantType) <= e.profile.Comfort {
		return false
	}
	return e.TryMarketTrade(p, market, now)
}

// CancelStaleOffers withdraws own offers older than OfferTTL, returning
// their escrow. Returns how many were cancelled.
func (e *Economist) CancelStaleOffers(market Market, now float64) int {
	if e.OfferTTL <= 0 {
		return 0
	}
	n := 0
	for _, o := range e.ownOffers(market) {
		if now-o.PostedAt < e.OfferTTL {
			continue
		}
		if err := market.CancelOffer(e.id, o.ID); err == nil {
			n++
		}
	}
	if n > 0 {
		e.log.Debug("withdrew stale offers", "count", n)
	}
	return n
}

func (e *Economist) helps(give, have economy.Bundle) bool {
	for _, r := range world.AllResources {
		if give[r] > 0 && have[r] < e.profile.NeedLimit {
			return true
		}
	}
	return false
}

func (e *Economist) ownOffers(market Market) []economy.Offer {
	return ownOf(market.Offers(), e.id)
}

func ownOf(offers []economy.Offer, id world.PlayerID) []economy.Offer {
	var out []economy.Offer
	for _, o := range offers {
		if o.PosterID == id {
			out = append(out, o)
		}
	}
	return out
}

func seeking(offers []economy.Offer, r world.Resource) bool {
	for _, o := range offers {
		if o.WantType == r {
			return true
		}
	}
	return false
}
