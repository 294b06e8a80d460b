package economy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/settlersim/internal/world"
)

// DefaultMaxOffersPerPlayer caps open offers per poster.
const DefaultMaxOffersPerPlayer = 3

var (
	ErrOfferLimit    = errors.New("too many open offers")
	ErrInsufficient  = errors.New("not enough resources")
	ErrSelfAccept    = errors.New("cannot accept your own offer")
	ErrNotOwner      = errors.New("not your offer")
	ErrUnknownOffer  = errors.New("offer not found")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidOffer  = errors.New("invalid offer")
)

// Offer is an escrowed trade listing. Give has already left the poster's
// inventory and is held by the market until accept or cancel.
type Offer struct {
	ID         string         `json:"id"`
	PosterID   world.PlayerID `json:"poster_id"`
	Give       Bundle         `json:"give"`
	WantType   world.Resource `json:"want_type"`
	WantAmount int            `json:"want_amount"`
	PostedAt   float64        `json:"posted_at"`
}

// Change is what happened to an offer.
type Change uint8

const (
	OfferPosted Change = iota
	OfferAccepted
	OfferCancelled
)

func (c Change) String() string {
	switch c {
	case OfferPosted:
		return "posted"
	case OfferAccepted:
		return "accepted"
	case OfferCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Accounts resolves a player's inventory.
type Accounts interface {
	Inventory(id world.PlayerID) (*Inventory, bool)
}

// Market is the shared player-to-player trade board.
type Market struct {
	accounts     Accounts
	maxPerPlayer int
	offers       []Offer

	// OnChange fires after every committed change. by is the accepter for
	// OfferAccepted and the poster otherwise.
	OnChange func(change Change, offer Offer, by world.PlayerID)
}

// NewMarket creates a market settling against accounts.
func NewMarket(accounts Accounts, maxPerPlayer int) *Market {
	if maxPerPlayer <= 0 {
		maxPerPlayer = DefaultMaxOffersPerPlayer
	}
	return &Market{accounts: accounts, maxPerPlayer: maxPerPlayer}
}

// Offers returns a copy of the open offers, oldest first.
func (m *Market) Offers() []Offer {
	return append([]Offer(nil), m.offers...)
}

// OffersBy returns the open offers posted by player.
func (m *Market) OffersBy(player world.PlayerID) []Offer {
	var out []Offer
	for _, o := range m.offers {
		if o.PosterID == player {
			out = append(out, o)
		}
	}
	return out
}

// Escrow returns the total held across all open offers.
func (m *Market) Escrow() Bundle {
	var total Bundle
	for _, o := range m.offers {
		total = total.Plus(o.Give)
	}
	return total
}

// PostOffer lists give in exchange for wantAmount of want. The given
// resources move into escrow in the same step the offer is created.
func (m *Market) PostOffer(poster world.PlayerID, give Bundle, want world.Resource, wantAmount int, now float64) (Offer, error) {
	if !want.Valid() || wantAmount <= 0 || give.Total() <= 0 {
		return Offer{}, ErrInvalidOffer
	}
	for _, n := range give {
		if n < 0 {
			return Offer{}, ErrInvalidOffer
		}
	}
	inv, ok := m.accounts.Inventory(poster)
	if !ok {
		return Offer{}, fmt.Errorf("post %s: %w", poster, ErrUnknownPlayer)
	}
	if len(m.OffersBy(poster)) >= m.maxPerPlayer {
		return Offer{}, ErrOfferLimit
	}
	if !inv.Pay(give) {
		return Offer{}, ErrInsufficient
	}

	o := Offer{
		ID:         uuid.New().String(),
		PosterID:   poster,
		Give:       give,
		WantType:   want,
		WantAmount: wantAmount,
		PostedAt:   now,
	}
	m.offers = append(m.offers, o)
	m.notify(OfferPosted, o, poster)
	return o, nil
}

// AcceptOffer settles an offer in full: the accepter pays the wanted
// resources to the poster and receives the escrow.
func (m *Market) AcceptOffer(accepter world.PlayerID, offerID string) error {
	i := m.find(offerID)
	if i < 0 {
		return ErrUnknownOffer
	}
	o := m.offers[i]
	if o.PosterID == accepter {
		return ErrSelfAccept
	}
	buyer, ok := m.accounts.Inventory(accepter)
	if !ok {
		return fmt.Errorf("accept by %s: %w", accepter, ErrUnknownPlayer)
	}
	seller, ok := m.accounts.Inventory(o.PosterID)
	if !ok {
		return fmt.Errorf("accept from %s: %w", o.PosterID, ErrUnknownPlayer)
	}
	if !buyer.Remove(o.WantType, o.WantAmount) {
		return ErrInsufficient
	}
	seller.Add(o.WantType, o.WantAmount)
	buyer.AddBundle(o.Give)
	m.remove(i)
	m.notify(OfferAccepted, o, accepter)
	return nil
}

// CancelOffer withdraws an offer and returns the escrow to its poster.
func (m *Market) CancelOffer(poster world.PlayerID, offerID string) error {
	i := m.find(offerID)
	if i < 0 {
		return ErrUnknownOffer
	}
	o := m.offers[i]
	if o.PosterID != poster {
		return ErrNotOwner
	}
	inv, ok := m.accounts.Inventory(poster)
	if !ok {
		return fmt.Errorf("cancel for %s: %w", poster, ErrUnknownPlayer)
	}
	inv.AddBundle(o.Give)
	m.remove(i)
	m.notify(OfferCancelled, o, poster)
	return nil
}

func (m *Market) find(id string) int {
	for i, o := range m.offers {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (m *Market) remove(i int) {
	m.offers = append(m.offers[:i], m.offers[i+1:]...)
}

func (m *Market) notify(c Change, o Offer, by world.PlayerID) {
	if m.OnChange != nil {
		m.OnChange(c, o, by)
	}
}
