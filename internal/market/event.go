package market

import "time"

// EventKind tags a broadcast event.
type EventKind string

const (
	EventInitialData      EventKind = "INITIAL_DATA"
	EventMarketUpdate     EventKind = "MARKET_UPDATE"
	EventBondUpdate       EventKind = "BOND_UPDATE"
	EventPortfolioCreated EventKind = "PORTFOLIO_CREATED"
	EventPortfolioUpdated EventKind = "PORTFOLIO_UPDATED"
	EventPortfolioDeleted EventKind = "PORTFOLIO_DELETED"
)

// Event is the wire form pushed to every subscriber.
type Event struct {
	Type EventKind `json:"type"`
	Data any       `json:"data"`
}

type MarketUpdate struct {
	Indices   map[string]IndexQuote `json:"indices"`
	Timestamp time.Time             `json:"timestamp"`
}

// BondUpdate carries the full bond mapping; receivers replace, never patch.
type BondUpdate struct {
	Bonds     map[string]BondRecord `json:"bonds"`
	Timestamp time.Time             `json:"timestamp"`
}

type PortfolioDeleted struct {
	ID string `json:"id"`
}

func NewInitialData(s Snapshot) Event {
	return Event{Type: EventInitialData, Data: s}
}

func NewMarketUpdate(indices map[string]IndexQuote, ts time.Time) Event {
	return Event{Type: EventMarketUpdate, Data: MarketUpdate{Indices: indices, Timestamp: ts}}
}

func NewBondUpdate(bonds map[string]BondRecord, ts time.Time) Event {
	return Event{Type: EventBondUpdate, Data: BondUpdate{Bonds: bonds, Timestamp: ts}}
}

func NewPortfolioEvent(kind EventKind, p Portfolio) Event {
	return Event{Type: kind, Data: p}
}

func NewPortfolioDeleted(id string) Event {
	return Event{Type: EventPortfolioDeleted, Data: PortfolioDeleted{ID: id}}
}
