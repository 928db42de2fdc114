package source

import (
	"context"
	"errors"

	"bltp/internal/market"
	"bltp/pkg/alphavantage"
)

// ErrNotConfigured is returned by real sources that have no credentials.
var ErrNotConfigured = errors.New("market data source not configured")

// Instrument is a tracked symbol with its display metadata.
type Instrument struct {
	Symbol   string
	Name     string
	Duration string // bond ETFs only
}

// Listed ETFs stand in for the Indian indices, which have no direct feed.
var TrackedIndices = []Instrument{
	{Symbol: "INDA", Name: "Nifty 50 (MSCI India ETF)"},
	{Symbol: "MINDX", Name: "Sensex Proxy"},
	{Symbol: "INDY", Name: "India Small Cap"},
}

var BondETFs = []Instrument{
	{Symbol: "IEF", Name: "7-10 Year Treasury Bond ETF", Duration: "7-10Y"},
	{Symbol: "TLT", Name: "20+ Year Treasury Bond ETF", Duration: "20Y+"},
	{Symbol: "SHY", Name: "1-3 Year Treasury Bond ETF", Duration: "1-3Y"},
}

type IndexSource interface {
	IndexQuote(ctx context.Context, inst Instrument) (market.IndexQuote, error)
}

type BondSource interface {
	BondQuote(ctx context.Context, inst Instrument) (market.BondRecord, error)
}

type HistorySource interface {
	History(ctx context.Context, symbol string, interval alphavantage.SeriesInterval) ([]market.Candle, error)
}

// BondGenerator produces the synthetic bond universe.
type BondGenerator interface {
	Bonds(n int) map[string]market.BondRecord
}
