package source

import (
	"context"

	"bltp/internal/market"
	"bltp/pkg/alphavantage"
)

// AlphaVantage adapts the Alpha Vantage client to the source interfaces.
type AlphaVantage struct {
	client *alphavantage.Client
	rand   market.Rand
	clock  market.Clock
}

func NewAlphaVantage(client *alphavantage.Client, r market.Rand, c market.Clock) *AlphaVantage {
	return &AlphaVantage{client: client, rand: r, clock: c}
}

func (a *AlphaVantage) Configured() bool {
	return a.client.Configured()
}

func (a *AlphaVantage) IndexQuote(ctx context.Context, inst Instrument) (market.IndexQuote, error) {
	if !a.Configured() {
		return market.IndexQuote{}, ErrNotConfigured
	}

	q, err := a.client.GlobalQuote(ctx, inst.Symbol)
	if err != nil {
		return market.IndexQuote{}, err
	}

	return market.IndexQuote{
		Symbol:        inst.Symbol,
		Name:          inst.Name,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		High:          q.High,
		Low:           q.Low,
		Volume:        q.Volume,
		TradingDay:    q.LatestTradingDay,
	}, nil
}

// BondQuote prices a bond ETF from its quote. The feed has no yield or
// liquidity for ETFs, so both are simulated.
func (a *AlphaVantage) BondQuote(ctx context.Context, inst Instrument) (market.BondRecord, error) {
	if !a.Configured() {
		return market.BondRecord{}, ErrNotConfigured
	}

	q, err := a.client.GlobalQuote(ctx, inst.Symbol)
	if err != nil {
		return market.BondRecord{}, err
	}

	priceTrend := market.TrendDown
	if q.Change > 0 {
		priceTrend = market.TrendUp
	}

	return market.BondRecord{
		ID:            inst.Symbol,
		Symbol:        inst.Symbol,
		Name:          inst.Name,
		Issuer:        "U.S. Treasury",
		Type:          "Treasury ETF",
		CurrentPrice:  q.Price,
		Yield:         market.RoundYield(a.rand.Float64()*3 + 5),
		Duration:      inst.Duration,
		Rating:        market.RatingAAA,
		Liquidity:     market.ClampLiquidity(a.rand.Intn(100) + 50),
		Volume:        q.Volume,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		TradingDay:    q.LatestTradingDay,
		LastUpdated:   a.clock.Now(),
		Trends: market.Trends{
			Price:  priceTrend,
			Volume: market.RandomTrend(a.rand),
		},
	}, nil
}

// History returns up to 100 candles, newest first.
func (a *AlphaVantage) History(ctx context.Context, symbol string, interval alphavantage.SeriesInterval) ([]market.Candle, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	bars, err := a.client.TimeSeries(ctx, symbol, interval, alphavantage.DefaultSeriesLimit)
	if err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(bars))
	for _, b := range bars {
		candles = append(candles, market.Candle{
			Date:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return candles, nil
}
