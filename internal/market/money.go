package market

import "github.com/shopspring/decimal"

// TotalValue is the sum of quantity × price over all line items.
func TotalValue(items []LineItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.Price)))
	}
	f, _ := total.Float64()
	return f
}

// RoundYield rounds a yield to 2 decimal places.
func RoundYield(y float64) float64 {
	return Round(y, 2)
}

func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Summarize computes analytics over the bonds and portfolios of a snapshot.
// Averages are 0 when there are no bonds.
func Summarize(s Snapshot) Overview {
	o := Overview{
		TotalBonds:       len(s.Bonds),
		ActivePortfolios: len(s.Portfolios),
		MarketTrend:      marketTrend(s.Indices),
	}
	if len(s.Bonds) == 0 {
		return o
	}

	yieldSum, liqSum := decimal.Zero, decimal.Zero
	for _, b := range s.Bonds {
		o.TotalVolume += b.Volume
		yieldSum = yieldSum.Add(decimal.NewFromFloat(b.Yield))
		liqSum = liqSum.Add(decimal.NewFromInt(int64(b.Liquidity)))
	}
	n := decimal.NewFromInt(int64(len(s.Bonds)))
	o.AvgYield, _ = yieldSum.Div(n).Round(2).Float64()
	o.AvgLiquidity, _ = liqSum.Div(n).Round(2).Float64()
	return o
}

// marketTrend is "positive" or "negative" by the mean index change, and
// "neutral" when flat or unknown.
func marketTrend(indices map[string]IndexQuote) string {
	if len(indices) == 0 {
		return "neutral"
	}
	sum := decimal.Zero
	for _, q := range indices {
		pct, err := decimal.NewFromString(q.ChangePercent)
		if err != nil {
			continue
		}
		sum = sum.Add(pct)
	}
	switch sum.Sign() {
	case 1:
		return "positive"
	case -1:
		return "negative"
	default:
		return "neutral"
	}
}
