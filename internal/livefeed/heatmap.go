package livefeed

import (
	"slices"

	"bltp/internal/market"
)

// HeatmapRow is one issuer in the liquidity heatmap.
type HeatmapRow struct {
	ID         int          `json:"id"`
	Issuer     string       `json:"issuer"`
	Liquidity  int          `json:"liquidity"`
	Yield      float64      `json:"yield"`
	Volume     string       `json:"volume"`
	Trend      market.Trend `json:"trend"`
	TrendValue string       `json:"trendValue"`
	Score      string       `json:"score"`
}

// LatestReader looks up the latest update for a key.
type LatestReader interface {
	GetLatest(key string) (LiveUpdate, bool)
}

var defaultRows = []HeatmapRow{
	{ID: 1, Issuer: "HDFC Bank", Liquidity: 92, Yield: 8.2, Volume: "₹45L", Trend: market.TrendUp, TrendValue: "+2.3%", Score: "A+"},
	{ID: 2, Issuer: "Reliance", Liquidity: 88, Yield: 7.9, Volume: "₹38L", Trend: market.TrendUp, TrendValue: "+1.8%", Score: "A+"},
	{ID: 3, Issuer: "TCS", Liquidity: 75, Yield: 7.5, Volume: "₹32L", Trend: market.TrendDown, TrendValue: "-0.5%", Score: "A"},
	{ID: 4, Issuer: "SBI", Liquidity: 85, Yield: 8.1, Volume: "₹28L", Trend: market.TrendUp, TrendValue: "+3.1%", Score: "A+"},
	{ID: 5, Issuer: "ICICI Bank", Liquidity: 78, Yield: 7.7, Volume: "₹25L", Trend: market.TrendUp, TrendValue: "+1.2%", Score: "A"},
	{ID: 6, Issuer: "Infosys", Liquidity: 65, Yield: 7.3, Volume: "₹20L", Trend: market.TrendDown, TrendValue: "-1.1%", Score: "B+"},
	{ID: 7, Issuer: "Wipro", Liquidity: 60, Yield: 7.1, Volume: "₹18L", Trend: market.TrendDown, TrendValue: "-0.8%", Score: "B+"},
	{ID: 8, Issuer: "Axis Bank", Liquidity: 82, Yield: 8.0, Volume: "₹24L", Trend: market.TrendUp, TrendValue: "+2.7%", Score: "A"},
}

// DefaultRows returns a fresh copy of the seed heatmap.
func DefaultRows() []HeatmapRow {
	return slices.Clone(defaultRows)
}

// MergeRows overlays the latest update for each row's issuer key. Rows with
// no update are returned unchanged; the input is not modified.
func MergeRows(rows []HeatmapRow, latest LatestReader) []HeatmapRow {
	out := slices.Clone(rows)
	for i, row := range out {
		u, ok := latest.GetLatest(IssuerKey(row.Issuer))
		if !ok {
			continue
		}
		out[i].Liquidity = u.Liquidity
		out[i].Yield = u.Yield
		out[i].Volume = u.Volume
		out[i].Trend = u.Trend
		out[i].TrendValue = u.TrendValue
	}
	return out
}
