package market

import "time"

// Trend is the direction of the last observed move.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Rating is a bond credit rating.
type Rating string

const (
	RatingAAA     Rating = "AAA"
	RatingAAPlus  Rating = "AA+"
	RatingAA      Rating = "AA"
	RatingAAMinus Rating = "AA-"
	RatingAPlus   Rating = "A+"
)

// Liquidity score bounds.
const (
	LiquidityFloor = 20
	LiquidityCeil  = 100
)

// Ratings lists every rating a bond may carry, best first.
var Ratings = []Rating{RatingAAA, RatingAAPlus, RatingAA, RatingAAMinus, RatingAPlus}

// IndexQuote is one tracked market index, overwritten whole on refresh.
type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent string  `json:"changePercent"` // "1.2345", unit stripped
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	TradingDay    string  `json:"timestamp"` // as-of trading day, YYYY-MM-DD
}

type Trends struct {
	Price     Trend `json:"price,omitempty"`
	Volume    Trend `json:"volume,omitempty"`
	Liquidity Trend `json:"liquidity,omitempty"`
}

// BondRecord is a tradable bond. Liquidity always stays within
// [LiquidityFloor, LiquidityCeil].
type BondRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Issuer          string    `json:"issuer"`
	Type            string    `json:"type"`
	FaceValue       float64   `json:"faceValue"`
	CurrentPrice    float64   `json:"currentPrice"`
	Yield           float64   `json:"yield"`
	MaturityYears   int       `json:"maturityYears"`
	Rating          Rating    `json:"rating"`
	Liquidity       int       `json:"liquidity"`
	LiquidityChange int       `json:"liquidityChange"`
	Volume          int64     `json:"volume"`
	LastUpdated     time.Time `json:"lastUpdated"`
	Trends          Trends    `json:"trends"`

	// Set only on records sourced from a listed bond ETF.
	Symbol        string  `json:"symbol,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	Change        float64 `json:"change,omitempty"`
	ChangePercent string  `json:"changePercent,omitempty"`
	TradingDay    string  `json:"tradingDay,omitempty"`
}

// LineItem is one bond position inside a portfolio.
type LineItem struct {
	BondID   string  `json:"bondId,omitempty"`
	Name     string  `json:"name,omitempty"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type Portfolio struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Bonds      []LineItem `json:"bonds"`
	TotalValue float64    `json:"totalValue"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// PortfolioPatch is a shallow update; nil fields are left untouched.
type PortfolioPatch struct {
	Name  *string     `json:"name,omitempty"`
	Bonds *[]LineItem `json:"bonds,omitempty"`
}

type NewsItem struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type LearningModule struct {
	ID       int    `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
	Duration string `json:"duration" yaml:"duration"`
}

type LearningCategory struct {
	Title   string           `json:"title" yaml:"title"`
	Modules []LearningModule `json:"modules" yaml:"modules"`
}

// Candle is one OHLCV row of a historical series.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Snapshot is a point-in-time copy of the whole market state.
type Snapshot struct {
	Indices         map[string]IndexQuote       `json:"indices"`
	Bonds           map[string]BondRecord       `json:"bonds"`
	Portfolios      map[string]Portfolio        `json:"portfolios"`
	News            []NewsItem                  `json:"news"`
	LearningContent map[string]LearningCategory `json:"learningContent"`
}

// Overview holds the aggregate metrics served by the analytics endpoint.
type Overview struct {
	TotalBonds       int       `json:"totalBonds"`
	TotalVolume      int64     `json:"totalVolume"`
	AvgYield         float64   `json:"avgYield"`
	AvgLiquidity     float64   `json:"avgLiquidity"`
	ActivePortfolios int       `json:"activePortfolios"`
	MarketTrend      string    `json:"marketTrend"`
	Timestamp        time.Time `json:"timestamp"`
}
