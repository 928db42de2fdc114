package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"
)

// go test -v --run TestMergeBondsRealWins
func TestMergeBondsRealWins(t *testing.T) {
	mock := map[string]BondRecord{
		"IEF":    {ID: "IEF", Name: "mock IEF", Liquidity: 40},
		"BOND_1": {ID: "BOND_1", Name: "HDFC 5Y Bond", Liquidity: 55},
	}
	real := map[string]BondRecord{
		"IEF": {ID: "IEF", Symbol: "IEF", Name: "7-10 Year Treasury Bond ETF", Liquidity: 90},
		"TLT": {ID: "TLT", Symbol: "TLT", Name: "20+ Year Treasury Bond ETF", Liquidity: 70},
	}

	got := MergeBonds(mock, real)

	want := map[string]BondRecord{
		"IEF":    real["IEF"],
		"TLT":    real["TLT"],
		"BOND_1": mock["BOND_1"],
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("MergeBonds() diff (-want +got):\n%s", diff)
	}

	// inputs untouched
	if mock["IEF"].Name != "mock IEF" || len(mock) != 2 {
		t.Errorf("mock input mutated: %+v", mock)
	}
}

// go test -v --run TestClampLiquidity
func TestClampLiquidity(t *testing.T) {
	tests := map[int]int{-50: 20, 0: 20, 19: 20, 20: 20, 57: 57, 100: 100, 101: 100, 119: 100}
	for in, want := range tests {
		if got := ClampLiquidity(in); got != want {
			t.Errorf("ClampLiquidity(%d) = %d, want %d", in, got, want)
		}
	}
}

// go test -v --run TestTotalValue
func TestTotalValue(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []LineItem{{Quantity: 10, Price: 1000}}, 10000},
		{"fractional", []LineItem{{Quantity: 3, Price: 0.1}, {Quantity: 1, Price: 0.2}}, 0.5},
		{"mixed", []LineItem{{Quantity: 2, Price: 998.25}, {Quantity: 5, Price: 1001.1}}, 7002},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalValue(tt.items); got != tt.want {
				t.Errorf("TotalValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

// go test -v --run TestRoundYield
func TestRoundYield(t *testing.T) {
	if got := RoundYield(7.456); got != 7.46 {
		t.Errorf("RoundYield(7.456) = %v, want 7.46", got)
	}
	if got := RoundYield(6.0); got != 6 {
		t.Errorf("RoundYield(6.0) = %v, want 6", got)
	}
}

// go test -v --run TestSummarize
func TestSummarize(t *testing.T) {
	t.Run("empty bonds", func(t *testing.T) {
		o := Summarize(Snapshot{})
		if o.TotalBonds != 0 || o.AvgYield != 0 || o.AvgLiquidity != 0 {
			t.Errorf("unexpected overview for empty snapshot: %+v", o)
		}
		if o.MarketTrend != "neutral" {
			t.Errorf("trend = %q, want neutral", o.MarketTrend)
		}
	})

	t.Run("aggregates", func(t *testing.T) {
		s := Snapshot{
			Bonds: map[string]BondRecord{
				"A": {Yield: 7, Liquidity: 40, Volume: 100},
				"B": {Yield: 8, Liquidity: 60, Volume: 300},
			},
			Portfolios: map[string]Portfolio{"P": {}},
			Indices: map[string]IndexQuote{
				"INDA": {ChangePercent: "1.20"},
				"INDY": {ChangePercent: "-0.50"},
			},
		}
		want := Overview{
			TotalBonds:       2,
			TotalVolume:      400,
			AvgYield:         7.5,
			AvgLiquidity:     50,
			ActivePortfolios: 1,
			MarketTrend:      "positive",
		}
		if diff := pretty.Compare(want, Summarize(s)); diff != "" {
			t.Errorf("Summarize() diff (-want +got):\n%s", diff)
		}
	})
}

// go test -v --run TestSnapshotCloneIsDeep
func TestSnapshotCloneIsDeep(t *testing.T) {
	s := Snapshot{
		Bonds:      map[string]BondRecord{"A": {ID: "A", Liquidity: 50}},
		Portfolios: map[string]Portfolio{"P": {ID: "P", Bonds: []LineItem{{Quantity: 1, Price: 2}}}},
		News:       []NewsItem{{ID: 1}},
		LearningContent: map[string]LearningCategory{
			"basics": {Title: "Bond Basics", Modules: []LearningModule{{ID: 1}}},
		},
	}

	c := s.Clone()
	c.Bonds["A"] = BondRecord{ID: "A", Liquidity: 99}
	c.Portfolios["P"].Bonds[0].Quantity = 42
	c.News[0].ID = 7
	c.LearningContent["basics"].Modules[0].ID = 9

	if s.Bonds["A"].Liquidity != 50 {
		t.Error("bond map shared with clone")
	}
	if s.Portfolios["P"].Bonds[0].Quantity != 1 {
		t.Error("portfolio line items shared with clone")
	}
	if s.News[0].ID != 1 {
		t.Error("news shared with clone")
	}
	if s.LearningContent["basics"].Modules[0].ID != 1 {
		t.Error("learning modules shared with clone")
	}
}

// go test -v --run TestEventJSON
func TestEventJSON(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err := json.Marshal(NewPortfolioDeleted("PORTFOLIO_1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"PORTFOLIO_DELETED","data":{"id":"PORTFOLIO_1"}}` {
		t.Errorf("unexpected json: %s", b)
	}

	b, err = json.Marshal(NewMarketUpdate(map[string]IndexQuote{}, ts))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"MARKET_UPDATE","data":{"indices":{},"timestamp":"2025-01-02T03:04:05Z"}}` {
		t.Errorf("unexpected json: %s", b)
	}
}
