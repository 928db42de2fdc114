package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"bltp/internal/market"
	"bltp/pkg/alphavantage"

	"github.com/kylelemons/godebug/pretty"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// constRand always returns the same draw.
type constRand struct {
	n int
	f float64
}

func (r constRand) Intn(n int) int   { return min(r.n, n-1) }
func (r constRand) Float64() float64 { return r.f }

var epoch = time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)

// go test -v --run TestSyntheticBonds
func TestSyntheticBonds(t *testing.T) {
	gen := NewSynthetic(market.NewRand(7), fixedClock{epoch})
	bonds := gen.Bonds(50)

	if len(bonds) != 50 {
		t.Fatalf("got %d bonds, want 50", len(bonds))
	}
	for i := 1; i <= 50; i++ {
		id := fmt.Sprintf("BOND_%d", i)
		b, ok := bonds[id]
		if !ok {
			t.Fatalf("missing %s", id)
		}
		if b.Liquidity < market.LiquidityFloor || b.Liquidity > market.LiquidityCeil {
			t.Errorf("%s liquidity %d out of range", id, b.Liquidity)
		}
		if b.Yield < 6 || b.Yield > 10 {
			t.Errorf("%s yield %v out of range", id, b.Yield)
		}
		if b.CurrentPrice < 950 || b.CurrentPrice > 1050 {
			t.Errorf("%s price %v out of range", id, b.CurrentPrice)
		}
		if b.MaturityYears < 1 || b.MaturityYears > 20 {
			t.Errorf("%s maturity %d out of range", id, b.MaturityYears)
		}
		if !slices.Contains(market.Ratings, b.Rating) {
			t.Errorf("%s has unknown rating %q", id, b.Rating)
		}
		if b.FaceValue != 1000 || !b.LastUpdated.Equal(epoch) {
			t.Errorf("%s unexpected face value or timestamp: %+v", id, b)
		}
	}
}

// go test -v --run TestSyntheticDeterministic
func TestSyntheticDeterministic(t *testing.T) {
	a := NewSynthetic(market.NewRand(42), fixedClock{epoch}).Bonds(10)
	b := NewSynthetic(market.NewRand(42), fixedClock{epoch}).Bonds(10)
	if diff := pretty.Compare(a, b); diff != "" {
		t.Errorf("same seed produced different bonds:\n%s", diff)
	}
}

// go test -v --run TestSyntheticFixture
func TestSyntheticFixture(t *testing.T) {
	bonds := NewSynthetic(constRand{n: 2, f: 0.75}, fixedClock{epoch}).Bonds(1)

	want := market.BondRecord{
		ID:            "BOND_1",
		Name:          "HDFC 3Y Bond",
		Issuer:        "HDFC",
		Type:          "Municipal Bonds",
		FaceValue:     1000,
		CurrentPrice:  1025,
		Yield:         9,
		MaturityYears: 3,
		Rating:        market.RatingAA,
		Liquidity:     22,
		Volume:        100_002,
		LastUpdated:   epoch,
		Trends:        market.Trends{Price: market.TrendUp, Volume: market.TrendUp},
	}
	if diff := pretty.Compare(want, bonds["BOND_1"]); diff != "" {
		t.Errorf("fixture diff (-want +got):\n%s", diff)
	}
}

// go test -v --run TestAlphaVantageNotConfigured
func TestAlphaVantageNotConfigured(t *testing.T) {
	av := NewAlphaVantage(alphavantage.NewClient("http://unused", "", time.Second), market.NewRand(1), fixedClock{epoch})

	if _, err := av.IndexQuote(context.Background(), TrackedIndices[0]); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("IndexQuote error = %v, want ErrNotConfigured", err)
	}
	if _, err := av.BondQuote(context.Background(), BondETFs[0]); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("BondQuote error = %v, want ErrNotConfigured", err)
	}
	if _, err := av.History(context.Background(), "IEF", alphavantage.IntervalDaily); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("History error = %v, want ErrNotConfigured", err)
	}
}

// go test -v --run TestAlphaVantageQuotes
func TestAlphaVantageQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `{"Global Quote": {"01. symbol": %q, "03. high": "101", "04. low": "99",
			"05. price": "100.5", "06. volume": "1200", "07. latest trading day": "2025-06-13",
			"09. change": "-0.25", "10. change percent": "-0.2481%%"}}`, sym)
	}))
	defer srv.Close()

	av := NewAlphaVantage(alphavantage.NewClient(srv.URL, "k", time.Second), constRand{n: 10, f: 0.5}, fixedClock{epoch})

	idx, err := av.IndexQuote(context.Background(), TrackedIndices[0])
	if err != nil {
		t.Fatalf("IndexQuote() error: %v", err)
	}
	wantIdx := market.IndexQuote{
		Symbol: "INDA", Name: "Nifty 50 (MSCI India ETF)", Price: 100.5, Change: -0.25,
		ChangePercent: "-0.2481", High: 101, Low: 99, Volume: 1200, TradingDay: "2025-06-13",
	}
	if diff := pretty.Compare(wantIdx, idx); diff != "" {
		t.Errorf("IndexQuote() diff (-want +got):\n%s", diff)
	}

	bond, err := av.BondQuote(context.Background(), BondETFs[1])
	if err != nil {
		t.Fatalf("BondQuote() error: %v", err)
	}
	if bond.ID != "TLT" || bond.Duration != "20Y+" || bond.Rating != market.RatingAAA {
		t.Errorf("unexpected bond identity: %+v", bond)
	}
	if bond.Liquidity != 60 || bond.Yield != 6.5 || bond.Trends.Price != market.TrendDown {
		t.Errorf("unexpected simulated fields: liquidity=%d yield=%v trend=%s", bond.Liquidity, bond.Yield, bond.Trends.Price)
	}
}
