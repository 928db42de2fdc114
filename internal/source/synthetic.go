package source

import (
	"fmt"

	"bltp/internal/market"
)

var issuers = []string{
	"Government of India", "SBI", "HDFC", "ICICI Bank", "Reliance Industries",
	"Tata Group", "Adani Group", "L&T", "NTPC", "Power Grid Corporation",
}

var bondTypes = []string{
	"Government Securities", "Corporate Bonds", "Municipal Bonds",
	"PSU Bonds", "Tax-Free Bonds", "Infrastructure Bonds",
}

// Synthetic generates mock Indian bonds from an injected Rand and Clock.
type Synthetic struct {
	rand  market.Rand
	clock market.Clock
}

func NewSynthetic(r market.Rand, c market.Clock) *Synthetic {
	return &Synthetic{rand: r, clock: c}
}

// Bonds returns n bonds keyed BOND_1..BOND_n.
func (s *Synthetic) Bonds(n int) map[string]market.BondRecord {
	now := s.clock.Now()
	out := make(map[string]market.BondRecord, n)

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("BOND_%d", i)
		issuer := issuers[s.rand.Intn(len(issuers))]
		bondType := bondTypes[s.rand.Intn(len(bondTypes))]
		maturity := s.rand.Intn(20) + 1
		rating := market.Ratings[s.rand.Intn(len(market.Ratings))]

		out[id] = market.BondRecord{
			ID:            id,
			Name:          fmt.Sprintf("%s %dY Bond", issuer, maturity),
			Issuer:        issuer,
			Type:          bondType,
			FaceValue:     1000,
			CurrentPrice:  market.Round(950+s.rand.Float64()*100, 2),
			Yield:         market.RoundYield(s.rand.Float64()*4 + 6),
			MaturityYears: maturity,
			Rating:        rating,
			Liquidity:     market.ClampLiquidity(s.rand.Intn(100) + 20),
			Volume:        int64(s.rand.Intn(10_000_000) + 100_000),
			LastUpdated:   now,
			Trends: market.Trends{
				Price:  market.RandomTrend(s.rand),
				Volume: market.RandomTrend(s.rand),
			},
		}
	}
	return out
}
