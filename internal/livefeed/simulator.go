package livefeed

import (
	"context"
	"fmt"
	"time"

	"bltp/internal/market"
)

// SimulatedKeys are the issuers the simulator reports on.
var SimulatedKeys = []string{"HDFC", "Reliance", "TCS", "SBI", "ICICI", "Infosys", "Wipro", "Axis"}

// Simulator emits one random update at a uniformly random interval in
// [MinInterval, MaxInterval].
type Simulator struct {
	rand        market.Rand
	clock       market.Clock
	minInterval time.Duration
	maxInterval time.Duration
}

func NewSimulator(r market.Rand, c market.Clock, minInterval, maxInterval time.Duration) *Simulator {
	return &Simulator{rand: r, clock: c, minInterval: minInterval, maxInterval: maxInterval}
}

func (s *Simulator) Run(ctx context.Context, emit func(LiveUpdate)) error {
	for {
		t := time.NewTimer(s.nextInterval())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
			emit(s.Next())
		}
	}
}

// Next draws a single update.
func (s *Simulator) Next() LiveUpdate {
	key := SimulatedKeys[s.rand.Intn(len(SimulatedKeys))]

	sign := "-"
	trend := market.RandomTrend(s.rand)
	if s.rand.Float64() > 0.5 {
		sign = "+"
	}

	return LiveUpdate{
		BondID:     key,
		Liquidity:  s.rand.Intn(40) + 60,
		Yield:      market.Round(s.rand.Float64()*2+7, 1),
		Volume:     fmt.Sprintf("₹%dL", s.rand.Intn(50)+15),
		Trend:      trend,
		TrendValue: fmt.Sprintf("%s%.1f%%", sign, s.rand.Float64()*3),
		Timestamp:  s.clock.Now().UnixMilli(),
	}
}

func (s *Simulator) nextInterval() time.Duration {
	span := s.maxInterval - s.minInterval
	if span <= 0 {
		return s.minInterval
	}
	return s.minInterval + time.Duration(s.rand.Float64()*float64(span))
}
