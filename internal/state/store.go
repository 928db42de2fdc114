package state

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"bltp/internal/content"
	"bltp/internal/hub"
	"bltp/internal/market"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrInvalidPortfolio  = errors.New("invalid portfolio")
)

const portfolioPrefix = "PORTFOLIO_"

type Options struct {
	Hub           *hub.Hub
	Rand          market.Rand
	Clock         market.Clock
	LiquidityStep int // perturbation delta is uniform in [-step, +step]
	Logger        *zap.Logger
}

// Store owns the market snapshot. Every mutation and the broadcast it
// triggers happen under mu, so each subscriber sees events in the order
// they were generated.
type Store struct {
	mu   sync.Mutex
	snap market.Snapshot

	hub    *hub.Hub
	rand   market.Rand
	clock  market.Clock
	step   int
	logger *zap.Logger
}

func New(opts Options) *Store {
	if opts.Rand == nil {
		opts.Rand = market.NewRand(0)
	}
	if opts.Clock == nil {
		opts.Clock = market.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Hub == nil {
		opts.Hub = hub.New(opts.Logger)
	}

	return &Store{
		snap: market.Snapshot{
			Indices:         make(map[string]market.IndexQuote),
			Bonds:           make(map[string]market.BondRecord),
			Portfolios:      make(map[string]market.Portfolio),
			News:            []market.NewsItem{},
			LearningContent: make(map[string]market.LearningCategory),
		},
		hub:    opts.Hub,
		rand:   opts.Rand,
		clock:  opts.Clock,
		step:   opts.LiquidityStep,
		logger: opts.Logger,
	}
}

// Hub returns the broadcaster the store publishes to.
func (s *Store) Hub() *hub.Hub { return s.hub }

// Subscribe delivers the current snapshot to sink as INITIAL_DATA and then
// registers it for broadcasts.
func (s *Store) Subscribe(sink hub.Sink) (*hub.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hub.Send(sink, market.NewInitialData(s.snap.Clone())); err != nil {
		return nil, fmt.Errorf("send initial data: %w", err)
	}
	return s.hub.Register(sink)
}

// SetBonds replaces the bond set without broadcasting. Liquidity is clamped.
func (s *Store) SetBonds(bonds map[string]market.BondRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Bonds = make(map[string]market.BondRecord, len(bonds))
	for id, b := range bonds {
		b.Liquidity = market.ClampLiquidity(b.Liquidity)
		s.snap.Bonds[id] = b
	}
}

func (s *Store) SetNews(news []market.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.News = slices.Clone(news)
}

func (s *Store) SetLearning(learning map[string]market.LearningCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LearningContent = market.CloneLearning(learning)
}

// MergeIndices overwrites indices per symbol and broadcasts MARKET_UPDATE.
// An empty batch changes nothing and broadcasts nothing.
func (s *Store) MergeIndices(fresh map[string]market.IndexQuote) bool {
	if len(fresh) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	market.MergeIndices(s.snap.Indices, fresh)
	s.hub.Broadcast(market.NewMarketUpdate(market.CloneIndices(s.snap.Indices), s.clock.Now()))
	return true
}

// ApplyRealBonds overlays real-source bonds onto the current set and
// returns the merged result. It does not broadcast.
func (s *Store) ApplyRealBonds(real map[string]market.BondRecord) map[string]market.BondRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	clamped := make(map[string]market.BondRecord, len(real))
	for id, b := range real {
		b.Liquidity = market.ClampLiquidity(b.Liquidity)
		clamped[id] = b
	}
	s.snap.Bonds = market.MergeBonds(s.snap.Bonds, clamped)
	return market.CloneBonds(s.snap.Bonds)
}

// PerturbLiquidity random-walks the liquidity of every bond that has one and
// broadcasts the full bond mapping as BOND_UPDATE.
func (s *Store) PerturbLiquidity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	// sorted so a seeded Rand gives reproducible walks
	for _, id := range slices.Sorted(maps.Keys(s.snap.Bonds)) {
		b := s.snap.Bonds[id]
		if b.Liquidity <= 0 {
			continue
		}

		delta := (s.rand.Float64()*2 - 1) * float64(s.step)
		next := market.ClampLiquidity(int(math.Round(float64(b.Liquidity) + delta)))

		b.LiquidityChange = next - b.Liquidity
		b.Liquidity = next
		b.Trends.Liquidity = market.TrendDown
		if delta > 0 {
			b.Trends.Liquidity = market.TrendUp
		}
		b.Trends.Volume = market.RandomTrend(s.rand)
		b.LastUpdated = now

		s.snap.Bonds[id] = b
	}

	s.hub.Broadcast(market.NewBondUpdate(market.CloneBonds(s.snap.Bonds), now))
}

// CreatePortfolio validates, stores and broadcasts a new portfolio.
func (s *Store) CreatePortfolio(name string, items []market.LineItem) (market.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return market.Portfolio{}, fmt.Errorf("%w: name is required", ErrInvalidPortfolio)
	}
	if err := validateItems(items); err != nil {
		return market.Portfolio{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return market.Portfolio{}, fmt.Errorf("generate portfolio id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	p := market.Portfolio{
		ID:        portfolioPrefix + id.String(),
		Name:      name,
		Bonds:     slices.Clone(items),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Bonds == nil {
		p.Bonds = []market.LineItem{}
	}
	p.TotalValue = market.TotalValue(p.Bonds)

	s.snap.Portfolios[p.ID] = p
	s.hub.Broadcast(market.NewPortfolioEvent(market.EventPortfolioCreated, p.Clone()))
	return p.Clone(), nil
}

// UpdatePortfolio shallow-merges patch into the portfolio with id.
// An unknown id is reported before the patch is validated.
func (s *Store) UpdatePortfolio(id string, patch market.PortfolioPatch) (market.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.snap.Portfolios[id]
	if !ok {
		return market.Portfolio{}, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return market.Portfolio{}, fmt.Errorf("%w: name must not be empty", ErrInvalidPortfolio)
	}
	if patch.Bonds != nil {
		if err := validateItems(*patch.Bonds); err != nil {
			return market.Portfolio{}, err
		}
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Bonds != nil {
		p.Bonds = slices.Clone(*patch.Bonds)
		if p.Bonds == nil {
			p.Bonds = []market.LineItem{}
		}
	}
	p.TotalValue = market.TotalValue(p.Bonds)
	p.UpdatedAt = s.clock.Now()

	s.snap.Portfolios[id] = p
	s.hub.Broadcast(market.NewPortfolioEvent(market.EventPortfolioUpdated, p.Clone()))
	return p.Clone(), nil
}

func (s *Store) DeletePortfolio(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.Portfolios[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	delete(s.snap.Portfolios, id)
	s.hub.Broadcast(market.NewPortfolioDeleted(id))
	return nil
}

func (s *Store) Portfolio(id string) (market.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.snap.Portfolios[id]
	if !ok {
		return market.Portfolio{}, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	return p.Clone(), nil
}

// Portfolios lists portfolios oldest first.
func (s *Store) Portfolios() []market.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]market.Portfolio, 0, len(s.snap.Portfolios))
	for _, p := range s.snap.Portfolios {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b market.Portfolio) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) Snapshot() market.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *Store) Indices() map[string]market.IndexQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return market.CloneIndices(s.snap.Indices)
}

func (s *Store) Bonds() map[string]market.BondRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return market.CloneBonds(s.snap.Bonds)
}

func (s *Store) News() []market.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snap.News)
}

func (s *Store) Learning() map[string]market.LearningCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return market.CloneLearning(s.snap.LearningContent)
}

// LearningCategory returns one category or content.ErrCategoryNotFound.
func (s *Store) LearningCategory(name string) (market.LearningCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return content.Lookup(s.snap.LearningContent, name)
}

// Overview aggregates the current snapshot. Averages are 0 with no bonds.
func (s *Store) Overview() market.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := market.Summarize(s.snap)
	o.Timestamp = s.clock.Now()
	return o
}

func validateItems(items []market.LineItem) error {
	for i, it := range items {
		if it.Quantity < 0 || it.Price < 0 {
			return fmt.Errorf("%w: line item %d has negative quantity or price", ErrInvalidPortfolio, i)
		}
	}
	return nil
}
