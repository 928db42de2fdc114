package api

import (
	"context"
	"net/http"

	"bltp/internal/hub"
	"bltp/internal/market"
	"bltp/internal/source"
	"bltp/internal/state"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MarketRefresher runs on-demand market fetches.
type MarketRefresher interface {
	RefreshIndices(ctx context.Context) (map[string]market.IndexQuote, error)
	RefreshBonds(ctx context.Context) (map[string]market.BondRecord, error)
}

// Advisor answers chat messages and produces market insights.
type Advisor interface {
	Chat(ctx context.Context, message string, chatContext map[string]any) string
	Insights(ctx context.Context, summary any) string
}

// Services reports which external collaborators have credentials.
type Services struct {
	AlphaVantage bool
	Gemini       bool
}

type Options struct {
	Store          *state.Store
	Refresher      MarketRefresher
	History        source.HistorySource
	Advisor        Advisor
	Services       Services
	AllowedOrigins []string
	Clock          market.Clock
	Logger         *zap.Logger
}

// Server exposes the store over REST and a websocket push channel.
type Server struct {
	store     *state.Store
	refresher MarketRefresher
	history   source.HistorySource
	advisor   Advisor
	services  Services
	origins   []string
	upgrader  *websocket.Upgrader
	clock     market.Clock
	logger    *zap.Logger
}

func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = market.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		store:     opts.Store,
		refresher: opts.Refresher,
		history:   opts.History,
		advisor:   opts.Advisor,
		services:  opts.Services,
		origins:   opts.AllowedOrigins,
		upgrader:  hub.NewUpgrader(opts.AllowedOrigins),
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/market/indices", s.handleIndices)
	mux.HandleFunc("GET /api/market/bonds", s.handleBonds)
	mux.HandleFunc("GET /api/market/historical/{symbol}", s.handleHistorical)

	mux.HandleFunc("GET /api/portfolio", s.handleListPortfolios)
	mux.HandleFunc("POST /api/portfolio", s.handleCreatePortfolio)
	mux.HandleFunc("PUT /api/portfolio/{id}", s.handleUpdatePortfolio)
	mux.HandleFunc("DELETE /api/portfolio/{id}", s.handleDeletePortfolio)

	mux.HandleFunc("POST /api/ai/chat", s.handleChat)
	mux.HandleFunc("GET /api/ai/insights", s.handleInsights)

	mux.HandleFunc("GET /api/learn", s.handleLearn)
	mux.HandleFunc("GET /api/learn/{category}", s.handleLearnCategory)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/analytics/overview", s.handleOverview)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /ws", hub.ServeWS(s.store, s.upgrader, s.logger))

	return s.recoverer(s.cors(s.requestLogger(mux)))
}
