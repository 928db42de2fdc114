package api

import (
	"errors"
	"maps"
	"net/http"
	"strings"

	"bltp/internal/content"
	"bltp/internal/market"
	"bltp/internal/refresher"
	"bltp/internal/state"
	"bltp/pkg/alphavantage"

	"go.uber.org/zap"
)

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	_, err := s.refresher.RefreshIndices(r.Context())
	switch {
	case errors.Is(err, refresher.ErrAlreadyRunning):
		// A scheduled refresh is in flight; serve what the store holds.
	case err != nil:
		s.logger.Warn("index refresh failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch market indices")
		return
	}
	s.writeData(w, s.store.Indices())
}

func (s *Server) handleBonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := s.refresher.RefreshBonds(r.Context())
	switch {
	case errors.Is(err, refresher.ErrAlreadyRunning):
		bonds = s.store.Bonds()
	case err != nil:
		s.logger.Warn("bond refresh failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch bond data")
		return
	}
	s.writeData(w, bonds)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	interval, err := alphavantage.ParseSeriesInterval(r.URL.Query().Get("interval"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candles, err := s.history.History(r.Context(), symbol, interval)
	if err != nil {
		s.logger.Warn("historical fetch failed", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch historical data")
		return
	}
	s.writeData(w, candles)
}

type createPortfolioRequest struct {
	Name  string            `json:"name"`
	Bonds []market.LineItem `json:"bonds"`
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, s.store.Portfolios())
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.store.CreatePortfolio(req.Name, req.Bonds)
	if err != nil {
		s.portfolioError(w, err, "Failed to create portfolio")
		return
	}
	s.writeData(w, p)
}

func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	var patch market.PortfolioPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.store.UpdatePortfolio(r.PathValue("id"), patch)
	if err != nil {
		s.portfolioError(w, err, "Failed to update portfolio")
		return
	}
	s.writeData(w, p)
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePortfolio(r.PathValue("id")); err != nil {
		s.portfolioError(w, err, "Failed to delete portfolio")
		return
	}
	s.writeData(w, map[string]string{"message": "Portfolio deleted successfully"})
}

func (s *Server) portfolioError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, state.ErrPortfolioNotFound):
		s.writeError(w, http.StatusNotFound, "Portfolio not found")
	case errors.Is(err, state.ErrInvalidPortfolio):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(fallback, zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fallback)
	}
}

type chatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	chatContext := make(map[string]any, len(req.Context)+2)
	maps.Copy(chatContext, req.Context)
	chatContext["marketData"] = s.store.Indices()
	chatContext["bondData"] = len(s.store.Bonds())

	reply := s.advisor.Chat(r.Context(), req.Message, chatContext)
	s.writeData(w, map[string]string{"response": reply})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	summary := map[string]any{
		"indices":    s.store.Indices(),
		"bondsCount": len(s.store.Bonds()),
		"timestamp":  s.clock.Now(),
	}
	s.writeData(w, map[string]string{"insights": s.advisor.Insights(r.Context(), summary)})
}

func (s *Server) handleLearn(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, s.store.Learning())
}

func (s *Server) handleLearnCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.LearningCategory(r.PathValue("category"))
	if errors.Is(err, content.ErrCategoryNotFound) {
		s.writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load learning content")
		return
	}
	s.writeData(w, cat)
}

func (s *Server) handleNews(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, s.store.News())
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, s.store.Overview())
}

type healthStatus struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Services  map[string]bool `json:"services"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, healthStatus{
		Status:    "healthy",
		Timestamp: s.clock.Now().Format("2006-01-02T15:04:05.000Z07:00"),
		Services: map[string]bool{
			"alphaVantage": s.services.AlphaVantage,
			"geminiAI":     s.services.Gemini,
			"websocket":    s.store.Hub().Clients() > 0,
		},
	})
}
