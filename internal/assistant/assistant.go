package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const (
	ChatFallback     = "I'm sorry, I'm having trouble processing your request right now. Please try again."
	InsightsFallback = "Market analysis temporarily unavailable."
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assistant turns chat messages and market summaries into prompts. It never
// returns an error: collaborator failures become the fallback text.
type Assistant struct {
	gen    Generator
	logger *zap.Logger
}

func New(gen Generator, logger *zap.Logger) *Assistant {
	return &Assistant{gen: gen, logger: logger}
}

// Chat answers a user message. chatContext is included in the prompt as JSON.
func (a *Assistant) Chat(ctx context.Context, message string, chatContext map[string]any) string {
	prompt := fmt.Sprintf(`You are BLTP AI, an expert bond trading assistant for Indian markets.

User message: %s

Context: %s

Provide helpful, accurate information about bonds, trading strategies, market analysis, or platform features.
Keep responses concise but informative. Focus on Indian bond markets when relevant.`, message, encode(chatContext))

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("chat generation failed", zap.Error(err))
		return ChatFallback
	}
	return text
}

// Insights asks for three short insights about the given market summary.
func (a *Assistant) Insights(ctx context.Context, summary any) string {
	prompt := fmt.Sprintf(`Analyze this Indian market data and provide 3 key insights for bond traders:

Market Data: %s

Provide insights in this format:
1. Market trend analysis
2. Bond opportunity identification
3. Risk assessment

Keep each insight under 50 words.`, encode(summary))

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("insight generation failed", zap.Error(err))
		return InsightsFallback
	}
	return text
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
