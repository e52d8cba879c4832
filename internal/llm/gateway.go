package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"hybrid-trading-bot/internal/api"
	"hybrid-trading-bot/internal/config"
	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/trace"
	"hybrid-trading-bot/internal/types"
)

// endpoint is one chat-completion backend (primary or fallback).
type endpoint struct {
	model string
	http  *api.Client
}

func newEndpoint(mc *config.ModelConfig) *endpoint {
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(mc.APIBase, "/")),
		api.WithTimeout(60 * time.Second),
		api.WithLogging(true),
	}
	if mc.APIKey != "" {
		opts = append(opts, api.WithBearerToken(mc.APIKey))
	}
	return &endpoint{model: mc.Model, http: api.NewClient(opts...)}
}

// Gateway sends chat-completion requests to a primary model endpoint and
// retries exactly once against the fallback on any failure. The fallback
// attempt itself never falls back further.
type Gateway struct {
	primary  *endpoint
	fallback *endpoint
}

func NewGateway(primary, fallback *config.ModelConfig) *Gateway {
	g := &Gateway{primary: newEndpoint(primary)}
	if fallback.Configured() {
		g.fallback = newEndpoint(fallback)
	}
	return g
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage map[string]int `json:"usage"`
}

// Complete sends a chat completion request and returns the assistant content.
func (g *Gateway) Complete(ctx context.Context, messages []types.ChatMessage, temperature float64, maxTokens int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	content, err := g.completeOnce(ctx, g.primary, messages, temperature, maxTokens)
	if err == nil {
		return content, nil
	}
	logger.ErrorWithErr(ctx, "Primary LLM call failed", err, "model", g.primary.model)

	if g.fallback == nil {
		return "", err
	}

	logger.Info(ctx, "Attempting LLM fallback", "model", g.fallback.model)
	content, ferr := g.completeOnce(ctx, g.fallback, messages, temperature, maxTokens)
	if ferr != nil {
		logger.ErrorWithErr(ctx, "Fallback LLM call failed", ferr, "model", g.fallback.model)
		return "", ferr
	}
	return content, nil
}

func (g *Gateway) completeOnce(ctx context.Context, ep *endpoint, messages []types.ChatMessage, temperature float64, maxTokens int) (string, error) {
	var resp completionResponse
	req := api.NewRequest("POST", "/v1/chat/completions").
		WithContext(ctx).
		WithBody(completionRequest{
			Model:       ep.model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})

	if err := ep.http.DoJSON(req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
