// internal/llm/gemini.go
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	genai "google.golang.org/genai"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/config"
)

// GeminiClient is a thin wrapper around the official genai client that
// implements schemas.LLMClient. A token-bucket limiter spaces requests so
// batch evaluations stay inside the provider's rate limits.
type GeminiClient struct {
	cli     *genai.Client
	model   string
	cfg     config.LLMConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGeminiClient creates a client for the configured model. The genai SDK
// reads the API key from the environment when cfg.APIKey is empty.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	cli, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger.Info("Model client initialized.", zap.String("model", cfg.Model), zap.Float64("rps", rps))
	return &GeminiClient{
		cli:     cli,
		model:   cfg.Model,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.Named("gemini"),
	}, nil
}

// Generate produces a completion for the request, honoring the rate limit.
func (g *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	temperature := float32(req.Options.Temperature)
	genCfg.Temperature = &temperature
	if req.Options.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}
	if req.Options.ForceJSONFormat {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.UserPrompt}}}},
		genCfg,
	)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Close releases client resources. The genai client holds no long-lived
// connections, so this is currently a no-op kept for the interface.
func (g *GeminiClient) Close() error { return nil }
