package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intelligrit/wingstack/internal/config"
	"github.com/intelligrit/wingstack/internal/metrics"
)

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend for a JSON object answer where it supports that.
	JSON bool
}

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// NewCompleter builds the backend named by cfg.Provider.
func NewCompleter(cfg config.ExtractConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		return NewClient(cfg.Model)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.Model, cfg.OpenAIURL)
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Model, cfg.OllamaURL)
	}
	return nil, fmt.Errorf("unsupported extraction provider: %s", cfg.Provider)
}

// Gateway sends extraction tasks to a Completer. It never retries.
type Gateway struct {
	completer Completer
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGateway wraps c. A zero timeout means the caller's context alone bounds
// the call.
func NewGateway(c Completer, maxTokens int, timeout time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Gateway{completer: c, maxTokens: maxTokens, timeout: timeout, logger: logger}
}

// Extract runs kind over payload and returns the model's raw text. Every
// failure, including the timeout, is a *GatewayError.
func (g *Gateway) Extract(ctx context.Context, kind TaskKind, payload string) (string, error) {
	prompt, err := BuildPrompt(kind, payload)
	if err != nil {
		return "", &GatewayError{Task: kind, Err: err}
	}
	prompt.MaxTokens = g.maxTokens
	prompt.Temperature = 0

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.completer.Complete(ctx, prompt)
	elapsed := time.Since(start)

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.GatewayDuration.WithLabelValues(string(kind), outcome).Observe(elapsed.Seconds())
		g.logger.Warn("model call failed", "task", kind, "outcome", outcome, "elapsed", elapsed, "error", err)
		return "", &GatewayError{Task: kind, Err: err}
	}

	metrics.GatewayDuration.WithLabelValues(string(kind), "ok").Observe(elapsed.Seconds())
	g.logger.Debug("model call complete", "task", kind, "elapsed", elapsed, "chars", len(text))
	return text, nil
}
