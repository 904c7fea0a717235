package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ExhaustedMessage is returned when the model keeps calling tools past the
// iteration budget.
const ExhaustedMessage = "Maximum iterations reached. Please try rephrasing your question."

// FallbackMessage is returned when the model stops for a reason other than a
// finished answer or a tool request.
const FallbackMessage = "Sorry, I couldn't finish that answer. Please try asking again."

// DefaultMaxIterations bounds model calls per question.
const DefaultMaxIterations = 6

// ErrNoProvider means no API key was configured for any provider.
var ErrNoProvider = errors.New("no AI provider configured")

// Executor runs the tools a model asks for. Invoke always returns a JSON
// envelope; tool failures are reported inside it, never as a Go error.
type Executor interface {
	Tools() []Tool
	Invoke(ctx context.Context, name string, input json.RawMessage) string
}

// Brain drives the tool-calling loop over an AI provider.
type Brain struct {
	provider      Provider
	maxIterations int
	parallel      bool
}

// Config for creating a Brain.
type Config struct {
	// Claude
	ClaudeAPIKey string
	ClaudeModel  string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// OpenAI or any OpenAI-compatible endpoint
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Which provider to force ("claude", "gemini", "openai", or "" for auto-detect)
	Provider string

	MaxTokens     int64
	MaxIterations int
	ParallelTools bool
}

// New creates a Brain with the configured provider.
func New(ctx context.Context, cfg Config) (*Brain, error) {
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProvider(provider, cfg.MaxIterations, cfg.ParallelTools), nil
}

// NewWithProvider creates a Brain around an existing provider.
func NewWithProvider(p Provider, maxIterations int, parallel bool) *Brain {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Brain{
		provider:      p,
		maxIterations: maxIterations,
		parallel:      parallel,
	}
}

// newProvider auto-detects or forces the AI provider.
func newProvider(ctx context.Context, cfg Config) (Provider, error) {
	pick := cfg.Provider

	// Auto-detect if not forced
	if pick == "" {
		switch {
		case cfg.ClaudeAPIKey != "":
			pick = "claude"
		case cfg.GeminiAPIKey != "":
			pick = "gemini"
		case cfg.OpenAIAPIKey != "" || cfg.OpenAIBaseURL != "":
			pick = "openai"
		}
	}

	switch pick {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER=claude but ANTHROPIC_API_KEY is not set")
		}
		slog.Info("brain: using claude", "model", cfg.ClaudeModel)
		return newClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.MaxTokens), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("AI_PROVIDER=gemini but GOOGLE_API_KEY is not set")
		}
		slog.Info("brain: using gemini", "model", cfg.GeminiModel)
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("create gemini provider: %w", err)
		}
		return p, nil
	case "openai":
		slog.Info("brain: using openai", "model", cfg.OpenAIModel, "base_url", cfg.OpenAIBaseURL)
		return newOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MaxTokens), nil
	case "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown AI provider %q", pick)
	}
}

// Ask answers userMessage, letting the model call exec's tools for at most
// the configured number of rounds. Only a provider failure is returned as an
// error; every other outcome is a message for the user.
func (b *Brain) Ask(ctx context.Context, systemPrompt string, exec Executor, userMessage string) (string, error) {
	tools := exec.Tools()
	history := []Message{
		{Role: RoleUser, Text: userMessage},
	}

	// Tool-use loop
	for i := 0; i < b.maxIterations; i++ {
		resp, err := b.provider.Send(ctx, systemPrompt, tools, history)
		if err != nil {
			slog.Error("brain: AI API error", "iteration", i+1, "err", err)
			return "", fmt.Errorf("AI API error: %w", err)
		}

		switch resp.Stop {
		case StopEndTurn:
			return resp.Text, nil
		case StopToolUse:
			if len(resp.ToolCalls) == 0 {
				return resp.Text, nil
			}
		default:
			slog.Warn("brain: unexpected stop reason", "reason", resp.Stop, "iteration", i+1)
			return FallbackMessage, nil
		}

		// Build assistant message with text + tool calls
		history = append(history, Message{
			Role:      RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		history = append(history, Message{
			Role:        RoleUser,
			ToolResults: b.runTools(ctx, exec, resp.ToolCalls),
		})
	}

	// Hit max iterations
	slog.Warn("brain: hit max iterations", "max", b.maxIterations)
	return ExhaustedMessage, nil
}

// runTools resolves every call of one turn. Results keep the order of calls
// even when they run concurrently.
func (b *Brain) runTools(ctx context.Context, exec Executor, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	run := func(ctx context.Context, i int) {
		tc := calls[i]
		start := time.Now()
		content := exec.Invoke(ctx, tc.Name, tc.Input)
		slog.Info("brain: tool call", "tool", tc.Name, "id", tc.ID, "duration", time.Since(start))
		results[i] = ToolResult{ID: tc.ID, Name: tc.Name, Content: content}
	}

	if !b.parallel || len(calls) < 2 {
		for i := range calls {
			run(ctx, i)
		}
		return results
	}

	var g errgroup.Group
	for i := range calls {
		g.Go(func() error {
			run(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Complete runs a single tool-less exchange and returns the model's text.
func (b *Brain) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := b.provider.Send(ctx, systemPrompt, nil, []Message{{Role: RoleUser, Text: prompt}})
	if err != nil {
		return "", fmt.Errorf("AI API error: %w", err)
	}
	return resp.Text, nil
}
