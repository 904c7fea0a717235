// Package coach turns the datasets and the persistence client into tools for
// the model and answers climbing questions with them.
package coach

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/moorebrett0/climbcoach/internal/brain"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("empty question")

// Asker runs the tool-calling loop.
type Asker interface {
	Ask(ctx context.Context, systemPrompt string, exec brain.Executor, userMessage string) (string, error)
}

// Coach answers questions. It is safe for concurrent use.
type Coach struct {
	asker      Asker
	dispatcher *Dispatcher
	variant    Variant
	now        func() time.Time
}

// New creates a coach for the given variant.
func New(asker Asker, v Variant, deps Deps) *Coach {
	d := NewDispatcher(v, deps)
	return &Coach{
		asker:      asker,
		dispatcher: d,
		variant:    v,
		now:        d.deps.Now,
	}
}

// Ask answers one question. Provider failures are returned as errors;
// everything else, including iteration exhaustion, is a reply.
func (c *Coach) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	start := time.Now()
	reply, err := c.asker.Ask(ctx, SystemPrompt(c.variant, c.now()), c.dispatcher, question)
	if err != nil {
		return "", err
	}
	slog.Info("coach: answered", "variant", c.variant, "duration", time.Since(start), "reply_len", len(reply))
	return reply, nil
}

// Tools returns the descriptors this coach offers the model.
func (c *Coach) Tools() []brain.Tool {
	return c.dispatcher.Tools()
}
