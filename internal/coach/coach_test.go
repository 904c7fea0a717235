package coach

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/moorebrett0/climbcoach/internal/brain"
)

// replayProvider answers with its responses in order and records what the
// brain sent.
type replayProvider struct {
	responses []*brain.Response
	calls     int
	system    string
	history   [][]brain.Message
}

func (p *replayProvider) Send(_ context.Context, systemPrompt string, _ []brain.Tool, history []brain.Message) (*brain.Response, error) {
	p.system = systemPrompt
	p.history = append(p.history, append([]brain.Message(nil), history...))
	r := p.responses[min(p.calls, len(p.responses)-1)]
	p.calls++
	return r, nil
}

type failingAsker struct{}

func (failingAsker) Ask(context.Context, string, brain.Executor, string) (string, error) {
	return "", errors.New("upstream down")
}

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"full", "simple"} {
		if v, err := ParseVariant(s); err != nil || string(v) != s {
			t.Errorf("ParseVariant(%q) = %q, %v", s, v, err)
		}
	}
	if _, err := ParseVariant("Full"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestRegistry(t *testing.T) {
	full := Registry(VariantFull)
	want := []string{"get_training_load", "lookup_workouts", "search_exercises", "create_workout", "create_training_session", "find_similar_climbers"}
	if len(full) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(full))
	}
	for i, tool := range full {
		if tool.Name != want[i] {
			t.Errorf("tool %d = %s, want %s", i, tool.Name, want[i])
		}
		if tool.Description == "" || tool.Schema == nil {
			t.Errorf("tool %s has no description or schema", tool.Name)
		}
	}

	simple := Registry(VariantSimple)
	if len(simple) != 2 || simple[0].Name != "search_exercises" || simple[1].Name != "create_workout" {
		t.Errorf("unexpected simple registry %v", simple)
	}
	if len(Registry("nope")) != 0 {
		t.Error("unknown variant should have no tools")
	}
}

func TestSystemPrompt(t *testing.T) {
	full := SystemPrompt(VariantFull, fixedNow())
	if !strings.Contains(full, "Today is Friday, October 10, 2025.") {
		t.Errorf("prompt missing date:\n%s", full)
	}
	if !strings.Contains(full, "Use get_training_load FIRST") || !strings.Contains(full, "find_similar_climbers") {
		t.Error("full prompt should describe the load-first workflow and every tool")
	}

	simple := SystemPrompt(VariantSimple, fixedNow())
	if strings.Contains(simple, "get_training_load") {
		t.Error("simple prompt should not mention disabled tools")
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	c := New(failingAsker{}, VariantFull, Deps{Now: fixedNow})
	if _, err := c.Ask(context.Background(), "  \n"); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAsk_ProviderError(t *testing.T) {
	c := New(failingAsker{}, VariantFull, Deps{Now: fixedNow})
	if _, err := c.Ask(context.Background(), "hi"); err == nil {
		t.Error("expected error")
	}
}

func TestAsk_ToolLoop(t *testing.T) {
	provider := &replayProvider{responses: []*brain.Response{
		{
			Stop: brain.StopToolUse,
			ToolCalls: []brain.ToolCall{
				{ID: "c1", Name: "search_exercises", Input: json.RawMessage(`{"query":"grip"}`)},
				{ID: "c2", Name: "get_training_load", Input: json.RawMessage(`{}`)},
			},
		},
		{Stop: brain.StopEndTurn, Text: "Do wrist curls."},
	}}
	c := New(brain.NewWithProvider(provider, 0, false), VariantSimple, Deps{Exercises: testIndex(t), Now: fixedNow})

	answer, err := c.Ask(context.Background(), " what builds grip? ")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Do wrist curls." {
		t.Errorf("unexpected answer %q", answer)
	}
	if !strings.Contains(provider.system, "Today is Friday, October 10, 2025.") {
		t.Error("system prompt not sent")
	}

	second := provider.history[1]
	if len(second) != 3 || second[0].Text != "what builds grip?" {
		t.Fatalf("unexpected history %+v", second)
	}
	results := second[2].ToolResults
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}
	if !strings.Contains(results[0].Content, "Wrist Curl") {
		t.Errorf("search result missing exercise: %s", results[0].Content)
	}
	if !strings.Contains(results[1].Content, "Unknown tool: get_training_load") {
		t.Errorf("disabled tool should be unknown: %s", results[1].Content)
	}
}
