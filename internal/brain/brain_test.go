package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// scriptedProvider replays responses in order and records every history it
// was sent.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*Response
	calls     int
	histories [][]Message
	tools     [][]Tool
	err       error
}

func (p *scriptedProvider) Send(_ context.Context, _ string, tools []Tool, history []Message) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.histories = append(p.histories, append([]Message(nil), history...))
	p.tools = append(p.tools, tools)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	r := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return r, nil
}

// echoExecutor returns a JSON envelope naming the tool and its input.
type echoExecutor struct {
	mu      sync.Mutex
	invoked []string
	delay   map[string]time.Duration
}

func (e *echoExecutor) Tools() []Tool {
	return []Tool{{Name: "search_exercises", Description: "search", Schema: &Schema{Type: "object"}}}
}

func (e *echoExecutor) Invoke(_ context.Context, name string, input json.RawMessage) string {
	if d := e.delay[name]; d > 0 {
		time.Sleep(d)
	}
	e.mu.Lock()
	e.invoked = append(e.invoked, name)
	e.mu.Unlock()
	return fmt.Sprintf(`{"success":true,"tool":%q,"input":%s}`, name, input)
}

func toolTurn(calls ...ToolCall) *Response {
	return &Response{Stop: StopToolUse, ToolCalls: calls}
}

func TestAsk_EndTurnReturnsText(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: "Train fingers.", Stop: StopEndTurn}}}
	b := NewWithProvider(p, 6, false)

	got, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "help")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Train fingers." {
		t.Errorf("unexpected reply %q", got)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 model call, got %d", p.calls)
	}
	if len(p.tools[0]) != 1 || p.tools[0][0].Name != "search_exercises" {
		t.Errorf("expected executor tools to be offered, got %+v", p.tools[0])
	}
}

func TestAsk_ToolRoundTrip(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		{
			Text: "Let me look.",
			Stop: StopToolUse,
			ToolCalls: []ToolCall{
				{ID: "call_1", Name: "search_exercises", Input: json.RawMessage(`{"query":"fingers"}`)},
				{ID: "call_2", Name: "get_training_load", Input: json.RawMessage(`{}`)},
			},
		},
		{Text: "Here is your plan.", Stop: StopEndTurn},
	}}
	exec := &echoExecutor{}
	b := NewWithProvider(p, 6, false)

	got, err := b.Ask(context.Background(), "sys", exec, "plan my week")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Here is your plan." {
		t.Errorf("unexpected reply %q", got)
	}

	second := p.histories[1]
	if len(second) != 3 {
		t.Fatalf("expected user, assistant, tool-results; got %d messages", len(second))
	}
	asst := second[1]
	if asst.Role != RoleAssistant || asst.Text != "Let me look." || len(asst.ToolCalls) != 2 {
		t.Errorf("unexpected assistant turn: %+v", asst)
	}

	res := second[2]
	if res.Role != RoleUser || len(res.ToolResults) != 2 {
		t.Fatalf("expected one batched result message, got %+v", res)
	}
	if res.ToolResults[0].ID != "call_1" || res.ToolResults[1].ID != "call_2" {
		t.Errorf("result ids out of order: %+v", res.ToolResults)
	}
	if res.ToolResults[1].Name != "get_training_load" {
		t.Errorf("expected tool name on result, got %q", res.ToolResults[1].Name)
	}
	for _, tr := range res.ToolResults {
		if !json.Valid([]byte(tr.Content)) {
			t.Errorf("tool result is not valid JSON: %s", tr.Content)
		}
	}
}

func TestAsk_ExhaustsIterations(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		toolTurn(ToolCall{ID: "c", Name: "search_exercises", Input: json.RawMessage(`{}`)}),
	}}
	b := NewWithProvider(p, 6, false)

	got, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "loop forever")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != ExhaustedMessage {
		t.Errorf("expected exhausted message, got %q", got)
	}
	if p.calls != 6 {
		t.Errorf("expected exactly 6 model calls, got %d", p.calls)
	}
}

func TestAsk_DefaultIterations(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		toolTurn(ToolCall{ID: "c", Name: "search_exercises", Input: json.RawMessage(`{}`)}),
	}}
	b := NewWithProvider(p, 0, false)

	if _, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "q"); err != nil {
		t.Fatal(err)
	}
	if p.calls != DefaultMaxIterations {
		t.Errorf("expected %d model calls, got %d", DefaultMaxIterations, p.calls)
	}
}

func TestAsk_UnexpectedStop(t *testing.T) {
	for _, stop := range []StopReason{StopMaxTokens, StopOther} {
		p := &scriptedProvider{responses: []*Response{{Text: "partial", Stop: stop}}}
		b := NewWithProvider(p, 6, false)

		got, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "q")
		if err != nil {
			t.Fatalf("%s: %v", stop, err)
		}
		if got != FallbackMessage {
			t.Errorf("%s: expected fallback message, got %q", stop, got)
		}
	}
}

func TestAsk_ToolUseWithoutCallsIsTerminal(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: "done anyway", Stop: StopToolUse}}}
	b := NewWithProvider(p, 6, false)

	got, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "q")
	if err != nil {
		t.Fatal(err)
	}
	if got != "done anyway" || p.calls != 1 {
		t.Errorf("expected terminal reply after one call, got %q (%d calls)", got, p.calls)
	}
}

func TestAsk_ProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection refused")}
	b := NewWithProvider(p, 6, false)

	if _, err := b.Ask(context.Background(), "sys", &echoExecutor{}, "q"); err == nil {
		t.Fatal("expected provider error to be returned")
	}
}

func TestAsk_ParallelKeepsOrder(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{
		toolTurn(
			ToolCall{ID: "slow", Name: "slow", Input: json.RawMessage(`{}`)},
			ToolCall{ID: "fast", Name: "fast", Input: json.RawMessage(`{}`)},
		),
		{Text: "ok", Stop: StopEndTurn},
	}}
	exec := &echoExecutor{delay: map[string]time.Duration{"slow": 50 * time.Millisecond}}
	b := NewWithProvider(p, 6, true)

	if _, err := b.Ask(context.Background(), "sys", exec, "q"); err != nil {
		t.Fatal(err)
	}

	results := p.histories[1][2].ToolResults
	if results[0].ID != "slow" || results[1].ID != "fast" {
		t.Errorf("results should follow call order, got %+v", results)
	}
	if exec.invoked[0] != "fast" {
		t.Errorf("expected calls to run concurrently, invocation order %v", exec.invoked)
	}
}

func TestComplete(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: `{"name":"x"}`, Stop: StopEndTurn}}}
	b := NewWithProvider(p, 6, false)

	got, err := b.Complete(context.Background(), "", "parse this")
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"name":"x"}` {
		t.Errorf("unexpected completion %q", got)
	}
	if p.tools[0] != nil {
		t.Errorf("Complete should not offer tools, got %+v", p.tools[0])
	}
}

func TestNewProvider_Selection(t *testing.T) {
	ctx := context.Background()

	if _, err := newProvider(ctx, Config{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
	if _, err := newProvider(ctx, Config{Provider: "claude"}); err == nil {
		t.Error("expected error when claude is forced without a key")
	}
	if _, err := newProvider(ctx, Config{Provider: "llama"}); err == nil {
		t.Error("expected error for unknown provider")
	}

	p, err := newProvider(ctx, Config{ClaudeAPIKey: "k", OpenAIAPIKey: "o", ClaudeModel: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*claudeProvider); !ok {
		t.Errorf("expected claude to win auto-detect, got %T", p)
	}

	p, err = newProvider(ctx, Config{OpenAIBaseURL: "http://localhost:11434/v1", OpenAIModel: "llama3"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*openAIProvider); !ok {
		t.Errorf("expected openai provider for a base url, got %T", p)
	}
}
