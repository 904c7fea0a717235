package brain

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIProvider implements Provider using the OpenAI SDK. It works with any
// OpenAI-compatible endpoint (Ollama, vLLM, Groq, ...) via the base URL.
type openAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

func newOpenAIProvider(apiKey, baseURL, model string, maxTokens int64) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &openAIProvider{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *openAIProvider) Send(ctx context.Context, systemPrompt string, tools []Tool, history []Message) (*Response, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(systemPrompt))
	}
	msgs = append(msgs, toOpenAIMessages(history)...)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: msgs,
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.maxTokens)
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}
	return fromOpenAIChoice(resp.Choices[0].FinishReason, resp.Choices[0].Message), nil
}

func toOpenAITools(tools []Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema.asMap()),
			},
		}
	}
	return out
}

// toOpenAIMessages flattens history. OpenAI wants one "tool" message per
// result rather than a batched user message.
func toOpenAIMessages(history []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range history {
		switch {
		case m.Role == RoleUser && len(m.ToolResults) > 0:
			for _, tr := range m.ToolResults {
				out = append(out, openai.ToolMessage(tr.Content, tr.ID))
			}
		case m.Role == RoleUser:
			out = append(out, openai.UserMessage(m.Text))
		default:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Text != "" {
				asst.Content.OfString = openai.String(m.Text)
			}
			if len(m.ToolCalls) > 0 {
				asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					args := string(tc.Input)
					if args == "" {
						args = "{}"
					}
					asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: args,
						},
					}
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func fromOpenAIChoice(finish string, m openai.ChatCompletionMessage) *Response {
	out := &Response{Text: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: []byte(tc.Function.Arguments),
		})
	}

	switch finish {
	case "stop":
		out.Stop = StopEndTurn
	case "tool_calls", "function_call":
		out.Stop = StopToolUse
	case "length":
		out.Stop = StopMaxTokens
	default:
		out.Stop = StopOther
	}
	return out
}
