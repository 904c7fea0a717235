package brain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeProvider implements Provider using the Anthropic Claude API.
type claudeProvider struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func newClaudeProvider(apiKey, model string, maxTokens int64) *claudeProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &claudeProvider{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

func (c *claudeProvider) Send(ctx context.Context, systemPrompt string, tools []Tool, history []Message) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  toClaudeMessages(history),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = toClaudeTools(tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	return fromClaudeMessage(resp), nil
}

func toClaudeTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := t.Schema.asMap()
		var required []string
		if t.Schema != nil {
			required = t.Schema.Required
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
					Required:   required,
				},
			},
		}
	}
	return out
}

// toClaudeMessages converts history to Anthropic params. Tool results go back
// as a single user message holding one tool_result block per call.
func toClaudeMessages(history []Message) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleUser:
			if len(m.ToolResults) > 0 {
				blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
				for _, tr := range m.ToolResults {
					blocks = append(blocks, anthropic.NewToolResultBlock(tr.ID, tr.Content, false))
				}
				msgs = append(msgs, anthropic.NewUserMessage(blocks...))
			} else {
				msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
			}
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Input
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return msgs
}

func fromClaudeMessage(resp *anthropic.Message) *Response {
	out := &Response{Stop: claudeStopReason(resp.StopReason)}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:    tu.ID,
				Name:  tu.Name,
				Input: tu.Input,
			})
		}
	}
	out.Text = text.String()
	return out
}

func claudeStopReason(r anthropic.StopReason) StopReason {
	switch r {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return StopEndTurn
	case anthropic.StopReasonToolUse:
		return StopToolUse
	case anthropic.StopReasonMaxTokens:
		return StopMaxTokens
	default:
		return StopOther
	}
}
