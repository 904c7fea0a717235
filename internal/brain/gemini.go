package brain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// localCallPrefix marks call IDs we invented because Gemini sent none. They
// are never sent back to the API.
const localCallPrefix = "local-call-"

// geminiProvider implements Provider using the Google Gemini API.
type geminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func newGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int64) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiProvider{
		client:    client,
		model:     model,
		maxTokens: int32(maxTokens),
	}, nil
}

func (g *geminiProvider) Send(ctx context.Context, systemPrompt string, tools []Tool, history []Message) (*Response, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, "")
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiDecls(tools)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(history), config)
	if err != nil {
		return nil, err
	}
	return fromGeminiResponse(resp), nil
}

func toGeminiDecls(tools []Tool) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		out[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Schema),
		}
	}
	return out
}

var geminiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{
		Type:        geminiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGeminiSchema(p)
		}
	}
	if s.Items != nil {
		out.Items = toGeminiSchema(s.Items)
	}
	return out
}

func toGeminiContents(history []Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range history {
		role := m.Role
		if role == RoleAssistant {
			role = "model"
		}

		if len(m.ToolResults) > 0 {
			var parts []*genai.Part
			for _, tr := range m.ToolResults {
				part := genai.NewPartFromFunctionResponse(tr.Name, map[string]any{"output": tr.Content})
				part.FunctionResponse.ID = remoteCallID(tr.ID)
				parts = append(parts, part)
			}
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
			continue
		}

		if len(m.ToolCalls) > 0 {
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Input, &args)
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = remoteCallID(tc.ID)
				parts = append(parts, part)
			}
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
			continue
		}

		contents = append(contents, genai.NewContentFromText(m.Text, genai.Role(role)))
	}
	return contents
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{Text: resp.Text()}

	for _, fc := range resp.FunctionCalls() {
		raw, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = localCallPrefix + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Input: raw})
	}

	// Gemini reports STOP for function calls too.
	if len(out.ToolCalls) > 0 {
		out.Stop = StopToolUse
		return out
	}

	var reason genai.FinishReason
	if len(resp.Candidates) > 0 {
		reason = resp.Candidates[0].FinishReason
	}
	switch reason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified, "":
		out.Stop = StopEndTurn
	case genai.FinishReasonMaxTokens:
		out.Stop = StopMaxTokens
	default:
		out.Stop = StopOther
	}
	return out
}

func remoteCallID(id string) string {
	if strings.HasPrefix(id, localCallPrefix) {
		return ""
	}
	return id
}
