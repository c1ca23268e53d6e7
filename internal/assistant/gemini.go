package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiModel is a Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini client authenticated with apiKey.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Generate implements Model.
func (m *GeminiModel) Generate(ctx context.Context, req Request) (Response, error) {
	contents, err := toContents(req.Messages)
	if err != nil {
		return Response{}, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{toGeminiTool(req.Tools)}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}

	out := Response{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return Response{}, fmt.Errorf("encode %s args: %w", fc.Name, err)
		}
		out.Calls = append(out.Calls, ToolCall{ID: fc.ID, Name: fc.Name, Args: string(args)})
	}
	return out, nil
}

func toContents(msgs []Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		var parts []*genai.Part
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		for _, c := range msg.Calls {
			var args map[string]any
			if err := json.Unmarshal([]byte(c.Args), &args); err != nil {
				return nil, fmt.Errorf("decode %s args: %w", c.Name, err)
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: c.ID, Name: c.Name, Args: args}})
		}
		for _, r := range msg.Results {
			var result map[string]any
			if err := json.Unmarshal([]byte(r.Result), &result); err != nil {
				return nil, fmt.Errorf("decode %s result: %w", r.Name, err)
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: r.ID, Name: r.Name, Response: result}})
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: string(msg.Role), Parts: parts})
	}
	return out, nil
}

func toGeminiTool(specs []ToolSpec) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  toGeminiSchema(s),
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func toGeminiSchema(s ToolSpec) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Parameters))
	for name, p := range s.Parameters {
		props[name] = &genai.Schema{
			Type:        geminiType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.RequiredParams(),
	}
}

func geminiType(t string) genai.Type {
	switch t {
	case "boolean":
		return genai.TypeBoolean
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeString
}
