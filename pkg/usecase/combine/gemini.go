package combine

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/adapter"
	"github.com/m-mizutani/plenty/pkg/model"
	"google.golang.org/genai"
)

type geminiGenerator struct {
	gemini adapter.Gemini
	prompt string
	schema *genai.Schema
}

// NewGeminiGenerator creates a Generator backed by Gemini structured output
func NewGeminiGenerator(gemini adapter.Gemini, prompt string) (Generator, error) {
	schema, err := convertJSONSchemaToGenai(ResponseSchema())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build response schema")
	}

	return &geminiGenerator{
		gemini: gemini,
		prompt: prompt,
		schema: schema,
	}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, a, b string) (*model.GenerationResult, error) {
	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.prompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
		ResponseSchema: g.schema,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userMessage(a, b), genai.RoleUser),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(model.ErrTransportFailure, "failed to generate combination",
			goerr.V("a", a),
			goerr.V("b", b),
			goerr.V("cause", err))
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, goerr.Wrap(model.ErrTransportFailure, "no candidate in gemini response",
			goerr.V("a", a),
			goerr.V("b", b))
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			parts = append(parts, part.Text)
		}
	}

	return parseResponse(strings.Join(parts, ""))
}
