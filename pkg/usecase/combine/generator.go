package combine

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

//go:embed prompt/combine.md
var defaultPromptRaw string

// Generator produces a new combination for a pair of element names.
// It neither caches nor persists anything.
type Generator interface {
	Generate(ctx context.Context, a, b string) (*model.GenerationResult, error)
}

// DefaultPrompt returns the built-in system instruction
func DefaultPrompt() string {
	return normalizePrompt(defaultPromptRaw)
}

// LoadPrompt reads a system instruction from path. An empty path returns the
// built-in prompt.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DefaultPrompt(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read prompt file", goerr.V("path", path))
	}

	prompt := normalizePrompt(string(data))
	if prompt == "" {
		return "", goerr.New("prompt file is empty", goerr.V("path", path))
	}
	return prompt, nil
}

// normalizePrompt folds line breaks into spaces so the instruction is sent as one line
func normalizePrompt(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// userMessage is the comma separated pair sent to the model
func userMessage(a, b string) string {
	return strings.Join([]string{a, b}, ",")
}

type generationResponse struct {
	Object  *string `json:"object"`
	Emoji   *string `json:"emoji"`
	Success *bool   `json:"success"`
}

// decodeResponse matches field names exactly; encoding/json alone would accept "OBJECT" for "object"
func decodeResponse(text string) (*generationResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, err
	}

	var resp generationResponse
	for name, dst := range map[string]any{
		"object":  &resp.Object,
		"emoji":   &resp.Emoji,
		"success": &resp.Success,
	} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return nil, goerr.Wrap(err, "invalid field", goerr.V("field", name))
		}
	}
	return &resp, nil
}

// parseResponse validates the raw text returned by a model
func parseResponse(raw string) (*model.GenerationResult, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "empty response")
	}

	resp, err := decodeResponse(text)
	if err != nil {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "failed to unmarshal response",
			goerr.V("json", raw),
			goerr.V("cause", err.Error()))
	}

	if resp.Object == nil || strings.TrimSpace(*resp.Object) == "" ||
		resp.Emoji == nil || strings.TrimSpace(*resp.Emoji) == "" ||
		resp.Success == nil {
		return nil, goerr.Wrap(model.ErrIncompleteResponse, "required field is missing", goerr.V("json", raw))
	}

	if !*resp.Success {
		return &model.GenerationResult{Accepted: false}, nil
	}

	return &model.GenerationResult{
		Name:     strings.TrimSpace(*resp.Object),
		Emoji:    strings.TrimSpace(*resp.Emoji),
		Accepted: true,
	}, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite instructions
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
