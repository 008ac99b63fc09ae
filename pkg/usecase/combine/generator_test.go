package combine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/usecase/combine"
	"google.golang.org/genai"
)

// mockGemini is a mock implementation of adapter.Gemini for testing
type mockGemini struct {
	generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, contents, config)
	}
	return nil, errors.New("not implemented")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

// mockClaude is a mock implementation of adapter.Claude for testing
type mockClaude struct {
	chatFunc func(ctx context.Context, system string, messages []anthropic.MessageParam) (*anthropic.Message, error)
}

func (m *mockClaude) Chat(ctx context.Context, system string, messages []anthropic.MessageParam) (*anthropic.Message, error) {
	if m.chatFunc != nil {
		return m.chatFunc(ctx, system, messages)
	}
	return nil, errors.New("not implemented")
}

func TestParseResponse(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		err      error
		accepted bool
		object   string
		emoji    string
	}{
		{
			name:     "accepted",
			raw:      `{"object": "Steam", "emoji": "💨", "success": true}`,
			accepted: true,
			object:   "Steam",
			emoji:    "💨",
		},
		{
			name:     "accepted with code fence",
			raw:      "```json\n{\"object\": \"Mud\", \"emoji\": \"🟤\", \"success\": true}\n```",
			accepted: true,
			object:   "Mud",
			emoji:    "🟤",
		},
		{
			name:     "declined",
			raw:      `{"object": "Nothing", "emoji": "❌", "success": false}`,
			accepted: false,
		},
		{
			name: "not json",
			raw:  `Steam 💨`,
			err:  model.ErrMalformedResponse,
		},
		{
			name: "empty",
			raw:  "  ",
			err:  model.ErrMalformedResponse,
		},
		{
			name: "missing success",
			raw:  `{"object": "Steam", "emoji": "💨"}`,
			err:  model.ErrIncompleteResponse,
		},
		{
			name: "missing emoji",
			raw:  `{"object": "Steam", "success": true}`,
			err:  model.ErrIncompleteResponse,
		},
		{
			name: "empty object",
			raw:  `{"object": "", "emoji": "💨", "success": true}`,
			err:  model.ErrIncompleteResponse,
		},
		{
			name: "success only",
			raw:  `{"success": false}`,
			err:  model.ErrIncompleteResponse,
		},
		{
			name: "field names differ in case",
			raw:  `{"OBJECT": "Steam", "Emoji": "💨", "SUCCESS": true}`,
			err:  model.ErrIncompleteResponse,
		},
		{
			name: "array instead of object",
			raw:  `[{"object": "Steam", "emoji": "💨", "success": true}]`,
			err:  model.ErrMalformedResponse,
		},
		{
			name: "wrong type",
			raw:  `{"object": "Steam", "emoji": "💨", "success": "yes"}`,
			err:  model.ErrMalformedResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := combine.ParseResponseForTest(tc.raw)
			if tc.err != nil {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, tc.err))
				return
			}

			gt.NoError(t, err)
			gt.Equal(t, result.Accepted, tc.accepted)
			gt.Equal(t, result.Name, tc.object)
			gt.Equal(t, result.Emoji, tc.emoji)
		})
	}
}

func TestUserMessage(t *testing.T) {
	gt.Equal(t, combine.UserMessageForTest("Water", "Fire"), "Water,Fire")
}

func TestLoadPrompt(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		prompt, err := combine.LoadPrompt("")
		gt.NoError(t, err)
		gt.S(t, prompt).Contains(`"object"`)
		gt.False(t, strings.Contains(prompt, "\n"))
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		gt.NoError(t, os.WriteFile(path, []byte("line one\r\nline two\n"), 0644))

		prompt, err := combine.LoadPrompt(path)
		gt.NoError(t, err)
		gt.Equal(t, prompt, "line one line two")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		gt.NoError(t, os.WriteFile(path, []byte("\n\n"), 0644))

		_, err := combine.LoadPrompt(path)
		gt.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := combine.LoadPrompt(filepath.Join(t.TempDir(), "nope.txt"))
		gt.Error(t, err)
	})
}

func TestGeminiGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("sends prompt and pair", func(t *testing.T) {
		var (
			gotUser   string
			gotSystem string
			gotMIME   string
			gotSchema *genai.Schema
		)
		mock := &mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				gotUser = contents[0].Parts[0].Text
				gotSystem = config.SystemInstruction.Parts[0].Text
				gotMIME = config.ResponseMIMEType
				gotSchema = config.ResponseSchema
				return textResponse(`{"object": "Steam", "emoji": "💨", "success": true}`), nil
			},
		}

		gen, err := combine.NewGeminiGenerator(mock, "combine things")
		gt.NoError(t, err)
		result, err := gen.Generate(ctx, "Water", "Fire")
		gt.NoError(t, err)
		gt.True(t, result.Accepted)
		gt.Equal(t, result.Name, "Steam")
		gt.Equal(t, gotUser, "Water,Fire")
		gt.Equal(t, gotSystem, "combine things")
		gt.Equal(t, gotMIME, "application/json")
		gt.Equal(t, gotSchema.Type, genai.TypeObject)
		gt.A(t, gotSchema.Required).Length(3)
		gt.Equal(t, gotSchema.Properties["success"].Type, genai.TypeBoolean)
	})

	t.Run("api error is transport failure", func(t *testing.T) {
		mock := &mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}
			},
		}

		gen, err := combine.NewGeminiGenerator(mock, "p")
		gt.NoError(t, err)
		_, err = gen.Generate(ctx, "Water", "Fire")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrTransportFailure))
	})

	t.Run("no candidates is transport failure", func(t *testing.T) {
		mock := &mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{}, nil
			},
		}

		gen, err := combine.NewGeminiGenerator(mock, "p")
		gt.NoError(t, err)
		_, err = gen.Generate(ctx, "Water", "Fire")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrTransportFailure))
	})

	t.Run("malformed text", func(t *testing.T) {
		mock := &mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse(`{"object": `), nil
			},
		}

		gen, err := combine.NewGeminiGenerator(mock, "p")
		gt.NoError(t, err)
		_, err = gen.Generate(ctx, "Water", "Fire")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrMalformedResponse))
	})
}

func TestClaudeGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		var gotSystem string
		mock := &mockClaude{
			chatFunc: func(ctx context.Context, system string, messages []anthropic.MessageParam) (*anthropic.Message, error) {
				gotSystem = system
				gt.A(t, messages).Length(1)
				return &anthropic.Message{
					Content: []anthropic.ContentBlockUnion{
						{Type: "text", Text: `{"object": "Lava", "emoji": "🌋", "success": true}`},
					},
				}, nil
			},
		}

		result, err := combine.NewClaudeGenerator(mock, "combine things").Generate(ctx, "Fire", "Earth")
		gt.NoError(t, err)
		gt.True(t, result.Accepted)
		gt.Equal(t, result.Name, "Lava")
		gt.Equal(t, result.Emoji, "🌋")
		gt.Equal(t, gotSystem, "combine things")
	})

	t.Run("declined", func(t *testing.T) {
		mock := &mockClaude{
			chatFunc: func(ctx context.Context, system string, messages []anthropic.MessageParam) (*anthropic.Message, error) {
				return &anthropic.Message{
					Content: []anthropic.ContentBlockUnion{
						{Type: "text", Text: `{"object": "-", "emoji": "-", "success": false}`},
					},
				}, nil
			},
		}

		result, err := combine.NewClaudeGenerator(mock, "p").Generate(ctx, "Fire", "Water")
		gt.NoError(t, err)
		gt.False(t, result.Accepted)
	})

	t.Run("error", func(t *testing.T) {
		mock := &mockClaude{}
		_, err := combine.NewClaudeGenerator(mock, "p").Generate(ctx, "Fire", "Water")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrTransportFailure))
	})
}
