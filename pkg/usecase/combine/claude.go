package combine

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/adapter"
	"github.com/m-mizutani/plenty/pkg/model"
)

type claudeGenerator struct {
	claude adapter.Claude
	prompt string
}

// NewClaudeGenerator creates a Generator backed by Claude. Claude has no JSON
// mode here, so the reply is validated the same way as any other raw text.
func NewClaudeGenerator(claude adapter.Claude, prompt string) Generator {
	return &claudeGenerator{
		claude: claude,
		prompt: prompt,
	}
}

func (g *claudeGenerator) Generate(ctx context.Context, a, b string) (*model.GenerationResult, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage(a, b))),
	}

	msg, err := g.claude.Chat(ctx, g.prompt, messages)
	if err != nil {
		return nil, goerr.Wrap(model.ErrTransportFailure, "failed to generate combination",
			goerr.V("a", a),
			goerr.V("b", b),
			goerr.V("cause", err))
	}
	if msg == nil {
		return nil, goerr.Wrap(model.ErrTransportFailure, "no message in claude response",
			goerr.V("a", a),
			goerr.V("b", b))
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}

	return parseResponse(strings.Join(texts, ""))
}
