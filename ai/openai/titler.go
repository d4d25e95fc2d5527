package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kestrelhq/trendwatch/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const titleSystemPrompt = `You name emerging technology trends. Given a list of
related news signals, respond with a single short title (4-8 words) that
captures the common theme. Respond with the title only: no quotes, no
punctuation at the end, no explanation.`

// maxTitleSignals limits how many signal texts are sent to the model.
// The first few signals are representative enough for a title.
const maxTitleSignals = 10

// Titler implements ai.TitleGenerator using OpenAI-compatible chat APIs.
type Titler struct {
	client llms.Model
	logger *slog.Logger
}

// newTitler is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTitler(config *ai.Config) (*Titler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.TitleHost),
		openai.WithToken("none"),
		openai.WithModel(config.TitleModel),
	)
	if err != nil {
		return nil, err
	}

	return &Titler{
		client: client,
		logger: slog.Default().With("component", "openai-titler"),
	}, nil
}

// NewTitler creates a new title generator using the provided configuration.
//
// Returns ai.TitleGenerator interface to enforce abstraction.
func NewTitler(config *ai.Config) (ai.TitleGenerator, error) {
	return newTitler(config)
}

// GenerateTitle summarizes the given signal texts into a short title.
func (t *Titler) GenerateTitle(ctx context.Context, texts []string) (string, error) {
	if len(texts) > maxTitleSignals {
		texts = texts[:maxTitleSignals]
	}

	var b strings.Builder
	for _, text := range texts {
		b.WriteString("- ")
		b.WriteString(text)
		b.WriteString("\n")
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(titleSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(b.String()),
			},
		},
	}

	response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		t.logger.Error("failed to generate title", "signals", len(texts), "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		t.logger.Debug("no choices returned from model")
		return "", nil
	}

	title := strings.TrimSpace(response.Choices[0].Content)
	title = strings.Trim(title, `"'`)
	return title, nil
}
