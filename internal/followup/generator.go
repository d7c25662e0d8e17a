// Package followup generates and normalizes AI follow-up questions for
// candidate answers.
package followup

import (
	"context"
	"fmt"

	"github.com/greenroom-hq/greenroom/internal/anthropic"
	"github.com/greenroom-hq/greenroom/internal/tokens"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 256
	// defaultAnswerBudget bounds how much of the candidate's answer goes into
	// the generation prompt.
	defaultAnswerBudget = 1024
)

// GeneratorOption configures the generator.
type GeneratorOption func(*Generator)

// WithModel overrides the generation model.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

// WithAnswerBudget overrides the token budget applied to candidate answers.
func WithAnswerBudget(n int) GeneratorOption {
	return func(g *Generator) { g.answerBudget = n }
}

// WithTruncator injects a shared truncator.
func WithTruncator(t *tokens.Truncator) GeneratorOption {
	return func(g *Generator) { g.truncator = t }
}

// Generator produces follow-up questions with the Anthropic Messages API. It
// renders the embedded prompt templates, truncates oversized answers to a
// token budget, and normalizes the raw response into at most three questions.
type Generator struct {
	client       *anthropic.Client
	model        string
	maxTokens    int
	answerBudget int
	truncator    *tokens.Truncator
}

// NewGenerator creates a generator backed by the given API client.
func NewGenerator(client *anthropic.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:       client,
		model:        defaultModel,
		maxTokens:    defaultMaxTokens,
		answerBudget: defaultAnswerBudget,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for follow-ups to the candidate's answer. The
// returned list is normalized and holds zero to three questions; empty means
// no follow-up is warranted.
func (g *Generator) Generate(ctx context.Context, question, answer string) ([]string, error) {
	if g.truncator != nil {
		answer = g.truncator.Truncate(answer, g.answerBudget)
	}

	userPrompt := renderTemplate(userPromptTemplate, map[string]string{
		"question": question,
		"answer":   answer,
	})

	temperature := float32(0)
	resp, err := g.client.CreateMessage(ctx, &anthropic.MessagesRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      systemPrompt,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("followup generation: %w", err)
	}

	return Normalize(resp.Text()), nil
}
