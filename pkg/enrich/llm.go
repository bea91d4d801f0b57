package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/idea"
)

const (
	defaultGeneratorSystem = "You are a creative business consultant specializing in personalized business ideas. " +
		"Base your responses on the conversation between the user and assistant."

	defaultGeneratorPrompt = "Given the persona '%s', suggest a unique and innovative consumer AI-powered app " +
		"tailored to this individual's characteristics and potential interests. Make sure you are basing the ideas " +
		"on my previous feedback. Base your response on this conversation. The app idea should be concise, creative, " +
		"and aligned with the persona's likely preferences and skills. IMPORTANT: Describe the app in one single sentence."

	defaultScorerPrompt = "Rate the following business idea on a scale of 1-5 for interestingness, viability, and " +
		"uniqueness. Provide an overall rating that is the average of these three scores. Return your response in " +
		"strict JSON format. For example, to return a rating of 3.5, return {\"overall_rating\": 3.5}. Business idea: %s"
)

// LLMGenerator evolves an item by asking a chat model for a new idea
// conditioned on the shared conversation.
type LLMGenerator struct {
	client Completer
	opts   CompleteOptions

	// System is the system prompt placed before the conversation.
	System string
	// Prompt is a format string receiving the item's seed.
	Prompt string
}

// NewLLMGenerator creates a generator with the default prompts.
func NewLLMGenerator(client Completer) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		opts:   DefaultCompleteOptions(),
		System: defaultGeneratorSystem,
		Prompt: defaultGeneratorPrompt,
	}
}

// WithOptions replaces the completion options and returns g.
func (g *LLMGenerator) WithOptions(opts CompleteOptions) *LLMGenerator {
	g.opts = opts
	return g
}

// Generate implements Generator. The request is system prompt, then the
// conversation, then the persona prompt.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if req.Item == nil {
		return "", fmt.Errorf("%w: nil item", errors.ErrEnrichment)
	}

	prompt := fmt.Sprintf(g.Prompt, req.Item.Seed)
	if req.Criteria != nil {
		prompt += fmt.Sprintf(" Criteria: %v", req.Criteria)
	}

	messages := make([]Message, 0, len(req.Conversation)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: g.System})
	messages = append(messages, req.Conversation...)
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	out, err := g.client.Complete(ctx, messages, g.opts)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", errors.ErrEnrichment)
	}
	return out, nil
}

// LLMScorer asks a chat model for a JSON rating.
type LLMScorer struct {
	client Completer
	opts   CompleteOptions

	// Prompt is a format string receiving the item's seed.
	Prompt string
}

// NewLLMScorer creates a scorer with the default prompt.
func NewLLMScorer(client Completer) *LLMScorer {
	opts := DefaultCompleteOptions()
	opts.Temperature = 0
	opts.MaxTokens = 50
	return &LLMScorer{client: client, opts: opts, Prompt: defaultScorerPrompt}
}

// Score implements Scorer.
func (s *LLMScorer) Score(ctx context.Context, item *idea.Item) (int, error) {
	out, err := s.client.Complete(ctx, []Message{
		{Role: RoleUser, Content: fmt.Sprintf(s.Prompt, item.Seed)},
	}, s.opts)
	if err != nil {
		return 0, err
	}
	return ParseRating(out)
}

// ParseRating extracts overall_rating from a model reply. The reply may wrap
// the JSON object in prose or use single quotes.
func ParseRating(reply string) (int, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return 0, fmt.Errorf("%w: no JSON object in %q", errors.ErrEnrichment, reply)
	}
	raw := strings.ReplaceAll(reply[start:end+1], "'", "\"")

	var parsed struct {
		OverallRating *float64 `json:"overall_rating"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return 0, fmt.Errorf("%w: %w", errors.ErrEnrichment, err)
	}
	if parsed.OverallRating == nil {
		return 0, fmt.Errorf("%w: overall_rating missing", errors.ErrEnrichment)
	}
	return ClampRating(*parsed.OverallRating), nil
}
