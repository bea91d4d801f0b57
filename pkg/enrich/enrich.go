package enrich

import (
	"context"
	"math"

	"github.com/vnykmshr/ideaflow/pkg/idea"
)

// Rating bounds. MinRating doubles as the fallback when scoring fails.
const (
	MinRating = 1
	MaxRating = idea.MaxRating
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one record of the shared conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the input to a Generator.
type Request struct {
	Item         *idea.Item
	Conversation []Message
	Criteria     any
}

// Scorer rates an item.
type Scorer interface {
	Score(ctx context.Context, item *idea.Item) (int, error)
}

// Generator proposes the seed of a child item.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, item *idea.Item) (int, error)

// Score calls f(ctx, item).
func (f ScorerFunc) Score(ctx context.Context, item *idea.Item) (int, error) {
	return f(ctx, item)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ClampRating rounds r to the nearest integer within [MinRating, MaxRating].
func ClampRating(r float64) int {
	if math.IsNaN(r) {
		return MinRating
	}
	n := int(math.Round(r))
	return max(MinRating, min(MaxRating, n))
}
