package enrich

import (
	"context"
	"fmt"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/idea"
)

// Waiter blocks until a call may proceed. ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

type limitedScorer struct {
	next Scorer
	lim  Waiter
}

func (l *limitedScorer) Score(ctx context.Context, item *idea.Item) (int, error) {
	if err := l.lim.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", errors.ErrRateLimited, err)
	}
	return l.next.Score(ctx, item)
}

type limitedGenerator struct {
	next Generator
	lim  Waiter
}

func (l *limitedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.lim.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrRateLimited, err)
	}
	return l.next.Generate(ctx, req)
}

// LimitScorer makes s wait on lim before every call. A nil lim returns s.
func LimitScorer(s Scorer, lim Waiter) Scorer {
	if lim == nil {
		return s
	}
	return &limitedScorer{next: s, lim: lim}
}

// LimitGenerator makes g wait on lim before every call. A nil lim returns g.
func LimitGenerator(g Generator, lim Waiter) Generator {
	if lim == nil {
		return g
	}
	return &limitedGenerator{next: g, lim: lim}
}
