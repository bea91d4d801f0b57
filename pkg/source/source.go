package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
)

// Source yields seed texts forever.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Func adapts a function to the Source interface.
type Func func(ctx context.Context) (string, error)

// Next calls f(ctx).
func (f Func) Next(ctx context.Context) (string, error) {
	return f(ctx)
}

// Record is the JSON shape of one feed entry.
type Record struct {
	Persona string `json:"persona"`
}

// CycleOption configures a Cycle.
type CycleOption func(*Cycle)

// WithShuffle permutes the items once, deterministically for a given seed.
func WithShuffle(seed uint64) CycleOption {
	return func(c *Cycle) {
		r := rand.New(rand.NewPCG(seed, seed))
		r.Shuffle(len(c.items), func(i, j int) {
			c.items[i], c.items[j] = c.items[j], c.items[i]
		})
	}
}

// Cycle is an in-memory Source that wraps around.
type Cycle struct {
	mu    sync.Mutex
	items []string
	pos   int
}

// NewCycle creates a Cycle over a copy of items.
func NewCycle(items []string, opts ...CycleOption) (*Cycle, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("source", "items", 0, "cannot be empty")
	}
	c := &Cycle{items: append([]string(nil), items...)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Next implements Source.
func (c *Cycle) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.items[c.pos]
	c.pos = (c.pos + 1) % len(c.items)
	return s, nil
}

// Len returns the number of distinct items.
func (c *Cycle) Len() int {
	return len(c.items)
}

// FromFile loads one item per line. Lines starting with '{' are decoded as a
// Record; blank lines are skipped.
func FromFile(path string, opts ...CycleOption) (*Cycle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewOperationError("source", "FromFile", err)
	}
	defer f.Close()

	var items []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "{") {
			var rec Record
			if err := json.Unmarshal([]byte(text), &rec); err != nil {
				return nil, errors.NewOperationError("source", "FromFile", err).
					WithContext(fmt.Sprintf("%s:%d", path, line))
			}
			text = strings.TrimSpace(rec.Persona)
			if text == "" {
				continue
			}
		}
		items = append(items, text)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewOperationError("source", "FromFile", err).WithContext(path)
	}
	return NewCycle(items, opts...)
}
