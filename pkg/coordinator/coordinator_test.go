package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/ideaflow/internal/testutil"
	gferrors "github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/enrich/enrichtest"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
	"github.com/vnykmshr/ideaflow/pkg/queue"
)

func newCoordinator(t *testing.T, cfg Config) *Coordinator {
	t.Helper()
	if cfg.Scorer == nil {
		cfg.Scorer = &enrichtest.Scorer{Rating: 3}
	}
	if cfg.Generator == nil {
		cfg.Generator = &enrichtest.Generator{Suffix: "+"}
	}
	c, err := New(cfg)
	testutil.AssertNoError(t, err)
	return c
}

func newQueue(t *testing.T, name string) *Queue {
	t.Helper()
	q, err := queue.New(name, idea.ByRating, queue.WithLess(idea.Less))
	testutil.AssertNoError(t, err)
	return q
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no scorer", Config{Generator: enrich.NewVariantGenerator()}},
		{"no generator", Config{Scorer: enrich.NewRandomScorer(1)}},
		{"negative timeout", Config{Scorer: enrich.NewRandomScorer(1), Generator: enrich.NewVariantGenerator(), EnrichTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !gferrors.IsValidationError(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	c := newCoordinator(t, Config{})

	seed := newQueue(t, "seed_queue")
	testutil.AssertNoError(t, c.AddQueue("seed_queue", seed))
	testutil.AssertNoError(t, c.AddQueue("explore_queue", newQueue(t, "explore_queue")))

	if err := c.AddQueue("seed_queue", newQueue(t, "dup")); !gferrors.IsValidationError(err) {
		t.Errorf("duplicate name: got %v, want validation error", err)
	}
	testutil.AssertError(t, c.AddQueue("", seed))
	testutil.AssertError(t, c.AddQueue("nil_queue", nil))

	got, ok := c.Queue("seed_queue")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, got, seed)

	_, ok = c.Queue("missing")
	testutil.AssertEqual(t, ok, false)
	if _, err := c.Lookup("missing"); !errors.Is(err, gferrors.ErrQueueNotFound) {
		t.Errorf("Lookup(missing) = %v, want ErrQueueNotFound", err)
	}

	if diff := cmp.Diff([]string{"explore_queue", "seed_queue"}, c.QueueNames()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestCriteria(t *testing.T) {
	c := newCoordinator(t, Config{})
	testutil.AssertEqual(t, c.Criteria(), any(nil))
	c.SetCriteria("family friendly")
	testutil.AssertEqual(t, c.Criteria(), any("family friendly"))
}

func TestConversation_Copies(t *testing.T) {
	c := newCoordinator(t, Config{})

	msgs := []enrich.Message{{Role: enrich.RoleUser, Content: "first"}}
	c.SetConversation(msgs)
	msgs[0].Content = "mutated by caller"

	c.AppendMessage(enrich.Message{Role: enrich.RoleAssistant, Content: "reply"})

	got := c.Conversation()
	got[0].Content = "mutated by reader"

	want := []enrich.Message{
		{Role: enrich.RoleUser, Content: "first"},
		{Role: enrich.RoleAssistant, Content: "reply"},
	}
	if diff := cmp.Diff(want, c.Conversation()); diff != "" {
		t.Errorf("conversation (-want +got):\n%s", diff)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		scorer enrich.Scorer
		want   int
	}{
		{"success", &enrichtest.Scorer{Rating: 4}, 4},
		{"error falls back", &enrichtest.Scorer{Err: enrichtest.ErrScripted}, enrich.MinRating},
		{"panic falls back", enrichtest.Panicking, enrich.MinRating},
		{"timeout falls back", enrichtest.Blocking, enrich.MinRating},
		{"out of range falls back", &enrichtest.Scorer{Rating: 9}, enrich.MinRating},
		{"zero falls back", &enrichtest.Scorer{Rating: 0}, enrich.MinRating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCoordinator(t, Config{Scorer: tt.scorer, EnrichTimeout: 20 * time.Millisecond})
			testutil.AssertEqual(t, c.Score(context.Background(), idea.New("x")), tt.want)
		})
	}
}

func TestEvolve_Success(t *testing.T) {
	var got enrich.Request
	gen := enrich.GeneratorFunc(func(_ context.Context, req enrich.Request) (string, error) {
		got = req
		return "child of " + req.Item.Seed, nil
	})
	c := newCoordinator(t, Config{Generator: gen, Scorer: &enrichtest.Scorer{Rating: 5}})
	c.SetConversation([]enrich.Message{{Role: enrich.RoleUser, Content: "apps for bakers"}})
	c.SetCriteria("cheap")

	parent := idea.Derive(idea.New("grandparent"), "parent")
	child := c.Evolve(context.Background(), parent)

	testutil.AssertEqual(t, child.Seed, "child of parent")
	testutil.AssertEqual(t, child.Depth, parent.Depth+1)
	testutil.AssertEqual(t, len(child.Lineage), child.Depth)
	testutil.AssertEqual(t, child.Lineage[1].Seed, "parent")
	testutil.AssertEqual(t, child.Rating(), 5)

	testutil.AssertEqual(t, got.Item, parent)
	testutil.AssertEqual(t, got.Criteria, any("cheap"))
	testutil.AssertEqual(t, len(got.Conversation), 1)
}

func TestEvolve_FailureReturnsOriginal(t *testing.T) {
	gen := &enrichtest.Generator{Suffix: "+", FailFor: map[string]bool{"bad": true}}
	c := newCoordinator(t, Config{Generator: gen})

	parent := idea.Derive(idea.New("root"), "bad")
	parent.SetRating(2)
	lineage := append([]idea.Snapshot(nil), parent.Lineage...)

	got := c.Evolve(context.Background(), parent)
	testutil.AssertEqual(t, got, parent)
	testutil.AssertEqual(t, got.Seed, "bad")
	testutil.AssertEqual(t, got.Depth, 1)
	testutil.AssertEqual(t, got.Rating(), 2)
	if diff := cmp.Diff(lineage, got.Lineage); diff != "" {
		t.Errorf("lineage changed (-want +got):\n%s", diff)
	}

	// The next item is still evolved.
	ok := c.Evolve(context.Background(), idea.New("good"))
	testutil.AssertEqual(t, ok.Seed, "good+")
}

func TestEvolve_PanicAndTimeout(t *testing.T) {
	for _, gen := range []enrich.Generator{enrichtest.Panicking, enrichtest.Blocking} {
		c := newCoordinator(t, Config{Generator: gen, EnrichTimeout: 20 * time.Millisecond})
		it := idea.New("steady")
		testutil.AssertEqual(t, c.Evolve(context.Background(), it), it)
	}
}

func TestEvolve_EmptySeedReturnsOriginal(t *testing.T) {
	gen := enrich.GeneratorFunc(func(context.Context, enrich.Request) (string, error) { return "", nil })
	c := newCoordinator(t, Config{Generator: gen})
	it := idea.New("x")
	testutil.AssertEqual(t, c.Evolve(context.Background(), it), it)
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	c := newCoordinator(t, Config{
		Scorer:    &enrichtest.Scorer{Err: enrichtest.ErrScripted},
		Generator: &enrichtest.Generator{Suffix: "+"},
		Metrics:   reg,
	})

	c.Score(context.Background(), idea.New("a"))
	c.Evolve(context.Background(), idea.New("b"))

	testutil.AssertEqual(t, promtest.ToFloat64(reg.EnrichCalls.WithLabelValues("score")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.EnrichFailures.WithLabelValues("score")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.EnrichCalls.WithLabelValues("evolve")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.EnrichFailures.WithLabelValues("evolve")), 0.0)
}

func TestConcurrentAccess(t *testing.T) {
	c := newCoordinator(t, Config{})
	ctx := context.Background()

	queues := make([]*Queue, 8)
	for i := range queues {
		queues[i] = newQueue(t, fmt.Sprintf("q%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("q%d", i)
			_ = c.AddQueue(name, queues[i])
			for j := 0; j < 50; j++ {
				c.Queue(name)
				c.QueueNames()
				c.Criteria()
				c.Conversation()
				c.Evolve(ctx, idea.New(name))
			}
		}(i)
	}
	wg.Wait()

	testutil.AssertEqual(t, len(c.QueueNames()), 8)
}
