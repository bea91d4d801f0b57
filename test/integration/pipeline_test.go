// Package integration contains integration tests that verify cross-package functionality.
// These tests run the pipeline against real collaborators: the chat client, the
// token bucket, seed sources and the observer.
package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/ideaflow/internal/testutil"
	"github.com/vnykmshr/ideaflow/pkg/coordinator"
	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/enrich/enrichtest"
	"github.com/vnykmshr/ideaflow/pkg/observe"
	"github.com/vnykmshr/ideaflow/pkg/ratelimit"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/ideaflow/pkg/source"
)

func fastConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.SourceInterval = 5 * time.Millisecond
	cfg.RateInterval = 5 * time.Millisecond
	cfg.ExploreInterval = 5 * time.Millisecond
	cfg.StopGrace = 200 * time.Millisecond
	return cfg
}

// TestPipelineWithChatModel drives a whole session through the HTTP chat
// client against a fake completions endpoint.
func TestPipelineWithChatModel(t *testing.T) {
	srv := enrichtest.NewChatServer(func(req enrichtest.ChatRequest) (string, int) {
		if req.Temperature == 0 {
			return "Sure! {\"overall_rating\": 4.4}", http.StatusOK
		}
		return "a solar kettle", http.StatusOK
	})
	defer srv.Close()

	client, err := enrich.NewChatClient(enrich.ClientConfig{BaseURL: srv.URL, Model: "test-model"})
	testutil.AssertNoError(t, err)

	coord, err := coordinator.New(coordinator.Config{
		Scorer:    enrich.NewLLMScorer(client),
		Generator: enrich.NewLLMGenerator(client),
	})
	testutil.AssertNoError(t, err)
	coord.SetConversation([]enrich.Message{{Role: enrich.RoleUser, Content: "kitchen gadgets"}})
	coord.SetCriteria("cheap")

	ctrl, err := pipeline.New(fastConfig(), coord, pipeline.Dependencies{})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ctrl.Seed([]string{"a camper", "a baker"}))

	staged, err := ctrl.Run(context.Background(), 300*time.Millisecond)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(staged), 2)
	for _, item := range staged {
		testutil.AssertEqual(t, item.Seed, "a solar kettle")
		testutil.AssertEqual(t, item.Depth, 1)
		testutil.AssertEqual(t, item.Rating(), 4)
	}

	var generations int
	for _, req := range srv.Requests() {
		if req.Temperature == 0 {
			continue
		}
		generations++
		if len(req.Messages) != 3 {
			t.Fatalf("generation request has %d messages, want system, conversation, prompt", len(req.Messages))
		}
		testutil.AssertEqual(t, req.Messages[1].Content, "kitchen gadgets")
		if !strings.Contains(req.Messages[2].Content, "Criteria: cheap") {
			t.Errorf("prompt %q is missing the criteria", req.Messages[2].Content)
		}
	}
	testutil.AssertEqual(t, generations, 2)
}

// TestPipelineWithRateLimiting verifies that a shared token bucket bounds the
// number of enrichment calls across the rate and explore workers.
func TestPipelineWithRateLimiting(t *testing.T) {
	limiter, err := ratelimit.NewLocal(ratelimit.Config{Rate: 20, Burst: 2, InitialTokens: -1})
	testutil.AssertNoError(t, err)

	scorer := &enrichtest.Scorer{Rating: 3}
	gen := &enrichtest.Generator{Suffix: "+"}
	coord, err := coordinator.New(coordinator.Config{
		Scorer:    enrich.LimitScorer(scorer, limiter),
		Generator: enrich.LimitGenerator(gen, limiter),
	})
	testutil.AssertNoError(t, err)

	ctrl, err := pipeline.New(fastConfig(), coord, pipeline.Dependencies{})
	testutil.AssertNoError(t, err)
	seeds := make([]string, 20)
	for i := range seeds {
		seeds[i] = strings.Repeat("x", i+1)
	}
	testutil.AssertNoError(t, ctrl.Seed(seeds))

	const window = 300 * time.Millisecond
	start := time.Now()
	_, err = ctrl.Run(context.Background(), window)
	testutil.AssertNoError(t, err)
	elapsed := time.Since(start)

	calls := scorer.Calls() + gen.Calls()
	if calls == 0 {
		t.Fatal("no enrichment calls were made")
	}
	// Burst plus refill over the session, with one token of slack for the
	// call in flight at stop.
	limit := int64(2 + 20*elapsed.Seconds() + 1)
	if calls > limit {
		t.Errorf("made %d calls in %v, want at most %d", calls, elapsed, limit)
	}
}

// TestPipelineWithSourceAndObserver feeds the pipeline from a cycling source
// while a scheduled observer renders the queues.
func TestPipelineWithSourceAndObserver(t *testing.T) {
	feed, err := source.NewCycle([]string{"a nurse", "a farmer", "a pilot"})
	testutil.AssertNoError(t, err)

	coord, err := coordinator.New(coordinator.Config{
		Scorer:    &enrichtest.Scorer{Rating: 5},
		Generator: &enrichtest.Generator{Suffix: " app"},
	})
	testutil.AssertNoError(t, err)

	cfg := fastConfig()
	cfg.LowWater = 3
	ctrl, err := pipeline.New(cfg, coord, pipeline.Dependencies{Source: feed})
	testutil.AssertNoError(t, err)

	out := testutil.NewMockWriter()
	obs := observe.New(coord, observe.Config{TopN: 2})
	sched := scheduler.New(scheduler.Config{TickInterval: 5 * time.Millisecond})
	testutil.AssertNoError(t, sched.ScheduleRepeating("observe", obs.Job(out), 20*time.Millisecond))
	testutil.AssertNoError(t, sched.Start())

	staged, err := ctrl.Run(context.Background(), 300*time.Millisecond)
	<-sched.Stop()
	testutil.AssertNoError(t, err)

	if len(staged) == 0 {
		t.Fatal("expected staged ideas from the source")
	}
	for _, item := range staged {
		if !strings.HasSuffix(item.Seed, " app") {
			t.Errorf("staged seed %q was not evolved", item.Seed)
		}
		testutil.AssertEqual(t, item.Rating(), 5)
	}

	rendered := out.String()
	for _, name := range []string{pipeline.SeedQueue, pipeline.ExploreQueue, pipeline.StagingQueue} {
		if !strings.Contains(rendered, name+":") {
			t.Errorf("observer output is missing %s:\n%s", name, rendered)
		}
	}
	if out.WriteCount() == 0 {
		t.Error("observer job never ran")
	}
}
