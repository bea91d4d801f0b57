package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vnykmshr/ideaflow/internal/config"
	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/coordinator"
	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/observe"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/scheduler"
)

// Driver runs sessions one after another, carrying the conversation from
// each session into the next.
type Driver struct {
	cfg   *config.Config
	comps *Components
	out   io.Writer

	mu     sync.Mutex
	memory []enrich.Message
}

// NewDriver creates a Driver writing results to out.
func NewDriver(cfg *config.Config, comps *Components, out io.Writer) *Driver {
	return &Driver{cfg: cfg, comps: comps, out: out}
}

// Memory returns a copy of the conversation so far.
func (d *Driver) Memory() []enrich.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]enrich.Message(nil), d.memory...)
}

// Session runs one pipeline session for prompt and records the staged ideas
// in the conversation. Sessions do not overlap.
func (d *Driver) Session(ctx context.Context, prompt string) ([]*idea.Item, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.NewValidationError("cli", "prompt", prompt, "cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.memory = append(d.memory, enrich.Message{Role: enrich.RoleUser, Content: prompt})

	coord, err := coordinator.New(coordinator.Config{
		Scorer:        d.comps.Scorer,
		Generator:     d.comps.Generator,
		EnrichTimeout: d.cfg.Enrich.Timeout,
		Logger:        d.comps.Logger,
		Metrics:       d.comps.Metrics,
	})
	if err != nil {
		return nil, err
	}
	coord.SetConversation(d.memory)
	if d.cfg.Session.Criteria != "" {
		coord.SetCriteria(d.cfg.Session.Criteria)
	}

	ctrl, err := pipeline.New(pipelineConfig(d.cfg, d.comps.Logger, d.comps.Metrics), coord,
		pipeline.Dependencies{Source: d.comps.Source})
	if err != nil {
		return nil, err
	}

	stopObserver := func() {}
	if d.cfg.Observer.Enabled {
		sched := scheduler.New(scheduler.Config{Logger: d.comps.Logger})
		obs := observe.New(coord, observe.Config{TopN: d.cfg.Observer.TopN, Metrics: d.comps.Metrics})
		if err := sched.ScheduleRepeating("observer", obs.Job(d.out), d.cfg.Observer.Interval); err != nil {
			return nil, err
		}
		if err := sched.Start(); err != nil {
			return nil, err
		}
		stopObserver = func() { <-sched.Stop() }
	}

	d.comps.Logger.Info("session starting", "prompt", prompt, "duration", d.cfg.Session.Duration)
	staged, runErr := ctrl.Run(ctx, d.cfg.Session.Duration)
	stopObserver()

	d.report(staged)
	d.remember(staged)
	return staged, runErr
}

func (d *Driver) report(staged []*idea.Item) {
	fmt.Fprintf(d.out, "%d staged ideas\n", len(staged))
	for _, item := range staged {
		fmt.Fprintf(d.out, "  %s\n", item)
	}
}

// remember appends every staged seed, then all of them joined, as
// assistant messages. Callers hold d.mu.
func (d *Driver) remember(staged []*idea.Item) {
	if len(staged) == 0 {
		return
	}
	seeds := make([]string, len(staged))
	for i, item := range staged {
		seeds[i] = item.Seed
		d.memory = append(d.memory, enrich.Message{Role: enrich.RoleAssistant, Content: item.Seed})
	}
	d.memory = append(d.memory, enrich.Message{Role: enrich.RoleAssistant, Content: strings.Join(seeds, "\n")})
}

// Loop reads prompts from in until EOF, "quit" or ctx is done, running one
// session per non-blank line.
func (d *Driver) Loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(d.out, "prompt> ")
		if !sc.Scan() {
			fmt.Fprintln(d.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		if _, err := d.Session(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
