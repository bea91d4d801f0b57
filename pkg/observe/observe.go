package observe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/coordinator"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/scheduler"
)

// DefaultTopN is the number of entries shown per queue.
const DefaultTopN = 10

// Registry is the read side of a Coordinator.
type Registry interface {
	QueueNames() []string
	Queue(name string) (*coordinator.Queue, bool)
}

// Config configures an Observer.
type Config struct {
	// TopN limits the entries kept per queue. Zero uses DefaultTopN.
	TopN int

	// Metrics, if set, receives queue size gauges on every Snapshot.
	Metrics *metrics.Registry

	// Now defaults to time.Now.
	Now func() time.Time
}

// Entry is one rendered queue element.
type Entry struct {
	Rating int
	Seed   string
	Depth  int
}

// QueueView is the state of one queue at snapshot time.
type QueueView struct {
	Name string
	Size int
	// Top holds up to TopN entries, highest priority first.
	Top []Entry
}

// Snapshot is a point-in-time view of every registered queue.
type Snapshot struct {
	Taken  time.Time
	Queues []QueueView
}

// Observer takes snapshots of a Registry.
type Observer struct {
	registry Registry
	topN     int
	metrics  *metrics.Registry
	now      func() time.Time

	mu   sync.Mutex
	last Snapshot
}

// New creates an Observer over registry.
func New(registry Registry, config Config) *Observer {
	if config.TopN <= 0 {
		config.TopN = DefaultTopN
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Observer{
		registry: registry,
		topN:     config.TopN,
		metrics:  config.Metrics,
		now:      config.Now,
	}
}

// Snapshot reads every queue. Queues are visited in name order; each queue is
// read atomically but the snapshot as a whole is not.
func (o *Observer) Snapshot() Snapshot {
	snap := Snapshot{Taken: o.now()}
	for _, name := range o.registry.QueueNames() {
		q, ok := o.registry.Queue(name)
		if !ok {
			continue
		}

		// PeekAll is descending priority; the head of the queue is last.
		items := q.PeekAll()
		view := QueueView{Name: name, Size: len(items)}
		for i := len(items) - 1; i >= 0 && len(view.Top) < o.topN; i-- {
			it := items[i]
			view.Top = append(view.Top, Entry{Rating: it.Rating(), Seed: it.Seed, Depth: it.Depth})
		}
		snap.Queues = append(snap.Queues, view)
		o.metrics.SetQueueSize(name, view.Size)
	}

	o.mu.Lock()
	o.last = snap
	o.mu.Unlock()
	return snap
}

// Last returns the most recent snapshot, zero if none was taken.
func (o *Observer) Last() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Render takes a snapshot and writes it to w.
func (o *Observer) Render(w io.Writer) error {
	return o.Snapshot().Render(w)
}

// Render writes s to w as indented text.
func (s Snapshot) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "queues at %s\n", s.Taken.Format(time.TimeOnly))
	for _, q := range s.Queues {
		fmt.Fprintf(&b, "%s:\n  size: %d\n", q.Name, q.Size)
		for _, e := range q.Top {
			fmt.Fprintf(&b, "  %d/%d: %s (depth %d)\n", e.Rating, idea.MaxRating, e.Seed, e.Depth)
		}
		if more := q.Size - len(q.Top); more > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", more)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Job renders to w each time it runs.
func (o *Observer) Job(w io.Writer) scheduler.Job {
	return scheduler.JobFunc(func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return o.Render(w)
	})
}
