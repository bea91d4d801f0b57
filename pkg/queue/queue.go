package queue

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
)

// PriorityFunc computes the priority of an element. Lower values are polled
// first. A returned error rejects the push.
type PriorityFunc[T any] func(T) (float64, error)

// LessFunc breaks ties between elements of equal priority.
type LessFunc[T any] func(a, b T) bool

// Option configures a PriorityQueue.
type Option[T any] func(*PriorityQueue[T])

// WithLess sets the tie-breaker used for equal priorities.
func WithLess[T any](less LessFunc[T]) Option[T] {
	return func(q *PriorityQueue[T]) {
		if less != nil {
			q.less = less
		}
	}
}

// WithRand sets the source used by PollRandom. The queue lock serializes
// access to it.
func WithRand[T any](r *rand.Rand) Option[T] {
	return func(q *PriorityQueue[T]) {
		q.rng = r
	}
}

// WithMetrics reports size, pushes and polls to the given registry.
func WithMetrics[T any](reg *metrics.Registry) Option[T] {
	return func(q *PriorityQueue[T]) {
		q.metrics = reg
	}
}

type entry[T any] struct {
	priority float64
	item     T
}

// PriorityQueue is an ordered multiset of (priority, element) pairs guarded by
// a single mutex.
type PriorityQueue[T any] struct {
	name     string
	priority PriorityFunc[T]
	less     LessFunc[T]
	rng      *rand.Rand
	metrics  *metrics.Registry

	mu      sync.Mutex
	entries []entry[T]
}

// New creates an empty queue. The priority function is required.
func New[T any](name string, priority PriorityFunc[T], opts ...Option[T]) (*PriorityQueue[T], error) {
	if err := validation.ValidateNotEmpty("queue", "name", name); err != nil {
		return nil, err
	}
	if priority == nil {
		return nil, errors.NewValidationError("queue", "priority", nil, "cannot be nil").
			WithHint("pass a function such as idea.ByRating")
	}

	q := &PriorityQueue[T]{
		name:     name,
		priority: priority,
		less:     shorterRepr[T],
	}
	for _, opt := range opts {
		opt(q)
	}
	q.metrics.SetQueueSize(name, 0)
	return q, nil
}

func shorterRepr[T any](a, b T) bool {
	return len(fmt.Sprint(a)) < len(fmt.Sprint(b))
}

// Name returns the queue's registry name.
func (q *PriorityQueue[T]) Name() string {
	return q.name
}

// Push computes item's priority and inserts it in order. If the priority
// function fails or panics the queue is left unchanged and the failure is
// returned wrapped around errors.ErrInvalidConfiguration.
func (q *PriorityQueue[T]) Push(item T) error {
	p, err := q.computePriority(item)
	if err != nil {
		return errors.NewOperationError("queue", "Push",
			fmt.Errorf("%w: priority function: %w", errors.ErrInvalidConfiguration, err)).
			WithContext("queue " + q.name)
	}

	e := entry[T]{priority: p, item: item}

	q.mu.Lock()
	// First position whose entry sorts strictly after e; equal entries keep
	// insertion order.
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.before(e, q.entries[i])
	})
	q.entries = slices.Insert(q.entries, i, e)
	size := len(q.entries)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.QueuePushed.WithLabelValues(q.name).Inc()
	}
	q.metrics.SetQueueSize(q.name, size)
	return nil
}

func (q *PriorityQueue[T]) computePriority(item T) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	p, err = q.priority(item)
	if err == nil && math.IsNaN(p) {
		err = fmt.Errorf("priority is NaN")
	}
	return p, err
}

func (q *PriorityQueue[T]) before(a, b entry[T]) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return q.less(a.item, b.item)
}

// Poll removes and returns the minimum-priority element.
func (q *PriorityQueue[T]) Poll() (T, bool) {
	q.mu.Lock()
	item, ok := q.removeLocked(0)
	size := len(q.entries)
	q.mu.Unlock()

	if ok {
		q.recordPolls(1, size)
	}
	return item, ok
}

// PollMany removes up to n elements in priority order. The result is shorter
// than n when the queue runs out.
func (q *PriorityQueue[T]) PollMany(n int) []T {
	if n <= 0 {
		return nil
	}

	q.mu.Lock()
	k := min(n, len(q.entries))
	out := make([]T, k)
	for i := range k {
		out[i] = q.entries[i].item
	}
	q.entries = slices.Delete(q.entries, 0, k)
	size := len(q.entries)
	q.mu.Unlock()

	if k > 0 {
		q.recordPolls(k, size)
	}
	return out
}

// PollRandom removes an element chosen uniformly at random, ignoring priority.
func (q *PriorityQueue[T]) PollRandom() (T, bool) {
	q.mu.Lock()
	var idx int
	if n := len(q.entries); n > 0 {
		if q.rng != nil {
			idx = q.rng.IntN(n)
		} else {
			idx = rand.IntN(n)
		}
	}
	item, ok := q.removeLocked(idx)
	size := len(q.entries)
	q.mu.Unlock()

	if ok {
		q.recordPolls(1, size)
	}
	return item, ok
}

func (q *PriorityQueue[T]) removeLocked(i int) (T, bool) {
	var zero T
	if i >= len(q.entries) {
		return zero, false
	}
	item := q.entries[i].item
	q.entries = slices.Delete(q.entries, i, i+1)
	return item, true
}

func (q *PriorityQueue[T]) recordPolls(n, size int) {
	if q.metrics == nil {
		return
	}
	q.metrics.QueuePolled.WithLabelValues(q.name).Add(float64(n))
	q.metrics.SetQueueSize(q.name, size)
}

// Peek returns the minimum-priority element without removing it.
func (q *PriorityQueue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.entries) == 0 {
		return zero, false
	}
	return q.entries[0].item, true
}

// PeekAll returns a snapshot of every element in descending priority order,
// so the element Poll would return next is last.
func (q *PriorityQueue[T]) PeekAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.entries))
	for i, e := range q.entries {
		out[len(out)-1-i] = e.item
	}
	return out
}

// Size returns the number of queued elements.
func (q *PriorityQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsEmpty reports whether the queue holds no elements.
func (q *PriorityQueue[T]) IsEmpty() bool {
	return q.Size() == 0
}
