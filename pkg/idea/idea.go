package idea

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MaxRating is the upper bound of the absolute rating scale.
const MaxRating = 5

// Snapshot is a value copy of an ancestor taken when a child is derived.
type Snapshot struct {
	ID     uuid.UUID
	Seed   string
	Depth  int
	Rating int
}

// Item is one idea moving through the pipeline.
type Item struct {
	ID        uuid.UUID
	Seed      string
	Depth     int
	Lineage   []Snapshot
	CreatedAt time.Time

	rating atomic.Int32
}

// New creates a depth-0 item with an empty lineage.
func New(seed string) *Item {
	return &Item{
		ID:        uuid.New(),
		Seed:      seed,
		CreatedAt: time.Now(),
	}
}

// Derive creates a child of parent one level deeper. The child's lineage is
// the parent's lineage followed by a snapshot of the parent itself.
func Derive(parent *Item, seed string) *Item {
	lineage := make([]Snapshot, 0, len(parent.Lineage)+1)
	lineage = append(lineage, parent.Lineage...)
	lineage = append(lineage, parent.Snapshot())

	return &Item{
		ID:        uuid.New(),
		Seed:      seed,
		Depth:     parent.Depth + 1,
		Lineage:   lineage,
		CreatedAt: time.Now(),
	}
}

// Rating returns the absolute rating, 0 when the item is unrated.
func (i *Item) Rating() int {
	return int(i.rating.Load())
}

// SetRating records the absolute rating.
func (i *Item) SetRating(r int) {
	i.rating.Store(int32(r))
}

// Rated reports whether a rating has been recorded.
func (i *Item) Rated() bool {
	return i.Rating() != 0
}

// Snapshot returns a value copy of the item's identifying fields.
func (i *Item) Snapshot() Snapshot {
	return Snapshot{
		ID:     i.ID,
		Seed:   i.Seed,
		Depth:  i.Depth,
		Rating: i.Rating(),
	}
}

// Root returns the seed text the item's lineage started from.
func (i *Item) Root() string {
	if len(i.Lineage) == 0 {
		return i.Seed
	}
	return i.Lineage[0].Seed
}

func (i *Item) String() string {
	return fmt.Sprintf("%d/%d: %s (depth %d)", i.Rating(), MaxRating, i.Seed, i.Depth)
}

// Less orders items with equal priority: shallower first, then shorter seed.
func Less(a, b *Item) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return len(a.Seed) < len(b.Seed)
}
