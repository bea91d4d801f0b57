package idea

import (
	"sort"
	"unicode/utf8"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// PriorityFunc maps an item to its queue priority. Lower values are polled
// first.
type PriorityFunc = func(*Item) (float64, error)

// Names of the built-in priority heuristics.
const (
	PrioritySeedLength  = "seed_length"
	PriorityRating      = "rating"
	PriorityDepthRating = "depth_rating"
	PriorityRatingDesc  = "rating_desc"
	PriorityDepth       = "depth"
)

var priorities = map[string]PriorityFunc{
	PrioritySeedLength:  BySeedLength,
	PriorityRating:      ByRating,
	PriorityDepthRating: ByDepthRating,
	PriorityRatingDesc:  ByRatingDesc,
	PriorityDepth:       ByDepth,
}

// BySeedLength prefers short seeds.
func BySeedLength(i *Item) (float64, error) {
	if i == nil {
		return 0, errNilItem
	}
	return float64(utf8.RuneCountInString(i.Seed)), nil
}

// ByRating prefers low ratings, so weak ideas get explored first.
func ByRating(i *Item) (float64, error) {
	if i == nil {
		return 0, errNilItem
	}
	return float64(i.Rating()), nil
}

// ByDepthRating orders by depth multiplied by rating.
func ByDepthRating(i *Item) (float64, error) {
	if i == nil {
		return 0, errNilItem
	}
	return float64(i.Depth * i.Rating()), nil
}

// ByRatingDesc prefers high ratings.
func ByRatingDesc(i *Item) (float64, error) {
	if i == nil {
		return 0, errNilItem
	}
	return -float64(i.Rating()), nil
}

// ByDepth prefers shallow items.
func ByDepth(i *Item) (float64, error) {
	if i == nil {
		return 0, errNilItem
	}
	return float64(i.Depth), nil
}

var errNilItem = errors.NewValidationError("idea", "item", nil, "cannot be nil")

// PriorityNames returns the registered heuristic names in sorted order.
func PriorityNames() []string {
	names := make([]string, 0, len(priorities))
	for name := range priorities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPriority returns the heuristic registered under name.
func LookupPriority(name string) (PriorityFunc, error) {
	if err := validation.ValidateOneOf("idea", "priority", name, PriorityNames()...); err != nil {
		return nil, err
	}
	return priorities[name], nil
}
