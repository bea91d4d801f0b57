// Package idea defines the unit of work that flows through an ideaflow
// pipeline, together with the named priority heuristics used to order it.
//
// An Item carries its seed text, its depth and a lineage of value snapshots
// of every ancestor. Items are created with New (depth 0) or Derive (one level
// deeper than the parent). Identity, seed, depth and lineage never change after
// creation; only the rating is written, and only by the worker that currently
// owns the item.
//
// Lineage entries are copies. Rating an ancestor after a child was derived
// does not alter the child's lineage:
//
//	parent := idea.New("a lighthouse keeper")
//	child := idea.Derive(parent, "a lighthouse keeper who paints")
//	parent.SetRating(5)
//	child.Lineage[0].Rating // still 0
//
// Priority heuristics are looked up by name so they can be chosen from
// configuration:
//
//	prio, err := idea.LookupPriority("depth_rating")
package idea
