// Package queue provides a thread-safe priority queue with a pluggable
// priority function.
//
// The priority of an element is computed once, when it is pushed, and never
// recomputed. Elements with lower priority values are polled first. Equal
// priorities are ordered by a tie-breaker (shorter fmt.Sprint form by
// default) and then by insertion order.
//
// No operation blocks or panics on an empty queue: Poll, PollRandom and Peek
// return the zero value and false, PollMany returns a shorter slice.
//
// Basic usage:
//
//	q, err := queue.New("explore_queue", idea.ByRating,
//		queue.WithLess(idea.Less),
//		queue.WithMetrics[*idea.Item](reg),
//	)
//	if err != nil {
//		return err
//	}
//	if err := q.Push(item); err != nil {
//		return err // priority function rejected the item
//	}
//	batch := q.PollMany(5)
package queue
