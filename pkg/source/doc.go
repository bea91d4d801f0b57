// Package source provides the infinite, cyclic feeds of seed text that the
// pipeline's entry stage draws from.
//
// Every Source wraps around when exhausted. Cycle holds its items in memory
// and may be shuffled deterministically; FromFile loads a Cycle from plain
// text or JSON lines; HTTP asks a persona service for the next entry; Redis
// rotates a shared list so several processes draw from one feed.
package source
