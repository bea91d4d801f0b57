// Package coordinator holds the state shared by every worker of one pipeline
// session: the named queue registry, the conversation and the criteria slot.
//
// It also owns the two enrichment capabilities workers call. Score and Evolve
// never return errors. A failing, panicking or timed-out Scorer yields
// enrich.MinRating; a failing Generator yields the original item unchanged.
// Both outcomes are logged at WARN and counted.
//
// The registry and the conversation are guarded by separate locks and no
// method holds both.
package coordinator
