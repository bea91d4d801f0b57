/*
Package ratelimit paces calls to the enrichment backend.

Two token-bucket implementations share the Limiter interface:

  - NewLocal keeps the bucket in process memory
  - NewRedis keeps it in Redis, so every process using the same key (usually
    one per API key) draws from one budget

A bucket refills at Rate tokens per second up to Burst tokens:

	lim, err := ratelimit.NewLocal(ratelimit.Config{Rate: 2, Burst: 4})
	if err != nil {
		return err
	}
	if err := lim.Wait(ctx); err != nil {
		return err // ctx done before a token was available
	}

Instrument wraps any Limiter and records wait latency in the metrics
registry. All limiters are safe for concurrent use.
*/
package ratelimit
