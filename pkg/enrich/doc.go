// Package enrich defines how items are scored and evolved, and provides the
// implementations the pipeline ships with.
//
// A Scorer assigns an absolute rating between MinRating and MaxRating. A
// Generator proposes the seed text of an item's child given the shared
// conversation and the current criteria. Callers treat any returned error as
// an enrichment failure and fall back; implementations should not retry.
//
// Offline implementations need no network access:
//
//   - RandomScorer draws a uniform rating from a seeded source
//   - VariantGenerator derives "<seed>-<n>" variants deterministically
//
// LLM implementations talk to any OpenAI-compatible chat completions
// endpoint through ChatClient:
//
//	client, err := enrich.NewChatClient(enrich.ClientConfig{
//		BaseURL: "https://api.sambanova.ai/v1",
//		APIKey:  key,
//		Model:   "Meta-Llama-3.1-8B-Instruct",
//	})
//	gen := enrich.NewLLMGenerator(client)
//	scorer := enrich.NewLLMScorer(client)
//
// LimitScorer and LimitGenerator make every call wait on a rate limiter first.
package enrich
