// Package enrichtest provides scripted Scorers, Generators and a fake chat
// completions server for tests.
package enrichtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/idea"
)

// ErrScripted is returned by the failing fakes.
var ErrScripted = errors.New("scripted enrichment failure")

// Scorer returns Rating for every item and counts calls. When Err is set it
// fails instead.
type Scorer struct {
	Rating int
	Err    error
	calls  atomic.Int64
}

// Score implements enrich.Scorer.
func (s *Scorer) Score(ctx context.Context, _ *idea.Item) (int, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Rating, ctx.Err()
}

// Calls returns the number of Score calls.
func (s *Scorer) Calls() int64 {
	return s.calls.Load()
}

// Generator appends Suffix to the parent seed. Seeds listed in FailFor fail
// with ErrScripted.
type Generator struct {
	Suffix  string
	FailFor map[string]bool

	mu    sync.Mutex
	seen  []string
	calls atomic.Int64
}

// Generate implements enrich.Generator.
func (g *Generator) Generate(ctx context.Context, req enrich.Request) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.seen = append(g.seen, req.Item.Seed)
	g.mu.Unlock()

	if g.FailFor[req.Item.Seed] {
		return "", ErrScripted
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return req.Item.Seed + g.Suffix, nil
}

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int64 {
	return g.calls.Load()
}

// Seen returns the parent seeds passed to Generate in call order.
func (g *Generator) Seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen...)
}

// Blocking never returns until ctx is done.
var Blocking = blocking{}

type blocking struct{}

func (blocking) Score(ctx context.Context, _ *idea.Item) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (blocking) Generate(ctx context.Context, _ enrich.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// Panicking panics on every call.
var Panicking = panicking{}

type panicking struct{}

func (panicking) Score(context.Context, *idea.Item) (int, error) {
	panic("scorer exploded")
}

func (panicking) Generate(context.Context, enrich.Request) (string, error) {
	panic("generator exploded")
}

// ChatRequest is the body the fake server received.
type ChatRequest struct {
	Model       string           `json:"model"`
	Messages    []enrich.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	Auth        string           `json:"-"`
}

// ChatServer is a fake OpenAI-compatible endpoint. Reply decides the content
// and status of each response.
type ChatServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []ChatRequest
	reply    func(ChatRequest) (string, int)
}

// NewChatServer starts a server answering POST /chat/completions.
func NewChatServer(reply func(ChatRequest) (string, int)) *ChatServer {
	cs := &ChatServer{reply: reply}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.handle))
	return cs
}

func (cs *ChatServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Auth = r.Header.Get("Authorization")

	cs.mu.Lock()
	cs.requests = append(cs.requests, req)
	cs.mu.Unlock()

	content, status := cs.reply(req)
	if status != http.StatusOK {
		http.Error(w, content, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": enrich.RoleAssistant, "content": content}},
		},
	})
}

// Requests returns every request received so far.
func (cs *ChatServer) Requests() []ChatRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]ChatRequest(nil), cs.requests...)
}
