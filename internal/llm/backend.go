// Package llm provides the model backends used by every pipeline stage.
//
// A Backend turns a single prompt into a single text completion. Backends are
// selected by a model name tag:
//
//   - "haiku" and "sonnet": Anthropic Messages API (chat completion)
//   - "gpt": OpenAI chat completions, the converse-style backend
//
// Backends return an empty string together with a typed error on failure.
// Transport failures are marked retryable and can be wrapped with WithRetry;
// parse failures of model output are reported by callers with
// ErrMalformedOutput and are never retried.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Model name tags.
const (
	ModelHaiku  = "haiku"
	ModelSonnet = "sonnet"
	ModelGPT    = "gpt"
)

// Backend is a single-turn text completion model.
type Backend interface {
	// Name returns the model name tag the backend serves.
	Name() string

	// Invoke sends prompt and returns the completion text.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Router selects a backend by model name.
type Router struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRouter returns a router serving the given backends under their names.
func NewRouter(backends ...Backend) *Router {
	r := &Router{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds or replaces the backend for b.Name().
func (r *Router) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Select returns the backend registered for name.
func (r *Router) Select(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnsupportedModel, name, r.namesLocked())
	}
	return b, nil
}

// Names returns the registered model names, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Router) namesLocked() []string {
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc struct {
	ModelName string
	Fn        func(ctx context.Context, prompt string) (string, error)
}

// Name implements Backend.
func (f BackendFunc) Name() string { return f.ModelName }

// Invoke implements Backend.
func (f BackendFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f.Fn(ctx, prompt)
}
