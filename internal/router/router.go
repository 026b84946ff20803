// Package router implements the exact-match path router from spec §4.4.
package router

import (
	"errors"
	"sync"

	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/response"
	"github.com/slicingmelon/go-apiserver/internal/validator"
)

// ErrAlreadyRegistered is returned by Register when path has already been
// claimed by a prior call, matching spec §4.4 ("fails if (path) is
// already registered").
var ErrAlreadyRegistered = errors.New("router: path already registered")

// Handler processes a validated request and writes the outcome into resp.
// Handlers never panic across the worker-thread boundary (spec §9
// "Exceptions across the boundary"); failures are returned as errors and
// mapped to canonical responses by the caller.
type Handler func(req *httpparser.Request, resp *response.Response) error

// Endpoint is immutable once registered (spec §3).
type Endpoint struct {
	Path      string
	Method    string
	Validator *validator.Validator
	Handler   Handler
	IsSecure  bool
}

// Router is an exact-match path → endpoint table. Safe for concurrent
// Find calls once registration is complete; Register is expected to run
// single-threaded during server startup.
type Router struct {
	mu    sync.RWMutex
	paths map[string]*Endpoint
}

// New creates an empty router.
func New() *Router {
	return &Router{paths: make(map[string]*Endpoint)}
}

// Register adds an endpoint, failing if path is already claimed.
func (r *Router) Register(e Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.paths[e.Path]; exists {
		return ErrAlreadyRegistered
	}
	ep := e
	r.paths[e.Path] = &ep
	return nil
}

// Lookup is the outcome of Find.
type Lookup struct {
	Endpoint      *Endpoint
	PathExists    bool
	MethodMatches bool
}

// Find resolves path and method, case-sensitive with a single leading
// slash (spec §4.4). When the path exists but the stored endpoint's
// method does not match, PathExists is true and MethodMatches is false —
// callers translate this to 405 with an Allow header listing the
// endpoint's method (spec §9 "Open question: 405 vs 400").
func (r *Router) Find(path, method string) Lookup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.paths[path]
	if !ok {
		return Lookup{}
	}
	if ep.Method != method {
		return Lookup{Endpoint: ep, PathExists: true, MethodMatches: false}
	}
	return Lookup{Endpoint: ep, PathExists: true, MethodMatches: true}
}

// FindByPath resolves path irrespective of method, for the OPTIONS
// preflight responder which needs to know what method a path accepts
// without triggering a method-mismatch outcome.
func (r *Router) FindByPath(path string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.paths[path]
	return ep, ok
}
