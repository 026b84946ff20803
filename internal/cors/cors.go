// Package cors implements the origin allowlist gate from spec §4.6.
package cors

// Gate is an exact-string origin allowlist, including the literal values
// "null" and "file://" used by sandboxed and local-file origins.
type Gate struct {
	allowed map[string]struct{}
}

// New builds a Gate from a list of allowed origins.
func New(origins []string) *Gate {
	g := &Gate{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		g.allowed[o] = struct{}{}
	}
	return g
}

// Allow reports whether origin may proceed. A request with no Origin
// header (empty string) is always allowed — CORS only applies to
// cross-origin browser requests, which always set the header.
func (g *Gate) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := g.allowed[origin]
	return ok
}
