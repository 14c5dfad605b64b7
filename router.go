package httpcore

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cast"
)

// Handler is the application contract: given a Request it
// returns a final Response, or nil (meaning "already written via the
// scoped channel"), or an error.
type Handler func(ex *Exchange, req *Request) (*Response, error)

type segKind int

const (
	segLiteral segKind = iota
	segParam
	segWildcard
)

type patternSegment struct {
	kind    segKind
	literal string // segLiteral
	name    string // segParam
}

// route is one registered path pattern together with every
// (method, consumes, produces) -> Handler tuple bound to it, matching
// the Route data model.
type route struct {
	pattern  string
	segments []patternSegment
	literal  bool // true if no param/wildcard segments at all
	handlers []routeHandler
}

type routeHandler struct {
	method   string
	consumes string
	produces string
	handler  Handler
}

// Router is the registration + resolution table: a
// hybrid of a hashed static-path fast path (adapted from
// MiraiMindz-watt/bolt/core/router.go's static map) and a scored scan
// over pattern routes for everything carrying a `:name` or `*` segment.
type Router struct {
	mu      sync.RWMutex
	static  map[uint64][]*route
	dynamic []*route
	shapes  map[string]bool
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{
		static: make(map[uint64][]*route),
		shapes: make(map[string]bool),
	}
}

// ParsePattern splits a path pattern into literal/":name"/"*" segments.
func ParsePattern(pattern string) ([]patternSegment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, errIllegalArgument("route pattern must start with '/'")
	}
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]patternSegment, 0, len(parts))
	for i, p := range parts {
		switch {
		case p == "":
			return nil, errIllegalArgument("route pattern must not contain empty segments")
		case p == "*":
			if i != len(parts)-1 {
				return nil, errIllegalArgument("wildcard segment must be the last segment")
			}
			segs = append(segs, patternSegment{kind: segWildcard})
		case strings.HasPrefix(p, ":"):
			name := p[1:]
			if name == "" {
				return nil, errIllegalArgument("named segment must have a name")
			}
			segs = append(segs, patternSegment{kind: segParam, name: name})
		default:
			segs = append(segs, patternSegment{kind: segLiteral, literal: p})
		}
	}
	return segs, nil
}

func shapeKey(segs []patternSegment, method, consumes, produces string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('|')
	b.WriteString(consumes)
	b.WriteByte('|')
	b.WriteString(produces)
	b.WriteByte('|')
	for _, s := range segs {
		switch s.kind {
		case segLiteral:
			b.WriteString("/L:")
			b.WriteString(s.literal)
		case segParam:
			b.WriteString("/P")
		case segWildcard:
			b.WriteString("/*")
		}
	}
	return b.String()
}

// Register adds a handler for (pattern, method, consumes, produces).
// Duplicate tuples, and patterns that overlap an already-registered
// pattern of identical shape for the same method/media-types, are
// rejected.
func (rt *Router) Register(pattern, method, consumes, produces string, h Handler) error {
	segs, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	key := shapeKey(segs, method, consumes, produces)
	if rt.shapes[key] {
		return errIllegalArgument("duplicate or overlapping route registration for " + pattern)
	}
	rt.shapes[key] = true

	literal := true
	for _, s := range segs {
		if s.kind != segLiteral {
			literal = false
			break
		}
	}

	for _, r := range rt.allRoutes() {
		if samePattern(r.segments, segs) {
			r.handlers = append(r.handlers, routeHandler{method: method, consumes: consumes, produces: produces, handler: h})
			return nil
		}
	}

	r := &route{pattern: pattern, segments: segs, literal: literal,
		handlers: []routeHandler{{method: method, consumes: consumes, produces: produces, handler: h}}}
	if literal {
		hk := hashPath(pattern)
		rt.static[hk] = append(rt.static[hk], r)
	} else {
		rt.dynamic = append(rt.dynamic, r)
	}
	return nil
}

func (rt *Router) allRoutes() []*route {
	var out []*route
	for _, rs := range rt.static {
		out = append(out, rs...)
	}
	out = append(out, rt.dynamic...)
	return out
}

func samePattern(a, b []patternSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].kind != b[i].kind {
			return false
		}
		if a[i].kind == segLiteral && a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}

func hashPath(path string) uint64 {
	return xxhash.Sum64String(path)
}

// matchCandidate is one pattern route that structurally matches a path.
type matchCandidate struct {
	r      *route
	params map[string]string
	score  int
}

// resolvePattern finds the matching route(s) for path, applying
// the "longest literal prefix, then parameters, then
// wildcard" precedence via a simple per-segment score: a literal match
// outweighs a param match outweighs a wildcard match.
func (rt *Router) resolvePattern(path string) ([]matchCandidate, error) {
	target, err := ParseTarget(path)
	if err != nil {
		return nil, err
	}
	segments := target.Segments()

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var candidates []matchCandidate

	if rs, ok := rt.static[hashPath(normalizedPatternFromSegments(segments))]; ok {
		for _, r := range rs {
			if len(r.segments) == len(segments) && samePattern(r.segments, literalSegmentsOf(segments)) {
				candidates = append(candidates, matchCandidate{r: r, params: map[string]string{}, score: len(segments) * 2})
			}
		}
	}

	for _, r := range rt.dynamic {
		if params, score, ok := matchSegments(r.segments, segments); ok {
			candidates = append(candidates, matchCandidate{r: r, params: params, score: score})
		}
	}

	return candidates, nil
}

func literalSegmentsOf(parts []string) []patternSegment {
	segs := make([]patternSegment, len(parts))
	for i, p := range parts {
		segs[i] = patternSegment{kind: segLiteral, literal: p}
	}
	return segs
}

func normalizedPatternFromSegments(parts []string) string {
	return "/" + strings.Join(parts, "/")
}

func matchSegments(pattern []patternSegment, path []string) (map[string]string, int, bool) {
	params := map[string]string{}
	score := 0
	pi := 0
	for pi < len(pattern) {
		seg := pattern[pi]
		if seg.kind == segWildcard {
			return params, score, true
		}
		if pi >= len(path) {
			return nil, 0, false
		}
		switch seg.kind {
		case segLiteral:
			if seg.literal != path[pi] {
				return nil, 0, false
			}
			score += 2
		case segParam:
			params[seg.name] = path[pi]
			score++
		}
		pi++
	}
	if pi != len(path) {
		return nil, 0, false
	}
	return params, score, true
}

// Resolved is the outcome of a successful router dispatch: the handler
// to invoke (nil for the default OPTIONS response), bound path
// parameters, and every method registered for the matched pattern.
type Resolved struct {
	Handler  Handler
	Params   map[string]string
	Methods  []string // every method registered for the matched pattern, for Allow/OPTIONS
}

// Resolve implements route resolution end to end: pattern match, method
// filter (405 + Allow), then media-type dispatch (415/406/500).
func (rt *Router) Resolve(method, path string, contentType, accept string) (*Resolved, error) {
	candidates, err := rt.resolvePattern(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errNoRouteFound(path)
	}

	best := bestCandidates(candidates)
	if len(best) > 1 {
		return nil, errAmbiguousHandler(path)
	}
	r := best[0].r
	params := best[0].params

	methodSet := map[string]bool{}
	var methodEntries []routeHandler
	for _, rh := range r.handlers {
		methodSet[rh.method] = true
		if rh.method == method {
			methodEntries = append(methodEntries, rh)
		}
	}
	methods := make([]string, 0, len(methodSet))
	for m := range methodSet {
		methods = append(methods, m)
	}

	if len(methodEntries) == 0 {
		if method == "OPTIONS" {
			return &Resolved{Params: params, Methods: methods}, nil
		}
		return nil, errMethodNotAllowed(strings.Join(methods, ", "))
	}

	consumesMatches := filterConsumes(methodEntries, contentType)
	if len(consumesMatches) == 0 {
		return nil, errMediaTypeUnsupported()
	}
	producesMatches := filterProduces(consumesMatches, accept)
	if len(producesMatches) == 0 {
		return nil, errMediaTypeNotAccepted()
	}
	if len(producesMatches) > 1 {
		return nil, errAmbiguousHandler(path)
	}
	return &Resolved{Handler: producesMatches[0].handler, Params: params, Methods: methods}, nil
}

func bestCandidates(cands []matchCandidate) []matchCandidate {
	best := cands[0]
	var tied []matchCandidate
	for _, c := range cands {
		if c.score > best.score {
			best = c
		}
	}
	for _, c := range cands {
		if c.score == best.score {
			tied = append(tied, c)
		}
	}
	return tied
}

func mediaBase(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func filterConsumes(entries []routeHandler, contentType string) []routeHandler {
	base := mediaBase(contentType)
	var out []routeHandler
	for _, e := range entries {
		if e.consumes == "" || e.consumes == "*/*" || mediaBase(e.consumes) == base || base == "" {
			out = append(out, e)
		}
	}
	return out
}

// acceptEntry is one parsed Accept media-range with its q value.
type acceptEntry struct {
	mediaType string
	q         float64
}

func parseAccept(accept string) []acceptEntry {
	if accept == "" {
		return []acceptEntry{{mediaType: "*/*", q: 1.0}}
	}
	parts := strings.Split(accept, ",")
	out := make([]acceptEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Split(p, ";")
		mt := strings.ToLower(strings.TrimSpace(fields[0]))
		q := 1.0
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if strings.HasPrefix(f, "q=") {
				if v, err := cast.ToFloat64E(strings.TrimPrefix(f, "q=")); err == nil {
					q = v
				}
			}
		}
		out = append(out, acceptEntry{mediaType: mt, q: q})
	}
	return out
}

// filterProduces keeps handlers whose `produces` media type is accepted
// by the client's Accept header, preferring entries matched by a
// higher explicit q value.
func filterProduces(entries []routeHandler, accept string) []routeHandler {
	ranges := parseAccept(accept)
	bestQ := -1.0
	var out []routeHandler
	for _, e := range entries {
		produces := e.produces
		if produces == "" {
			produces = "application/octet-stream"
		}
		q, ok := acceptQ(ranges, produces)
		if !ok {
			continue
		}
		if q > bestQ {
			bestQ = q
			out = []routeHandler{e}
		} else if q == bestQ {
			out = append(out, e)
		}
	}
	return out
}

func acceptQ(ranges []acceptEntry, mediaType string) (float64, bool) {
	base := mediaBase(mediaType)
	typ := strings.SplitN(base, "/", 2)
	best := -1.0
	found := false
	for _, r := range ranges {
		if r.q <= 0 {
			continue
		}
		switch {
		case r.mediaType == base:
			if r.q > best {
				best, found = r.q, true
			}
		case strings.HasSuffix(r.mediaType, "/*") && len(typ) == 2 && strings.TrimSuffix(r.mediaType, "/*") == typ[0]:
			if r.q > best {
				best, found = r.q, true
			}
		case r.mediaType == "*/*":
			if r.q > best {
				best, found = r.q, true
			}
		}
	}
	return best, found
}
