package httpcore

import "strings"

// Target is the parsed origin-form request-target: a
// normalized path (no empty segments except the root) and a preserved
// query string. Adapted from fasthttp's uri.go normalizePath, cut
// down to origin-form parsing only — httpcore's core never resolves an
// absolute-form or authority-form target; such a target (including a
// CONNECT request's authority-form) fails to parse.
type Target struct {
	raw   string
	Path  string
	Query string
}

// ParseTarget splits raw ("/a/b//c?x=1") into a normalized Path
// ("/a/b/c") and a preserved Query ("x=1").
func ParseTarget(raw string) (Target, error) {
	if raw == "" {
		return Target{}, errIllegalArgument("empty request-target")
	}
	path := raw
	query := ""
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		path = raw[:i]
		query = raw[i+1:]
	}
	if path == "" || path[0] != '/' {
		return Target{}, errIllegalArgument("request-target must be in origin-form")
	}
	return Target{raw: raw, Path: normalizePath(path), Query: query}, nil
}

// normalizePath collapses runs of slashes inside the path into one, so
// the path has no empty segments apart from the root and a trailing
// slash, which is kept.
func normalizePath(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for i, seg := range segments {
		if seg == "" && i != 0 && i != len(segments)-1 {
			continue
		}
		out = append(out, seg)
	}
	joined := strings.Join(out, "/")
	if joined == "" {
		return "/"
	}
	return joined
}

// Segments splits Path into its non-empty slash-separated components,
// the unit the router (router.go) matches one at a time. The root path
// "/" yields an empty slice.
func (t Target) Segments() []string {
	trimmed := strings.Trim(t.Path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
