package httpcore

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// headerKV is one stored header entry: the ordered multimap keeps raw
// name/value pairs in insertion order, the way fasthttp's header.go
// keeps its []argsKV rather than collapsing into a
// map[string][]string up front.
type headerKV struct {
	name  string // as received/set, case preserved
	value string
}

// Headers is the ordered, case-insensitive-on-compare multimap used
// for request and response header fields: insertion order preserved,
// duplicate names retain all values, lookups fold case.
type Headers struct {
	kv []headerKV
}

// NewHeaders returns an empty Headers.
func NewHeaders() *Headers { return &Headers{} }

// Add appends value under name without displacing any existing values.
func (h *Headers) Add(name, value string) {
	h.kv = append(h.kv, headerKV{name: name, value: value})
}

// Set replaces all existing values for name with a single value.
func (h *Headers) Set(name, value string) {
	h.del(name)
	h.Add(name, value)
}

// Get returns the first value stored for name, or "" if absent.
func (h *Headers) Get(name string) string {
	for i := range h.kv {
		if strings.EqualFold(h.kv[i].name, name) {
			return h.kv[i].value
		}
	}
	return ""
}

// Values returns every value stored for name, in insertion order. The
// returned slice is a copy; mutating it does not affect h.
func (h *Headers) Values(name string) []string {
	var out []string
	for i := range h.kv {
		if strings.EqualFold(h.kv[i].name, name) {
			out = append(out, h.kv[i].value)
		}
	}
	return out
}

// Has reports whether name has at least one value.
func (h *Headers) Has(name string) bool {
	for i := range h.kv {
		if strings.EqualFold(h.kv[i].name, name) {
			return true
		}
	}
	return false
}

func (h *Headers) del(name string) {
	out := h.kv[:0]
	for _, e := range h.kv {
		if !strings.EqualFold(e.name, name) {
			out = append(out, e)
		}
	}
	h.kv = out
}

// Del removes every value stored for name.
func (h *Headers) Del(name string) { h.del(name) }

// Len returns the number of stored name/value pairs (not distinct names).
func (h *Headers) Len() int { return len(h.kv) }

// Each calls f for every name/value pair in insertion order.
func (h *Headers) Each(f func(name, value string)) {
	for _, e := range h.kv {
		f(e.name, e.value)
	}
}

// reset empties h for reuse across exchanges on the same connection.
func (h *Headers) reset() { h.kv = h.kv[:0] }

// CopyTo appends a copy of every entry in h onto dst, preserving order.
func (h *Headers) CopyTo(dst *Headers) {
	dst.kv = append(dst.kv, h.kv...)
}

// validName reports whether name is a legal header field name: a
// non-empty token (tchar*), no whitespace, no colon. Delegates to
// golang.org/x/net/http/httpguts, which implements the RFC 9110 token
// grammar the RFC calls out by reference ("no whitespace in name").
func validName(name string) bool {
	return name != "" && httpguts.ValidHeaderFieldName(name)
}

// validValue reports whether value contains no CR/LF ("no
// CR/LF in value"), folding and obs-fold aside — httpguts rejects both.
func validValue(value string) bool {
	return httpguts.ValidHeaderFieldValue(value)
}

// ContentLength returns the header's declared Content-Length. Per
// RFC 9110 ("known singleton headers ... have exactly one numeric
// value >= 0"), a second Content-Length header or a non-numeric value
// is reported as ok=false; callers turn that into a BadRequest.
func (h *Headers) ContentLength() (n int, present, ok bool) {
	vals := h.Values("Content-Length")
	if len(vals) == 0 {
		return 0, false, true
	}
	if len(vals) > 1 {
		return 0, true, false
	}
	v, err := ParseUint(s2b(vals[0]))
	if err != nil || v < 0 {
		return 0, true, false
	}
	return v, true, true
}

// TransferEncodings returns the comma-separated codings of the
// Transfer-Encoding header, outermost first, e.g. ["gzip", "chunked"].
func (h *Headers) TransferEncodings() []string {
	v := h.Get("Transfer-Encoding")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// ConnectionClose reports whether a "Connection: close" token is
// present (request or response side).
func (h *Headers) ConnectionClose() bool {
	for _, tok := range strings.Split(h.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "close") {
			return true
		}
	}
	return false
}

// ConnectionKeepAlive reports whether a "Connection: keep-alive" token
// is present, which is what rescues an HTTP/1.0 request from closing.
func (h *Headers) ConnectionKeepAlive() bool {
	for _, tok := range strings.Split(h.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "keep-alive") {
			return true
		}
	}
	return false
}

// Expect100Continue reports whether the request declared
// "Expect: 100-continue".
func (h *Headers) Expect100Continue() bool {
	return strings.EqualFold(strings.TrimSpace(h.Get("Expect")), "100-continue")
}
