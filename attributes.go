package httpcore

import "io"

// Attributes is the per-request key/value scratch space the handler
// contract exposes to handlers and before/after actions.
// It is a linear slice rather than a map, adapted from fasthttp's
// userdata.go: request-scoped attribute sets are small, so a linear
// scan beats map overhead. Each exchange gets a fresh set, which is
// reset when that exchange ends.
type Attributes struct {
	kv []attributeKV
}

type attributeKV struct {
	key   string
	value interface{}
}

// Set stores value under key, overwriting any existing value.
func (a *Attributes) Set(key string, value interface{}) {
	for i := range a.kv {
		if a.kv[i].key == key {
			a.kv[i].value = value
			return
		}
	}
	a.kv = append(a.kv, attributeKV{key: key, value: value})
}

// Get returns the value stored under key, or nil.
func (a *Attributes) Get(key string) interface{} {
	for i := range a.kv {
		if a.kv[i].key == key {
			return a.kv[i].value
		}
	}
	return nil
}

// Remove deletes key, closing its value if it implements io.Closer.
func (a *Attributes) Remove(key string) {
	for i := range a.kv {
		if a.kv[i].key == key {
			if c, ok := a.kv[i].value.(io.Closer); ok {
				c.Close()
			}
			a.kv = append(a.kv[:i], a.kv[i+1:]...)
			return
		}
	}
}

// reset closes every io.Closer value and empties the set. Exchange.Run
// calls it when the exchange ends, so per-request resources (e.g. a
// handler stashing a temp file) do not leak.
func (a *Attributes) reset() {
	for i := range a.kv {
		if c, ok := a.kv[i].value.(io.Closer); ok {
			c.Close()
		}
	}
	a.kv = a.kv[:0]
}
