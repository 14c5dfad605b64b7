package httpcore

// Request is the handler-facing view of one HTTP exchange's incoming
// message: the parsed head, the (at most once consumable) body, and a
// scratch Attributes map a before-action can use to pass data to the
// handler or a later after-action.
type Request struct {
	Head       *Head
	Body       *Body
	Attributes Attributes
	PathParams map[string]string
	ConnMeta   ConnMeta

	// Channel is the scoped write handle for this handler invocation,
	// valid only until the handler returns. A handler uses it to write
	// an interim response before computing its final one, or to
	// deliver the final response itself instead of returning it.
	Channel *Channel
}

// ConnMeta describes the underlying connection without giving access
// to the connection itself. Exchange.Run does not fill
// Request.ConnMeta, so its fields are empty for every request.
type ConnMeta struct {
	RemoteAddr string
	LocalAddr  string
	ExchangeID string
	Sequence   uint64
}

// Method returns the request method.
func (r *Request) Method() string { return r.Head.Method }

// Path returns the normalized request path.
func (r *Request) Path() string { return r.Head.Target.Path }

// Query returns the preserved raw query string.
func (r *Request) Query() string { return r.Head.Target.Query }

// Header returns the first value of name, or "".
func (r *Request) Header(name string) string { return r.Head.Headers.Get(name) }

// PathParam returns a named path-segment capture resolved by the
// router, e.g. pathParam("name") for pattern "/hello/:name".
func (r *Request) PathParam(name string) string { return r.PathParams[name] }
