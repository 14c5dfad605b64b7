package httpcore

// BeforeAction runs in registration order after the route has been
// resolved and before the handler is called; it does not run when
// routing fails or for the default OPTIONS response. It
// may short-circuit the chain by returning a non-nil Response; later
// before-actions and the handler are then skipped, but after-actions
// still run on that response.
type BeforeAction func(ex *Exchange, req *Request) (*Response, error)

// AfterAction runs after the handler (or a short-circuiting
// BeforeAction) produced a response, in registration order, and may
// rewrite it before it is framed and written.
type AfterAction func(ex *Exchange, req *Request, resp *Response) (*Response, error)

// Pipeline is the linear before/after chain around a handler call: no
// cycles, no DSL, just two ordered slices run straight through.
type Pipeline struct {
	before []BeforeAction
	after  []AfterAction
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Before registers a BeforeAction, appended after any already
// registered (registration order is the run order).
func (p *Pipeline) Before(a BeforeAction) { p.before = append(p.before, a) }

// After registers an AfterAction.
func (p *Pipeline) After(a AfterAction) { p.after = append(p.after, a) }

// runBefore executes every BeforeAction in order, stopping at the
// first one that returns a non-nil Response or an error.
func (p *Pipeline) runBefore(ex *Exchange, req *Request) (*Response, bool, error) {
	for _, a := range p.before {
		resp, err := a(ex, req)
		if err != nil {
			return nil, true, err
		}
		if resp != nil {
			return resp, true, nil
		}
	}
	return nil, false, nil
}

// runAfter executes every AfterAction in order, each seeing the
// previous action's (possibly rewritten) response.
func (p *Pipeline) runAfter(ex *Exchange, req *Request, resp *Response) (*Response, error) {
	for _, a := range p.after {
		next, err := a(ex, req, resp)
		if err != nil {
			return resp, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}
