package httpcore

import (
	"bufio"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExchangeState names the states of the exchange state machine.
type ExchangeState int

const (
	StateReadingHead ExchangeState = iota
	StateRouting
	StateAwaitingHandler
	StateSendingInterim
	StateWritingResponse
	StateDraining
	StateCompleted
	StateAborted
)

// Exchange is a single request/response cycle on a connection
// created on the first byte of a new request, destroyed
// once the response is fully written or the connection closes. It
// exclusively owns the one-shot "final response" write permission.
type Exchange struct {
	ID    string
	Seq   uint64
	Start time.Time

	cfg      Config
	router   *Router
	pipeline *Pipeline
	logger   Logger
	bus      *EventBus

	br *bufio.Reader
	bw *bufio.Writer

	state ExchangeState

	finalSent       bool
	pendingFinal    *Response
	continueSent    bool
	continueRepeats int
	http10          bool
	mustClose       bool
}

// newExchange starts a new exchange on an existing connection's
// buffered reader/writer.
func newExchange(br *bufio.Reader, bw *bufio.Writer, cfg Config, router *Router, pipeline *Pipeline, logger Logger, bus *EventBus, seq uint64) *Exchange {
	return &Exchange{
		ID:       uuid.NewString(),
		Seq:      seq,
		Start:    time.Now(),
		cfg:      cfg,
		router:   router,
		pipeline: pipeline,
		logger:   logger,
		bus:      bus,
		br:       br,
		bw:       bw,
		state:    StateReadingHead,
	}
}

// Channel is the scoped, one-invocation write handle a handler
// receives via Request.Channel: valid only for the duration of the
// handler call that received it. Any write attempted after the
// handler has returned is rejected at the boundary rather than
// silently accepted.
type Channel struct {
	ex     *Exchange
	closed bool
}

// Write sends an interim (1xx) response immediately, or records the
// final response for delivery once the handler returns. Writing a
// final response this way and also returning one from the handler is
// an invariant violation: the first write wins, the
// second fails.
func (c *Channel) Write(resp *Response) error {
	if c.closed {
		return errIllegalArgument("scoped channel used after handler returned")
	}
	return c.ex.deliver(resp)
}

// Result is the outcome of running one Exchange to completion.
type Result struct {
	Close      bool
	StatusCode int
	BytesSent  int64
}

func (ex *Exchange) deliver(resp *Response) error {
	if resp.IsInterim() {
		return ex.writeInterim(resp)
	}
	if ex.finalSent {
		ex.mustClose = true
		return errIllegalArgument("request processing chain both wrote and returned a final response")
	}
	ex.finalSent = true
	ex.pendingFinal = resp
	return nil
}

// Run drives one exchange through the state machine:
// ReadingHead -> Routing -> AwaitingHandler -> WritingResponse ->
// Draining -> Completed, with the SendingInterim side-arrow and the
// Aborted terminal on unrecoverable I/O errors.
func (ex *Exchange) Run() (Result, error) {
	head, n, err := ParseHead(ex.br, ex.cfg.MaxRequestHeadSize)
	if err != nil {
		if exc, ok := AsException(err); ok && exc.Kind == KindEndOfStream {
			ex.state = StateAborted
			return Result{Close: true}, err
		}
		return ex.respondToParseError(err)
	}
	ex.bus.publishHead(RequestHeadReceived{ElapsedNanos: since(ex.Start), ByteCount: n, ExchangeID: ex.ID})
	ex.http10 = head.Major == 1 && head.Minor == 0

	if resp, ok := ex.checkVersion(head); ok {
		return ex.finish(head, resp, nil, true)
	}

	ex.state = StateRouting

	if head.Method == "TRACE" {
		if verr := ValidateTraceBody(head.Headers); verr != nil {
			return ex.respondToParseError(verr)
		}
	}

	body, err := SelectBodyDecoder(ex.br, head.Headers)
	if err != nil {
		return ex.respondToParseError(err)
	}
	if head.Headers.Expect100Continue() {
		if ex.cfg.ImmediatelyContinueExpect100 {
			ex.writeInterim(NewResponse(100))
		} else {
			body.withContinueHook(func() { ex.writeInterim(NewResponse(100)) })
		}
	}

	resolved, rerr := ex.router.Resolve(head.Method, head.Target.Path, head.Headers.Get("Content-Type"), head.Headers.Get("Accept"))

	req := &Request{Head: head, Body: body}
	defer req.Attributes.reset()
	if resolved != nil {
		req.PathParams = resolved.Params
	}

	ex.state = StateAwaitingHandler
	var resp *Response
	switch {
	case rerr != nil:
		resp = ex.responseFor(rerr)
	case resolved.Handler == nil:
		// default OPTIONS handling
		resp = NewResponse(204)
		resp.Headers.Set("Allow", joinMethods(resolved.Methods))
	default:
		if bresp, bok, berr := ex.pipeline.runBefore(ex, req); berr != nil {
			resp = ex.responseFor(errHandler(berr))
		} else if bok {
			resp = bresp
		} else {
			resp, err = ex.invoke(resolved.Handler, req)
			if err != nil {
				if exc, ok := AsException(err); ok && exc.Kind == KindIllegalArgument && ex.pendingFinal != nil {
					ex.logger.Errorf("exchange %s: handler wrote a channel response and also returned one; keeping the channel write", ex.ID)
					return ex.finish(head, ex.pendingFinal, body, true)
				}
				ex.logger.Errorf("handler error on exchange %s: %+v", ex.ID, err)
				resp = ex.responseFor(errHandler(err))
			}
		}
	}

	ex.state = StateWritingResponse
	resp, afterErr := ex.pipeline.runAfter(ex, req, resp)
	if afterErr != nil {
		ex.logger.Errorf("after-action error on exchange %s: %v", ex.ID, afterErr)
		resp = ex.responseFor(errHandler(afterErr))
	}

	return ex.finish(head, resp, body, ex.shouldCloseFor(head, resp))
}

func (ex *Exchange) invoke(h Handler, req *Request) (*Response, error) {
	ch := &Channel{ex: ex}
	req.Channel = ch
	resp, err := h(ex, req)
	ch.closed = true
	req.Channel = nil
	if err != nil {
		return nil, err
	}
	if ex.pendingFinal != nil {
		if resp != nil {
			ex.mustClose = true
			return nil, errIllegalArgument("request processing chain both wrote and returned a final response")
		}
		return ex.pendingFinal, nil
	}
	return resp, nil
}

// writeInterim emits a 1xx response immediately unless it is a repeated
// 100 Continue (suppressed on the wire after the first) or the client
// is HTTP/1.0 (interim responses are meaningless to it and are dropped
// silently, logged at DEBUG).
func (ex *Exchange) writeInterim(resp *Response) error {
	if ex.http10 {
		ex.logger.Debugf("dropping interim response %d for HTTP/1.0 client", resp.Status)
		return nil
	}
	if resp.Status == 100 {
		if ex.continueSent {
			ex.continueRepeats++
			if ex.continueRepeats == 1 {
				ex.logger.Debugf("repeated 100 Continue suppressed on the wire")
			} else {
				ex.logger.Warnf("repeated 100 Continue suppressed on the wire")
			}
			return nil
		}
		ex.continueSent = true
	}
	prevState := ex.state
	ex.state = StateSendingInterim
	if err := WriteStatusLine(ex.bw, resp); err != nil {
		return err
	}
	if err := WriteHeaders(ex.bw, resp.Headers); err != nil {
		return err
	}
	if err := ex.bw.Flush(); err != nil {
		return err
	}
	ex.state = prevState
	return nil
}

func (ex *Exchange) respondToParseError(err error) (Result, error) {
	exc, ok := AsException(err)
	if !ok {
		return Result{Close: true}, err
	}
	resp := ex.responseFor(exc)
	return ex.finish(nil, resp, nil, true)
}

func (ex *Exchange) responseFor(err error) *Response {
	exc, ok := AsException(err)
	if !ok {
		exc = errHandler(err)
	}
	resp := NewResponse(exc.Status())
	if exc.Kind == KindMethodNotAllowed {
		const prefix = "method not allowed; allow: "
		if len(exc.Message) > len(prefix) {
			resp.Headers.Set("Allow", exc.Message[len(prefix):])
		}
	}
	if exc.Status() >= 500 {
		ex.logger.Errorf("exchange %s: %+v", ex.ID, exc)
	} else {
		ex.logger.Debugf("exchange %s: %v", ex.ID, exc)
	}
	return resp
}

func (ex *Exchange) checkVersion(head *Head) (*Response, bool) {
	if head.Major < 1 || (head.Major == 1 && head.Minor == 0 && ex.cfg.MinHTTPVersion == HTTPVersion11) {
		resp := ex.responseFor(errHTTPVersionTooOld())
		resp.Headers.Set("Upgrade", "HTTP/1.1")
		resp.Headers.Set("Connection", "upgrade, close")
		ex.mustClose = true
		return resp, true
	}
	if head.Major > 1 || (head.Major == 1 && head.Minor > 1) {
		resp := ex.responseFor(errHTTPVersionTooNew())
		ex.mustClose = true
		return resp, true
	}
	return nil, false
}

// finish applies framing validation, writes the response, drains any
// unconsumed request body, and emits ResponseSent. head may be nil when
// the request line itself failed to parse.
func (ex *Exchange) finish(head *Head, resp *Response, body *Body, close bool) (Result, error) {
	if resp == nil {
		ex.state = StateAborted
		return Result{Close: true}, errors.New("no response to write")
	}
	if close && !resp.Headers.ConnectionClose() {
		resp.Headers.Set("Connection", "close")
	}
	if !resp.Headers.Has("Date") {
		resp.Headers.Set("Date", coarseTimeNow().UTC().Format(httpDateFormat))
	}

	var m exchangeMethod
	suppressBody := resp.IsInterim() || resp.Status == 204 || resp.Status == 304
	if head != nil {
		m.isHead = head.Method == "HEAD"
		m.isConnect = head.Method == "CONNECT"
		if m.isHead {
			suppressBody = true
		}
		if m.isConnect && resp.Status >= 200 && resp.Status < 300 {
			suppressBody = true
		}
	}

	if err := ValidateFraming(resp, m); err != nil {
		ex.logger.Errorf("exchange %s: invalid response framing: %v", ex.ID, err)
		resp = NewResponse(500)
		resp.Headers.Set("Connection", "close")
		close = true
		suppressBody = false
		_ = ValidateFraming(resp, exchangeMethod{})
	}

	if err := WriteStatusLine(ex.bw, resp); err != nil {
		ex.state = StateAborted
		return Result{Close: true}, err
	}
	if err := WriteHeaders(ex.bw, resp.Headers); err != nil {
		ex.state = StateAborted
		return Result{Close: true}, err
	}
	n, err := WriteBody(ex.bw, resp, suppressBody)
	if err != nil {
		ex.state = StateAborted
		return Result{Close: true}, err
	}
	if err := ex.bw.Flush(); err != nil {
		ex.state = StateAborted
		return Result{Close: true}, err
	}

	ex.state = StateDraining
	if body != nil && !body.finished {
		if derr := body.Drain(ex.cfg.MaxRequestBodyBufferSize); derr != nil {
			ex.logger.Debugf("exchange %s: draining abandoned body: %v", ex.ID, derr)
			close = true
		}
	}

	ex.state = StateCompleted
	ex.bus.publishSent(ResponseSent{ElapsedNanos: since(ex.Start), ByteCount: n, ExchangeID: ex.ID, Status: resp.Status})

	return Result{Close: close || ex.mustClose, StatusCode: resp.Status, BytesSent: n}, nil
}

// shouldCloseFor implements the connection persistence decision: close
// on an explicit Connection: close from either side, or on an HTTP/1.0
// request that didn't opt into keep-alive.
func (ex *Exchange) shouldCloseFor(head *Head, resp *Response) bool {
	if ex.mustClose {
		return true
	}
	if head.Headers.ConnectionClose() || resp.Headers.ConnectionClose() {
		return true
	}
	if ex.http10 && !head.Headers.ConnectionKeepAlive() {
		return true
	}
	return false
}

func joinMethods(methods []string) string {
	out := "OPTIONS"
	for _, m := range methods {
		if m == "OPTIONS" {
			continue
		}
		out += ", " + m
	}
	return out
}
