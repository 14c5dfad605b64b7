package httpcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one row of the exception taxonomy: a
// status code and a close-decision, independent of the message that
// triggered it.
type Kind int

const (
	KindRequestLineParse Kind = iota
	KindHeaderParse
	KindHTTPVersionParse
	KindBadRequest
	KindIllegalRequestBody
	KindDecoder
	KindMaxRequestHeadSize
	KindMaxRequestBodyBuffer
	KindUnsupportedTransferCoding
	KindHTTPVersionTooOld
	KindHTTPVersionTooNew
	KindNoRouteFound
	KindMethodNotAllowed
	KindMediaTypeNotAccepted
	KindMediaTypeUnsupported
	KindAmbiguousHandler
	KindIllegalResponseBody
	KindIdleConnection
	KindHandler
	KindEndOfStream
	KindIllegalArgument
)

// taxonomyRow is the static status/close mapping table.
type taxonomyRow struct {
	status int
	close  bool
}

var taxonomy = map[Kind]taxonomyRow{
	KindRequestLineParse:         {400, true},
	KindHeaderParse:              {400, true},
	KindHTTPVersionParse:         {400, true},
	KindBadRequest:               {400, true},
	KindIllegalRequestBody:       {400, true},
	KindDecoder:                  {400, true},
	KindMaxRequestHeadSize:       {413, true},
	KindMaxRequestBodyBuffer:     {413, true},
	KindUnsupportedTransferCoding: {501, true},
	KindHTTPVersionTooOld:        {426, true},
	KindHTTPVersionTooNew:        {505, true},
	KindNoRouteFound:             {404, false},
	KindMethodNotAllowed:         {405, false},
	KindMediaTypeNotAccepted:     {406, false},
	KindMediaTypeUnsupported:     {415, false},
	KindAmbiguousHandler:         {500, false},
	KindIllegalResponseBody:      {500, false},
	KindIdleConnection:           {408, true},
	KindHandler:                  {500, false},
	KindEndOfStream:              {0, true}, // no response; close silently
	KindIllegalArgument:          {500, false},
}

// Exception is the error type that travels from the parser/decoder/
// router/handler to the exception handler chain. It wraps the
// underlying cause with github.com/pkg/errors so a 500-class log keeps
// a stack trace.
type Exception struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Exception) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Exception) Unwrap() error { return e.cause }

// Status returns the status code this exception maps to.
func (e *Exception) Status() int { return taxonomy[e.Kind].status }

// ShouldClose reports whether the connection must close after this
// exception's response has been written.
func (e *Exception) ShouldClose() bool { return taxonomy[e.Kind].close }

// newException builds an Exception with a stack-carrying cause.
func newException(kind Kind, msg string) *Exception {
	return &Exception{Kind: kind, Message: msg, cause: errors.New(msg)}
}

func wrapException(kind Kind, msg string, cause error) *Exception {
	return &Exception{Kind: kind, Message: msg, cause: errors.Wrap(cause, msg)}
}

// Sentinel constructors for the named exception kinds.

func errRequestLineParse(prev, cur byte, pos int, msg string) *Exception {
	return newException(KindRequestLineParse, fmt.Sprintf("%s (prev=%q cur=%q pos=%d)", msg, prev, cur, pos))
}

func errHeaderParse(prev, cur byte, pos int, msg string) *Exception {
	return newException(KindHeaderParse, fmt.Sprintf("%s (prev=%q cur=%q pos=%d)", msg, prev, cur, pos))
}

func errHTTPVersionParse(msg string) *Exception {
	return newException(KindHTTPVersionParse, msg)
}

func errMaxRequestHeadSize() *Exception {
	return newException(KindMaxRequestHeadSize, "request head exceeds the configured maximum size")
}

func errEndOfStream(msg string) *Exception {
	return newException(KindEndOfStream, msg)
}

func errBadRequest(msg string) *Exception {
	return newException(KindBadRequest, msg)
}

func errUnsupportedTransferCoding(coding string) *Exception {
	return newException(KindUnsupportedTransferCoding, fmt.Sprintf("unsupported transfer coding %q", coding))
}

func errDecoder(msg string, cause error) *Exception {
	return wrapException(KindDecoder, msg, cause)
}

func errIllegalRequestBody(msg string) *Exception {
	return newException(KindIllegalRequestBody, msg)
}

func errMaxRequestBodyBuffer() *Exception {
	return newException(KindMaxRequestBodyBuffer, "request body buffer exceeds the configured maximum size")
}

func errNoRouteFound(path string) *Exception {
	return newException(KindNoRouteFound, fmt.Sprintf("no route matches %q", path))
}

func errMethodNotAllowed(allowed string) *Exception {
	e := newException(KindMethodNotAllowed, "method not allowed")
	e.Message = "method not allowed; allow: " + allowed
	return e
}

func errMediaTypeNotAccepted() *Exception {
	return newException(KindMediaTypeNotAccepted, "no handler produces an acceptable media type")
}

func errMediaTypeUnsupported() *Exception {
	return newException(KindMediaTypeUnsupported, "no handler consumes the request's content type")
}

func errAmbiguousHandler(pattern string) *Exception {
	return newException(KindAmbiguousHandler, fmt.Sprintf("ambiguous handler for pattern %q", pattern))
}

func errIllegalArgument(msg string) *Exception {
	return newException(KindIllegalArgument, msg)
}

func errIllegalResponseBody(msg string) *Exception {
	return newException(KindIllegalResponseBody, msg)
}

func errIdleConnection() *Exception {
	return newException(KindIdleConnection, "idle connection timed out")
}

func errHandler(cause error) *Exception {
	return wrapException(KindHandler, "handler error", cause)
}

func errHTTPVersionTooOld() *Exception {
	return newException(KindHTTPVersionTooOld, "http version below the configured minimum")
}

func errHTTPVersionTooNew() *Exception {
	return newException(KindHTTPVersionTooNew, "http version not supported")
}

// AsException unwraps err looking for an *Exception, the way
// errors.As(err, &exc) would, without forcing every caller to import
// errors directly.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}
