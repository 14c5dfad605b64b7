package httpcore

import "io"

// responseBodyKind distinguishes the three response body shapes a
// handler may produce: no body, a known-length byte/file source, or
// an unknown-length iterator that must be chunk-encoded.
type responseBodyKind int

const (
	respBodyNone responseBodyKind = iota
	respBodyBytes
	respBodyReader
)

// Response is the outgoing message of one exchange: a status, a reason
// phrase (defaulted from the status if empty), headers, and an optional
// body.
type Response struct {
	Status  int
	Reason  string
	Headers *Headers

	bodyKind   responseBodyKind
	bodyBytes  []byte
	bodyReader io.Reader
	bodyLength BodyLength // Unknown when bodyKind == respBodyReader
}

// NewResponse builds a Response with the given status and no body.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: NewHeaders()}
}

// WithBytes attaches a known-length byte body.
func (r *Response) WithBytes(b []byte) *Response {
	r.bodyKind = respBodyBytes
	r.bodyBytes = b
	r.bodyLength = BodyLength(len(b))
	return r
}

// WithReader attaches an unknown-length body that will be
// chunk-encoded on the wire.
func (r *Response) WithReader(rd io.Reader) *Response {
	r.bodyKind = respBodyReader
	r.bodyReader = rd
	r.bodyLength = Unknown
	return r
}

// HasBody reports whether a body was attached at all (independent of
// whether framing rules will ultimately suppress it).
func (r *Response) HasBody() bool { return r.bodyKind != respBodyNone }

// BodyLength mirrors Body.Length: a non-negative count, or Unknown.
func (r *Response) BodyLength() BodyLength { return r.bodyLength }

func (r *Response) reasonOrDefault() string {
	if r.Reason != "" {
		return r.Reason
	}
	if reason, ok := statusReasons[r.Status]; ok {
		return reason
	}
	return "Unknown Status"
}

var statusReasons = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	304: "Not Modified",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	413: "Payload Too Large",
	415: "Unsupported Media Type",
	426: "Upgrade Required",
	500: "Internal Server Error",
	501: "Not Implemented",
	505: "HTTP Version Not Supported",
}

// IsInterim reports whether this is a 1xx interim response.
func (r *Response) IsInterim() bool { return r.Status >= 100 && r.Status < 200 }
