package httpcore

import (
	"bufio"
	"fmt"
	"io"
)

// exchangeMethod bundles the two facts the framing validator needs
// about the request side of the exchange (the framing table keys on
// both response status and request method).
type exchangeMethod struct {
	isHead    bool
	isConnect bool
}

// ValidateFraming applies the response framing table to resp before any byte
// is written to the wire, returning a framing Exception (always status
// 500 per the table) if the response violates it. On success it
// mutates resp.Headers to carry exactly the framing header the
// decided case requires.
func ValidateFraming(resp *Response, m exchangeMethod) error {
	hasCL := resp.Headers.Has("Content-Length")
	hasTE := resp.Headers.Has("Transfer-Encoding")

	switch {
	case resp.Status < 200 || resp.Status == 204:
		if hasCL || hasTE {
			return errIllegalResponseBody(fmt.Sprintf("status %d must not carry Content-Length or Transfer-Encoding", resp.Status))
		}
		if resp.HasBody() {
			return errIllegalResponseBody(fmt.Sprintf("status %d must not carry a body", resp.Status))
		}
		return nil

	case m.isConnect && resp.Status >= 200 && resp.Status < 300:
		if hasCL || hasTE {
			return errIllegalResponseBody("2xx response to CONNECT must not carry Content-Length or Transfer-Encoding")
		}
		return nil

	case m.isHead || resp.Status == 304:
		// Headers may describe a length; the body itself must be empty.
		if hasCL && hasTE {
			return errIllegalResponseBody("response must not carry both Content-Length and Transfer-Encoding")
		}
		if resp.HasBody() {
			return errIllegalResponseBody("HEAD and 304 responses must not carry a body")
		}
		return nil
	}

	if hasCL && hasTE {
		return errIllegalResponseBody("response must not carry both Content-Length and Transfer-Encoding")
	}

	switch resp.bodyKind {
	case respBodyNone:
		if !hasCL && !hasTE {
			resp.Headers.Set("Content-Length", "0")
		}
	case respBodyBytes:
		resp.Headers.Del("Transfer-Encoding")
		resp.Headers.Set("Content-Length", fmt.Sprint(len(resp.bodyBytes)))
	case respBodyReader:
		resp.Headers.Del("Content-Length")
		resp.Headers.Set("Transfer-Encoding", "chunked")
	}
	return nil
}

// WriteBody emits resp's body to w according to the framing already
// decided by ValidateFraming. suppressBody is true for HEAD requests
// and for 1xx/204/304/2xx-CONNECT responses, all of which must reach
// the wire with headers only.
func WriteBody(w *bufio.Writer, resp *Response, suppressBody bool) (int64, error) {
	if suppressBody || resp.bodyKind == respBodyNone {
		return 0, nil
	}
	if resp.bodyKind == respBodyBytes {
		n, err := w.Write(resp.bodyBytes)
		if err != nil {
			return int64(n), err
		}
		if n != len(resp.bodyBytes) {
			return int64(n), errIllegalArgument(fmt.Sprintf("discrepancy between Content-Length=%d and actual body length %d", len(resp.bodyBytes), n))
		}
		return int64(n), nil
	}
	return writeChunkedBody(w, resp.bodyReader)
}

// writeChunkedBody chunk-encodes r onto w: "SIZE-hex CRLF DATA CRLF",
// terminated by "0 CRLF CRLF". Adapted from fasthttp's http.go
// writeBodyChunked/writeChunk.
func writeChunkedBody(w *bufio.Writer, r io.Reader) (int64, error) {
	buf := acquireByteBuffer()
	defer releaseByteBuffer(buf)
	if cap(buf.B) < 4096 {
		buf.B = make([]byte, 4096)
	}
	scratch := buf.B[:4096]

	var total int64
	for {
		n, err := r.Read(scratch)
		if n > 0 {
			if werr := writeChunk(w, scratch[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return total, writeChunk(w, scratch[:0])
			}
			return total, err
		}
	}
}

func writeChunk(w *bufio.Writer, b []byte) error {
	if err := writeHexInt(w, len(b)); err != nil {
		return err
	}
	if _, err := w.Write(strCRLF); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(strCRLF)
	return err
}

var strCRLF = []byte("\r\n")

// WriteStatusLine writes "HTTP/1.1 <code> <reason>\r\n".
func WriteStatusLine(w *bufio.Writer, resp *Response) error {
	if _, err := w.WriteString("HTTP/1.1 "); err != nil {
		return err
	}
	if _, err := w.WriteString(fmt.Sprint(resp.Status)); err != nil {
		return err
	}
	if err := w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := w.WriteString(resp.reasonOrDefault()); err != nil {
		return err
	}
	_, err := w.Write(strCRLF)
	return err
}

// WriteHeaders writes every "Name: Value\r\n" pair followed by the
// empty-line terminator.
func WriteHeaders(w *bufio.Writer, h *Headers) error {
	var err error
	h.Each(func(name, value string) {
		if err != nil {
			return
		}
		if _, e := w.WriteString(name); e != nil {
			err = e
			return
		}
		if _, e := w.WriteString(": "); e != nil {
			err = e
			return
		}
		if _, e := w.WriteString(value); e != nil {
			err = e
			return
		}
		_, err = w.Write(strCRLF)
	})
	if err != nil {
		return err
	}
	_, err = w.Write(strCRLF)
	return err
}
