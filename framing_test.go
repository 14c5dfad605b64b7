package httpcore

import (
	"bufio"
	"bytes"
	"testing"
)

func TestValidateFramingSetsContentLengthForBytes(t *testing.T) {
	resp := NewResponse(200).WithBytes([]byte("hello"))
	if err := ValidateFraming(resp, exchangeMethod{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Headers.Get("Content-Length"); got != "5" {
		t.Fatalf("got Content-Length=%q", got)
	}
}

func TestValidateFramingRejects204WithBody(t *testing.T) {
	resp := NewResponse(204).WithBytes([]byte("x"))
	if err := ValidateFraming(resp, exchangeMethod{}); err == nil {
		t.Fatal("expected error for 204 with body")
	}
}

func TestValidateFramingRejectsInterimWithContentLength(t *testing.T) {
	resp := NewResponse(100)
	resp.Headers.Set("Content-Length", "0")
	if err := ValidateFraming(resp, exchangeMethod{}); err == nil {
		t.Fatal("expected error for 1xx with Content-Length")
	}
}

func TestValidateFramingRejectsBothCLAndTE(t *testing.T) {
	resp := NewResponse(200)
	resp.Headers.Set("Content-Length", "1")
	resp.Headers.Set("Transfer-Encoding", "chunked")
	if err := ValidateFraming(resp, exchangeMethod{}); err == nil {
		t.Fatal("expected error for conflicting framing headers")
	}
}

func TestWriteBodySuppressedForHead(t *testing.T) {
	resp := NewResponse(200).WithBytes([]byte("hello"))
	if err := ValidateFraming(resp, exchangeMethod{isHead: true}); err == nil {
		t.Fatal("expected error for HEAD response carrying a body")
	}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	n, err := WriteBody(bw, resp, true)
	bw.Flush()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || buf.Len() != 0 {
		t.Fatalf("expected no body bytes written, got n=%d buf=%q", n, buf.String())
	}
}

func TestWriteChunkedBody(t *testing.T) {
	resp := NewResponse(200).WithReader(bytes.NewBufferString("abc"))
	if err := ValidateFraming(resp, exchangeMethod{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := WriteBody(bw, resp, false)
	bw.Flush()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "3\r\nabc\r\n0\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteStatusLineAndHeaders(t *testing.T) {
	resp := NewResponse(404)
	resp.Headers.Set("X-Test", "1")
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := WriteStatusLine(bw, resp); err != nil {
		t.Fatalf("status line: %v", err)
	}
	if err := WriteHeaders(bw, resp.Headers); err != nil {
		t.Fatalf("headers: %v", err)
	}
	bw.Flush()
	want := "HTTP/1.1 404 Not Found\r\nX-Test: 1\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}
