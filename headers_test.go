package httpcore

import "testing"

func TestHeadersGetSet(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Type", "text/plain")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")

	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("Get case-insensitive: got %q", got)
	}
	if got := h.Values("x-multi"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Values: got %v", got)
	}

	h.Set("X-Multi", "only")
	if got := h.Values("X-Multi"); len(got) != 1 || got[0] != "only" {
		t.Fatalf("Set should replace all prior values: got %v", got)
	}

	h.Del("X-Multi")
	if h.Has("X-Multi") {
		t.Fatal("Del did not remove header")
	}
}

func TestHeadersContentLength(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Length", "42")
	n, present, ok := h.ContentLength()
	if !present || !ok || n != 42 {
		t.Fatalf("got n=%d present=%v ok=%v", n, present, ok)
	}

	h2 := NewHeaders()
	h2.Set("Content-Length", "not-a-number")
	_, present2, ok2 := h2.ContentLength()
	if !present2 || ok2 {
		t.Fatalf("expected present but invalid, got present=%v ok=%v", present2, ok2)
	}
}

func TestHeadersTransferEncodingsAndConnection(t *testing.T) {
	h := NewHeaders()
	h.Set("Transfer-Encoding", "gzip, chunked")
	te := h.TransferEncodings()
	if len(te) != 2 || te[1] != "chunked" {
		t.Fatalf("got %v", te)
	}

	h2 := NewHeaders()
	h2.Set("Connection", "Keep-Alive")
	if !h2.ConnectionKeepAlive() {
		t.Fatal("expected keep-alive true")
	}
	if h2.ConnectionClose() {
		t.Fatal("expected close false")
	}

	h3 := NewHeaders()
	h3.Set("Expect", "100-continue")
	if !h3.Expect100Continue() {
		t.Fatal("expected Expect100Continue true")
	}
}
