package httpcore

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// newTestExchange wires a fresh Exchange over a net.Pipe server half,
// with the client half returned for the test to write a request into
// and read a response out of.
func newTestExchange(t *testing.T, rt *Router, pl *Pipeline) (*Exchange, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	bc := NewByteChannel(serverConn)
	br := bufio.NewReaderSize(bc, 4096)
	bw := bufio.NewWriterSize(bc, 4096)
	cfg := DefaultConfig()
	if rt == nil {
		rt = NewRouter()
	}
	if pl == nil {
		pl = NewPipeline()
	}
	ex := newExchange(br, bw, cfg, rt, pl, nopLogger{}, NewEventBus(nil), 1)
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })
	return ex, clientConn
}

func TestExchangeSimpleGET(t *testing.T) {
	rt := NewRouter()
	rt.Register("/hello", "GET", "", "", func(ex *Exchange, req *Request) (*Response, error) {
		return NewResponse(200).WithBytes([]byte("hi")), nil
	})
	ex, client := newTestExchange(t, rt, nil)

	done := make(chan string, 1)
	go func() {
		client.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		buf := make([]byte, 4096)
		n, _ := client.Read(buf)
		done <- string(buf[:n])
	}()

	result, err := ex.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StatusCode != 200 {
		t.Fatalf("status: got %d", result.StatusCode)
	}
	if !result.Close {
		t.Fatal("expected close per Connection: close")
	}

	select {
	case resp := <-done:
		if !strings.Contains(resp, "200 OK") || !strings.HasSuffix(resp, "hi") {
			t.Fatalf("unexpected response: %q", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestExchangeNoRouteReturns404(t *testing.T) {
	ex, client := newTestExchange(t, NewRouter(), nil)

	done := make(chan string, 1)
	go func() {
		client.Write([]byte("GET /missing HTTP/1.1\r\nHost: x\r\n\r\n"))
		buf := make([]byte, 4096)
		n, _ := client.Read(buf)
		done <- string(buf[:n])
	}()

	result, err := ex.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StatusCode != 404 {
		t.Fatalf("status: got %d", result.StatusCode)
	}

	select {
	case resp := <-done:
		if !strings.Contains(resp, "404") {
			t.Fatalf("unexpected response: %q", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestExchangeHandlerWritesViaChannelThenReturnsKeepsTheChannelWrite(t *testing.T) {
	rt := NewRouter()
	rt.Register("/both", "GET", "", "", func(ex *Exchange, req *Request) (*Response, error) {
		req.Channel.Write(NewResponse(200))
		return NewResponse(201), nil
	})
	ex, client := newTestExchange(t, rt, nil)

	done := make(chan string, 1)
	go func() {
		client.Write([]byte("GET /both HTTP/1.1\r\nHost: x\r\n\r\n"))
		buf := make([]byte, 4096)
		n, _ := client.Read(buf)
		done <- string(buf[:n])
		io.Copy(io.Discard, client)
	}()

	result, _ := ex.Run()
	if !result.Close {
		t.Fatal("expected the connection to be forced closed on the dual-write violation")
	}
	if result.StatusCode != 200 {
		t.Fatalf("expected the already-delivered channel response (200) to win, got %d", result.StatusCode)
	}

	select {
	case resp := <-done:
		if !strings.Contains(resp, "200") {
			t.Fatalf("expected 200 on the wire, got %q", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestExchangeHandlerWritesViaChannelTwiceIsRejected(t *testing.T) {
	rt := NewRouter()
	rt.Register("/twice", "GET", "", "", func(ex *Exchange, req *Request) (*Response, error) {
		req.Channel.Write(NewResponse(200))
		err := req.Channel.Write(NewResponse(201))
		return nil, err
	})
	ex, client := newTestExchange(t, rt, nil)

	go func() {
		client.Write([]byte("GET /twice HTTP/1.1\r\nHost: x\r\n\r\n"))
		io.Copy(io.Discard, client)
	}()

	result, _ := ex.Run()
	if !result.Close {
		t.Fatal("expected the connection to be forced closed on the double-write violation")
	}
	if result.StatusCode != 200 {
		t.Fatalf("expected the first channel write (200) to win, got %d", result.StatusCode)
	}
}

func TestExchangeChannelRejectsWriteAfterHandlerReturns(t *testing.T) {
	var leaked *Channel
	rt := NewRouter()
	rt.Register("/leak", "GET", "", "", func(ex *Exchange, req *Request) (*Response, error) {
		leaked = req.Channel
		return NewResponse(200), nil
	})
	ex, client := newTestExchange(t, rt, nil)

	go func() {
		client.Write([]byte("GET /leak HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		io.Copy(io.Discard, client)
	}()

	if _, err := ex.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if leaked == nil {
		t.Fatal("handler never observed req.Channel")
	}
	if err := leaked.Write(NewResponse(202)); err == nil {
		t.Fatal("expected a write after the handler returned to be rejected")
	}
}

func TestExchangeHTTP10WithoutKeepAliveCloses(t *testing.T) {
	rt := NewRouter()
	rt.Register("/x", "GET", "", "", func(ex *Exchange, req *Request) (*Response, error) {
		return NewResponse(200), nil
	})
	ex, client := newTestExchange(t, rt, nil)

	go func() {
		client.Write([]byte("GET /x HTTP/1.0\r\nHost: x\r\n\r\n"))
		io.Copy(io.Discard, client)
	}()

	result, err := ex.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Close {
		t.Fatal("expected HTTP/1.0 without keep-alive to close")
	}
}
