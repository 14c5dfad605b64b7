package httpcore

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/valyala/tcplisten"
)

// DefaultConcurrency is the worker-pool ceiling used when
// Server.Concurrency is left at zero.
const DefaultConcurrency = 256 * 1024

// Server is the connection lifecycle manager: it
// accepts connections, drives one Exchange after another on each until
// the connection closes or idles out, and supports a graceful Stop.
type Server struct {
	Config Config
	Router *Router

	// Pipeline runs before/after actions around every exchange. A zero
	// value means none are registered.
	Pipeline *Pipeline

	// Logger receives lifecycle and per-connection diagnostics, e.g. a
	// *ZapLogger from NewZapLogger; nil falls back to a no-op.
	Logger Logger

	// Events publishes RequestHeadReceived/ResponseSent/
	// HttpServerStopped. A zero value disables eventing.
	Events *EventBus

	// ReadBufferSize/WriteBufferSize size the per-connection bufio
	// wrappers. Defaulted the way fasthttp.Server does.
	ReadBufferSize  int
	WriteBufferSize int

	// ReusePort requests SO_REUSEPORT via github.com/valyala/tcplisten
	// when ListenAndServe opens its own listener.
	ReusePort bool

	// Concurrency bounds the number of simultaneously served
	// connections. DefaultConcurrency is used if zero.
	Concurrency int

	wp workerPool

	// idle tracks every connection for the duration of each exchange
	// (waiting for a request head or serving one), so Stop can
	// force-close whatever is still open once its grace period
	// elapses. Idle-timeout 408s are the owning worker's own concern
	// (see serveConn's read deadline), not this list's.
	idle idleConnList

	ln        net.Listener
	stopping  atomic.Bool
	activeWG  sync.WaitGroup
	closeOnce sync.Once
	doneCh    chan struct{}
}

func (s *Server) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return nopLogger{}
}

func (s *Server) events() *EventBus {
	if s.Events != nil {
		return s.Events
	}
	return NewEventBus(nil)
}

func (s *Server) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return DefaultConcurrency
}

// ListenAndServe opens addr and serves on it until Stop is called or a
// permanent accept error occurs.
func (s *Server) ListenAndServe(addr string) error {
	var ln net.Listener
	var err error
	if s.ReusePort {
		cfg := tcplisten.Config{ReusePort: true}
		ln, err = cfg.NewListener("tcp4", addr)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until Stop is called or ln.Accept
// returns a permanent error.
func (s *Server) Serve(ln net.Listener) error {
	s.Config = s.Config.withDefaults()
	s.doneCh = make(chan struct{})
	s.ln = ln

	s.wp = workerPool{
		Logger:                s.logger(),
		WorkerFunc:            s.serveConn,
		MaxWorkersCount:       s.concurrency(),
		MaxIdleWorkerDuration: 10 * time.Second,
	}
	s.wp.Start()
	defer s.wp.Stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.stopping.Load() {
				return nil
			}
			return err
		}
		if s.stopping.Load() {
			_ = c.Close()
			continue
		}
		if !s.wp.Serve(c) {
			s.logger().Warnf("worker pool saturated, rejecting connection from %s", c.RemoteAddr())
			_ = c.Close()
		}
	}
}

func (s *Server) readBufSize() int {
	if s.ReadBufferSize > 0 {
		return s.ReadBufferSize
	}
	return 4096
}

func (s *Server) writeBufSize() int {
	if s.WriteBufferSize > 0 {
		return s.WriteBufferSize
	}
	return 4096
}

// serveConn drives exchange after exchange on c until the connection
// must close, keeping c in s.idle while each exchange runs.
func (s *Server) serveConn(c net.Conn) error {
	s.activeWG.Add(1)
	defer s.activeWG.Done()
	defer c.Close()

	bc := NewByteChannel(c)
	br := acquireBufioReader(bc, s.readBufSize())
	bw := acquireBufioWriter(bc, s.writeBufSize())
	defer releaseBufioReader(br)
	defer releaseBufioWriter(bw)

	router := s.Router
	if router == nil {
		router = NewRouter()
	}
	pipeline := s.Pipeline
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	events := s.events()

	var seq uint64
	errorStreak := 0

	for {
		if s.stopping.Load() {
			return nil
		}

		item := s.idle.insertBack(c)

		if br.Buffered() == 0 {
			_ = c.SetReadDeadline(time.Now().Add(s.Config.IdleConnectionTimeout))
		}

		seq++
		ex := newExchange(br, bw, s.Config, router, pipeline, s.logger(), events, seq)

		result, err := ex.Run()

		s.idle.remove(item)

		if err != nil {
			return err
		}

		if result.StatusCode < 200 || result.StatusCode >= 300 {
			errorStreak++
			if s.Config.MaxErrorResponses > 0 && errorStreak >= s.Config.MaxErrorResponses {
				return nil
			}
		} else {
			errorStreak = 0
		}

		if result.Close {
			return nil
		}
	}
}

// Stop refuses new accepts, waits up to Config.GracefulStopTimeout for
// in-flight exchanges to finish on their own, then force-closes
// whatever is left. On timeout it logs how many connections it
// force-closed.
func (s *Server) Stop() error {
	var result error
	s.closeOnce.Do(func() {
		s.stopping.Store(true)
		if s.ln != nil {
			if err := s.ln.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if s.doneCh != nil {
			close(s.doneCh)
		}

		waitCh := make(chan struct{})
		go func() {
			s.activeWG.Wait()
			close(waitCh)
		}()

		select {
		case <-waitCh:
			s.logger().Debugf("all connections drained cleanly")
		case <-time.After(s.Config.withDefaults().GracefulStopTimeout):
			n := s.idle.closeAll()
			s.logger().Warnf("graceful stop timed out, closed %d open connections", n)
		}

		s.events().publishStopped(HttpServerStopped{Addr: s.addrString()})
	})
	return result
}

func (s *Server) addrString() string {
	if s.ln == nil {
		return ""
	}
	return fmt.Sprintf("%v", s.ln.Addr())
}
