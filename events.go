package httpcore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestHeadReceived fires once the request-line + header block has
// been fully parsed.
type RequestHeadReceived struct {
	ElapsedNanos int64
	ByteCount    int
	ExchangeID   string
}

// ResponseSent fires once the final response has been fully written.
type ResponseSent struct {
	ElapsedNanos int64
	ByteCount    int64
	ExchangeID   string
	Status       int
}

// HttpServerStopped fires once per successful Server.Stop.
type HttpServerStopped struct {
	Addr string
}

// EventBus is the copy-on-write subscriber list:
// fire-and-forget delivery on the worker's own goroutine, so a slow
// subscriber must not stall the exchange — subscribers are expected to
// return quickly or hand off internally.
type EventBus struct {
	subs atomic.Value // []subscriber

	metrics *eventMetrics
}

type subscriber struct {
	id        uint64
	onHead    func(RequestHeadReceived)
	onSent    func(ResponseSent)
	onStopped func(HttpServerStopped)
}

var subscriberIDs atomic.Uint64

type eventMetrics struct {
	registerOnce sync.Once
	heads        prometheus.Counter
	responses    prometheus.Counter
	responseSize prometheus.Histogram
	stops        prometheus.Counter
}

// NewEventBus returns an EventBus with no subscribers. When registry is
// non-nil its metrics are registered against it immediately with
// MustRegister, so two EventBuses built against the same registry
// panic on the second registration; a nil registry registers nothing.
func NewEventBus(registry prometheus.Registerer) *EventBus {
	b := &EventBus{}
	b.subs.Store([]subscriber{})
	b.metrics = newEventMetrics(registry)
	return b
}

func newEventMetrics(reg prometheus.Registerer) *eventMetrics {
	m := &eventMetrics{
		heads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpcore_request_heads_received_total",
			Help: "Number of request heads fully parsed.",
		}),
		responses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpcore_responses_sent_total",
			Help: "Number of final responses fully written.",
		}),
		responseSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "httpcore_response_bytes",
			Help:    "Body bytes of written responses (status line and headers not counted).",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpcore_server_stops_total",
			Help: "Number of successful graceful stops.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.heads, m.responses, m.responseSize, m.stops)
	}
	return m
}

// Subscribe registers callbacks for the events the caller cares about;
// any of the three may be nil. Returns an unsubscribe function.
func (b *EventBus) Subscribe(onHead func(RequestHeadReceived), onSent func(ResponseSent), onStopped func(HttpServerStopped)) func() {
	s := subscriber{id: subscriberIDs.Add(1), onHead: onHead, onSent: onSent, onStopped: onStopped}
	for {
		old := b.subs.Load().([]subscriber)
		next := make([]subscriber, len(old)+1)
		copy(next, old)
		next[len(old)] = s
		if b.subs.CompareAndSwap(old, next) {
			break
		}
	}
	return func() { b.unsubscribe(s.id) }
}

func (b *EventBus) unsubscribe(id uint64) {
	for {
		old := b.subs.Load().([]subscriber)
		next := make([]subscriber, 0, len(old))
		for _, s := range old {
			if s.id != id {
				next = append(next, s)
			}
		}
		if b.subs.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *EventBus) publishHead(ev RequestHeadReceived) {
	b.metrics.heads.Inc()
	for _, s := range b.subs.Load().([]subscriber) {
		if s.onHead != nil {
			s.onHead(ev)
		}
	}
}

func (b *EventBus) publishSent(ev ResponseSent) {
	b.metrics.responses.Inc()
	b.metrics.responseSize.Observe(float64(ev.ByteCount))
	for _, s := range b.subs.Load().([]subscriber) {
		if s.onSent != nil {
			s.onSent(ev)
		}
	}
}

func (b *EventBus) publishStopped(ev HttpServerStopped) {
	b.metrics.stops.Inc()
	for _, s := range b.subs.Load().([]subscriber) {
		if s.onStopped != nil {
			s.onStopped(ev)
		}
	}
}

// since returns the elapsed nanoseconds from start to now, the unit
// both event payloads report.
func since(start time.Time) int64 { return time.Since(start).Nanoseconds() }
