// Package sse streams workspace changes to browsers as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Event is one SSE message. ID is written as the event id when non-zero;
// change events use the snapshot generation.
type Event struct {
	Type string `json:"type"`
	ID   uint64 `json:"id,omitempty"`
	Data any    `json:"data"`
}

// Event types emitted by the broker itself.
const (
	// StatisticsUpdated follows changes, at most once per throttle interval,
	// so clients refetch the charts.
	StatisticsUpdated = "statistics.updated"
	// Hello is the first event of every stream when a greeting is set.
	Hello = "hello"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 25 * time.Second
)

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often an idle stream gets a comment line.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithGreeting sets the data of the Hello event sent on connect, usually
// the current status. It is called once per subscriber.
func WithGreeting(fn func() (id uint64, data any)) Option {
	return func(b *Broker) { b.greeting = fn }
}

// WithMetrics registers the broker collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(b *Broker) { b.metrics = newMetrics(reg) }
}

type changeReq struct {
	kind       string
	ids        []string
	generation uint64
}

type changeData struct {
	IDs        []string `json:"ids"`
	Generation uint64   `json:"generation"`
}

// Broker fans events out to connected clients.
//
// A single loop goroutine owns the client set and the statistics throttle;
// the public methods only talk to it over channels.
type Broker struct {
	statsMin  time.Duration
	keepAlive time.Duration
	greeting  func() (uint64, any)
	metrics   *metrics

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits StatisticsUpdated at most once per
// statsThrottle.
func NewBroker(statsThrottle time.Duration, opts ...Option) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}
	b := &Broker{
		statsMin:      statsThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = newMetrics(prometheus.NewRegistry())
	}
	go b.run()
	return b
}

// encode renders an event in the text/event-stream wire format.
func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if e.ID != 0 {
		fmt.Fprintf(&buf, "id: %d\n", e.ID)
	}
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", e.Type, payload)
	return buf.Bytes(), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStats time.Time

	broadcast := func(e Event) {
		msg, err := encode(e)
		if err != nil {
			return
		}
		b.metrics.events.WithLabelValues(e.Type).Inc()
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				b.metrics.dropped.Inc()
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			b.metrics.clients.Set(0)
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			b.metrics.clients.Set(float64(len(clients)))

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				b.metrics.clients.Set(float64(len(clients)))
			}

		case e := <-b.publishCh:
			broadcast(e)

		case req := <-b.changeCh:
			ids := req.ids
			if ids == nil {
				ids = []string{}
			}
			broadcast(Event{Type: req.kind, ID: req.generation, Data: changeData{IDs: ids, Generation: req.generation}})

			if now := time.Now(); now.Sub(lastStats) >= b.statsMin {
				lastStats = now
				broadcast(Event{Type: StatisticsUpdated, ID: req.generation, Data: changeData{IDs: []string{}, Generation: req.generation}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. With a greeting set, the Hello event is
// already queued on the returned channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	if b.greeting != nil {
		id, data := b.greeting()
		if msg, err := encode(Event{Type: Hello, ID: id, Data: data}); err == nil {
			ch <- msg
		}
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients. Clients whose buffer is
// full miss it.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishChange publishes a snapshot change of the given kind, followed by
// a throttled StatisticsUpdated.
func (b *Broker) PublishChange(kind string, ids []string, generation uint64) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{kind: kind, ids: ids, generation: generation}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the client goes away or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
