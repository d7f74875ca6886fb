// Package sse implements a Server-Sent Events broker that tells connected
// views when a collection changed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CountsFunc reports the size of every collection, keyed by entity name.
type CountsFunc func() map[string]int

// Option configures a Broker.
type Option func(*Broker)

// WithCountsThrottle sets the minimum interval between two counts.updated
// events. Changes inside the interval are folded into one trailing event.
func WithCountsThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.countsMin = d
		}
	}
}

// WithCounts sets the source of the counts.updated payload.
func WithCounts(fn CountsFunc) Option {
	return func(b *Broker) { b.counts = fn }
}

// WithHeartbeat makes ServeHTTP write a comment line every d so idle
// connections survive proxies. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

type recordChange struct {
	entity string
	kind   string
	id     int64
}

// Broker fans record changes out to SSE clients.
//
// One goroutine owns the client set, the event sequence and the counts
// throttle; public methods reach it over channels.
type Broker struct {
	countsMin time.Duration
	counts    CountsFunc
	heartbeat time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	changes chan recordChange
	census  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates and starts a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		countsMin: 2 * time.Second,
		heartbeat: 30 * time.Second,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		changes:   make(chan recordChange, 256),
		census:    make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// frame renders one SSE message with its sequence id.
func frame(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64
	var lastCounts time.Time
	countsDue := time.NewTimer(time.Hour)
	countsDue.Stop()
	pending := false

	send := func(event Event) {
		seq++
		msg, err := frame(seq, event)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall every other subscriber.
			}
		}
	}

	sendCounts := func() {
		lastCounts = time.Now()
		pending = false
		data := map[string]int{}
		if b.counts != nil {
			data = b.counts()
		}
		send(Event{Type: "counts.updated", Data: data})
	}

	for {
		select {
		case <-b.stopCh:
			countsDue.Stop()
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changes:
			switch c.kind {
			case "created", "updated", "deleted":
				send(Event{Type: c.entity + "." + c.kind, Data: map[string]int64{"id": c.id}})
			case "reloaded":
				send(Event{Type: c.entity + ".reloaded", Data: struct{}{}})
			default:
				continue
			}

			if wait := b.countsMin - time.Since(lastCounts); wait <= 0 {
				sendCounts()
			} else if !pending {
				pending = true
				countsDue.Reset(wait)
			}

		case <-countsDue.C:
			if pending {
				sendCounts()
			}

		case resp := <-b.census:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed when the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
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
	case b.leave <- ch:
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
	case b.census <- resp:
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

// PublishRecordEvent announces "<entity>.<kind>" for a changed record, kind
// being created, updated, deleted or reloaded, followed by a throttled
// counts.updated. Other kinds are ignored.
func (b *Broker) PublishRecordEvent(entity, kind string, id int64) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- recordChange{entity: entity, kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
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
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		beat = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
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
