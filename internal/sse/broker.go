// Package sse streams content change events to preview clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event is one server-sent event. Data is encoded as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Document change kinds accepted by PublishDocEvent.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// EventCollectionUpdated announces a rebundled collection.
const EventCollectionUpdated = "collection.updated"

// ChecksumFunc returns the checksum of the current collection bundle.
type ChecksumFunc func(ctx context.Context) (string, error)

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithChecksum attaches the collection checksum to collection.updated events.
func WithChecksum(fn ChecksumFunc) BrokerOption {
	return func(b *Broker) { b.checksum = fn }
}

// CollectionChange is the payload of collection.updated.
type CollectionChange struct {
	Paths    []string `json:"paths"`
	Checksum string   `json:"checksum,omitempty"`
}

// Broker fans events out to connected SSE clients.
//
// Collection changes are coalesced: at most one collection.updated leaves
// per throttle interval, and paths arriving inside the interval are carried
// by a trailing event once it ends.
type Broker struct {
	throttle time.Duration
	checksum ChecksumFunc

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event
	coll   chan []string
	count  chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker. A non-positive throttle defaults to two seconds.
func NewBroker(throttle time.Duration, opts ...BrokerOption) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		throttle: throttle,
		join:     make(chan chan []byte),
		leave:    make(chan chan []byte),
		events:   make(chan Event, 256),
		coll:     make(chan []string, 64),
		count:    make(chan chan int),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

func frame(ev Event) ([]byte, bool) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), true
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := map[chan []byte]struct{}{}
	send := func(ev Event) {
		msg, ok := frame(ev)
		if !ok {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}

	var (
		lastFlush time.Time
		pending   []string
		timer     *time.Timer
		timerC    <-chan time.Time
	)
	flush := func() {
		paths := pending
		pending = nil
		lastFlush = time.Now()
		slices.Sort(paths)
		paths = slices.Compact(paths)
		if b.checksum == nil {
			send(Event{Type: EventCollectionUpdated, Data: CollectionChange{Paths: paths}})
			return
		}
		// Bundling reads the tree; keep it off the loop.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sum, _ := b.checksum(ctx)
			b.Publish(Event{Type: EventCollectionUpdated, Data: CollectionChange{Paths: paths, Checksum: sum}})
		}()
	}

	for {
		select {
		case <-b.quit:
			if timer != nil {
				timer.Stop()
			}
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

		case resp := <-b.count:
			resp <- len(clients)

		case ev := <-b.events:
			send(ev)

		case paths := <-b.coll:
			pending = append(pending, paths...)
			if timerC != nil {
				continue
			}
			wait := b.throttle - time.Since(lastFlush)
			if wait <= 0 {
				flush()
				continue
			}
			timer = time.NewTimer(wait)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			flush()
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed when the
// client is unsubscribed or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts ev as is.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishDocEvent broadcasts doc.<kind> for path. Unknown kinds are dropped.
func (b *Broker) PublishDocEvent(kind, path string) {
	switch kind {
	case Created, Updated, Deleted:
	default:
		return
	}
	b.Publish(Event{Type: "doc." + kind, Data: map[string]string{"path": path}})
}

// PublishCollectionChange queues a throttled collection.updated event for
// the given collection paths.
func (b *Broker) PublishCollectionChange(paths []string) {
	if b.closed.Load() || len(paths) == 0 {
		return
	}
	select {
	case b.coll <- slices.Clone(paths):
	case <-b.done:
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
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
