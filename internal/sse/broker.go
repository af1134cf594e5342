// Package sse streams note store changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/miding/internal/notestore"
)

// EventStatsUpdated tells clients to refetch statistics. It follows note
// events at most once per throttle interval.
const EventStatsUpdated = "stats.updated"

const (
	defaultStatsEvery = 2 * time.Second
	defaultKeepAlive  = 15 * time.Second
	clientBuffer      = 64
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger used for dropped-message warnings.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithKeepAlive sets how often idle streams receive a comment line.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

type client struct {
	out     chan []byte
	dropped int
}

// Broker fans events out to connected streams.
//
// One loop goroutine owns the client set, the event sequence and the stats
// throttle; every public method talks to it over channels.
type Broker struct {
	statsEvery time.Duration
	keepAlive  time.Duration
	logger     *slog.Logger

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan notestore.Event
	count   chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker. statsEvery bounds how often stats.updated is
// emitted; a non-positive value selects the default.
func NewBroker(statsEvery time.Duration, opts ...Option) *Broker {
	if statsEvery <= 0 {
		statsEvery = defaultStatsEvery
	}
	b := &Broker{
		statsEvery: statsEvery,
		keepAlive:  defaultKeepAlive,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		join:       make(chan chan []byte),
		leave:      make(chan chan []byte),
		events:     make(chan Event, 256),
		changes:    make(chan notestore.Event, 256),
		count:      make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

// frame renders one event in text/event-stream form.
func frame(id uint64, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Type, data), nil
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[chan []byte]*client)
	var (
		seq       uint64
		lastStats time.Time
	)

	send := func(ev Event) {
		seq++
		msg, err := frame(seq, ev)
		if err != nil {
			b.logger.Error("sse: encode event", slog.String("type", ev.Type), slog.String("error", err.Error()))
			return
		}
		for _, c := range clients {
			select {
			case c.out <- msg:
			default:
				// A slow reader loses messages rather than stalling everyone.
				if c.dropped == 0 {
					b.logger.Warn("sse: client buffer full, dropping events")
				}
				c.dropped++
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = &client{out: ch}

		case ch := <-b.leave:
			if c, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				if c.dropped > 0 {
					b.logger.Info("sse: client left", slog.Int("dropped", c.dropped))
				}
			}

		case ev := <-b.events:
			send(ev)

		case ch := <-b.changes:
			send(Event{Type: string(ch.Kind), Data: map[string]string{"noteId": ch.NoteID}})
			if ch.Kind == notestore.EventFocused {
				continue
			}
			if now := time.Now(); now.Sub(lastStats) >= b.statsEvery {
				lastStats = now
				send(Event{Type: EventStatsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.count:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
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

// ClientCount reports how many streams are connected.
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

// Publish sends an arbitrary event to every client.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Observe is a notestore.Observer. It runs on the store's mutating
// goroutine, so a full queue drops the event instead of blocking.
func (b *Broker) Observe(ev notestore.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- ev:
	default:
		b.logger.Warn("sse: change queue full", slog.String("kind", string(ev.Kind)), slog.String("note_id", ev.NoteID))
	}
}

// ServeHTTP streams events until the request ends or the broker closes.
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
			_, _ = io.WriteString(w, ": ping\n\n")
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
