package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/miding/internal/notestore"
)

func newBroker(t *testing.T, statsEvery time.Duration, opts ...Option) *Broker {
	t.Helper()
	b := NewBroker(statsEvery, opts...)
	t.Cleanup(b.Close)
	return b
}

func next(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

// drain counts what arrived on ch, split into stats and note events.
func drain(ch chan []byte) (stats, notes int) {
	time.Sleep(50 * time.Millisecond)
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "event: "+EventStatsUpdated) {
				stats++
			} else {
				notes++
			}
		default:
			return stats, notes
		}
	}
}

// stream runs ServeHTTP until stop is called and returns the body written.
func stream(b *Broker) (stop func() string) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	return func() string {
		cancel()
		<-done
		return w.Body.String()
	}
}

func TestClientCount(t *testing.T) {
	b := newBroker(t, time.Second)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d, want 0", n)
	}
	a, c := b.Subscribe(), b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(a)
	b.Unsubscribe(c)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
}

func TestPublish_FrameFormat(t *testing.T) {
	b := newBroker(t, time.Second)
	ch := b.Subscribe()

	b.Publish(Event{Type: "note.created", Data: map[string]string{"noteId": "a"}})
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"noteId": "a"}})

	if got, want := next(t, ch), "id: 1\nevent: note.created\ndata: {\"noteId\":\"a\"}\n\n"; got != want {
		t.Errorf("first frame = %q, want %q", got, want)
	}
	if got := next(t, ch); !strings.HasPrefix(got, "id: 2\nevent: note.updated\n") {
		t.Errorf("second frame = %q", got)
	}
}

func TestObserve_StatsThrottle(t *testing.T) {
	b := newBroker(t, 500*time.Millisecond)
	ch := b.Subscribe()

	b.Observe(notestore.Event{Kind: notestore.EventCreated, NoteID: "a"})
	b.Observe(notestore.Event{Kind: notestore.EventUpdated, NoteID: "b"})

	stats, notes := drain(ch)
	if notes != 2 {
		t.Errorf("note events = %d, want 2", notes)
	}
	if stats != 1 {
		t.Errorf("stats events = %d, want 1", stats)
	}
}

func TestObserve_FocusSkipsStats(t *testing.T) {
	b := newBroker(t, time.Millisecond)
	ch := b.Subscribe()

	b.Observe(notestore.Event{Kind: notestore.EventFocused, NoteID: "a"})

	stats, notes := drain(ch)
	if notes != 1 || stats != 0 {
		t.Errorf("note events = %d, stats events = %d, want 1 and 0", notes, stats)
	}
}

func TestPublish_SlowClientDoesNotBlock(t *testing.T) {
	b := newBroker(t, time.Second)
	slow := b.Subscribe()
	fast := b.Subscribe()

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "tick", Data: i})
		<-fast
	}
	if got := len(slow); got != clientBuffer {
		t.Errorf("slow client buffered %d, want %d", got, clientBuffer)
	}
}

func TestServeHTTP_StreamsAndCleansUp(t *testing.T) {
	b := newBroker(t, time.Second)
	stop := stream(b)

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"noteId": "x"}})
	time.Sleep(50 * time.Millisecond)

	if body := stop(); !strings.Contains(body, "event: note.updated") {
		t.Errorf("body missing event: %q", body)
	}
	time.Sleep(20 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients after disconnect = %d", n)
	}
}

func TestServeHTTP_KeepAlive(t *testing.T) {
	b := newBroker(t, time.Second, WithKeepAlive(10*time.Millisecond))
	stop := stream(b)
	time.Sleep(60 * time.Millisecond)

	if body := stop(); !strings.Contains(body, ": ping\n\n") {
		t.Errorf("no keepalive in %q", body)
	}
}

func TestClose(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d", n)
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close returned an open channel")
	}

	// No-ops once closed.
	b.Publish(Event{Type: "note.updated"})
	b.Observe(notestore.Event{Kind: notestore.EventUpdated, NoteID: "x"})
	b.Unsubscribe(ch)
}
