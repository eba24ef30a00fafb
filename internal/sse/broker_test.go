package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "doc.created", Data: map[string]string{"path": "a.mdx"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: doc.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.mdx"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte, wait time.Duration) []string {
	var msgs []string
	timeout := time.After(wait)
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, string(msg))
		case <-timeout:
			return msgs
		}
	}
}

func TestPublishDocEvent_OnlyDocEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocEvent(Created, "a.mdx")
	b.PublishDocEvent(Updated, "b.mdx")
	b.PublishDocEvent("renamed", "c.mdx")

	msgs := drain(ch, 100*time.Millisecond)
	if len(msgs) != 2 {
		t.Fatalf("events = %q, want 2 doc events", msgs)
	}
	for _, m := range msgs {
		if strings.Contains(m, EventCollectionUpdated) {
			t.Errorf("doc change emitted %q", m)
		}
	}
}

func TestPublishCollectionChange_Coalesces(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCollectionChange([]string{"./a.bru"})
	first := drain(ch, 100*time.Millisecond)
	if len(first) != 1 || !strings.Contains(first[0], `"paths":["./a.bru"]`) {
		t.Fatalf("leading event = %q", first)
	}

	b.PublishCollectionChange([]string{"./c.bru"})
	b.PublishCollectionChange([]string{"./b.bru", "./c.bru"})
	trailing := drain(ch, 600*time.Millisecond)
	if len(trailing) != 1 {
		t.Fatalf("trailing events = %q, want 1", trailing)
	}
	if !strings.Contains(trailing[0], "event: collection.updated") ||
		!strings.Contains(trailing[0], `"paths":["./b.bru","./c.bru"]`) {
		t.Errorf("trailing event = %q", trailing[0])
	}
}

func TestPublishCollectionChange_Checksum(t *testing.T) {
	b := NewBroker(time.Second, WithChecksum(func(context.Context) (string, error) {
		return "abc123", nil
	}))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCollectionChange([]string{"./a.bru"})
	msgs := drain(ch, 200*time.Millisecond)
	if len(msgs) != 1 || !strings.Contains(msgs[0], `"checksum":"abc123"`) {
		t.Errorf("events = %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "doc.updated", Data: map[string]string{"path": "x.mdx"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: doc.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "doc.updated", Data: map[string]string{"path": "x.mdx"}})
	b.PublishDocEvent(Updated, "x.mdx")
	b.PublishCollectionChange([]string{"./a.bru"})
}
