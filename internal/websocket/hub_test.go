package websocket

import (
	"testing"
	"time"
)

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d, got %d", want, hub.ClientCount())
}

func TestBroadcastEvictsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	fast := &Client{hub: hub, send: make(chan []byte, 16)}
	slow := &Client{hub: hub, send: make(chan []byte)} // nothing draining

	hub.register <- fast
	hub.register <- slow
	waitForClients(t, hub, 2)

	if err := hub.Broadcast("toast", map[string]string{"message": "hello"}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	// the slow client is dropped, the fast one stays and gets the frame
	waitForClients(t, hub, 1)

	select {
	case msg := <-fast.send:
		if len(msg) == 0 {
			t.Fatal("expected a frame on the fast client")
		}
	case <-time.After(time.Second):
		t.Fatal("fast client never received the broadcast")
	}

	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected the evicted client's send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("evicted client's send channel was not closed")
	}
}

func TestUnregisterUnknownClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	stranger := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.unregister <- stranger

	if err := hub.Broadcast("toast", map[string]string{"message": "still alive"}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	waitForClients(t, hub, 0)
}
