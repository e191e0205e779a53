package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of the given kind shows up within wait.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T, limiter RateLimiter, opts ...RegistryOption) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(NewRegistry(opts...), limiter, nil)
	go hub.Run(ctx)
	return hub
}

// connect registers a client and announces its name.
func connect(t *testing.T, hub *Hub, id, name string) *Client {
	t.Helper()

	c := NewClient(id, "", 256)
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandSetName, Name: name}
	mustEvent(t, c.Events, EventUserStatus)
	return c
}
