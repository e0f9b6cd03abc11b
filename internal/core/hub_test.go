package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHubDeliversToAllUserClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	phone := NewClient("bob", 4)
	laptop := NewClient("bob", 4)
	alice := NewClient("alice", 4)
	for _, c := range []*Client{phone, laptop, alice} {
		if err := hub.RegisterClient(c); err != nil {
			t.Fatalf("RegisterClient failed: %v", err)
		}
	}

	ok := hub.Publish("bob", &Event{Kind: EventCallIncoming, Call: &CallEvent{CallID: "c1", FromUserID: "alice"}})
	if !ok {
		t.Fatal("Publish reported drop")
	}

	for _, c := range []*Client{phone, laptop} {
		ev := mustEvent(t, c.Events, EventCallIncoming)
		if ev.Call == nil || ev.Call.CallID != "c1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
	mustNoEvent(t, alice.Events)
}

func TestHubUnregisterClosesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	c := NewClient("bob", 1)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("RegisterClient failed: %v", err)
	}
	hub.UnregisterClient(c)

	select {
	case _, open := <-c.Events:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}

	// A second unregister of the same client is a no-op.
	hub.UnregisterClient(c)
}

func TestHubSlowClientDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	slow := NewClient("bob", 1)
	fast := NewClient("carol", 8)
	_ = hub.RegisterClient(slow)
	_ = hub.RegisterClient(fast)

	for range 5 {
		hub.Publish("bob", &Event{Kind: EventCallCanceled, Call: &CallEvent{CallID: "c1"}})
	}
	hub.Publish("carol", &Event{Kind: EventCallParticipantJoined, Call: &CallEvent{CallID: "c1", UserID: "dave"}})

	ev := mustEvent(t, fast.Events, EventCallParticipantJoined)
	if ev.Call.UserID != "dave" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := NewClient("bob", 1)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("RegisterClient failed: %v", err)
	}
	cancel()
	<-stopped

	if _, open := <-c.Events; open {
		t.Fatal("expected events channel closed on shutdown")
	}
	if err := hub.RegisterClient(NewClient("x", 1)); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
	if hub.Publish("bob", &Event{Kind: EventCallIncoming}) {
		t.Fatal("publish after stop must report drop")
	}
}

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		EventCallIncoming:          "call.incoming",
		EventCallCanceled:          "call.canceled",
		EventCallParticipantJoined: "call.participant_joined",
		EventError:                 "error",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d: got %q want %q", kind, got, want)
		}
	}
}
