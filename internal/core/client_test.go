package core

import (
	"context"
	"errors"
	"testing"
)

func TestClientSendEnqueues(t *testing.T) {
	c := NewClient("a", "127.0.0.1:1", 2)

	if err := c.Send(context.Background(), textMsg("one")); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := mustOutbox(t, c)
	if string(msg.Data) != "one" || msg.Kind != MessageText {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestClientSendOutboxFull(t *testing.T) {
	c := NewClient("a", "127.0.0.1:1", 1)
	ctx := context.Background()

	if err := c.Send(ctx, textMsg("one")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.Send(ctx, textMsg("two")); !errors.Is(err, ErrOutboxFull) {
		t.Fatalf("expected ErrOutboxFull, got %v", err)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	c := NewClient("a", "127.0.0.1:1", 4)

	_ = c.Close("bye")
	_ = c.Close("again")

	if err := c.Send(context.Background(), textMsg("x")); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if c.CloseReason() != "bye" {
		t.Fatalf("close reason = %q, want %q", c.CloseReason(), "bye")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestClientDefaultOutbox(t *testing.T) {
	c := NewClient("a", "", 0)
	if cap(c.outbox) != DefaultOutboxSize {
		t.Fatalf("outbox size = %d, want %d", cap(c.outbox), DefaultOutboxSize)
	}
	if c.CloseReason() != "" {
		t.Fatalf("open client has close reason %q", c.CloseReason())
	}
}

func TestRelayDropsSlowClient(t *testing.T) {
	r := NewRelay()
	sender := newFakeConn("sender")
	slow := NewClient("slow", "127.0.0.1:2", 1)
	fast := newFakeConn("fast")
	r.Connect(sender)
	r.Connect(slow)
	r.Connect(fast)

	ctx := context.Background()
	r.Broadcast(ctx, sender, textMsg("1"))
	r.Broadcast(ctx, sender, textMsg("2"))

	assertReceived(t, fast, "1", "2")
	assertMembers(t, r, "sender", "fast")
	if slow.CloseReason() != "send failed" {
		t.Fatalf("slow client close reason = %q", slow.CloseReason())
	}
}
