package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	id      string
	sendErr error

	mu       sync.Mutex
	received []Message
	closes   int
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string         { return f.id }
func (f *fakeConn) RemoteAddr() string { return "10.0.0.1:" + f.id }

func (f *fakeConn) Send(_ context.Context, msg Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, msg)
	return nil
}

func (f *fakeConn) Close(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.received))
	copy(out, f.received)
	return out
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func textMsg(s string) Message {
	return Message{Kind: MessageText, Data: []byte(s)}
}

func assertReceived(t *testing.T, c *fakeConn, want ...string) {
	t.Helper()

	got := c.messages()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d messages, got %d (%v)", c.id, len(want), len(got), got)
	}
	for i := range want {
		if string(got[i].Data) != want[i] {
			t.Fatalf("%s: message %d = %q, want %q", c.id, i, got[i].Data, want[i])
		}
	}
}

func assertMembers(t *testing.T, r *Relay, ids ...string) {
	t.Helper()

	got := r.Members()
	if len(got) != len(ids) {
		t.Fatalf("expected members %v, got %+v", ids, got)
	}
	for i, id := range ids {
		if got[i].ID != id {
			t.Fatalf("member %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func mustOutbox(t *testing.T, c *Client) Message {
	t.Helper()

	select {
	case msg := <-c.Outbox():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("expected message in outbox of %s", c.ID())
		return Message{}
	}
}
