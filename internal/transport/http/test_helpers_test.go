package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wsrelay/internal/config"
	"github.com/vovakirdan/wsrelay/internal/core"
	"github.com/vovakirdan/wsrelay/internal/metrics"
)

type testServer struct {
	*httptest.Server
	relay *core.Relay
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	rec := metrics.New()
	relay := core.NewRelay(core.WithLogger(&logger), core.WithObserver(rec))

	server := NewServer(relay, rec, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		relay.Shutdown("test done")
		ts.Close()
	})

	return &testServer{Server: ts, relay: relay}
}

func (ts *testServer) wsURL() string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

// dial connects a client and waits until the relay has admitted it.
func (ts *testServer) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()

	want := ts.relay.Len() + 1
	conn, _, err := websocket.Dial(ctx, ts.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })

	waitFor(t, func() bool { return ts.relay.Len() >= want })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustRead(ctx context.Context, t *testing.T, conn *websocket.Conn) (websocket.MessageType, []byte) {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	typ, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return typ, data
}

// assertSilent fails if conn receives anything within a short window.
// The read deadline closes conn, so call it last for a given connection.
func assertSilent(ctx context.Context, t *testing.T, conn *websocket.Conn) {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if typ, data, err := conn.Read(readCtx); err == nil {
		t.Fatalf("expected no message, got %v %q", typ, data)
	}
}
