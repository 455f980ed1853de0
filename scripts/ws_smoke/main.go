package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run opens two sockets, sends from the first and expects the second to receive
// the same bytes while the first hears nothing back.
func run() error {
	addr := flag.String("addr", "ws://localhost:8001/ws", "WebSocket address")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	receiver, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial receiver: %w", err)
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	// Give the relay a moment to admit the receiver before sending.
	time.Sleep(100 * time.Millisecond)

	if err := sender.Write(ctx, websocket.MessageText, []byte(*text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	typ, data, err := receiver.Read(ctx)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	fmt.Printf("Received: type=%v text=%q\n", typ, data)
	if string(data) != *text {
		return fmt.Errorf("payload mismatch: got %q, want %q", data, *text)
	}

	echoCtx, echoCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer echoCancel()
	// Any read error here, normally the deadline, means nothing was echoed.
	if _, echo, err := sender.Read(echoCtx); err == nil {
		return fmt.Errorf("sender received its own message back: %q", echo)
	}

	fmt.Println("OK: relayed to peer, no echo to sender")
	return nil
}
