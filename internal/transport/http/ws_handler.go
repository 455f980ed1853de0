package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wsrelay/internal/config"
	"github.com/vovakirdan/wsrelay/internal/core"
	"github.com/vovakirdan/wsrelay/internal/utils"
)

var errClientDropped = errors.New("client dropped by relay")

// WSHandler upgrades HTTP connections and bridges them to the relay.
type WSHandler struct {
	relay      *core.Relay
	origins    []string
	readLimit  int64
	sendBuffer int
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(relay *core.Relay, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		relay:      relay,
		origins:    cfg.AllowedOrigins,
		readLimit:  cfg.ReadLimit,
		sendBuffer: cfg.SendBuffer,
		log:        logger,
	}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.origins) == 0 {
		// Demo pages are often opened from file:// or another port.
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.origins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(utils.NewID(), r.RemoteAddr, h.sendBuffer)
	h.relay.Connect(client)
	defer h.relay.Disconnect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	pending := 2
	select {
	case err = <-errCh:
		pending--
	case <-client.Done():
		err = errClientDropped
	}
	cancel() // stop the remaining loops
	for ; pending > 0; pending-- {
		<-errCh
	}

	// Leave the membership set before the close handshake, which can wait
	// several seconds on an unresponsive peer.
	h.relay.Disconnect(client)

	status, reason := closeStatus(err, client)
	if status == websocket.StatusInternalError {
		h.log.Warn().Err(err).Str("client_id", client.ID()).Msg("ws connection closed with error")
	}
	_ = conn.Close(status, reason)
}

// closeStatus maps the error that ended a connection to the close frame sent to the peer.
func closeStatus(err error, client *core.Client) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		return websocket.StatusNormalClosure, "closing"
	case errors.Is(err, errClientDropped):
		reason := client.CloseReason()
		if reason == "" {
			reason = "closing"
		}
		return websocket.StatusGoingAway, reason
	}

	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return s, "closing"
	case websocket.StatusMessageTooBig:
		return s, "message too big"
	case -1:
		return websocket.StatusInternalError, err.Error()
	default:
		return s, "closing"
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID()).Msg("read ws message")
			return err
		}
		h.relay.Broadcast(ctx, client, core.Message{Kind: kindFromWS(typ), Data: data})
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case msg := <-client.Outbox():
			if err := conn.Write(ctx, wsTypeFromKind(msg.Kind), msg.Data); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID()).Msg("write ws message")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
