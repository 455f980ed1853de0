package http

import (
	"github.com/coder/websocket"

	"github.com/vovakirdan/wsrelay/internal/core"
)

func kindFromWS(typ websocket.MessageType) core.MessageKind {
	if typ == websocket.MessageBinary {
		return core.MessageBinary
	}
	return core.MessageText
}

func wsTypeFromKind(kind core.MessageKind) websocket.MessageType {
	if kind == core.MessageBinary {
		return websocket.MessageBinary
	}
	return websocket.MessageText
}

func mapMembers(members []core.MemberInfo) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, MemberResponse{
			ID:         m.ID,
			RemoteAddr: m.RemoteAddr,
		})
	}
	return out
}
