package core

// MessageKind mirrors the frame type the payload arrived in.
type MessageKind int

const (
	// MessageText is a UTF-8 text frame.
	MessageText MessageKind = iota + 1
	// MessageBinary is a binary frame.
	MessageBinary
)

func (k MessageKind) String() string {
	switch k {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is an opaque payload relayed between clients. Data is never inspected.
type Message struct {
	Kind MessageKind
	Data []byte
}
