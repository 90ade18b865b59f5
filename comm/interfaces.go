package comm

import "github.com/sarchlab/spiflash/hooking"

// Named describes any entity that exposes a human-readable identifier.
type Named interface {
	Name() string
}

// SendError marks failures when enqueuing or delivering messages.
type SendError struct{}

// NewSendError constructs a new SendError instance.
func NewSendError() *SendError {
	return &SendError{}
}

// Connection delivers messages between ports.
type Connection interface {
	Named
	hooking.Hookable

	PlugIn(port Port)
	NotifyAvailable(port Port)
	NotifySend()
}

// Component owns ports and reacts to inbound traffic and freed buffers.
type Component interface {
	Named

	NotifyRecv(port Port)
	NotifyPortFree(port Port)
}

// Port is the messaging boundary between a component and a connection.
type Port interface {
	Named
	hooking.Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// Connection-facing APIs.
	Deliver(msg Msg) *SendError
	NotifyAvailable()
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// Component-facing APIs.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}
