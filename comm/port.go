package comm

import (
	"fmt"
	"sync"

	"github.com/sarchlab/spiflash/hooking"
)

var (
	// HookPosPortMsgSend marks when a message enters the outgoing buffer.
	HookPosPortMsgSend = &hooking.HookPos{Name: "Port Msg Send"}

	// HookPosPortMsgRecvd marks when an inbound message arrives at the port.
	HookPosPortMsgRecvd = &hooking.HookPos{Name: "Port Msg Recv"}

	// HookPosPortMsgRetrieveIncoming marks when the owner takes an inbound
	// message.
	HookPosPortMsgRetrieveIncoming = &hooking.HookPos{
		Name: "Port Msg Retrieve Incoming",
	}

	// HookPosPortMsgRetrieveOutgoing marks when the connection takes an
	// outbound message.
	HookPosPortMsgRetrieveOutgoing = &hooking.HookPos{
		Name: "Port Msg Retrieve Outgoing",
	}
)

// DefaultPort implements Port with bounded FIFO buffers for outgoing and
// incoming traffic.
type DefaultPort struct {
	*hooking.HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf *msgBuffer
	outgoingBuf *msgBuffer
}

var _ Port = (*DefaultPort)(nil)

// NewPort creates a new port owned by comp.
func NewPort(
	comp Component,
	incomingBufCap, outgoingBufCap int,
	name string,
) *DefaultPort {
	return &DefaultPort{
		HookableBase: hooking.NewHookableBase(),
		comp:         comp,
		incomingBuf:  newMsgBuffer(incomingBufCap),
		outgoingBuf:  newMsgBuffer(outgoingBufCap),
		name:         name,
	}
}

// AsRemote returns the remote port name.
func (p *DefaultPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

// SetConnection records the connection that is plugged into this port.
func (p *DefaultPort) SetConnection(conn Connection) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.conn != nil {
		panic(fmt.Sprintf(
			"connection already set to %s, now connecting to %s",
			p.conn.Name(), conn.Name(),
		))
	}

	p.conn = conn
}

// Component returns the owner of the port.
func (p *DefaultPort) Component() Component {
	return p.comp
}

// Name returns the name of the port.
func (p *DefaultPort) Name() string {
	return p.name
}

// CanSend checks if the port can send a message without error.
func (p *DefaultPort) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.outgoingBuf.CanPush()
}

// Send enqueues a message so the connection can deliver it.
func (p *DefaultPort) Send(msg Msg) *SendError {
	p.lock.Lock()

	p.msgMustBeValid(msg)

	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgSend,
		Item:   msg,
	})

	conn := p.conn
	p.lock.Unlock()

	if wasEmpty && conn != nil {
		conn.NotifySend()
	}

	return nil
}

// Deliver is used by a connection to hand a message to this port.
func (p *DefaultPort) Deliver(msg Msg) *SendError {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRecvd,
		Item:   msg,
	})

	p.incomingBuf.Push(msg)
	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// RetrieveIncoming takes the first message from the incoming buffer.
func (p *DefaultPort) RetrieveIncoming() Msg {
	p.lock.Lock()

	msg := p.incomingBuf.Pop()
	if msg == nil {
		p.lock.Unlock()
		return nil
	}

	conn := p.conn
	wasFull := p.incomingBuf.Size() == p.incomingBuf.Capacity()-1
	p.lock.Unlock()

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRetrieveIncoming,
		Item:   msg,
	})

	if conn != nil && wasFull {
		conn.NotifyAvailable(p)
	}

	return msg
}

// RetrieveOutgoing takes the first message from the outgoing buffer.
func (p *DefaultPort) RetrieveOutgoing() Msg {
	p.lock.Lock()

	msg := p.outgoingBuf.Pop()
	if msg == nil {
		p.lock.Unlock()
		return nil
	}

	notify := p.comp != nil &&
		p.outgoingBuf.Size() == p.outgoingBuf.Capacity()-1
	p.lock.Unlock()

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRetrieveOutgoing,
		Item:   msg,
	})

	if notify {
		p.comp.NotifyPortFree(p)
	}

	return msg
}

// PeekIncoming returns the first incoming message without removing it.
func (p *DefaultPort) PeekIncoming() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.incomingBuf.Peek()
}

// PeekOutgoing returns the first outgoing message without removing it.
func (p *DefaultPort) PeekOutgoing() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.outgoingBuf.Peek()
}

// NotifyAvailable is called by the connection when it can accept traffic
// again.
func (p *DefaultPort) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *DefaultPort) msgMustBeValid(msg Msg) {
	if msg == nil {
		panic("sending nil msg")
	}

	if p.name != string(msg.Src()) {
		panic("sending port is not msg src")
	}

	if msg.Dst() == "" {
		panic("dst is not given")
	}

	if msg.Src() == msg.Dst() {
		panic("sending back to src")
	}
}

type msgBuffer struct {
	capacity int
	items    []Msg
}

func newMsgBuffer(capacity int) *msgBuffer {
	if capacity < 0 {
		panic("buffer capacity must be non-negative")
	}

	return &msgBuffer{
		capacity: capacity,
		items:    make([]Msg, 0, capacity),
	}
}

func (b *msgBuffer) CanPush() bool {
	return len(b.items) < b.capacity
}

func (b *msgBuffer) Push(msg Msg) {
	if !b.CanPush() {
		panic("buffer overflow")
	}

	b.items = append(b.items, msg)
}

func (b *msgBuffer) Pop() Msg {
	if len(b.items) == 0 {
		return nil
	}

	msg := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]

	return msg
}

func (b *msgBuffer) Peek() Msg {
	if len(b.items) == 0 {
		return nil
	}

	return b.items[0]
}

func (b *msgBuffer) Capacity() int {
	return b.capacity
}

func (b *msgBuffer) Size() int {
	return len(b.items)
}
