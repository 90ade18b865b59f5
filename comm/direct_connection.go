package comm

import (
	"fmt"
	"sync"

	"github.com/sarchlab/spiflash/hooking"
)

// DirectConnection connects multiple ports without latency. A message sent on
// one port is delivered to its destination within the same call.
type DirectConnection struct {
	*hooking.HookableBase

	lock sync.Mutex
	name string

	ports      []Port
	portMap    map[RemotePort]int
	nextPortID int
	busy       bool
	pending    bool
}

var _ Connection = (*DirectConnection)(nil)

// NewDirectConnection creates a connection with the provided name.
func NewDirectConnection(name string) *DirectConnection {
	return &DirectConnection{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		portMap:      make(map[RemotePort]int),
	}
}

// Name returns the name of the connection.
func (c *DirectConnection) Name() string {
	return c.name
}

// PlugIn attaches a port to the connection.
func (c *DirectConnection) PlugIn(port Port) {
	if port == nil {
		panic("nil port")
	}

	c.lock.Lock()
	c.ports = append(c.ports, port)
	c.portMap[port.AsRemote()] = len(c.ports) - 1
	c.lock.Unlock()

	port.SetConnection(c)
}

// NotifyAvailable notifies the connection that a port regained capacity.
func (c *DirectConnection) NotifyAvailable(Port) {
	c.forward()
}

// NotifySend notifies the connection that a port has messages ready.
func (c *DirectConnection) NotifySend() {
	c.forward()
}

// forward drains outgoing buffers. Deliveries may trigger further sends from
// the receiving component; those re-enter here and are folded into the running
// loop instead of recursing.
func (c *DirectConnection) forward() {
	c.lock.Lock()
	if c.busy {
		c.pending = true
		c.lock.Unlock()

		return
	}
	c.busy = true
	c.lock.Unlock()

	for {
		c.forwardRound()

		c.lock.Lock()
		if !c.pending {
			c.busy = false
			c.lock.Unlock()

			return
		}
		c.pending = false
		c.lock.Unlock()
	}
}

func (c *DirectConnection) forwardRound() {
	n := len(c.ports)
	if n == 0 {
		return
	}

	madeProgress := false

	for i := 0; i < n; i++ {
		port := c.ports[(i+c.nextPortID)%n]
		if c.forwardMany(port) {
			madeProgress = true
		}
	}

	if madeProgress {
		c.nextPortID = (c.nextPortID + 1) % n
	}
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		idx, ok := c.portMap[head.Dst()]
		if !ok {
			panic(fmt.Sprintf("port %s not found", head.Dst()))
		}

		if err := c.ports[idx].Deliver(head); err != nil {
			break
		}

		madeProgress = true

		port.RetrieveOutgoing()
	}

	return madeProgress
}
