package spiflash

import (
	"encoding/binary"
	"log"
	"reflect"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/mem"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/timing"
	"github.com/sarchlab/spiflash/tracing"
	"github.com/sarchlab/spiflash/wishbone"
)

// Task steps added to every read task.
const (
	StepBurstNew      = "burst_new"
	StepBurstContinue = "burst_continue"
)

// IO groups the ports of the component.
type IO struct {
	Top comm.Port
}

// State is the externally visible progress of the component.
type State struct {
	Served    uint64
	Rejected  uint64
	WordsRead uint64
	Reader    mmap.State
}

// Comp exposes a Bridge on a message port. It consumes one request at a time
// and runs one bridge cycle per tick.
type Comp struct {
	*timing.TickingComponent
	timing.MiddlewareHolder

	Spec Spec
	IO   IO

	bridge *Bridge
	state  State
}

// Tick delegates to the middleware pipeline.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Bridge returns the netlist driven by the component.
func (c *Comp) Bridge() *Bridge {
	return c.bridge
}

// State returns a snapshot of the component progress.
func (c *Comp) State() State {
	s := c.state
	s.Reader = c.bridge.Reader().State()

	return s
}

type transaction struct {
	req      *mem.ReadReq
	taskID   string
	nextWord uint32
	lastWord uint32
	data     []byte
}

func newTransaction(req *mem.ReadReq, taskID string) *transaction {
	first := uint32(req.Address / 4)
	last := uint32((req.Address + req.AccessByteSize - 1) / 4)

	return &transaction{
		req:      req,
		taskID:   taskID,
		nextWord: first,
		lastWord: last,
		data:     make([]byte, 0, 4*(last-first+1)),
	}
}

// payload cuts the requested bytes out of the fetched words.
func (t *transaction) payload() []byte {
	offset := t.req.Address % 4
	return t.data[offset : offset+t.req.AccessByteSize]
}

// bridgeMiddleware moves requests from the Top port through the bridge.
type bridgeMiddleware struct {
	*Comp

	cur        *transaction
	pendingReq comm.Msg
	pendingRsp comm.Msg
}

func (m *bridgeMiddleware) Tick() bool {
	madeProgress := m.sendResponse()
	madeProgress = m.takeRequest() || madeProgress
	madeProgress = m.cycle() || madeProgress

	return madeProgress
}

func (m *bridgeMiddleware) sendResponse() bool {
	if m.pendingRsp == nil {
		return false
	}

	if err := m.IO.Top.Send(m.pendingRsp); err != nil {
		return false
	}

	tracing.TraceReqComplete(m.pendingReq, m.Comp)

	m.pendingReq = nil
	m.pendingRsp = nil

	return true
}

func (m *bridgeMiddleware) takeRequest() bool {
	if m.cur != nil || m.pendingRsp != nil {
		return false
	}

	msg := m.IO.Top.RetrieveIncoming()
	if msg == nil {
		return false
	}

	tracing.TraceReqReceive(msg, m.Comp)

	switch req := msg.(type) {
	case *mem.ReadReq:
		m.startRead(req)
	case *mem.WriteReq:
		m.state.Rejected++
		m.respondError(req, "flash bridge is read-only")
	default:
		log.Panicf("spiflash: unsupported msg %s", reflect.TypeOf(msg))
	}

	return true
}

func (m *bridgeMiddleware) startRead(req *mem.ReadReq) {
	if req.AccessByteSize == 0 {
		m.respondData(req, nil)
		return
	}

	size := uint64(m.Spec.SizeBytes)
	if req.Address >= size || req.AccessByteSize > size-req.Address {
		m.state.Rejected++
		m.respondError(req, "address out of range")

		return
	}

	m.cur = newTransaction(req, tracing.MsgIDAtReceiver(req, m.Comp))
}

// cycle runs the bridge. It keeps running while a burst is held so that the
// hold window elapses in simulated time.
func (m *bridgeMiddleware) cycle() bool {
	if m.cur == nil && !m.bridge.Busy() {
		return false
	}

	var busReq wishbone.Request
	if m.cur != nil {
		busReq = wishbone.ReadRequest(m.cur.nextWord)
	}

	resp := m.bridge.Cycle(busReq)

	switch {
	case resp.Ack:
		m.collect(resp.DatR)
	case resp.Err:
		m.state.Rejected++
		m.respondError(m.cur.req, "address out of range")
		m.cur = nil
	}

	return true
}

func (m *bridgeMiddleware) collect(word uint32) {
	t := m.cur

	if m.Spec.ByteOrder == mmap.BigEndian {
		t.data = binary.BigEndian.AppendUint32(t.data, word)
	} else {
		t.data = binary.LittleEndian.AppendUint32(t.data, word)
	}

	m.state.WordsRead++

	if t.nextWord != t.lastWord {
		t.nextWord++
		return
	}

	m.respondData(t.req, t.payload())
	m.cur = nil
}

func (m *bridgeMiddleware) respondData(req *mem.ReadReq, data []byte) {
	m.state.Served++
	m.pendingReq = req
	m.pendingRsp = mem.DataReadyRspBuilder{}.
		WithSrc(m.IO.Top.AsRemote()).
		WithDst(req.Src()).
		WithRspTo(req.ID()).
		WithData(data).
		Build()
}

func (m *bridgeMiddleware) respondError(req mem.AccessReq, reason string) {
	m.pendingReq = req
	m.pendingRsp = mem.ErrorRspBuilder{}.
		WithSrc(m.IO.Top.AsRemote()).
		WithDst(req.Src()).
		WithRspTo(req.ID()).
		WithReason(reason).
		Build()
}

// Func marks the read task with how the reader served it.
func (m *bridgeMiddleware) Func(ctx hooking.HookCtx) {
	if ctx.Pos != mmap.HookPosReadStart || m.cur == nil {
		return
	}

	step := StepBurstNew
	if continued, _ := ctx.Detail.(bool); continued {
		step = StepBurstContinue
	}

	tracing.AddTaskStep(m.cur.taskID, m.Comp, step)
}
