// Package mmap implements the memory-mapped burst read controller. It turns
// bus reads into command, address, dummy and data phases on a shift engine
// and continues an open burst when the next read is sequential.
package mmap

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/waittimer"
	"github.com/sarchlab/spiflash/wishbone"
)

// Hook positions raised by the reader.
var (
	// HookPosReadStart fires when a read is accepted. Item is the word
	// address, Detail tells if the burst is continued.
	HookPosReadStart = &hooking.HookPos{Name: "MMAP Read Start"}

	// HookPosReadDone fires when a read is acknowledged. Item is the word
	// address, Detail is the bus word.
	HookPosReadDone = &hooking.HookPos{Name: "MMAP Read Done"}

	// HookPosBurstClosed fires when the hold timer closes a burst.
	HookPosBurstClosed = &hooking.HookPos{Name: "MMAP Burst Closed"}

	// HookPosBusError fires when a request is answered with an error.
	HookPosBusError = &hooking.HookPos{Name: "MMAP Bus Error"}
)

// FSMState names the controller states.
type FSMState int

// Controller states.
const (
	Idle FSMState = iota
	SendCommand
	CommandReturn
	SendAddress
	AddressReturn
	SendDummy
	DummyReturn
	RequestData
	ReceiveData
)

var stateNames = [...]string{
	"IDLE",
	"SEND_COMMAND",
	"COMMAND_RETURN",
	"SEND_ADDRESS",
	"ADDRESS_RETURN",
	"SEND_DUMMY",
	"DUMMY_RETURN",
	"REQUEST_DATA",
	"RECEIVE_DATA",
}

func (s FSMState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("FSMState(%d)", int(s))
	}

	return stateNames[s]
}

// State is the burst bookkeeping of the controller.
type State struct {
	FSM              FSMState
	ChipSelectActive bool
	BurstAddress     uint32
	Address          uint32
	HoldRemaining    uint32
}

// Stats counts reader activity.
type Stats struct {
	Reads         uint64
	Continuations uint64
	BurstsClosed  uint64
	BusErrors     uint64
}

// Reader is the burst read controller.
type Reader struct {
	*hooking.HookableBase

	spec  Spec
	xcvr  spi.Transceiver
	timer *waittimer.Timer
	words uint32

	fsm      FSMState
	burstCS  bool
	burstAdr uint32
	adr      uint32

	stats Stats
}

// New creates a reader that drives xcvr.
func New(spec Spec, xcvr spi.Transceiver) (*Reader, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Reader{
		HookableBase: hooking.NewHookableBase(),
		spec:         spec,
		xcvr:         xcvr,
		timer:        waittimer.New(spec.HoldTimeout),
		words:        uint32(spec.SizeBytes / 4),
	}, nil
}

// Name identifies the reader in hooks.
func (r *Reader) Name() string {
	return "MMAP"
}

// Spec returns the configuration.
func (r *Reader) Spec() Spec {
	return r.spec
}

// Stats returns the activity counters.
func (r *Reader) Stats() Stats {
	return r.stats
}

// State returns a snapshot of the controller registers.
func (r *Reader) State() State {
	return State{
		FSM:              r.fsm,
		ChipSelectActive: r.burstCS,
		BurstAddress:     r.burstAdr,
		Address:          r.adr,
		HoldRemaining:    r.timer.Remaining(),
	}
}

// Busy tells if a read is in flight or a burst is held open.
func (r *Reader) Busy() bool {
	return r.fsm != Idle || r.burstCS
}

// Step runs one host cycle with the bus signals of that cycle and returns the
// slave response.
func (r *Reader) Step(req wishbone.Request) wishbone.Response {
	var resp wishbone.Response

	cs := true
	wait := r.fsm == Idle

	switch r.fsm {
	case Idle:
		cs, resp = r.idle(req)
	case SendCommand:
		r.submit(r.spec.commandPhase(), CommandReturn)
	case CommandReturn:
		r.consume(SendAddress)
	case SendAddress:
		r.burstCS = true
		r.burstAdr = r.adr
		r.submit(r.spec.addressPhase(r.adr), AddressReturn)
	case AddressReturn:
		if r.spec.DummyBits == 0 {
			r.consume(RequestData)
		} else {
			r.consume(SendDummy)
		}
	case SendDummy:
		r.submit(r.spec.dummyPhase(), DummyReturn)
	case DummyReturn:
		r.consume(RequestData)
	case RequestData:
		r.submit(r.spec.dataPhase(), ReceiveData)
	case ReceiveData:
		resp = r.receive()
	}

	r.xcvr.SetChipSelect(cs)
	r.timer.Step(wait)

	return resp
}

func (r *Reader) idle(req wishbone.Request) (bool, wishbone.Response) {
	cs := r.burstCS

	if r.burstCS && r.timer.Done() {
		r.burstCS = false
		r.stats.BurstsClosed++
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosBurstClosed,
			Item:   r.burstAdr,
		})
	}

	if !req.Active() {
		return cs, wishbone.Response{}
	}

	if req.We || req.Adr >= r.words {
		r.stats.BusErrors++
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosBusError,
			Item:   req.Adr,
			Detail: req.We,
		})

		return cs, wishbone.Response{Err: true}
	}

	r.stats.Reads++
	r.adr = req.Adr

	continued := cs && req.Adr == r.burstAdr
	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosReadStart,
		Item:   req.Adr,
		Detail: continued,
	})

	if continued {
		r.stats.Continuations++
		r.fsm = RequestData

		return cs, wishbone.Response{}
	}

	r.fsm = SendCommand

	return false, wishbone.Response{}
}

func (r *Reader) submit(d spi.Descriptor, next FSMState) {
	if r.xcvr.Submit(d) {
		r.fsm = next
	}
}

func (r *Reader) consume(next FSMState) {
	if _, ok := r.xcvr.Poll(); ok {
		r.fsm = next
	}
}

func (r *Reader) receive() wishbone.Response {
	word, ok := r.xcvr.Poll()
	if !ok {
		return wishbone.Response{}
	}

	if r.spec.ByteOrder == LittleEndian {
		word = bits.ReverseBytes32(word)
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosReadDone,
		Item:   r.adr,
		Detail: word,
	})

	r.burstAdr++
	r.fsm = Idle

	return wishbone.Response{Ack: true, DatR: word}
}
