// Package phy implements the serial shift engine that owns the flash pads.
//
// The engine moves one Descriptor at a time through the states
//
//	WaitCommand -> Xfer -> XferEnd -> SendResult -> WaitCommand
//
// shifting Width bits out on every update strobe and Width bits in on every
// sample strobe of its clock generator.
package phy

import (
	"fmt"
	"log"

	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/clkgen"
	"github.com/sarchlab/spiflash/spi/waittimer"
)

// Hook positions raised by the engine.
var (
	// HookPosPhaseStart fires when a descriptor is latched. Item is the
	// descriptor.
	HookPosPhaseStart = &hooking.HookPos{Name: "PHY Phase Start"}

	// HookPosPhaseEnd fires when a captured word is taken. Item is the word.
	HookPosPhaseEnd = &hooking.HookPos{Name: "PHY Phase End"}
)

// FSMState names the engine states.
type FSMState int

// Engine states.
const (
	WaitCommand FSMState = iota
	Xfer
	XferEnd
	SendResult
)

func (s FSMState) String() string {
	switch s {
	case WaitCommand:
		return "WAIT_COMMAND"
	case Xfer:
		return "XFER"
	case XferEnd:
		return "XFER_END"
	case SendResult:
		return "SEND_RESULT"
	default:
		return fmt.Sprintf("FSMState(%d)", int(s))
	}
}

// Spec configures an engine.
type Spec struct {
	// Divisor sets the serial clock to host/(2*(Divisor+1)).
	Divisor uint32

	// CSDelay is the minimum number of cycles chip select must be requested
	// before the engine treats it as enabled.
	CSDelay uint32
}

// DefaultSpec returns the fastest configuration.
func DefaultSpec() Spec {
	return Spec{}
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if s.Divisor > clkgen.MaxDivisor {
		return fmt.Errorf("%w: %d", clkgen.ErrDivisorOutOfRange, s.Divisor)
	}

	return nil
}

// State is the register content of the engine.
type State struct {
	FSM      FSMState
	Desc     spi.Descriptor
	SROut    spi.ShiftRegister
	SRIn     spi.ShiftRegister
	Count    int
	CSReg    bool
	DQIn     uint8
	Pads     spi.Pads
	Taken    bool
	Clock    clkgen.State
	Phases   uint64
	XferCyc  uint64
	TotalCyc uint64
}

// Engine is the serial shift engine.
type Engine struct {
	*hooking.HookableBase

	spec    Spec
	clk     *clkgen.Generator
	csTimer *waittimer.Timer

	fsm   FSMState
	desc  spi.Descriptor
	srOut spi.ShiftRegister
	srIn  spi.ShiftRegister
	count int

	csIn    bool
	csReg   bool
	dqIn    uint8
	pads    spi.Pads
	pending *spi.Descriptor
	taken   bool

	phases   uint64
	xferCyc  uint64
	totalCyc uint64
}

var _ spi.Transceiver = (*Engine)(nil)

// New creates an engine.
func New(spec Spec) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	gen, err := clkgen.New(spec.Divisor)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		HookableBase: hooking.NewHookableBase(),
		spec:         spec,
		clk:          gen,
	}

	if spec.CSDelay > 0 {
		e.csTimer = waittimer.New(spec.CSDelay + 1)
	}

	return e, nil
}

// Name identifies the engine in hooks.
func (e *Engine) Name() string {
	return "PHY"
}

// Spec returns the configuration.
func (e *Engine) Spec() Spec {
	return e.spec
}

// SetChipSelect sets the chip select request registered at the end of the
// cycle.
func (e *Engine) SetChipSelect(enable bool) {
	e.csIn = enable
}

// Submit offers a descriptor for this cycle. It is accepted only while the
// engine waits for a command with chip select enabled.
func (e *Engine) Submit(d spi.Descriptor) bool {
	if e.fsm != WaitCommand || !e.csEnabled() || e.pending != nil {
		return false
	}

	if err := d.Validate(); err != nil {
		log.Panicf("phy: %v", err)
	}

	e.pending = &d

	return true
}

// Poll takes the word captured by the completed phase.
func (e *Engine) Poll() (uint32, bool) {
	if e.fsm != SendResult || e.taken {
		return 0, false
	}

	e.taken = true

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosPhaseEnd,
		Item:   e.srIn.Word(),
		Detail: e.desc,
	})

	return e.srIn.Word(), true
}

// Pads returns the registered pad levels for this cycle.
func (e *Engine) Pads() spi.Pads {
	return e.pads
}

// Busy tells if a phase is in progress.
func (e *Engine) Busy() bool {
	return e.fsm != WaitCommand
}

func (e *Engine) csEnabled() bool {
	if e.csTimer != nil {
		return e.csTimer.Done()
	}

	return e.csReg
}

// Step commits one host cycle. dqIn is the level the device drives on the
// data lines during this cycle.
func (e *Engine) Step(dqIn uint8) {
	csEnable := e.csEnabled()
	sck := e.clk.Clk()
	edges := e.clk.Step(e.fsm == Xfer)

	var dqOut, oe uint8
	if e.fsm == Xfer || e.fsm == XferEnd {
		dqOut = e.srOut.Head(e.desc.Width)
		oe = e.desc.Mask
	}

	switch e.fsm {
	case WaitCommand:
		e.load()
	case Xfer:
		e.xferCyc++
		e.shift(edges)
	case XferEnd:
		e.finish(edges)
	case SendResult:
		if e.taken {
			e.taken = false
			e.fsm = WaitCommand
		}
	}

	e.pads = spi.Pads{SCK: sck, CS: csEnable, DQ: dqOut, OE: oe}
	e.dqIn = dqIn

	if e.csTimer != nil {
		e.csTimer.Step(e.csReg)
	}

	e.csReg = e.csIn

	e.totalCyc++
}

func (e *Engine) load() {
	if e.pending == nil {
		return
	}

	e.desc = *e.pending
	e.pending = nil
	e.count = int(e.desc.Length) - int(e.desc.Width)
	e.srOut = spi.LoadLeftAligned(e.desc.Payload, e.desc.Length)
	e.fsm = Xfer
	e.phases++

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosPhaseStart,
		Item:   e.desc,
	})
}

func (e *Engine) shift(edges clkgen.Edges) {
	w := e.desc.Width

	if edges.Sample {
		e.srIn = e.srIn.Shift(w, w.Capture(e.dqIn))
	}

	if edges.Update {
		e.srOut = e.srOut.Shift(w, 0)

		if e.count == 0 {
			e.fsm = XferEnd
		}

		e.count -= int(w)
	}
}

// finish captures the final group when the divisor is zero, since its sample
// strobe arrives after the last update.
func (e *Engine) finish(edges clkgen.Edges) {
	if e.spec.Divisor > 0 {
		e.fsm = SendResult
		return
	}

	if edges.Sample {
		w := e.desc.Width
		e.srIn = e.srIn.Shift(w, w.Capture(e.dqIn))
		e.fsm = SendResult
	}
}

// State returns a snapshot of the registers.
func (e *Engine) State() State {
	return State{
		FSM:      e.fsm,
		Desc:     e.desc,
		SROut:    e.srOut,
		SRIn:     e.srIn,
		Count:    e.count,
		CSReg:    e.csReg,
		DQIn:     e.dqIn,
		Pads:     e.pads,
		Taken:    e.taken,
		Clock:    e.clk.State(),
		Phases:   e.phases,
		XferCyc:  e.xferCyc,
		TotalCyc: e.totalCyc,
	}
}
