// Package spiflash simulates a memory-mapped serial-flash read bridge at the
// host-clock cycle level.
//
// A Bridge wires the burst reader, the shift engine and a flash device model
// into one netlist. Comp wraps a Bridge as an event-driven component that
// answers memory read requests on its Top port.
package spiflash

import (
	"context"
	"fmt"

	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/crossbar"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/master"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/spi/phy"
	"github.com/sarchlab/spiflash/wishbone"
)

// ctxCheckInterval is how many cycles Read runs between context checks.
const ctxCheckInterval = 256

// Crossbar ports.
const (
	readerPort = iota
	masterPort
)

// Stats summarizes bridge activity.
type Stats struct {
	Cycles        uint64
	Reader        mmap.Stats
	Phases        uint64
	XferCycles    uint64
	FlashCommands uint64
}

// Bridge is the cycle-level netlist.
type Bridge struct {
	spec Spec

	dev    *flash.Device
	engine *phy.Engine
	reader *mmap.Reader
	master *master.Master
	xbar   *crossbar.Crossbar

	now uint64
}

// NewBridge builds a bridge serving image.
func NewBridge(spec Spec, image flash.Image) (*Bridge, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if len(image) != spec.SizeBytes {
		return nil, fmt.Errorf("%w: image %d bytes, spec %d",
			ErrImageSize, len(image), spec.SizeBytes)
	}

	b := &Bridge{spec: spec}

	var err error

	b.dev, err = flash.New(spec.FlashSpec(), image)
	if err != nil {
		return nil, err
	}

	b.engine, err = phy.New(spec.PHYSpec())
	if err != nil {
		return nil, err
	}

	var readerXcvr spi.Transceiver = b.engine

	if spec.RegisterMaster {
		b.xbar, err = crossbar.New(b.engine, 2)
		if err != nil {
			return nil, err
		}

		readerXcvr = b.xbar.Port(readerPort)

		b.master, err = master.New(spec.MasterSpec(), b.xbar.Port(masterPort))
		if err != nil {
			return nil, err
		}
	}

	b.reader, err = mmap.New(spec.ReaderSpec(), readerXcvr)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Spec returns the configuration.
func (b *Bridge) Spec() Spec {
	return b.spec
}

// Flash returns the device model.
func (b *Bridge) Flash() *flash.Device {
	return b.dev
}

// PHY returns the shift engine.
func (b *Bridge) PHY() *phy.Engine {
	return b.engine
}

// Reader returns the burst reader.
func (b *Bridge) Reader() *mmap.Reader {
	return b.reader
}

// Master returns the register master, or nil.
func (b *Bridge) Master() *master.Master {
	return b.master
}

// Now returns the number of cycles run.
func (b *Bridge) Now() uint64 {
	return b.now
}

// Busy tells if any part of the bridge still has work or holds a burst.
func (b *Bridge) Busy() bool {
	if b.reader.Busy() || b.engine.Busy() {
		return true
	}

	return b.master != nil && b.master.Busy()
}

// Stats returns the activity counters.
func (b *Bridge) Stats() Stats {
	ps := b.engine.State()

	return Stats{
		Cycles:        b.now,
		Reader:        b.reader.Stats(),
		Phases:        ps.Phases,
		XferCycles:    ps.XferCyc,
		FlashCommands: b.dev.State().Reads,
	}
}

// Cycle advances one host cycle with the memory bus signals of that cycle.
func (b *Bridge) Cycle(req wishbone.Request) wishbone.Response {
	resp, _ := b.Step(req, wishbone.Request{})
	return resp
}

// Step advances one host cycle. The device sees the pads registered in the
// previous cycle, then the controllers run against the engine's registered
// state, then the engine commits.
func (b *Bridge) Step(
	busReq, regReq wishbone.Request,
) (busResp, regResp wishbone.Response) {
	dq := b.dev.Step(b.engine.Pads())

	busResp = b.reader.Step(busReq)

	if b.master != nil {
		regResp = b.master.Step(regReq)
		b.xbar.Step()
	}

	b.engine.Step(dq)
	b.now++

	return busResp, regResp
}

// Idle runs n cycles with no bus request.
func (b *Bridge) Idle(n int) {
	for i := 0; i < n; i++ {
		b.Cycle(wishbone.Request{})
	}
}

// Read holds a read of wordAddr on the bus until it is acknowledged and
// returns the bus word and the number of cycles it took.
func (b *Bridge) Read(ctx context.Context, wordAddr uint32) (uint32, uint64, error) {
	req := wishbone.ReadRequest(wordAddr)

	var cycles uint64

	for {
		if cycles%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, cycles, fmt.Errorf("%w: word 0x%06X: %w",
					ErrStalled, wordAddr, err)
			}
		}

		if b.spec.ReadBudget > 0 && cycles >= b.spec.ReadBudget {
			return 0, cycles, fmt.Errorf("%w: word 0x%06X after %d cycles",
				ErrStalled, wordAddr, cycles)
		}

		resp := b.Cycle(req)
		cycles++

		switch {
		case resp.Ack:
			return resp.DatR, cycles, nil
		case resp.Err:
			return 0, cycles, fmt.Errorf("%w: read of word 0x%06X",
				ErrBusError, wordAddr)
		}
	}
}

// ReadRegister reads a register of the register master.
func (b *Bridge) ReadRegister(reg uint32) (uint32, error) {
	resp, err := b.registerAccess(wishbone.ReadRequest(reg))
	return resp.DatR, err
}

// WriteRegister writes a register of the register master.
func (b *Bridge) WriteRegister(reg, v uint32) error {
	_, err := b.registerAccess(wishbone.WriteRequest(reg, v))
	return err
}

// registerAccess takes one cycle; the master always answers at once.
func (b *Bridge) registerAccess(req wishbone.Request) (wishbone.Response, error) {
	if b.master == nil {
		return wishbone.Response{}, ErrNoMaster
	}

	_, resp := b.Step(wishbone.Request{}, req)
	if resp.Err {
		return resp, fmt.Errorf("%w: register %d", ErrBusError, req.Adr)
	}

	return resp, nil
}
