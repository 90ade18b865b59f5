// Package master implements a register-driven SPI master that queues raw
// descriptors for the shift engine and collects the captured words.
package master

import (
	"errors"
	"fmt"

	"github.com/sarchlab/spiflash/queueing"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/wishbone"
)

// Register word addresses.
const (
	// RegPHY holds the phase format: length in bits [5:0], width in bits
	// [11:8] and output-enable mask in bits [23:16].
	RegPHY uint32 = iota

	// RegCS holds the chip select request in bit 0.
	RegCS

	// RegStatus reports RX ready in bit 0 and TX ready in bit 1.
	RegStatus

	// RegData queues a phase on write and pops a captured word on read.
	RegData
)

// Status bits.
const (
	StatusRXReady uint32 = 1 << 0
	StatusTXReady uint32 = 1 << 1
)

// DefaultFIFODepth is the depth of both FIFOs.
const DefaultFIFODepth = 16

// ErrInvalidDepth is returned for a FIFO depth below one.
var ErrInvalidDepth = errors.New("master: FIFO depth must be positive")

// Spec configures a Master.
type Spec struct {
	TXDepth int
	RXDepth int
}

// DefaultSpec returns 16-entry FIFOs.
func DefaultSpec() Spec {
	return Spec{TXDepth: DefaultFIFODepth, RXDepth: DefaultFIFODepth}
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if s.TXDepth < 1 || s.RXDepth < 1 {
		return fmt.Errorf("%w: tx %d, rx %d", ErrInvalidDepth,
			s.TXDepth, s.RXDepth)
	}

	return nil
}

// PHYConfig is the decoded content of RegPHY.
type PHYConfig struct {
	Length uint8
	Width  spi.Width
	Mask   uint8
}

// Encode packs the configuration into the register layout.
func (c PHYConfig) Encode() uint32 {
	return uint32(c.Length&0x3F) |
		uint32(c.Width&0xF)<<8 |
		uint32(c.Mask)<<16
}

// DecodePHY unpacks a RegPHY value.
func DecodePHY(v uint32) PHYConfig {
	return PHYConfig{
		Length: uint8(v & 0x3F),
		Width:  spi.Width((v >> 8) & 0xF),
		Mask:   uint8(v >> 16),
	}
}

type csState int

const (
	csRise csState = iota
	csFall
)

// Master is the register-mode SPI master.
type Master struct {
	spec Spec
	xcvr spi.Transceiver

	phy      PHYConfig
	selected bool
	cs       csState
	inflight int

	tx *queueing.Buffer[spi.Descriptor]
	rx *queueing.Buffer[uint32]
}

// New creates a master driving xcvr.
func New(spec Spec, xcvr spi.Transceiver) (*Master, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Master{
		spec: spec,
		xcvr: xcvr,
		phy:  PHYConfig{Length: 8, Width: spi.Single, Mask: spi.Single.OEMask()},
		tx:   queueing.NewBuffer[spi.Descriptor]("Master.TX", spec.TXDepth),
		rx:   queueing.NewBuffer[uint32]("Master.RX", spec.RXDepth),
	}, nil
}

// TXFIFO exposes the transmit FIFO so that observers can hook it.
func (m *Master) TXFIFO() *queueing.Buffer[spi.Descriptor] {
	return m.tx
}

// RXFIFO exposes the receive FIFO so that observers can hook it.
func (m *Master) RXFIFO() *queueing.Buffer[uint32] {
	return m.rx
}

// ChipSelect returns the chip select request of the current cycle.
func (m *Master) ChipSelect() bool {
	return m.chipSelect()
}

// Busy tells if the master holds chip select or has queued work.
func (m *Master) Busy() bool {
	return m.selected || m.tx.Size() > 0 || m.inflight > 0 || m.cs == csFall
}

// chipSelect rises with queued data and falls once the select bit is clear
// and every queued phase has returned its word.
func (m *Master) chipSelect() bool {
	if m.cs == csRise {
		return m.tx.Size() > 0
	}

	return m.selected || m.tx.Size() > 0 || m.inflight > 0
}

// Step runs one host cycle with the register bus signals of that cycle.
func (m *Master) Step(req wishbone.Request) wishbone.Response {
	cs := m.chipSelect()
	m.xcvr.SetChipSelect(cs)

	switch {
	case m.cs == csRise && cs:
		m.cs = csFall
	case m.cs == csFall && !cs:
		m.cs = csRise
	}

	if d, ok := m.tx.Peek(); ok && m.xcvr.Submit(d) {
		m.tx.Pop()
		m.inflight++
	}

	if m.rx.CanPush() {
		if word, ok := m.xcvr.Poll(); ok {
			m.rx.Push(word)

			if m.inflight > 0 {
				m.inflight--
			}
		}
	}

	if !req.Active() {
		return wishbone.Response{}
	}

	if req.We {
		return m.write(req.Adr, req.DatW)
	}

	return m.read(req.Adr)
}

func (m *Master) write(adr, v uint32) wishbone.Response {
	switch adr {
	case RegPHY:
		m.phy = DecodePHY(v)
	case RegCS:
		m.selected = v&1 != 0
	case RegData:
		d := spi.Descriptor{
			Payload: v,
			Length:  m.phy.Length,
			Width:   m.phy.Width,
			Mask:    m.phy.Mask,
		}

		if d.Validate() != nil || !m.tx.CanPush() {
			return wishbone.Response{Err: true}
		}

		m.tx.Push(d)
	default:
		return wishbone.Response{Err: true}
	}

	return wishbone.Response{Ack: true}
}

func (m *Master) read(adr uint32) wishbone.Response {
	var v uint32

	switch adr {
	case RegPHY:
		v = m.phy.Encode()
	case RegCS:
		if m.selected {
			v = 1
		}
	case RegStatus:
		if m.rx.Size() > 0 {
			v |= StatusRXReady
		}

		if m.tx.CanPush() {
			v |= StatusTXReady
		}
	case RegData:
		v, _ = m.rx.Pop()
	default:
		return wishbone.Response{Err: true}
	}

	return wishbone.Response{Ack: true, DatR: v}
}
