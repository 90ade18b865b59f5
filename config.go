package spiflash

import (
	"errors"
	"fmt"

	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/master"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/spi/phy"
	"github.com/sarchlab/spiflash/timing"
)

var (
	// ErrStalled is returned when a read does not finish within its cycle
	// budget or before its context is done.
	ErrStalled = errors.New("spiflash: read stalled")

	// ErrBusError is returned when the bridge answers a request with Err.
	ErrBusError = errors.New("spiflash: bus error")

	// ErrNoMaster is returned for register access on a bridge built without
	// the register master.
	ErrNoMaster = errors.New("spiflash: bridge has no register master")

	// ErrImageSize is returned when the image does not match SizeBytes.
	ErrImageSize = errors.New("spiflash: image size does not match spec")

	// ErrInvalidBufSize is returned for a port buffer that cannot hold a
	// message.
	ErrInvalidBufSize = errors.New("spiflash: port buffer size must be positive")
)

// DefaultReadBudget bounds a single Bridge.Read.
const DefaultReadBudget = 1 << 20

// Spec configures a bridge. It is fixed at construction.
type Spec struct {
	Freq timing.FreqInHz

	// Flash-side protocol.
	Width        spi.Width
	Opcode       uint8
	DummyBits    uint8
	DummyPattern uint32
	JEDECID      [3]byte
	SizeBytes    int

	// Timing.
	Divisor     uint32
	CSDelay     uint32
	HoldTimeout uint32

	ByteOrder mmap.ByteOrder

	// RegisterMaster adds the register-mode master and shares the engine
	// through a round-robin crossbar.
	RegisterMaster bool
	FIFODepth      int

	TopBufSize int

	// ReadBudget is the number of cycles Bridge.Read waits for an ack. Zero
	// waits until the context is done.
	ReadBudget uint64
}

// DefaultSpec returns a quad bridge in front of a 16 MiB part.
func DefaultSpec() Spec {
	return Spec{
		Freq:         100 * timing.MHz,
		Width:        spi.Quad,
		Opcode:       0xEB,
		DummyBits:    24,
		DummyPattern: 0xFF0000,
		JEDECID:      flash.DefaultSpec().JEDECID,
		SizeBytes:    flash.MaxSize,
		Divisor:      0,
		HoldTimeout:  mmap.DefaultHoldTimeout,
		ByteOrder:    mmap.LittleEndian,
		FIFODepth:    master.DefaultFIFODepth,
		TopBufSize:   4,
		ReadBudget:   DefaultReadBudget,
	}
}

// Validate checks every sub-configuration.
func (s Spec) Validate() error {
	if s.Freq == 0 {
		return timing.ErrZeroFrequency
	}

	if err := s.ReaderSpec().Validate(); err != nil {
		return err
	}

	if err := s.FlashSpec().Validate(); err != nil {
		return err
	}

	if err := s.PHYSpec().Validate(); err != nil {
		return err
	}

	if s.RegisterMaster {
		if err := s.MasterSpec().Validate(); err != nil {
			return err
		}
	}

	if s.TopBufSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBufSize, s.TopBufSize)
	}

	return nil
}

// ReaderSpec derives the burst reader configuration.
func (s Spec) ReaderSpec() mmap.Spec {
	return mmap.Spec{
		Opcode:       s.Opcode,
		Width:        s.Width,
		DummyBits:    s.DummyBits,
		DummyPattern: s.DummyPattern,
		HoldTimeout:  s.HoldTimeout,
		ByteOrder:    s.ByteOrder,
		SizeBytes:    s.SizeBytes,
	}
}

// FlashSpec derives the device model configuration.
func (s Spec) FlashSpec() flash.Spec {
	return flash.Spec{
		FastReadOpcode: s.Opcode,
		Width:          s.Width,
		DummyBits:      s.DummyBits,
		JEDECID:        s.JEDECID,
	}
}

// PHYSpec derives the shift engine configuration.
func (s Spec) PHYSpec() phy.Spec {
	return phy.Spec{Divisor: s.Divisor, CSDelay: s.CSDelay}
}

// MasterSpec derives the register master configuration.
func (s Spec) MasterSpec() master.Spec {
	return master.Spec{TXDepth: s.FIFODepth, RXDepth: s.FIFODepth}
}
