package mmap

import (
	"errors"
	"fmt"

	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
)

// Fixed phase lengths, in bits.
const (
	CommandBits = 8
	AddressBits = 24
	DataBits    = 32
)

// DefaultHoldTimeout is the number of idle cycles a burst stays open.
const DefaultHoldTimeout = 256

// ByteOrder selects how the received word is presented on the bus.
type ByteOrder int

// Byte orders.
const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}

	return "little"
}

// ParseByteOrder accepts "little" or "big".
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	default:
		return LittleEndian, fmt.Errorf("%w: %q", ErrInvalidByteOrder, s)
	}
}

var (
	// ErrZeroHoldTimeout is returned when bursts could never be continued.
	ErrZeroHoldTimeout = errors.New("mmap: hold timeout must be positive")

	// ErrInvalidByteOrder is returned for an unknown byte order.
	ErrInvalidByteOrder = errors.New("mmap: invalid byte order")
)

// Spec configures a Reader.
type Spec struct {
	Opcode       uint8
	Width        spi.Width
	DummyBits    uint8
	DummyPattern uint32
	HoldTimeout  uint32
	ByteOrder    ByteOrder

	// SizeBytes is the mapped window. Reads beyond it are answered with a
	// bus error.
	SizeBytes int
}

// DefaultSpec returns the quad fast-read configuration.
func DefaultSpec() Spec {
	return Spec{
		Opcode:       0xEB,
		Width:        spi.Quad,
		DummyBits:    24,
		DummyPattern: 0xFF0000,
		HoldTimeout:  DefaultHoldTimeout,
		ByteOrder:    LittleEndian,
		SizeBytes:    flash.MaxSize,
	}
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if err := s.Width.Validate(); err != nil {
		return err
	}

	if err := spi.CheckPhase(AddressBits, s.Width); err != nil {
		return fmt.Errorf("address phase: %w", err)
	}

	if s.DummyBits > 0 {
		if err := spi.CheckPhase(s.DummyBits, s.Width); err != nil {
			return fmt.Errorf("dummy phase: %w", err)
		}
	}

	if err := spi.CheckPhase(DataBits, s.Width); err != nil {
		return fmt.Errorf("data phase: %w", err)
	}

	if s.HoldTimeout == 0 {
		return ErrZeroHoldTimeout
	}

	if s.ByteOrder != LittleEndian && s.ByteOrder != BigEndian {
		return fmt.Errorf("%w: %d", ErrInvalidByteOrder, s.ByteOrder)
	}

	return flash.CheckSize(s.SizeBytes)
}

func (s Spec) commandPhase() spi.Descriptor {
	return spi.Descriptor{
		Payload: uint32(s.Opcode),
		Length:  CommandBits,
		Width:   spi.Single,
		Mask:    spi.Single.OEMask(),
	}
}

// addressPhase sends the byte address of a word address.
func (s Spec) addressPhase(wordAddr uint32) spi.Descriptor {
	return spi.Descriptor{
		Payload: wordAddr << 2,
		Length:  AddressBits,
		Width:   s.Width,
		Mask:    s.Width.OEMask(),
	}
}

func (s Spec) dummyPhase() spi.Descriptor {
	return spi.Descriptor{
		Payload: s.DummyPattern,
		Length:  s.DummyBits,
		Width:   s.Width,
		Mask:    s.Width.OEMask(),
	}
}

func (s Spec) dataPhase() spi.Descriptor {
	return spi.Descriptor{
		Length: DataBits,
		Width:  s.Width,
		Last:   true,
	}
}
