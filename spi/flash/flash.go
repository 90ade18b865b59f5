// Package flash models a serial NOR flash part at its pins.
//
// The device samples the data lines on rising SCK and drives read data after
// falling SCK. Releasing chip select resets the command decoder.
package flash

import (
	"errors"
	"fmt"

	"github.com/sarchlab/spiflash/spi"
)

// Opcodes understood by the device besides the configured fast read.
const (
	OpcodeRead    uint8 = 0x03
	OpcodeJEDECID uint8 = 0x9F
)

var (
	// ErrInvalidSize is returned for an image size that is not a power of
	// two or exceeds MaxSize.
	ErrInvalidSize = errors.New("flash: size must be a power of two up to 16 MiB")

	// ErrImageTooLarge is returned when a file does not fit the image.
	ErrImageTooLarge = errors.New("flash: image file too large")

	// ErrOpcodeConflict is returned when the fast read opcode shadows a
	// built-in command.
	ErrOpcodeConflict = errors.New("flash: fast read opcode conflicts with a built-in command")
)

// Phase is the decoder position within a transaction.
type Phase int

// Decoder phases.
const (
	PhaseCommand Phase = iota
	PhaseAddress
	PhaseDummy
	PhaseData
	PhaseIgnore
)

func (p Phase) String() string {
	switch p {
	case PhaseCommand:
		return "Command"
	case PhaseAddress:
		return "Address"
	case PhaseDummy:
		return "Dummy"
	case PhaseData:
		return "Data"
	case PhaseIgnore:
		return "Ignore"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const addressBits = 24

// Spec configures a device.
type Spec struct {
	// FastReadOpcode is the multi-line read command.
	FastReadOpcode uint8

	// Width is the number of lines used by the fast read after the command.
	Width spi.Width

	// DummyBits is the number of bits clocked between address and data of a
	// fast read, at Width.
	DummyBits uint8

	// JEDECID is returned by OpcodeJEDECID.
	JEDECID [3]byte
}

// DefaultSpec returns a quad-I/O part.
func DefaultSpec() Spec {
	return Spec{
		FastReadOpcode: 0xEB,
		Width:          spi.Quad,
		DummyBits:      24,
		JEDECID:        [3]byte{0xEF, 0x40, 0x18},
	}
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if err := s.Width.Validate(); err != nil {
		return err
	}

	if s.DummyBits%uint8(s.Width) != 0 {
		return fmt.Errorf("%w: %d dummy bits at width %d",
			spi.ErrInvalidLength, s.DummyBits, s.Width)
	}

	if s.FastReadOpcode == OpcodeJEDECID {
		return fmt.Errorf("%w: 0x%02X", ErrOpcodeConflict, s.FastReadOpcode)
	}

	return nil
}

// State is the decoder state.
type State struct {
	Phase   Phase
	Opcode  uint8
	Address uint32
	Bits    int
	Width   spi.Width
	BitPos  int
	Out     uint8
	Reads   uint64
}

// Device is the flash part.
type Device struct {
	spec  Spec
	image Image

	prevSCK bool
	phase   Phase
	opcode  uint8
	addr    uint32
	bits    int
	width   spi.Width
	dummy   int
	bitPos  int
	jedec   bool
	out     uint8
	reads   uint64
}

// New creates a device holding image.
func New(spec Spec, image Image) (*Device, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if err := CheckSize(len(image)); err != nil {
		return nil, err
	}

	d := &Device{spec: spec, image: image}
	d.reset()

	return d, nil
}

// Image returns the device content.
func (d *Device) Image() Image {
	return d.image
}

// Step observes the pads of one host cycle and returns the level the device
// drives on the data lines.
func (d *Device) Step(p spi.Pads) uint8 {
	if !p.CS {
		d.reset()
		d.prevSCK = p.SCK

		return 0
	}

	rising := p.SCK && !d.prevSCK
	falling := !p.SCK && d.prevSCK
	d.prevSCK = p.SCK

	if rising {
		d.onRising(p.DQ)
	}

	if falling {
		d.onFalling()
	}

	return d.out
}

func (d *Device) reset() {
	d.phase = PhaseCommand
	d.opcode = 0
	d.addr = 0
	d.bits = 0
	d.width = spi.Single
	d.dummy = 0
	d.bitPos = 0
	d.jedec = false
	d.out = 0
}

func (d *Device) onRising(dq uint8) {
	in := dq & uint8((uint16(1)<<d.width)-1)

	switch d.phase {
	case PhaseCommand:
		d.opcode = d.opcode<<1 | in
		d.bits++

		if d.bits == 8 {
			d.decode()
		}
	case PhaseAddress:
		d.addr = d.addr<<uint(d.width) | uint32(in)
		d.bits += int(d.width)

		if d.bits == addressBits {
			d.addr &= 1<<addressBits - 1
			d.bits = 0

			if d.dummy > 0 {
				d.phase = PhaseDummy
			} else {
				d.enterData()
			}
		}
	case PhaseDummy:
		d.bits += int(d.width)

		if d.bits == d.dummy {
			d.enterData()
		}
	}
}

func (d *Device) decode() {
	d.bits = 0

	switch d.opcode {
	case d.spec.FastReadOpcode:
		d.phase = PhaseAddress
		d.width = d.spec.Width
		d.dummy = int(d.spec.DummyBits)
	case OpcodeRead:
		d.phase = PhaseAddress
		d.width = spi.Single
		d.dummy = 0
	case OpcodeJEDECID:
		d.width = spi.Single
		d.jedec = true
		d.enterData()
	default:
		d.phase = PhaseIgnore
	}
}

func (d *Device) enterData() {
	d.phase = PhaseData
	d.bitPos = 0
	d.reads++
}

func (d *Device) onFalling() {
	if d.phase != PhaseData {
		return
	}

	w := int(d.width)
	group := (d.currentByte() >> (8 - w - d.bitPos)) & byte((1<<w)-1)

	d.bitPos += w
	if d.bitPos == 8 {
		d.bitPos = 0
		d.addr++
	}

	if d.width == spi.Single {
		d.out = group << 1
	} else {
		d.out = group
	}
}

func (d *Device) currentByte() byte {
	if d.jedec {
		return d.spec.JEDECID[d.addr%3]
	}

	return d.image.Byte(d.addr)
}

// State returns a snapshot of the decoder.
func (d *Device) State() State {
	return State{
		Phase:   d.phase,
		Opcode:  d.opcode,
		Address: d.addr,
		Bits:    d.bits,
		Width:   d.width,
		BitPos:  d.bitPos,
		Out:     d.out,
		Reads:   d.reads,
	}
}
