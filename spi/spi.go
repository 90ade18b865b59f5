// Package spi holds the types shared by the serial-flash datapath: bus widths,
// transfer descriptors, pad levels, and the shift register primitive.
package spi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth is returned for a bus width outside {1, 2, 4, 8}.
	ErrInvalidWidth = errors.New("spi: width must be 1, 2, 4 or 8")

	// ErrInvalidLength is returned for a phase length that is zero, longer
	// than 32 bits, or not a multiple of its width.
	ErrInvalidLength = errors.New("spi: invalid phase length")
)

// Width is the number of data lines used per clock edge.
type Width uint8

// Supported widths.
const (
	Single Width = 1
	Dual   Width = 2
	Quad   Width = 4
	Octal  Width = 8
)

var oeMask = map[Width]uint8{
	Single: 0b0000_0001,
	Dual:   0b0000_0011,
	Quad:   0b0000_1111,
	Octal:  0b1111_1111,
}

// Validate checks that w is one of the supported widths.
func (w Width) Validate() error {
	if _, ok := oeMask[w]; !ok {
		return fmt.Errorf("%w: got %d", ErrInvalidWidth, w)
	}

	return nil
}

// OEMask returns the output-enable mask driven while transmitting at w.
func (w Width) OEMask() uint8 {
	return oeMask[w]
}

// lineMask selects the low w data lines.
func (w Width) lineMask() uint8 {
	return uint8((uint16(1) << w) - 1)
}

// Capture extracts the w bits presented by the device on the data lines.
// Single width reads line 1, the device's serial output.
func (w Width) Capture(dq uint8) uint8 {
	if w == Single {
		return (dq >> 1) & 1
	}

	return dq & w.lineMask()
}

// Descriptor is one phase of a serial transaction.
type Descriptor struct {
	Payload uint32
	Length  uint8
	Width   Width
	Mask    uint8
	Last    bool
}

// Validate checks that the descriptor can be shifted.
func (d Descriptor) Validate() error {
	if err := d.Width.Validate(); err != nil {
		return err
	}

	return CheckPhase(d.Length, d.Width)
}

// Groups returns the number of clock periods the phase takes.
func (d Descriptor) Groups() int {
	return int(d.Length / uint8(d.Width))
}

// CheckPhase reports whether a phase of length bits fits the shift register
// and splits evenly into w-bit groups.
func CheckPhase(length uint8, w Width) error {
	if length == 0 || length > 32 {
		return fmt.Errorf("%w: %d bits", ErrInvalidLength, length)
	}

	if length%uint8(w) != 0 {
		return fmt.Errorf("%w: %d bits at width %d", ErrInvalidLength,
			length, w)
	}

	return nil
}

// Pads are the registered levels on the device-facing pins.
type Pads struct {
	SCK bool
	CS  bool
	DQ  uint8
	OE  uint8
}

// Transceiver is the request/response contract of the shift engine. All calls
// of one cycle observe the engine's registered state from the cycle start.
type Transceiver interface {
	// SetChipSelect sets the enable that the engine registers at the end of
	// the cycle.
	SetChipSelect(enable bool)

	// Submit offers a descriptor. It returns true if the engine latched it.
	Submit(d Descriptor) bool

	// Poll takes the word captured by the last completed phase.
	Poll() (word uint32, ok bool)
}
