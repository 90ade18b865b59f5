package spi

// ShiftRegister is a 32-bit register that moves data in groups of Width bits,
// most significant bits first.
type ShiftRegister uint32

// LoadLeftAligned places the low length bits of payload at the top of the
// register.
func LoadLeftAligned(payload uint32, length uint8) ShiftRegister {
	if length == 0 {
		return 0
	}

	return ShiftRegister(payload << (32 - uint32(length)))
}

// Head returns the top w bits, right aligned.
func (r ShiftRegister) Head(w Width) uint8 {
	return uint8(uint32(r) >> (32 - uint32(w)))
}

// Shift moves the register up by w bits and fills the vacated low bits with
// in.
func (r ShiftRegister) Shift(w Width, in uint8) ShiftRegister {
	return ShiftRegister(uint32(r)<<uint32(w) | uint32(in&w.lineMask()))
}

// Word returns the register content.
func (r ShiftRegister) Word() uint32 {
	return uint32(r)
}
