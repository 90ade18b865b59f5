package spi_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spiflash/spi"
)

var _ = Describe("Width", func() {
	It("should map widths to output enable masks", func() {
		Expect(spi.Single.OEMask()).To(Equal(uint8(0x01)))
		Expect(spi.Dual.OEMask()).To(Equal(uint8(0x03)))
		Expect(spi.Quad.OEMask()).To(Equal(uint8(0x0F)))
		Expect(spi.Octal.OEMask()).To(Equal(uint8(0xFF)))
	})

	It("should reject unsupported widths", func() {
		Expect(spi.Width(3).Validate()).To(MatchError(spi.ErrInvalidWidth))
		Expect(spi.Width(0).Validate()).To(MatchError(spi.ErrInvalidWidth))
		Expect(spi.Quad.Validate()).To(Succeed())
	})

	It("should capture the serial output line at single width", func() {
		Expect(spi.Single.Capture(0b10)).To(Equal(uint8(1)))
		Expect(spi.Single.Capture(0b01)).To(Equal(uint8(0)))
		Expect(spi.Quad.Capture(0xA5)).To(Equal(uint8(0x5)))
		Expect(spi.Octal.Capture(0xA5)).To(Equal(uint8(0xA5)))
	})
})

var _ = Describe("Descriptor", func() {
	It("should accept 24-bit phases at every width", func() {
		for _, w := range []spi.Width{spi.Single, spi.Dual, spi.Quad, spi.Octal} {
			d := spi.Descriptor{Length: 24, Width: w, Mask: w.OEMask()}
			Expect(d.Validate()).To(Succeed())
			Expect(d.Groups()).To(Equal(24 / int(w)))
		}
	})

	It("should reject a phase that does not split into groups", func() {
		d := spi.Descriptor{Length: 12, Width: spi.Octal}
		Expect(d.Validate()).To(MatchError(spi.ErrInvalidLength))
	})

	It("should reject empty and oversized phases", func() {
		Expect(spi.CheckPhase(0, spi.Single)).To(MatchError(spi.ErrInvalidLength))
		Expect(spi.CheckPhase(40, spi.Single)).To(MatchError(spi.ErrInvalidLength))
	})
})

var _ = Describe("ShiftRegister", func() {
	It("should shift a left-aligned payload out in groups", func() {
		r := spi.LoadLeftAligned(0xEB, 8)

		heads := []uint8{}
		for i := 0; i < 8; i++ {
			heads = append(heads, r.Head(spi.Single))
			r = r.Shift(spi.Single, 0)
		}

		Expect(heads).To(Equal([]uint8{1, 1, 1, 0, 1, 0, 1, 1}))
	})

	It("should produce the same word at every width", func() {
		for _, w := range []spi.Width{spi.Single, spi.Dual, spi.Quad, spi.Octal} {
			out := spi.LoadLeftAligned(0x12345678, 32)
			var in spi.ShiftRegister

			for i := 0; i < 32/int(w); i++ {
				in = in.Shift(w, out.Head(w))
				out = out.Shift(w, 0)
			}

			Expect(in.Word()).To(Equal(uint32(0x12345678)), "width %d", w)
		}
	})

	It("should mask input bits to the width", func() {
		var r spi.ShiftRegister
		r = r.Shift(spi.Dual, 0xFF)

		Expect(r.Word()).To(Equal(uint32(0b11)))
	})
})
