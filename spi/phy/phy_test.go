package phy_test

import (
	"math/bits"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/phy"
)

// bench wires an engine to a flash device the way the bridge does.
type bench struct {
	e   *phy.Engine
	dev *flash.Device

	loadsOnSample int
}

func newBench(divisor uint32) *bench {
	e, err := phy.New(phy.Spec{Divisor: divisor})
	Expect(err).NotTo(HaveOccurred())

	img, err := flash.PatternImage(1 << 12)
	Expect(err).NotTo(HaveOccurred())

	dev, err := flash.New(flash.DefaultSpec(), img)
	Expect(err).NotTo(HaveOccurred())

	return &bench{e: e, dev: dev}
}

func (b *bench) cycle() {
	dq := b.dev.Step(b.e.Pads())

	s := b.e.State()
	b.e.Step(dq)

	loaded := s.FSM == phy.WaitCommand && b.e.State().FSM == phy.Xfer
	if loaded && s.Clock.PosedgeReg2 {
		b.loadsOnSample++
	}
}

// transfer runs one phase to completion with chip select held.
func (b *bench) transfer(d spi.Descriptor) uint32 {
	for i := 0; i < 10000; i++ {
		b.e.SetChipSelect(true)
		b.e.Submit(d)

		if w, ok := b.e.Poll(); ok {
			b.e.SetChipSelect(true)
			b.cycle()

			return w
		}

		b.cycle()
	}

	Fail("transfer did not complete")

	return 0
}

func (b *bench) deselect(cycles int) {
	for i := 0; i < cycles; i++ {
		b.e.SetChipSelect(false)
		b.cycle()
	}
}

var _ = Describe("Engine", func() {
	It("should reject an out-of-range divisor", func() {
		_, err := phy.New(phy.Spec{Divisor: 1000})
		Expect(err).To(HaveOccurred())
	})

	It("should refuse descriptors until chip select is registered", func() {
		e, _ := phy.New(phy.DefaultSpec())
		d := spi.Descriptor{Payload: 0xEB, Length: 8, Width: spi.Single, Mask: 1}

		e.SetChipSelect(true)
		Expect(e.Submit(d)).To(BeFalse())

		e.Step(0)
		Expect(e.Submit(d)).To(BeTrue())
		Expect(e.Submit(d)).To(BeFalse())

		e.Step(0)
		Expect(e.State().FSM).To(Equal(phy.Xfer))
		Expect(e.Busy()).To(BeTrue())
	})

	It("should wait for the chip select delay", func() {
		e, _ := phy.New(phy.Spec{CSDelay: 3})
		d := spi.Descriptor{Payload: 0xEB, Length: 8, Width: spi.Single, Mask: 1}

		accepted := -1
		for i := 0; i < 10 && accepted < 0; i++ {
			e.SetChipSelect(true)
			if e.Submit(d) {
				accepted = i
			}
			e.Step(0)
		}

		Expect(accepted).To(Equal(5))
	})

	It("should panic on a descriptor it cannot shift", func() {
		e, _ := phy.New(phy.DefaultSpec())
		e.SetChipSelect(true)
		e.Step(0)

		Expect(func() {
			e.Submit(spi.Descriptor{Length: 12, Width: spi.Octal})
		}).To(Panic())
	})

	DescribeTable("should shift the command out MSB first on line 0",
		func(divisor int) {
			b := newBench(uint32(divisor))
			d := spi.Descriptor{Payload: 0xEB, Length: 8, Width: spi.Single, Mask: 1}

			bitsSeen := []uint8{}
			prevSCK := false
			for i := 0; i < 200 && len(bitsSeen) < 8; i++ {
				b.e.SetChipSelect(true)
				b.e.Submit(d)
				p := b.e.Pads()
				if p.SCK && !prevSCK {
					Expect(p.OE).To(Equal(uint8(1)))
					bitsSeen = append(bitsSeen, p.DQ&1)
				}
				prevSCK = p.SCK
				b.cycle()
			}

			Expect(bitsSeen).To(Equal([]uint8{1, 1, 1, 0, 1, 0, 1, 1}))
		},
		Entry("divisor 0", 0),
		Entry("divisor 1", 1),
		Entry("divisor 3", 3),
	)

	DescribeTable("should read the JEDEC ID at single width",
		func(divisor int) {
			b := newBench(uint32(divisor))
			b.deselect(2)

			b.transfer(spi.Descriptor{
				Payload: uint32(flash.OpcodeJEDECID), Length: 8,
				Width: spi.Single, Mask: 1,
			})
			id := b.transfer(spi.Descriptor{Length: 24, Width: spi.Single})

			Expect(id & 0xFFFFFF).To(Equal(uint32(0xEF4018)))
			Expect(b.loadsOnSample).To(BeZero())
		},
		Entry("divisor 0", 0),
		Entry("divisor 1", 1),
		Entry("divisor 3", 3),
	)

	DescribeTable("should fetch the same bytes at every width",
		func(divisor int, width spi.Width) {
			b := newBench(uint32(divisor))
			spec := flash.DefaultSpec()
			spec.Width = width
			dev, err := flash.New(spec, b.dev.Image())
			Expect(err).NotTo(HaveOccurred())
			b.dev = dev
			b.deselect(2)

			const byteAddr = 0x124
			b.transfer(spi.Descriptor{Payload: 0xEB, Length: 8,
				Width: spi.Single, Mask: 1})
			b.transfer(spi.Descriptor{Payload: byteAddr, Length: 24,
				Width: width, Mask: width.OEMask()})
			b.transfer(spi.Descriptor{Payload: 0xFF0000, Length: 24,
				Width: width, Mask: width.OEMask()})

			first := b.transfer(spi.Descriptor{Length: 32, Width: width, Last: true})
			second := b.transfer(spi.Descriptor{Length: 32, Width: width, Last: true})

			img := b.dev.Image()
			Expect(first).To(Equal(bits.ReverseBytes32(img.Word(byteAddr / 4))))
			Expect(second).To(Equal(bits.ReverseBytes32(img.Word(byteAddr/4 + 1))))
			Expect(b.loadsOnSample).To(BeZero())
		},
		Entry("x1 divisor 0", 0, spi.Single),
		Entry("x2 divisor 0", 0, spi.Dual),
		Entry("x4 divisor 0", 0, spi.Quad),
		Entry("x8 divisor 0", 0, spi.Octal),
		Entry("x1 divisor 1", 1, spi.Single),
		Entry("x4 divisor 1", 1, spi.Quad),
		Entry("x8 divisor 3", 3, spi.Octal),
	)

	It("should spend fewer shift cycles at wider widths", func() {
		cycles := map[spi.Width]uint64{}

		for _, w := range []spi.Width{spi.Single, spi.Dual, spi.Quad, spi.Octal} {
			b := newBench(1)
			b.transfer(spi.Descriptor{Length: 32, Width: w})
			cycles[w] = b.e.State().XferCyc
		}

		Expect(cycles[spi.Single]).To(Equal(2 * cycles[spi.Dual]))
		Expect(cycles[spi.Dual]).To(Equal(2 * cycles[spi.Quad]))
		Expect(cycles[spi.Quad]).To(Equal(2 * cycles[spi.Octal]))
	})

	It("should raise hooks for every phase", func() {
		b := newBench(0)
		starts, ends := 0, 0
		b.e.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			switch ctx.Pos {
			case phy.HookPosPhaseStart:
				starts++
			case phy.HookPosPhaseEnd:
				ends++
			}
		}))

		b.transfer(spi.Descriptor{Payload: 0x9F, Length: 8, Width: spi.Single, Mask: 1})
		b.transfer(spi.Descriptor{Length: 24, Width: spi.Single})

		Expect(starts).To(Equal(2))
		Expect(ends).To(Equal(2))
	})
})
