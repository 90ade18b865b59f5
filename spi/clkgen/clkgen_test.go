package clkgen_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spiflash/spi/clkgen"
)

type trace struct {
	clk     []bool
	samples []int
	updates []int
}

func run(g *clkgen.Generator, cycles int) trace {
	t := trace{}

	for c := 0; c < cycles; c++ {
		t.clk = append(t.clk, g.Clk())

		e := g.Step(true)
		if e.Sample {
			t.samples = append(t.samples, c)
		}

		if e.Update {
			t.updates = append(t.updates, c)
		}
	}

	return t
}

var _ = Describe("Generator", func() {
	It("should reject a divisor that is out of range", func() {
		_, err := clkgen.New(clkgen.MaxDivisor + 1)
		Expect(err).To(MatchError(clkgen.ErrDivisorOutOfRange))
	})

	DescribeTable("one sample and one update per serial period",
		func(divisor int) {
			g, err := clkgen.New(uint32(divisor))
			Expect(err).NotTo(HaveOccurred())

			period := 2 * (divisor + 1)
			periods := 6
			t := run(g, period*periods)

			Expect(t.updates).To(HaveLen(periods))
			for i, u := range t.updates {
				Expect(u).To(Equal(period*i + period - 1))
			}

			// The first rising edge happens at cycle divisor+1, the strobe
			// follows two cycles later. The last period's sample may fall
			// outside the window when divisor is zero.
			Expect(len(t.samples)).To(BeNumerically(">=", periods-1))
			for i, s := range t.samples {
				Expect(s).To(Equal(period*i + divisor + 2))
			}
		},
		Entry("divisor 0", 0),
		Entry("divisor 1", 1),
		Entry("divisor 3", 3),
	)

	It("should toggle the clock every divisor+1 cycles", func() {
		g, _ := clkgen.New(1)
		t := run(g, 8)

		Expect(t.clk).To(Equal([]bool{
			false, false, true, true, false, false, true, true,
		}))
	})

	It("should reset when disabled", func() {
		g, _ := clkgen.New(3)
		for i := 0; i < 5; i++ {
			g.Step(true)
		}

		e := g.Step(false)
		Expect(e.Update).To(BeFalse())
		Expect(g.State().Count).To(Equal(uint32(0)))
		Expect(g.Clk()).To(BeFalse())
	})

	It("should not produce edges while disabled", func() {
		g, _ := clkgen.New(0)
		for i := 0; i < 10; i++ {
			e := g.Step(false)
			Expect(e.Sample).To(BeFalse())
			Expect(e.Update).To(BeFalse())
		}
	})
})
