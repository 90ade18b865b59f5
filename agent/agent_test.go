package agent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spiflash"
	"github.com/sarchlab/spiflash/agent"
	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/timing"
	"github.com/sarchlab/spiflash/tracing"
)

const imageSize = 1 << 16

var _ = Describe("Pattern", func() {
	DescribeTable("should parse names",
		func(s string, want agent.Pattern) {
			p, err := agent.ParsePattern(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(want))
			Expect(p.String()).To(Equal(want.String()))
		},
		Entry("sequential", "sequential", agent.Sequential),
		Entry("seq", "seq", agent.Sequential),
		Entry("strided", "strided", agent.Strided),
		Entry("random", "rand", agent.Random),
	)

	It("should reject unknown names", func() {
		_, err := agent.ParsePattern("zigzag")
		Expect(err).To(MatchError(agent.ErrInvalidPattern))
	})
})

var _ = Describe("Agent", func() {
	var (
		engine *timing.SerialEngine
		img    flash.Image
		bridge *spiflash.Comp
		conn   *comm.DirectConnection
	)

	connect := func(b agent.Builder) *agent.Agent {
		a := b.WithEngine(engine).
			WithGolden(img).
			WithLowModule(bridge.IO.Top).
			Build("Agent")

		conn.PlugIn(a.GetPortByName("Mem"))
		conn.PlugIn(bridge.IO.Top)

		a.TickLater()

		return a
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		conn = comm.NewDirectConnection("Conn")

		var err error
		img, err = flash.PatternImage(imageSize)
		Expect(err).NotTo(HaveOccurred())

		bridge = spiflash.MakeBuilder().
			WithEngine(engine).
			WithImage(img).
			WithWidth(spi.Quad).
			Build("Flash")
	})

	It("should stream sequential reads through one burst", func() {
		a := connect(agent.MakeBuilder().
			WithReadLeft(32).
			WithStartAddress(0x400))

		Expect(engine.Run()).To(Succeed())

		stats := a.Stats()
		Expect(a.Done()).To(BeTrue())
		Expect(stats.Issued).To(Equal(uint64(32)))
		Expect(stats.Completed).To(Equal(uint64(32)))
		Expect(stats.BytesRead).To(Equal(uint64(128)))
		Expect(stats.Mismatches).To(BeEmpty())
		Expect(stats.Errors).To(BeZero())
		Expect(stats.AverageLatency()).To(BeNumerically(">", 0))

		rs := bridge.Bridge().Stats().Reader
		Expect(rs.Continuations).To(Equal(uint64(31)))
	})

	It("should restart the burst on every strided read", func() {
		a := connect(agent.MakeBuilder().
			WithPattern(agent.Strided).
			WithStride(256).
			WithAccessSize(8).
			WithReadLeft(10))

		Expect(engine.Run()).To(Succeed())

		Expect(a.Stats().Completed).To(Equal(uint64(10)))
		Expect(a.Stats().Mismatches).To(BeEmpty())

		rs := bridge.Bridge().Stats().Reader
		Expect(rs.Reads).To(Equal(uint64(20)))
		Expect(rs.Continuations).To(Equal(uint64(10)))
	})

	It("should check random reads against the image", func() {
		a := connect(agent.MakeBuilder().
			WithPattern(agent.Random).
			WithAccessSize(16).
			WithSeed(7).
			WithMaxInflight(2).
			WithReadLeft(20))

		Expect(engine.Run()).To(Succeed())

		Expect(a.Done()).To(BeTrue())
		Expect(a.Stats().Completed).To(Equal(uint64(20)))
		Expect(a.Stats().Mismatches).To(BeEmpty())
	})

	It("should report data that differs from the golden image", func() {
		golden := append(flash.Image(nil), img...)
		golden[0x11] ^= 0xFF

		a := agent.MakeBuilder().
			WithEngine(engine).
			WithGolden(golden).
			WithLowModule(bridge.IO.Top).
			WithStartAddress(0x10).
			WithReadLeft(2).
			Build("Agent")
		conn.PlugIn(a.GetPortByName("Mem"))
		conn.PlugIn(bridge.IO.Top)
		a.TickLater()

		Expect(engine.Run()).To(Succeed())

		mismatches := a.Stats().Mismatches
		Expect(mismatches).To(HaveLen(1))
		Expect(mismatches[0].Address).To(Equal(uint64(0x10)))
		Expect(mismatches[0].Got).To(Equal([]byte(img[0x10:0x14])))
	})

	It("should count error responses", func() {
		a := connect(agent.MakeBuilder().
			WithMaxAddress(2 * imageSize).
			WithStartAddress(imageSize).
			WithReadLeft(3))

		Expect(engine.Run()).To(Succeed())

		Expect(a.Stats().Completed).To(Equal(uint64(3)))
		Expect(a.Stats().Errors).To(Equal(uint64(3)))
	})

	It("should finalize the request tasks it starts", func() {
		tracer := tracing.NewTotalTimeTracer(engine, tracing.KindIs("req_out"))

		a := agent.MakeBuilder().
			WithEngine(engine).
			WithGolden(img).
			WithLowModule(bridge.IO.Top).
			WithReadLeft(4).
			Build("Agent")
		tracing.CollectTrace(a, tracer)
		conn.PlugIn(a.GetPortByName("Mem"))
		conn.PlugIn(bridge.IO.Top)
		a.TickLater()

		Expect(engine.Run()).To(Succeed())

		Expect(tracer.TotalTime()).To(BeNumerically(">", 0))
	})

	It("should refuse to build without a golden image", func() {
		Expect(func() {
			agent.MakeBuilder().WithEngine(engine).Build("Agent")
		}).To(Panic())
	})
})
