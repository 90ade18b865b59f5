package master

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/wishbone"
)

var _ = Describe("Master", func() {
	var (
		mockCtrl *gomock.Controller
		xcvr     *MockTransceiver
		m        *Master
		cs       []bool
	)

	idle := wishbone.Request{}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		xcvr = NewMockTransceiver(mockCtrl)
		cs = nil

		xcvr.EXPECT().SetChipSelect(gomock.Any()).
			Do(func(enable bool) { cs = append(cs, enable) }).
			AnyTimes()

		var err error
		m, err = New(Spec{TXDepth: 2, RXDepth: 2}, xcvr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject empty FIFOs", func() {
		_, err := New(Spec{TXDepth: 0, RXDepth: 1}, xcvr)
		Expect(err).To(MatchError(ErrInvalidDepth))
	})

	It("should read back the PHY register", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()

		cfg := PHYConfig{Length: 24, Width: spi.Quad, Mask: 0x0F}
		resp := m.Step(wishbone.WriteRequest(RegPHY, cfg.Encode()))
		Expect(resp.Ack).To(BeTrue())

		resp = m.Step(wishbone.ReadRequest(RegPHY))
		Expect(resp.Ack).To(BeTrue())
		Expect(DecodePHY(resp.DatR)).To(Equal(cfg))
	})

	It("should raise chip select while data is queued or selected", func() {
		gomock.InOrder(
			xcvr.EXPECT().Poll().Return(uint32(0), false).Times(4),
			xcvr.EXPECT().Poll().Return(uint32(0xEF), true),
			xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes(),
		)
		xcvr.EXPECT().Submit(spi.Descriptor{
			Payload: 0x9F, Length: 8, Width: spi.Single, Mask: 0x01,
		}).Return(true)

		m.Step(wishbone.WriteRequest(RegCS, 1))
		m.Step(wishbone.WriteRequest(RegData, 0x9F))
		m.Step(idle)
		m.Step(idle)
		m.Step(wishbone.WriteRequest(RegCS, 0))
		m.Step(idle)

		Expect(cs).To(Equal([]bool{false, false, true, true, true, false}))
	})

	It("should hold chip select until the queued phase returns", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()
		xcvr.EXPECT().Submit(gomock.Any()).Return(true)

		m.Step(wishbone.WriteRequest(RegData, 0x9F))
		for i := 0; i < 5; i++ {
			m.Step(idle)
		}

		Expect(cs[1:]).To(HaveEach(BeTrue()))
		Expect(m.Busy()).To(BeTrue())
	})

	It("should not raise chip select for the select bit alone", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()

		m.Step(wishbone.WriteRequest(RegCS, 1))
		m.Step(idle)
		m.Step(idle)

		Expect(cs).To(Equal([]bool{false, false, false}))
	})

	It("should collect captured words into the RX FIFO", func() {
		gomock.InOrder(
			xcvr.EXPECT().Poll().Return(uint32(0xEF4018), true),
			xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes(),
		)

		m.Step(idle)

		resp := m.Step(wishbone.ReadRequest(RegStatus))
		Expect(resp.DatR & StatusRXReady).NotTo(BeZero())
		Expect(resp.DatR & StatusTXReady).NotTo(BeZero())

		resp = m.Step(wishbone.ReadRequest(RegData))
		Expect(resp.DatR).To(Equal(uint32(0xEF4018)))

		resp = m.Step(wishbone.ReadRequest(RegStatus))
		Expect(resp.DatR & StatusRXReady).To(BeZero())
	})

	It("should stop polling while the RX FIFO is full", func() {
		xcvr.EXPECT().Poll().Return(uint32(1), true).Times(2)

		m.Step(idle)
		m.Step(idle)
		m.Step(idle)

		Expect(m.RXFIFO().Size()).To(Equal(2))
	})

	It("should answer a full TX FIFO with an error", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()
		xcvr.EXPECT().Submit(gomock.Any()).Return(false).AnyTimes()

		Expect(m.Step(wishbone.WriteRequest(RegData, 1)).Ack).To(BeTrue())
		Expect(m.Step(wishbone.WriteRequest(RegData, 2)).Ack).To(BeTrue())
		Expect(m.Step(wishbone.WriteRequest(RegData, 3)).Err).To(BeTrue())

		resp := m.Step(wishbone.ReadRequest(RegStatus))
		Expect(resp.DatR & StatusTXReady).To(BeZero())
	})

	It("should reject a phase format the engine cannot shift", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()

		bad := PHYConfig{Length: 12, Width: spi.Octal, Mask: 0xFF}
		m.Step(wishbone.WriteRequest(RegPHY, bad.Encode()))

		Expect(m.Step(wishbone.WriteRequest(RegData, 1)).Err).To(BeTrue())
	})

	It("should answer unknown registers with an error", func() {
		xcvr.EXPECT().Poll().Return(uint32(0), false).AnyTimes()

		Expect(m.Step(wishbone.ReadRequest(9)).Err).To(BeTrue())
		Expect(m.Step(wishbone.WriteRequest(RegStatus, 0)).Err).To(BeTrue())
	})
})
