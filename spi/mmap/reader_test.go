package mmap

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/wishbone"
)

var _ = Describe("Spec", func() {
	It("should accept the defaults", func() {
		Expect(DefaultSpec().Validate()).To(Succeed())
	})

	It("should reject an invalid width", func() {
		spec := DefaultSpec()
		spec.Width = 3
		Expect(spec.Validate()).To(MatchError(spi.ErrInvalidWidth))
	})

	It("should reject dummy bits that do not split into groups", func() {
		spec := DefaultSpec()
		spec.Width = spi.Octal
		spec.DummyBits = 12
		Expect(spec.Validate()).To(MatchError(spi.ErrInvalidLength))
	})

	It("should reject a zero hold timeout", func() {
		spec := DefaultSpec()
		spec.HoldTimeout = 0
		Expect(spec.Validate()).To(MatchError(ErrZeroHoldTimeout))
	})

	It("should reject a size that is not a power of two", func() {
		spec := DefaultSpec()
		spec.SizeBytes = 3000
		Expect(spec.Validate()).To(MatchError(flash.ErrInvalidSize))
	})

	It("should parse byte orders", func() {
		o, err := ParseByteOrder("big")
		Expect(err).NotTo(HaveOccurred())
		Expect(o).To(Equal(BigEndian))

		_, err = ParseByteOrder("middle")
		Expect(err).To(MatchError(ErrInvalidByteOrder))
	})
})

var _ = Describe("Reader", func() {
	var (
		mockCtrl *gomock.Controller
		xcvr     *MockTransceiver
		spec     Spec
		r        *Reader
	)

	read := func(adr uint32) wishbone.Request {
		return wishbone.ReadRequest(adr)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		xcvr = NewMockTransceiver(mockCtrl)
		spec = DefaultSpec()
		spec.HoldTimeout = 4

		var err error
		r, err = New(spec, xcvr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	fullSequence := func(adr uint32, word uint32) wishbone.Response {
		xcvr.EXPECT().SetChipSelect(false)
		r.Step(read(adr))
		Expect(r.State().FSM).To(Equal(SendCommand))

		gomock.InOrder(
			xcvr.EXPECT().Submit(spi.Descriptor{
				Payload: 0xEB, Length: 8, Width: spi.Single, Mask: 0x01,
			}).Return(true),
			xcvr.EXPECT().Poll().Return(uint32(0), true),
			xcvr.EXPECT().Submit(spi.Descriptor{
				Payload: adr << 2, Length: 24, Width: spi.Quad, Mask: 0x0F,
			}).Return(true),
			xcvr.EXPECT().Poll().Return(uint32(0), true),
			xcvr.EXPECT().Submit(spi.Descriptor{
				Payload: 0xFF0000, Length: 24, Width: spi.Quad, Mask: 0x0F,
			}).Return(true),
			xcvr.EXPECT().Poll().Return(uint32(0), true),
			xcvr.EXPECT().Submit(spi.Descriptor{
				Length: 32, Width: spi.Quad, Last: true,
			}).Return(true),
			xcvr.EXPECT().Poll().Return(word, true),
		)
		xcvr.EXPECT().SetChipSelect(true).Times(8)

		var resp wishbone.Response
		for i := 0; i < 8; i++ {
			resp = r.Step(read(adr))
		}

		return resp
	}

	It("should issue command, address, dummy and data phases", func() {
		resp := fullSequence(0x1234, 0x11223344)

		Expect(resp.Ack).To(BeTrue())
		Expect(resp.DatR).To(Equal(uint32(0x44332211)))

		s := r.State()
		Expect(s.FSM).To(Equal(Idle))
		Expect(s.ChipSelectActive).To(BeTrue())
		Expect(s.BurstAddress).To(Equal(uint32(0x1235)))
	})

	It("should continue a burst at the next word", func() {
		fullSequence(0x1234, 0)

		xcvr.EXPECT().SetChipSelect(true).Times(3)
		r.Step(read(0x1235))
		Expect(r.State().FSM).To(Equal(RequestData))

		gomock.InOrder(
			xcvr.EXPECT().Submit(spi.Descriptor{
				Length: 32, Width: spi.Quad, Last: true,
			}).Return(true),
			xcvr.EXPECT().Poll().Return(uint32(0xAABBCCDD), true),
		)

		r.Step(read(0x1235))
		resp := r.Step(read(0x1235))

		Expect(resp.Ack).To(BeTrue())
		Expect(resp.DatR).To(Equal(uint32(0xDDCCBBAA)))
		Expect(r.Stats().Continuations).To(Equal(uint64(1)))
		Expect(r.Stats().Reads).To(Equal(uint64(2)))
	})

	It("should ignore the cycle type qualifiers", func() {
		fullSequence(0x1234, 0)

		req := read(0x1235)
		req.CTI = wishbone.CTIEndOfBurst
		req.BTE = wishbone.BTEWrap4
		req.Sel = 0x1

		xcvr.EXPECT().SetChipSelect(true)
		r.Step(req)

		Expect(r.State().FSM).To(Equal(RequestData))
		Expect(r.State().ChipSelectActive).To(BeTrue())
		Expect(r.Stats().Continuations).To(Equal(uint64(1)))
	})

	It("should start over for a non-sequential address", func() {
		fullSequence(0x1234, 0)
		fullSequence(0x2000, 0)

		Expect(r.Stats().Continuations).To(BeZero())
	})

	It("should close the burst after the hold timeout", func() {
		fullSequence(0x1234, 0)

		xcvr.EXPECT().SetChipSelect(true).Times(5)
		for i := 0; i < 4; i++ {
			r.Step(wishbone.Request{})
		}
		Expect(r.State().ChipSelectActive).To(BeTrue())

		r.Step(wishbone.Request{})
		Expect(r.State().ChipSelectActive).To(BeFalse())
		Expect(r.Stats().BurstsClosed).To(Equal(uint64(1)))

		fullSequence(0x1235, 0)
		Expect(r.Stats().Continuations).To(BeZero())
	})

	It("should stall while the engine refuses the command", func() {
		xcvr.EXPECT().SetChipSelect(false)
		r.Step(read(0x10))

		xcvr.EXPECT().SetChipSelect(true).Times(10)
		xcvr.EXPECT().Submit(gomock.Any()).Return(false).Times(10)
		for i := 0; i < 10; i++ {
			resp := r.Step(read(0x10))
			Expect(resp.Done()).To(BeFalse())
		}

		Expect(r.State().FSM).To(Equal(SendCommand))
	})

	It("should answer writes with a bus error", func() {
		xcvr.EXPECT().SetChipSelect(false)

		resp := r.Step(wishbone.WriteRequest(0x10, 0xDEADBEEF))

		Expect(resp.Err).To(BeTrue())
		Expect(resp.Ack).To(BeFalse())
		Expect(r.State().FSM).To(Equal(Idle))
		Expect(r.Stats().BusErrors).To(Equal(uint64(1)))
	})

	It("should answer reads beyond the window with a bus error", func() {
		xcvr.EXPECT().SetChipSelect(false)

		resp := r.Step(read(uint32(spec.SizeBytes / 4)))

		Expect(resp.Err).To(BeTrue())
	})

	It("should keep the serial byte order for big-endian buses", func() {
		spec.ByteOrder = BigEndian
		r, _ = New(spec, xcvr)

		resp := fullSequence(0x1, 0x11223344)

		Expect(resp.DatR).To(Equal(uint32(0x11223344)))
	})

	It("should skip the dummy phase when none is configured", func() {
		spec.DummyBits = 0
		r, _ = New(spec, xcvr)

		xcvr.EXPECT().SetChipSelect(false)
		r.Step(read(0x1))

		xcvr.EXPECT().SetChipSelect(true).AnyTimes()
		xcvr.EXPECT().Submit(gomock.Any()).Return(true).Times(3)
		xcvr.EXPECT().Poll().Return(uint32(0), true).Times(3)

		states := []FSMState{}
		for i := 0; i < 6; i++ {
			r.Step(read(0x1))
			states = append(states, r.State().FSM)
		}

		Expect(states).To(Equal([]FSMState{
			CommandReturn, SendAddress, AddressReturn,
			RequestData, ReceiveData, Idle,
		}))
	})
})
