package arbiter_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/spiflash/spi/arbiter"
)

var _ = Describe("RoundRobin", func() {
	var rr *arbiter.RoundRobin

	BeforeEach(func() {
		var err error
		rr, err = arbiter.New(4)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject invalid counts", func() {
		_, err := arbiter.New(0)
		Expect(err).To(MatchError(arbiter.ErrInvalidCount))

		_, err = arbiter.New(65)
		Expect(err).To(MatchError(arbiter.ErrInvalidCount))
	})

	It("should keep the grant while the grantee requests", func() {
		rr.Step(0b0001)
		Expect(rr.Grant()).To(Equal(0))

		rr.Step(0b1111)
		Expect(rr.Grant()).To(Equal(0))
		Expect(rr.Valid()).To(BeTrue())
	})

	It("should move to the next higher active requester", func() {
		rr.Step(0b1010)
		Expect(rr.Grant()).To(Equal(1))

		rr.Step(0b1001)
		Expect(rr.Grant()).To(Equal(3))
	})

	It("should wrap to the lowest active requester", func() {
		rr.Step(0b1000)
		Expect(rr.Grant()).To(Equal(3))

		rr.Step(0b0110)
		Expect(rr.Grant()).To(Equal(1))
	})

	It("should hold the grant when nothing requests", func() {
		rr.Step(0b0100)
		rr.Step(0)

		Expect(rr.Grant()).To(Equal(2))
		Expect(rr.Valid()).To(BeFalse())
	})

	It("should ignore bits beyond the requester count", func() {
		rr.Step(0b1_0000)

		Expect(rr.Valid()).To(BeFalse())
		Expect(rr.Grant()).To(Equal(0))
	})

	It("should handle the highest index of a full-width arbiter", func() {
		wide, err := arbiter.New(64)
		Expect(err).NotTo(HaveOccurred())

		wide.Step(uint64(1) << 63)
		Expect(wide.Grant()).To(Equal(63))

		wide.Step(0b100)
		Expect(wide.Grant()).To(Equal(2))
	})

	It("should be fair over every non-empty subset", func() {
		for round := 0; round < 3; round++ {
			for requests := uint64(1); requests < 16; requests++ {
				prev := rr.Grant()
				prevActive := requests&(1<<prev) != 0

				rr.Step(requests)

				Expect(rr.Valid()).To(BeTrue())
				g := rr.Grant()
				Expect(requests&(1<<g)).NotTo(BeZero(),
					"grant %d not active in %04b", g, requests)

				if prevActive {
					Expect(g).To(Equal(prev))
					continue
				}

				if g < prev {
					// Wrapping is only allowed when nothing above prev is
					// waiting.
					Expect(requests >> (prev + 1)).To(BeZero())
				} else {
					for i := prev + 1; i < g; i++ {
						Expect(requests&(1<<i)).To(BeZero(),
							"skipped requester %d", i)
					}
				}
			}
		}
	})
})
