package hooking

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	count int
	last  HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.count++
	h.last = ctx
}

type namedDomain struct {
	*HookableBase
}

func (namedDomain) Name() string { return "Bridge.PHY" }

var _ = Describe("HookableBase", func() {
	var (
		domain namedDomain
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = namedDomain{HookableBase: NewHookableBase()}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke every registered hook", func() {
		h1 := &countingHook{}
		h2 := &countingHook{}
		domain.AcceptHook(h1)
		domain.AcceptHook(h2)

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: 42})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(h1.count).To(Equal(1))
		Expect(h2.last.Item).To(Equal(42))
	})

	It("should panic on duplicated hooks", func() {
		h := &countingHook{}
		domain.AcceptHook(h)

		Expect(func() { domain.AcceptHook(h) }).To(Panic())
	})

	It("should accept hook funcs", func() {
		called := 0
		domain.AcceptHook(HookFunc(func(HookCtx) { called++ }))
		domain.AcceptHook(HookFunc(func(HookCtx) { called++ }))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})

		Expect(called).To(Equal(2))
	})

	It("should log through a LogHook", func() {
		buf := new(bytes.Buffer)
		logger := log.New(buf, "", 0)
		other := &HookPos{Name: "Other"}
		domain.AcceptHook(NewLogHook(logger, pos))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: other, Item: 1})
		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: 7})

		Expect(buf.String()).To(Equal("Test, Bridge.PHY, 7\n"))
	})
})
