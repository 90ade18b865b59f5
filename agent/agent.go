// Package agent provides a traffic generator that reads from a flash bridge
// and checks every returned byte against a golden image.
package agent

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/mem"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/timing"
	"github.com/sarchlab/spiflash/tracing"
)

// Pattern selects how the agent walks the address space.
type Pattern int

// Access patterns.
const (
	Sequential Pattern = iota
	Strided
	Random
)

// ErrInvalidPattern is returned for an unknown pattern name.
var ErrInvalidPattern = errors.New("agent: invalid access pattern")

func (p Pattern) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Strided:
		return "strided"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern accepts the names printed by Pattern.String.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "sequential", "seq":
		return Sequential, nil
	case "strided", "stride":
		return Strided, nil
	case "random", "rand":
		return Random, nil
	default:
		return Sequential, fmt.Errorf("%w: %q", ErrInvalidPattern, s)
	}
}

// Mismatch records a read whose data differs from the golden image.
type Mismatch struct {
	Address uint64
	Want    []byte
	Got     []byte
}

// Stats summarizes the traffic the agent has generated.
type Stats struct {
	Issued       uint64
	Completed    uint64
	Errors       uint64
	BytesRead    uint64
	TotalLatency timing.VTimeInCycle
	Mismatches   []Mismatch
}

// AverageLatency returns the mean request latency in cycles.
func (s Stats) AverageLatency() float64 {
	if s.Completed == 0 {
		return 0
	}

	return float64(s.TotalLatency) / float64(s.Completed)
}

type pendingRead struct {
	req      *mem.ReadReq
	issuedAt timing.VTimeInCycle
}

// An Agent is a ticking component that issues reads to LowModule.
type Agent struct {
	*timing.TickingComponent

	LowModule comm.Port

	pattern     Pattern
	accessSize  uint64
	stride      uint64
	start       uint64
	maxAddress  uint64
	maxInflight int
	readLeft    int
	golden      flash.Image
	rng         *rand.Rand

	nextAddr uint64
	pending  map[string]pendingRead
	stats    Stats

	memPort comm.Port
}

// Stats returns a copy of the traffic counters.
func (a *Agent) Stats() Stats {
	s := a.stats
	s.Mismatches = append([]Mismatch(nil), a.stats.Mismatches...)

	return s
}

// ReadLeft returns the number of reads not yet issued.
func (a *Agent) ReadLeft() int {
	return a.readLeft
}

// Pending returns the number of reads waiting for a response.
func (a *Agent) Pending() int {
	return len(a.pending)
}

// Done tells if every read has been issued and answered.
func (a *Agent) Done() bool {
	return a.readLeft == 0 && len(a.pending) == 0
}

// Tick processes responses and issues new reads.
func (a *Agent) Tick() bool {
	madeProgress := a.processRsp()

	if a.readLeft > 0 && len(a.pending) < a.maxInflight {
		madeProgress = a.doRead() || madeProgress
	}

	return madeProgress
}

func (a *Agent) processRsp() bool {
	msg := a.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(comm.Rsp)
	if !ok {
		log.Panicf("agent: cannot process message of type %s",
			reflect.TypeOf(msg))
	}

	p, ok := a.pending[rsp.RspTo()]
	if !ok {
		log.Panicf("agent: response to unknown request %s", rsp.RspTo())
	}

	delete(a.pending, rsp.RspTo())
	tracing.TraceReqFinalize(p.req, a)

	a.stats.Completed++
	a.stats.TotalLatency += a.CurrentTime() - p.issuedAt

	switch rsp := rsp.(type) {
	case *mem.DataReadyRsp:
		a.check(p.req, rsp.Data)
	case *mem.ErrorRsp:
		a.stats.Errors++
	default:
		log.Panicf("agent: cannot process message of type %s",
			reflect.TypeOf(rsp))
	}

	return true
}

func (a *Agent) check(req *mem.ReadReq, data []byte) {
	a.stats.BytesRead += uint64(len(data))

	want := make([]byte, req.AccessByteSize)
	for i := range want {
		want[i] = a.golden.Byte(uint32(req.Address) + uint32(i))
	}

	if !bytes.Equal(want, data) {
		a.stats.Mismatches = append(a.stats.Mismatches, Mismatch{
			Address: req.Address,
			Want:    want,
			Got:     append([]byte(nil), data...),
		})
	}
}

func (a *Agent) doRead() bool {
	addr := a.peekAddress()

	req := mem.ReadReqBuilder{}.
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule.AsRemote()).
		WithAddress(addr).
		WithByteSize(a.accessSize).
		Build()

	if err := a.memPort.Send(req); err != nil {
		return false
	}

	tracing.TraceReqInitiate(req, a, "")

	a.pending[req.ID()] = pendingRead{req: req, issuedAt: a.CurrentTime()}
	a.readLeft--
	a.stats.Issued++
	a.advance()

	return true
}

// peekAddress returns the address of the next read. The read always fits in
// [0, maxAddress).
func (a *Agent) peekAddress() uint64 {
	addr := a.nextAddr
	if addr+a.accessSize > a.maxAddress {
		addr = a.maxAddress - a.accessSize
	}

	return addr
}

func (a *Agent) advance() {
	switch a.pattern {
	case Sequential:
		a.nextAddr = a.wrap(a.nextAddr + a.accessSize)
	case Strided:
		a.nextAddr = a.wrap(a.nextAddr + a.stride)
	case Random:
		slots := a.maxAddress / a.accessSize
		a.nextAddr = uint64(a.rng.Int63n(int64(slots))) * a.accessSize
	}
}

func (a *Agent) wrap(addr uint64) uint64 {
	if addr+a.accessSize > a.maxAddress {
		return a.start % a.maxAddress
	}

	return addr
}
