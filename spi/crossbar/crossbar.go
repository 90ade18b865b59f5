// Package crossbar shares one shift engine among several controllers.
package crossbar

import (
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/arbiter"
)

// Target is the shared engine.
type Target interface {
	spi.Transceiver

	// Busy tells if a phase is still in progress.
	Busy() bool
}

// Crossbar grants the target to one user at a time. A user requests the
// target by raising its chip select. The grant never moves while the target
// is busy.
type Crossbar struct {
	target Target
	arb    *arbiter.RoundRobin
	ports  []*Port
}

// Port is the view of the target given to one user.
type Port struct {
	xbar  *Crossbar
	index int
	cs    bool
}

var _ spi.Transceiver = (*Port)(nil)

// New creates a crossbar with n user ports.
func New(target Target, n int) (*Crossbar, error) {
	arb, err := arbiter.New(n)
	if err != nil {
		return nil, err
	}

	x := &Crossbar{target: target, arb: arb}
	for i := 0; i < n; i++ {
		x.ports = append(x.ports, &Port{xbar: x, index: i})
	}

	return x, nil
}

// Port returns the user port i.
func (x *Crossbar) Port(i int) *Port {
	return x.ports[i]
}

// Grant returns the index of the user that owns the target.
func (x *Crossbar) Grant() int {
	return x.arb.Grant()
}

// Step forwards the granted user's chip select and updates the grant for the
// next cycle. It runs after every user has stepped.
func (x *Crossbar) Step() {
	var requests uint64

	for i, p := range x.ports {
		if p.cs {
			requests |= uint64(1) << i
		}
	}

	x.target.SetChipSelect(x.ports[x.arb.Grant()].cs)

	if !x.target.Busy() {
		x.arb.Step(requests)
	}
}

// SetChipSelect records the user's request for this cycle.
func (p *Port) SetChipSelect(enable bool) {
	p.cs = enable
}

// Submit forwards the descriptor if the user owns the target.
func (p *Port) Submit(d spi.Descriptor) bool {
	if !p.granted() {
		return false
	}

	return p.xbar.target.Submit(d)
}

// Poll forwards to the target if the user owns it.
func (p *Port) Poll() (uint32, bool) {
	if !p.granted() {
		return 0, false
	}

	return p.xbar.target.Poll()
}

func (p *Port) granted() bool {
	return p.xbar.arb.Grant() == p.index
}
