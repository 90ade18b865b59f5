// Package clkgen derives the serial clock and its sample/update strobes from
// the host clock.
package clkgen

import (
	"errors"
	"fmt"
)

// MaxDivisor is the largest supported divisor.
const MaxDivisor = 255

// ErrDivisorOutOfRange is returned for a divisor above MaxDivisor.
var ErrDivisorOutOfRange = errors.New("clkgen: divisor out of range")

// Edges are the single-cycle strobes produced in one host cycle.
type Edges struct {
	// Sample marks the cycle in which captured input is valid, two host
	// cycles after the rising edge.
	Sample bool

	// Update marks the falling edge, when output is shifted.
	Update bool
}

// State is the register content of the generator.
type State struct {
	Count       uint32
	Clk         bool
	PosedgeReg  bool
	PosedgeReg2 bool
}

// Generator divides the host clock. One serial period spans
// 2*(divisor+1) host cycles.
type Generator struct {
	divisor uint32
	state   State
}

// New creates a generator with the given divisor.
func New(divisor uint32) (*Generator, error) {
	if divisor > MaxDivisor {
		return nil, fmt.Errorf("%w: %d > %d",
			ErrDivisorOutOfRange, divisor, MaxDivisor)
	}

	return &Generator{divisor: divisor}, nil
}

// Divisor returns the configured divisor.
func (g *Generator) Divisor() uint32 {
	return g.divisor
}

// Clk returns the registered serial clock level.
func (g *Generator) Clk() bool {
	return g.state.Clk
}

// State returns a copy of the registers.
func (g *Generator) State() State {
	return g.state
}

// Step advances one host cycle. The returned strobes are the ones valid
// during this cycle, computed before the registers update.
func (g *Generator) Step(enable bool) Edges {
	s := g.state
	atDivisor := s.Count == g.divisor

	posedge := enable && !s.Clk && atDivisor
	negedge := enable && s.Clk && atDivisor

	edges := Edges{
		Sample: s.PosedgeReg2,
		Update: negedge,
	}

	next := s
	next.PosedgeReg = posedge
	next.PosedgeReg2 = s.PosedgeReg

	switch {
	case !enable:
		next.Count = 0
		next.Clk = false
	case s.Count < g.divisor:
		next.Count = s.Count + 1
	default:
		next.Count = 0
		next.Clk = !s.Clk
	}

	g.state = next

	return edges
}
