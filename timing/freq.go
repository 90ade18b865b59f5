// Package timing provides the cycle-resolution discrete event engine that
// drives every clocked component in the simulator.
package timing

import (
	"errors"
	"fmt"
	"math"
)

// FreqInHz defines frequency in the unit of Hertz (cycles per second).
type FreqInHz uint64

// Frequency units.
const (
	Hz  = FreqInHz(1)
	KHz = FreqInHz(1000 * Hz)
	MHz = FreqInHz(1000 * KHz)
	GHz = FreqInHz(1000 * MHz)
)

// VTimeInCycle is the canonical time quantum of the engine: one cycle of the
// fastest (host) clock.
type VTimeInCycle uint64

// VTimeInSec is a wall-clock duration in the simulated world.
type VTimeInSec float64

var (
	// ErrZeroFrequency indicates that a clock with zero frequency was
	// requested.
	ErrZeroFrequency = errors.New("timing: frequency must be greater than zero")

	// ErrFrequencyNotDivisible indicates that a clock domain cannot be
	// expressed as an integer number of host cycles.
	ErrFrequencyNotDivisible = errors.New(
		"timing: domain frequency must divide the host frequency")
)

const maxCycleValue = VTimeInCycle(math.MaxUint64)

// Period returns the duration of one cycle.
func (f FreqInHz) Period() VTimeInSec {
	if f == 0 {
		panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / float64(f))
}

// CyclesToSeconds converts a number of cycles of this clock to seconds.
func (f FreqInHz) CyclesToSeconds(cycles VTimeInCycle) VTimeInSec {
	if f == 0 {
		return 0
	}

	return VTimeInSec(float64(cycles) / float64(f))
}

// String prints the frequency with the largest fitting unit.
func (f FreqInHz) String() string {
	switch {
	case f >= GHz && f%GHz == 0:
		return fmt.Sprintf("%dGHz", f/GHz)
	case f >= MHz && f%MHz == 0:
		return fmt.Sprintf("%dMHz", f/MHz)
	case f >= KHz && f%KHz == 0:
		return fmt.Sprintf("%dkHz", f/KHz)
	default:
		return fmt.Sprintf("%dHz", uint64(f))
	}
}

// FreqDomain aligns host cycles to the ticks of a slower clock whose
// frequency divides the host frequency.
type FreqDomain struct {
	freq   FreqInHz
	stride VTimeInCycle
}

// NewFreqDomain creates a domain running at freq inside an engine whose cycle
// is one period of host.
func NewFreqDomain(freq, host FreqInHz) (FreqDomain, error) {
	if freq == 0 || host == 0 {
		return FreqDomain{}, ErrZeroFrequency
	}

	if host%freq != 0 {
		return FreqDomain{}, fmt.Errorf("%w: %s in %s",
			ErrFrequencyNotDivisible, freq, host)
	}

	return FreqDomain{freq: freq, stride: VTimeInCycle(host / freq)}, nil
}

// HostDomain is the domain of the host clock itself.
func HostDomain(host FreqInHz) FreqDomain {
	return FreqDomain{freq: host, stride: 1}
}

// FrequencyHz returns the frequency of the domain.
func (d FreqDomain) FrequencyHz() FreqInHz {
	return d.freq
}

// Stride returns the number of host cycles per domain tick.
func (d FreqDomain) Stride() VTimeInCycle {
	return d.stride
}

// ThisTick returns the earliest domain tick that is not earlier than now.
func (d FreqDomain) ThisTick(now VTimeInCycle) VTimeInCycle {
	if d.stride <= 1 {
		return now
	}

	rem := now % d.stride
	if rem == 0 {
		return now
	}

	tick := now + (d.stride - rem)
	if tick < now {
		return maxCycleValue
	}

	return tick
}

// NextTick returns the first domain tick strictly after now.
func (d FreqDomain) NextTick(now VTimeInCycle) VTimeInCycle {
	stride := d.stride
	if stride == 0 {
		stride = 1
	}

	tick := d.ThisTick(now)
	if tick == now {
		tick = now + stride
		if tick < now {
			return maxCycleValue
		}
	}

	return tick
}

// NTicksLater returns the time n domain ticks after now.
func (d FreqDomain) NTicksLater(now VTimeInCycle, n uint64) VTimeInCycle {
	stride := d.stride
	if stride == 0 {
		stride = 1
	}

	if n == 0 {
		return d.ThisTick(now)
	}

	if n > uint64(maxCycleValue/stride) {
		return maxCycleValue
	}

	offset := VTimeInCycle(n) * stride
	future := now + offset
	if future < now {
		return maxCycleValue
	}

	return d.ThisTick(future)
}
