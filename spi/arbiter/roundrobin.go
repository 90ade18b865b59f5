// Package arbiter grants a shared resource to one of several requesters.
package arbiter

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxRequesters is the largest number of requesters a RoundRobin can serve.
const MaxRequesters = 64

// ErrInvalidCount is returned for a requester count outside
// [1, MaxRequesters].
var ErrInvalidCount = errors.New("arbiter: invalid requester count")

// RoundRobin keeps granting the current requester until it drops its request,
// then moves to the next active requester with a greater index, wrapping to
// the lowest one.
type RoundRobin struct {
	count int
	grant int
	valid bool
}

// New creates a RoundRobin for count requesters. Requester 0 holds the
// initial grant.
func New(count int) (*RoundRobin, error) {
	if count < 1 || count > MaxRequesters {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	return &RoundRobin{count: count}, nil
}

// Count returns the number of requesters.
func (a *RoundRobin) Count() int {
	return a.count
}

// Grant returns the index of the favored requester.
func (a *RoundRobin) Grant() int {
	return a.grant
}

// Valid tells if any request was active in the last step.
func (a *RoundRobin) Valid() bool {
	return a.valid
}

// Step updates the grant from the request bitset. Bit i is requester i. Bits
// at or above Count are ignored.
func (a *RoundRobin) Step(requests uint64) {
	if a.count < MaxRequesters {
		requests &= (uint64(1) << a.count) - 1
	}

	a.valid = requests != 0

	if !a.valid || requests&(uint64(1)<<a.grant) != 0 {
		return
	}

	// 2<<63 overflows to zero, leaving nothing above the last requester.
	above := requests &^ ((uint64(2) << a.grant) - 1)

	if above != 0 {
		a.grant = bits.TrailingZeros64(above)
		return
	}

	a.grant = bits.TrailingZeros64(requests)
}
