// Package waittimer provides a countdown that runs while held and reloads when
// released.
package waittimer

// Timer counts down from its reload value while wait is held.
type Timer struct {
	reload uint32
	count  uint32
}

// New creates a timer that reports done after t held cycles.
func New(t uint32) *Timer {
	return &Timer{reload: t, count: t}
}

// Done tells if the count has reached zero.
func (t *Timer) Done() bool {
	return t.count == 0
}

// Remaining returns the current count.
func (t *Timer) Remaining() uint32 {
	return t.count
}

// Step advances one cycle.
func (t *Timer) Step(wait bool) {
	if !wait {
		t.count = t.reload
		return
	}

	if t.count > 0 {
		t.count--
	}
}
