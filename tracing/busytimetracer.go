package tracing

import (
	"sync"

	"github.com/sarchlab/spiflash/timing"
)

// BusyTimeTracer measures how long a domain has at least one task of a kind
// in flight. Overlapping tasks are counted once.
type BusyTimeTracer struct {
	timeTeller timing.TimeTeller
	filter     TaskFilter

	lock      sync.Mutex
	inflight  map[string]bool
	busySince timing.VTimeInCycle
	busyTime  timing.VTimeInCycle
}

// NewBusyTimeTracer creates a new BusyTimeTracer. A nil filter accepts every
// task.
func NewBusyTimeTracer(
	timeTeller timing.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]bool),
	}
}

// BusyTime returns the busy time accumulated by finished busy periods.
func (t *BusyTimeTracer) BusyTime() timing.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busyTime
}

// TerminateAllTasks ends every in-flight task at now.
func (t *BusyTimeTracer) TerminateAllTasks(now timing.VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.inflight) > 0 {
		t.busyTime += now - t.busySince
	}

	t.inflight = make(map[string]bool)
}

// StartTask opens a busy period if none is open.
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.inflight) == 0 {
		t.busySince = now
	}

	t.inflight[task.ID] = true
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {}

// EndTask closes the busy period when the last task ends.
func (t *BusyTimeTracer) EndTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.inflight[task.ID] {
		return
	}

	delete(t.inflight, task.ID)

	if len(t.inflight) == 0 {
		t.busyTime += now - t.busySince
	}
}
