package timing

import (
	"sync"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/idgen"
)

// TickEvent is a generic event that components use to update their state.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent.
func MakeTickEvent(handler Handler, t VTimeInCycle) TickEvent {
	evt := TickEvent{}
	evt.ID = idgen.Get().Generate()
	evt.handler = handler
	evt.time = t

	return evt
}

// A Ticker is an object that updates states with ticks. Tick returns true if
// the object made progress and wants to be ticked again.
type Ticker interface {
	Tick() bool
}

// TickScheduler schedules tick events aligned to a frequency domain.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Domain    FreqDomain
	Engine    Engine
	secondary bool

	scheduled    bool
	nextTickTime VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	domain FreqDomain,
) *TickScheduler {
	return &TickScheduler{
		handler: handler,
		Engine:  engine,
		Domain:  domain,
	}
}

// NewSecondaryTickScheduler creates a scheduler that always schedules
// secondary tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine Engine,
	domain FreqDomain,
) *TickScheduler {
	t := NewTickScheduler(handler, engine, domain)
	t.secondary = true

	return t
}

// TickNow schedules a tick event at the current tick.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.scheduleAt(t.Domain.ThisTick(t.CurrentTime()))
}

// TickLater schedules a tick event at the tick after now.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.scheduleAt(t.Domain.NextTick(t.CurrentTime()))
}

func (t *TickScheduler) scheduleAt(at VTimeInCycle) {
	if t.scheduled && t.nextTickTime >= at {
		return
	}

	t.scheduled = true
	t.nextTickTime = at

	tick := MakeTickEvent(t.handler, at)
	tick.secondary = t.secondary
	t.Engine.Schedule(tick)
}

// CurrentTime returns the current time of the engine.
func (t *TickScheduler) CurrentTime() VTimeInCycle {
	return t.Engine.CurrentTime()
}

// TickingComponent is a component that updates state from cycle to cycle. A
// programmer only needs to provide the Tick function.
type TickingComponent struct {
	*comm.ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	engine Engine,
	domain FreqDomain,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.TickScheduler = NewTickScheduler(tc, engine, domain)
	tc.ComponentBase = comm.NewComponentBase(name)
	tc.ticker = ticker

	return tc
}

// NotifyPortFree triggers the component to start ticking again.
func (c *TickingComponent) NotifyPortFree(_ comm.Port) {
	c.TickLater()
}

// NotifyRecv triggers the component to start ticking again.
func (c *TickingComponent) NotifyRecv(_ comm.Port) {
	c.TickLater()
}

// Handle runs one tick of the component.
func (c *TickingComponent) Handle(_ Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
