package timing

import "github.com/sarchlab/spiflash/hooking"

// Hook positions emitted by the engines.
var (
	HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}
	HookPosAfterEvent  = &hooking.HookPos{Name: "AfterEvent"}
)

// A Handler processes the events scheduled for it.
type Handler interface {
	Handle(e Event) error
}

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the cycle at which the event happens.
	Time() VTimeInCycle

	// Handler returns the handler that handles the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary events
	// are handled after all same-time primary events are handled.
	IsSecondary() bool
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	ID        string
	time      VTimeInCycle
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInCycle, handler Handler) *EventBase {
	return &EventBase{
		time:    t,
		handler: handler,
	}
}

// Time returns the cycle that the event is going to happen.
func (e EventBase) Time() VTimeInCycle {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine keeps the discrete event simulation running.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run processes all the events until the simulation finishes.
	Run() error

	// Pause stops dispatching events until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()
}
