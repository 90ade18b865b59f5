package timing

import (
	"log"
	"reflect"

	"github.com/sarchlab/spiflash/hooking"
)

// EventLogger is a hook that prints every event the engine handles.
type EventLogger struct {
	*log.Logger
}

// NewEventLogger returns a new EventLogger which writes to logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	h.Printf("%d, %s", evt.Time(), reflect.TypeOf(evt))
}
