package hooking

import (
	"fmt"
	"log"
)

// A LogHook is a hook that is responsible for recording information from the
// simulation into a logger.
type LogHook struct {
	*log.Logger

	positions map[*HookPos]bool
}

// NewLogHook returns a LogHook that writes into logger. If positions are
// given, only those positions are logged.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	h := &LogHook{Logger: logger}

	if len(positions) > 0 {
		h.positions = make(map[*HookPos]bool, len(positions))
		for _, p := range positions {
			h.positions[p] = true
		}
	}

	return h
}

// Func prints the hook position, the name of the domain if it has one, and
// the item.
func (h *LogHook) Func(ctx HookCtx) {
	if h.positions != nil && !h.positions[ctx.Pos] {
		return
	}

	where := "-"
	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		where = named.Name()
	}

	if ctx.Detail != nil {
		h.Printf("%s, %s, %v, %v", ctx.Pos.Name, where, describe(ctx.Item), ctx.Detail)
		return
	}

	h.Printf("%s, %s, %v", ctx.Pos.Name, where, describe(ctx.Item))
}

func describe(item any) string {
	if s, ok := item.(fmt.Stringer); ok {
		return s.String()
	}

	return fmt.Sprintf("%+v", item)
}
