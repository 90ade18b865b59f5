// Package queueing provides the bounded FIFOs used inside components.
package queueing

import (
	"log"

	"github.com/sarchlab/spiflash/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// Buffer is a bounded FIFO queue.
type Buffer[T any] struct {
	*hooking.HookableBase

	name     string
	capacity int
	elements []T
}

// NewBuffer creates a buffer that holds at most capacity elements.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	if capacity <= 0 {
		log.Panicf("buffer %s: capacity must be positive", name)
	}

	return &Buffer[T]{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		capacity:     capacity,
		elements:     make([]T, 0, capacity),
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// CanPush tells if the buffer has room for one more element.
func (b *Buffer[T]) CanPush() bool {
	return len(b.elements) < b.capacity
}

// Push appends an element. It panics when the buffer is full.
func (b *Buffer[T]) Push(e T) {
	if len(b.elements) >= b.capacity {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

// Pop removes the oldest element. ok is false when the buffer is empty.
func (b *Buffer[T]) Pop() (e T, ok bool) {
	if len(b.elements) == 0 {
		return e, false
	}

	e = b.elements[0]
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e, true
}

// Peek returns the oldest element without removing it.
func (b *Buffer[T]) Peek() (e T, ok bool) {
	if len(b.elements) == 0 {
		return e, false
	}

	return b.elements[0], true
}

// Capacity returns the maximum number of elements.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the current number of elements.
func (b *Buffer[T]) Size() int {
	return len(b.elements)
}

// Clear removes all elements.
func (b *Buffer[T]) Clear() {
	b.elements = b.elements[:0]
}
