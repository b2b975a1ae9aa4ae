// Package history provides a linear undo/redo stack. Pushing after an undo
// discards the redo tail; there is no branching.
package history

import (
	"errors"
	"fmt"
)

var ErrInvariantViolation = errors.New("history invariant violated")

// InvariantError reports a broken stack. It is raised with panic: reaching it
// means the bookkeeping itself is wrong, not that a caller passed bad input.
type InvariantError struct {
	Len   int
	Index int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: len=%d index=%d", ErrInvariantViolation, e.Len, e.Index)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

type Stack[T any] struct {
	items []T
	index int
}

func New[T any](base T) *Stack[T] {
	return &Stack[T]{items: []T{base}}
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items[:s.index+1], v)
	s.index = len(s.items) - 1
	s.check()
}

func (s *Stack[T]) Undo() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	s.check()
	return true
}

func (s *Stack[T]) Redo() bool {
	if s.index >= len(s.items)-1 {
		return false
	}
	s.index++
	s.check()
	return true
}

// Reset drops every entry and starts over from base.
func (s *Stack[T]) Reset(base T) {
	s.items = []T{base}
	s.index = 0
	s.check()
}

func (s *Stack[T]) Current() T {
	s.check()
	return s.items[s.index]
}

func (s *Stack[T]) Base() T {
	s.check()
	return s.items[0]
}

func (s *Stack[T]) Index() int { return s.index }
func (s *Stack[T]) Len() int   { return len(s.items) }

func (s *Stack[T]) CanUndo() bool { return s.index > 0 }
func (s *Stack[T]) CanRedo() bool { return s.index < len(s.items)-1 }

// Items returns a copy of the entries in order.
func (s *Stack[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy of the stack. Entries are copied by value.
func (s *Stack[T]) Clone() *Stack[T] {
	return &Stack[T]{items: s.Items(), index: s.index}
}

// Check verifies the non-empty and index-bounds invariants, panicking with an
// *InvariantError when either is broken.
func (s *Stack[T]) Check() {
	s.check()
}

func (s *Stack[T]) check() {
	if len(s.items) == 0 || s.index < 0 || s.index >= len(s.items) {
		panic(&InvariantError{Len: len(s.items), Index: s.index})
	}
}
