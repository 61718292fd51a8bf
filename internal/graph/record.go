package graph

import "fmt"

// RecordStack keeps the per-timestep records of a stateful node.
//
// Forward pushes one record per call; Backward pops it. Each record is keyed to
// the Call that pushed it, so a Backward that does not match the most recent
// unconsumed Forward fails instead of replaying the wrong timestep.
//
// A RecordStack serves one sequence at a time and is not safe for concurrent use.
type RecordStack[T any] struct {
	entries []stackEntry[T]
}

type stackEntry[T any] struct {
	call *Call
	rec  T
}

// Push stores rec as the record of call.
func (s *RecordStack[T]) Push(call *Call, rec T) {
	s.entries = append(s.entries, stackEntry[T]{call: call, rec: rec})
}

// Pop removes and returns the record of call, which must be on top.
func (s *RecordStack[T]) Pop(call *Call) (T, error) {
	var zero T
	if len(s.entries) == 0 {
		return zero, fmt.Errorf("record stack empty: %w", ErrNoForward)
	}
	top := s.entries[len(s.entries)-1]
	if top.call != call {
		return zero, fmt.Errorf("record stack depth %d: %w", len(s.entries), ErrOutOfOrder)
	}
	s.entries[len(s.entries)-1] = stackEntry[T]{}
	s.entries = s.entries[:len(s.entries)-1]
	return top.rec, nil
}

// Peek returns the most recent record without removing it.
func (s *RecordStack[T]) Peek() (T, bool) {
	if len(s.entries) == 0 {
		var zero T
		return zero, false
	}
	return s.entries[len(s.entries)-1].rec, true
}

// Len returns the number of records awaiting backward.
func (s *RecordStack[T]) Len() int {
	return len(s.entries)
}

// Reset discards every record.
func (s *RecordStack[T]) Reset() {
	clear(s.entries)
	s.entries = s.entries[:0]
}
