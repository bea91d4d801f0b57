package worker

import "sync"

// Signal is a one-shot stop flag that can be set any number of times.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unset Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set raises the signal. Subsequent calls are no-ops.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// IsSet reports whether Set has been called.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}
