// Package worker provides a single-goroutine serialized executor. The storage
// worker and the default synchronous-context scheduler are both instances of
// it: tasks submitted from one goroutine run in submission order, tasks from
// different goroutines interleave but never overlap.
package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("worker: closed")

type Serial struct {
	tasks     chan func()
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewSerial starts a serialized executor with the given queue depth. A full
// queue blocks submitters, which is the only back-pressure mechanism.
func NewSerial(queueSize int) *Serial {
	s := &Serial{
		tasks:   make(chan func(), queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Serial) loop() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			// Drain whatever was accepted before shutdown.
			for {
				select {
				case fn := <-s.tasks:
					fn()
				default:
					close(s.stopped)
					return
				}
			}
		}
	}
}

// Submit enqueues fn and blocks until it has run. Once accepted, fn runs
// unless the worker was already stopping; before acceptance, ctx cancellation
// aborts the wait.
func (s *Serial) Submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case s.tasks <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-s.stopped:
		// The drain may still have picked the task up.
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Run submits fn and returns its error, satisfying the SyncScheduler port.
func (s *Serial) Run(ctx context.Context, fn func() error) error {
	var err error
	if serr := s.Submit(ctx, func() { err = fn() }); serr != nil {
		return serr
	}
	return err
}

// Close stops the worker after draining already-accepted tasks. It is safe to
// call more than once.
func (s *Serial) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}
