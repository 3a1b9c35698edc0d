package gojabridge

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// ErrSchedulerStopped is returned by [Scheduler.Submit] when the
// underlying loop is no longer accepting jobs.
var ErrSchedulerStopped = errors.New("gojabridge: scheduler stopped")

// Scheduler marshals host-originated work onto the script thread.
// Submit may be called from any goroutine; the submitted function runs
// on the script thread, serialized with all other script execution.
// Submission order is preserved for submissions from a single
// goroutine.
type Scheduler interface {
	Submit(fn func()) error
}

type loopScheduler struct {
	loop *eventloop.EventLoop
}

// NewLoopScheduler adapts a [eventloop.EventLoop] into a [Scheduler].
// The loop must be the one driving the module's runtime.
func NewLoopScheduler(loop *eventloop.EventLoop) Scheduler {
	return &loopScheduler{loop: loop}
}

func (s *loopScheduler) Submit(fn func()) error {
	s.loop.RunOnLoop(func(*goja.Runtime) { fn() })
	return nil
}
