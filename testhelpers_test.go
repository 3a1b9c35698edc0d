package gojabridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

// directScheduler runs submitted functions immediately on the calling
// goroutine. Suitable for single-goroutine tests: goja drains promise
// jobs synchronously when settlement happens outside script execution.
type directScheduler struct {
	stopped bool
}

func (s *directScheduler) Submit(fn func()) error {
	if s.stopped {
		return ErrSchedulerStopped
	}
	fn()
	return nil
}

// queueScheduler records submitted functions for explicit flushing, so
// tests can observe the state between settlement and completion.
type queueScheduler struct {
	queue []func()
}

func (s *queueScheduler) Submit(fn func()) error {
	s.queue = append(s.queue, fn)
	return nil
}

func (s *queueScheduler) flush() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

// capturedLog is one recorded log call.
type capturedLog struct {
	fields map[string]any
	msg    string
	level  logiface.Level
}

// testEvent implements [logiface.Event], recording fields.
type testEvent struct {
	logiface.UnimplementedEvent
	fields map[string]any
	level  logiface.Level
}

func (e *testEvent) Level() logiface.Level { return e.level }

func (e *testEvent) AddField(key string, val any) {
	e.fields[key] = val
}

type testEventFactory struct{}

func (f *testEventFactory) NewEvent(level logiface.Level) *testEvent {
	return &testEvent{level: level, fields: make(map[string]any)}
}

// logCapture collects log events for assertions. Safe for concurrent
// use: loop tests log from the loop goroutine.
type logCapture struct {
	mu      sync.Mutex
	entries []capturedLog
}

func (w *logCapture) Write(event *testEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg, _ := event.fields["msg"].(string)
	w.entries = append(w.entries, capturedLog{fields: event.fields, msg: msg, level: event.level})
	return nil
}

func (w *logCapture) all() []capturedLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]capturedLog(nil), w.entries...)
}

func (w *logCapture) containsMessage(msg string) bool {
	for _, e := range w.all() {
		if e.msg == msg {
			return true
		}
	}
	return false
}

func newTestLogger(w *logCapture) *logiface.Logger[logiface.Event] {
	return logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](&testEventFactory{}),
		logiface.WithWriter[*testEvent](w),
	).Logger()
}

// bridgeTestEnv provides a runtime and module without an event loop.
// All settlement happens on the test goroutine, which keeps promise job
// processing deterministic.
type bridgeTestEnv struct {
	runtime *goja.Runtime
	module  *Module
	sched   *directScheduler
	logs    *logCapture
}

func newBridgeTestEnv(t *testing.T) *bridgeTestEnv {
	t.Helper()

	runtime := goja.New()
	sched := &directScheduler{}
	logs := &logCapture{}

	module, err := New(runtime,
		WithScheduler(sched),
		WithLogger(newTestLogger(logs)),
	)
	require.NoError(t, err)

	return &bridgeTestEnv{runtime: runtime, module: module, sched: sched, logs: logs}
}

// run executes JS code on the runtime, failing the test on exception.
func (e *bridgeTestEnv) run(t *testing.T, code string) goja.Value {
	t.Helper()
	v, err := e.runtime.RunString(code)
	require.NoError(t, err)
	return v
}

func (e *bridgeTestEnv) converterFor(t *testing.T, k Kind) Converter {
	t.Helper()
	c, err := e.module.dispatcher.ConverterFor(k)
	require.NoError(t, err)
	return c
}

// asPromise extracts the native promise backing v.
func asPromise(t *testing.T, v goja.Value) *goja.Promise {
	t.Helper()
	p, ok := v.Export().(*goja.Promise)
	require.True(t, ok, "value is not a promise")
	return p
}

// awaitDeferred blocks until d settles, with a test timeout.
func awaitDeferred(t *testing.T, d *Deferred) (any, error) {
	t.Helper()
	select {
	case <-d.done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for deferred")
	}
	v, err, ok := d.Result()
	require.True(t, ok)
	return v, err
}

// loopTestEnv provides a module driven by a goja_nodejs event loop, for
// tests where settlement crosses goroutines.
type loopTestEnv struct {
	loop   *eventloop.EventLoop
	module *Module
	logs   *logCapture
}

func newLoopTestEnv(t *testing.T) *loopTestEnv {
	t.Helper()

	env := &loopTestEnv{loop: eventloop.NewEventLoop(), logs: &logCapture{}}
	env.loop.Start()
	t.Cleanup(func() { env.loop.Stop() })

	done := make(chan error, 1)
	env.loop.RunOnLoop(func(vm *goja.Runtime) {
		m, err := New(vm,
			WithScheduler(NewLoopScheduler(env.loop)),
			WithLogger(newTestLogger(env.logs)),
		)
		env.module = m
		done <- err
	})
	require.NoError(t, <-done)

	return env
}

// onLoop runs fn on the script thread and waits for it to return.
func (e *loopTestEnv) onLoop(t *testing.T, fn func(vm *goja.Runtime)) {
	t.Helper()
	done := make(chan struct{})
	e.loop.RunOnLoop(func(vm *goja.Runtime) {
		defer close(done)
		fn(vm)
	})
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for loop job")
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
