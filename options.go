package gojabridge

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// moduleOptions holds configuration for a [Module] instance.
type moduleOptions struct {
	scheduler Scheduler
	registry  *PendingBridgeRegistry
	handles   *HandleTable
	logger    *logiface.Logger[logiface.Event]
}

// Option configures a [Module] instance. Options are applied during
// module construction.
type Option interface {
	applyOption(*moduleOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*moduleOptions) error
}

func (o *optionFunc) applyOption(opts *moduleOptions) error {
	return o.fn(opts)
}

// WithScheduler configures the [Scheduler] used to marshal completion
// notifications onto the script thread. This option is required;
// passing nil returns an error during module construction.
func WithScheduler(s Scheduler) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if s == nil {
			return errors.New("gojabridge: scheduler must not be nil")
		}
		opts.scheduler = s
		return nil
	}}
}

// WithRegistry configures the [PendingBridgeRegistry] tracking
// unsettled bridged promises. Defaults to a new registry; inject one to
// share or inspect pending-bridge state.
func WithRegistry(r *PendingBridgeRegistry) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if r == nil {
			return errors.New("gojabridge: registry must not be nil")
		}
		opts.registry = r
		return nil
	}}
}

// WithHandleTable configures the [HandleTable] accounting for live
// handles. Defaults to a new table.
func WithHandleTable(t *HandleTable) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if t == nil {
			return errors.New("gojabridge: handle table must not be nil")
		}
		opts.handles = t
		return nil
	}}
}

// WithLogger configures the logger used for protocol warnings (stale
// completion notifications, malformed bridge state, discarded script
// exceptions). May be nil, in which case nothing is logged.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.logger = l
		return nil
	}}
}

// resolveOptions applies the given options to a default [moduleOptions]
// and validates that all required fields are set.
func resolveOptions(opts []Option) (*moduleOptions, error) {
	cfg := &moduleOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.scheduler == nil {
		return nil, errors.New("gojabridge: scheduler is required (use WithScheduler)")
	}
	if cfg.registry == nil {
		cfg.registry = NewPendingBridgeRegistry()
	}
	if cfg.handles == nil {
		cfg.handles = NewHandleTable()
	}
	return cfg, nil
}
