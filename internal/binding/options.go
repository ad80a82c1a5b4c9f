package binding

import (
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ownership"
)

type options struct {
	heuristics ownership.Heuristics
	rules      map[string]dispatch.ReturnRule
	tracker    []ownership.Option
	lock       *dispatch.ScriptLock
}

// Option configures Load.
type Option func(*options)

// WithHeuristics sets the ownership heuristics.
// Default: ownership.DefaultHeuristics().
func WithHeuristics(h ownership.Heuristics) Option {
	return func(o *options) {
		o.heuristics = h
	}
}

// WithReturnRules registers named explicit return conversions.
func WithReturnRules(rules map[string]dispatch.ReturnRule) Option {
	return func(o *options) {
		for name, r := range rules {
			o.rules[name] = r
		}
	}
}

// WithTrackerOptions configures the ownership tracker (id generator,
// clock, journal, destroy hook).
func WithTrackerOptions(opts ...ownership.Option) Option {
	return func(o *options) {
		o.tracker = append(o.tracker, opts...)
	}
}

// WithScriptLock shares a script lock between runtimes of one interpreter.
func WithScriptLock(l *dispatch.ScriptLock) Option {
	return func(o *options) {
		o.lock = l
	}
}
