package action

import (
	"fmt"

	"tqa/reasoning"
)

// Registry is the static catalogue of actions, built once at process start
// and keyed by unique action name.
type Registry struct {
	actions map[string]Action
	order   []string
}

// Option customizes registry construction.
type Option func(*Registry)

// WithGeneralProvider installs the general knowledge provider used by the
// GeneralRetrieval action.
func WithGeneralProvider(p GeneralProvider) Option {
	return func(r *Registry) {
		r.register(&GeneralRetrieval{provider: p})
	}
}

// WithDomainProvider installs the domain glossary provider used by the
// DomainRetrieval action.
func WithDomainProvider(p DomainProvider) Option {
	return func(r *Registry) {
		r.register(&DomainRetrieval{provider: p})
	}
}

// WithAction registers an additional or replacement action kind.
func WithAction(a Action) Option {
	return func(r *Registry) {
		r.register(a)
	}
}

// NewRegistry builds a registry holding the full built-in action catalogue.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{actions: map[string]Action{}}
	for _, a := range []Action{
		&HeaderParsing{},
		&ColumnLocating{},
		&RowLocating{},
		&ColumnConstructing{},
		&RowConstructing{},
		&RowSorting{},
		&Grouping{},
		&Computing{},
		&GeneralRetrieval{},
		&DomainRetrieval{},
		&ParallelDecomposing{},
		&SerialDecomposing{},
		&Finish{},
	} {
		r.register(a)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) register(a Action) {
	if _, ok := r.actions[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.actions[a.Name()] = a
}

// Resolve maps an action name to its executable unit.
func (r *Registry) Resolve(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrNotFound, name, r.order)
	}
	return a, nil
}

// Feasible re-validates a proposed application before execution.
func (r *Registry) Feasible(a Action, s *reasoning.State, p Params) bool {
	return a.Feasible(s, p)
}

// Names lists all registered action names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
