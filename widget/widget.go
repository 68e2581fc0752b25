// Package widget snapshots and restores the state of named UI controls
// through a Config, without binding the core to any particular toolkit.
// Widgets either implement the Readable/Writable capability interfaces
// themselves, or have an Accessor registered once per concrete widget type.
package widget

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrWidgetNotFound reports a widget name the owner does not know.
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrUnsupportedWidget reports a widget with no registered accessor and
	// no capability interface.
	ErrUnsupportedWidget = errors.New("unsupported widget type")
)

// Owner resolves widget names to widget instances; the host form or window
// implements it.
type Owner interface {
	Widget(name string) (interface{}, bool)
}

// MapOwner is an Owner backed by a plain map, convenient for hosts that
// keep their widgets in a lookup table anyway.
type MapOwner map[string]interface{}

func (m MapOwner) Widget(name string) (interface{}, bool) {
	w, ok := m[name]
	return w, ok
}

// Readable is implemented by widgets that can report their state.
type Readable interface {
	WidgetState() interface{}
}

// Writable is implemented by widgets that can restore a saved state.
type Writable interface {
	SetWidgetState(value interface{}) error
}

// Accessor reads and writes the state of one concrete widget type, for
// widget types that cannot implement the capability interfaces themselves.
type Accessor struct {
	Get func(widget interface{}) interface{}
	Set func(widget interface{}, value interface{}) error
}

// Registry maps concrete widget types to accessors. Capability interfaces
// take precedence over registered accessors.
type Registry struct {
	accessors map[reflect.Type]Accessor
}

func NewRegistry() *Registry {
	return &Registry{accessors: make(map[reflect.Type]Accessor)}
}

// Register installs the accessor for widget's concrete type, replacing any
// previous registration.
func (r *Registry) Register(widget interface{}, acc Accessor) {
	r.accessors[reflect.TypeOf(widget)] = acc
}

func (r *Registry) lookup(widget interface{}) (Accessor, bool) {
	acc, ok := r.accessors[reflect.TypeOf(widget)]
	return acc, ok
}

// Capture reads the current state of every named widget into a mapping
// suitable for storage as an ordinary Config field. A missing name or a
// widget with no read path aborts the capture.
func (r *Registry) Capture(owner Owner, names []string) (map[string]interface{}, error) {
	state := make(map[string]interface{}, len(names))
	for _, name := range names {
		w, ok := owner.Widget(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrWidgetNotFound, name)
		}
		if readable, ok := w.(Readable); ok {
			state[name] = readable.WidgetState()
			continue
		}
		acc, ok := r.lookup(w)
		if !ok || acc.Get == nil {
			return nil, fmt.Errorf("%w: %q (%T)", ErrUnsupportedWidget, name, w)
		}
		state[name] = acc.Get(w)
	}
	return state, nil
}

// Apply writes a previously captured state mapping back into the owner's
// widgets. A missing name or a widget with no write path is an error, not a
// silent skip.
func (r *Registry) Apply(owner Owner, state map[string]interface{}) error {
	for name, value := range state {
		w, ok := owner.Widget(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrWidgetNotFound, name)
		}
		if writable, ok := w.(Writable); ok {
			if err := writable.SetWidgetState(value); err != nil {
				return fmt.Errorf("widget %q: %w", name, err)
			}
			continue
		}
		acc, ok := r.lookup(w)
		if !ok || acc.Set == nil {
			return fmt.Errorf("%w: %q (%T)", ErrUnsupportedWidget, name, w)
		}
		if err := acc.Set(w, value); err != nil {
			return fmt.Errorf("widget %q: %w", name, err)
		}
	}
	return nil
}
