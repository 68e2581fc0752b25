package widget

import (
	"fmt"

	configmanager "github.com/MikeDP/ConfigManager"
)

// Reserved Config fields driving the automatic snapshot: ui_list names the
// widgets to persist, ui holds the captured state mapping.
const (
	stateField = "ui"
	listField  = "ui_list"
)

// Binder ties a Config to a widget Owner so widget state persists through
// the ordinary save/load path.
type Binder struct {
	Config   *configmanager.Config
	Owner    Owner
	Registry *Registry
}

// NewBinder creates a Binder. A nil registry means capability-interface
// dispatch only.
func NewBinder(cfg *configmanager.Config, owner Owner, registry *Registry) *Binder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Binder{Config: cfg, Owner: owner, Registry: registry}
}

// SaveWidgets captures the named widgets and stores the mapping under the
// ui field, returning it. The mapping persists on the next Config save.
func (b *Binder) SaveWidgets(names []string) (map[string]interface{}, error) {
	state, err := b.Registry.Capture(b.Owner, names)
	if err != nil {
		return nil, err
	}
	b.Config.Set(stateField, state)
	return state, nil
}

// RestoreWidgets replays the stored ui mapping into the owner's widgets.
// Nothing stored is not an error.
func (b *Binder) RestoreWidgets() error {
	v, ok := b.Config.GetOK(stateField)
	if !ok || v == nil {
		return nil
	}
	state, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("field %q is not a widget state mapping", stateField)
	}
	return b.Registry.Apply(b.Owner, state)
}

// Save snapshots the widgets named in the ui_list field into the ui field,
// then saves the config. With no ui_list it is a plain save.
func (b *Binder) Save() error {
	if names := b.widgetList(); len(names) > 0 {
		if _, err := b.SaveWidgets(names); err != nil {
			return err
		}
	}
	return b.Config.Save()
}

// widgetList reads ui_list, tolerating both the in-process []string form and
// the []interface{} form it takes after a load.
func (b *Binder) widgetList() []string {
	switch v := b.Config.Get(listField).(type) {
	case []string:
		return v
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}
