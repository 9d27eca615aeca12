package widget

import (
	"sort"
	"sync"

	"github.com/fourbar/fourbar/pkg/errors"
)

// Registry maps widget type names to widgets. It is safe for concurrent use;
// engines share one registry.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]Widget
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{widgets: make(map[string]Widget)}
}

// Register adds or replaces the widget for a type name.
func (r *Registry) Register(name string, w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[name] = w
}

// Lookup returns the widget registered for name.
func (r *Registry) Lookup(name string) (Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.widgets[name]
	return w, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.widgets))
	for name := range r.widgets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a template's shape, that its type is registered and, when
// the widget implements [Validator], its payload.
func (r *Registry) Validate(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	w, ok := r.Lookup(t.Type)
	if !ok {
		return &UnknownTypeError{Type: t.Type}
	}
	if v, ok := w.(Validator); ok {
		if err := v.Validate(t.Data); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTemplate, err, "%s widget %s", t.Type, t.ID)
		}
	}
	return nil
}

// Builtin returns a registry holding the built-in widget types.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(TypeYouTube, YouTube{})
	r.Register(TypeTwitter, Twitter{})
	r.Register(TypeMarkdown, NewMarkdown())
	r.Register(TypeTournaments, Tournaments{})
	return r
}
