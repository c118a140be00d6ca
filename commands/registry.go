package commands

import (
	"fmt"

	"ops-chat/errors"
)

// Registry maps command names to handlers. It is built once at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	order    []string
	handlers map[string]Handler
}

// NewRegistry registers every handler by its exact name.
// Registration order is preserved for /help output. A duplicate name is a
// construction error rather than a silent overwrite.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, handler := range handlers {
		name := handler.Name()
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("%w: %s", errors.ErrDuplicateCommand, name)
		}
		r.handlers[name] = handler
		r.order = append(r.order, name)
	}
	return r, nil
}

// Resolve looks a handler up by its verbatim name, sentinel included.
func (r *Registry) Resolve(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// Descriptors returns the registered handlers in registration order.
func (r *Registry) Descriptors() []Descriptor {
	descriptors := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		descriptors = append(descriptors, Descriptor{
			Name:        name,
			Description: r.handlers[name].Description(),
		})
	}
	return descriptors
}
