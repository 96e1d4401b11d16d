package component

import (
	"fmt"
	"sync"
)

// Registry maps stable handler ids to handler values. It is populated once
// at startup and read on every component activation.
type Registry[H any] struct {
	mu       sync.RWMutex
	handlers map[string]H
}

// NewRegistry creates an empty registry.
func NewRegistry[H any]() *Registry[H] {
	return &Registry[H]{handlers: make(map[string]H)}
}

// Register binds a handler id. Registering an id twice or an id that cannot
// appear in a token is a programming error and panics at startup.
func (r *Registry[H]) Register(id string, handler H) {
	if err := checkHandlerID(id); err != nil {
		panic(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[id]; dup {
		panic(fmt.Sprintf("component: handler %q registered twice", id))
	}
	r.handlers[id] = handler
}

// Resolve looks up a handler by id, failing with ErrUnknownHandler.
func (r *Registry[H]) Resolve(id string) (H, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[id]
	if !ok {
		var zero H
		return zero, fmt.Errorf("%w: %q", ErrUnknownHandler, id)
	}
	return handler, nil
}

// Decode parses a custom id and resolves its handler in one step.
func (r *Registry[H]) Decode(customID string) (Token, H, error) {
	token, err := Decode(customID)
	if err != nil {
		var zero H
		return Token{}, zero, err
	}
	handler, err := r.Resolve(token.Handler)
	if err != nil {
		var zero H
		return Token{}, zero, err
	}
	return token, handler, nil
}
