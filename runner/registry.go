package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// HandlerContext is what a HandlerFactory gets to build a handler.
type HandlerContext struct {
	Logger    zerolog.Logger
	OutputDir string
}

// HandlerFactory creates a result handler for one run.
type HandlerFactory func(ctx HandlerContext) (ResultHandler, error)

// Registry maps stable keys to result handler factories. It is populated at
// process start and read afterwards.
type Registry struct {
	factories map[string]HandlerFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]HandlerFactory{}}
}

// Register adds a factory. Registering the same key twice panics.
func (r *Registry) Register(key string, factory HandlerFactory) {
	if _, ok := r.factories[key]; ok {
		panic(fmt.Sprintf("result handler %q registered twice", key))
	}
	r.factories[key] = factory
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Handlers creates the handlers for keys, in order.
func (r *Registry) Handlers(ctx HandlerContext, keys []string) ([]ResultHandler, error) {
	handlers := make([]ResultHandler, 0, len(keys))
	for _, key := range keys {
		factory, ok := r.factories[key]
		if !ok {
			return nil, fmt.Errorf("unknown result handler %q, known handlers: %s", key, strings.Join(r.Keys(), ", "))
		}
		h, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create result handler %q: %w", key, err)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}
