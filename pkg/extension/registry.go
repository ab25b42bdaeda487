package extension

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/strix/internal/core"
)

// The registry maps extension names to factories. Registration happens in
// init() of the extensions package; resolution happens once at load time.

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var extensionReg = &registry{factories: make(map[string]Factory)}

// Register adds a factory under the given name. It panics on empty name,
// nil factory, or duplicate registration: those are programming errors in
// an init() block, not runtime conditions.
func Register(name string, factory Factory) {
	extensionReg.register(name, factory)
}

// GetFactory resolves a registered factory by name.
func GetFactory(name string) (Factory, error) {
	return extensionReg.get(name)
}

// List returns the registered extension names, sorted.
func List() []string {
	return extensionReg.list()
}

func (r *registry) register(name string, factory Factory) {
	if name == "" {
		panic("extension: Register called with empty name")
	}
	if factory == nil {
		panic(fmt.Sprintf("extension: Register called with nil factory for %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("extension: Register called twice for %q", name))
	}
	r.factories[name] = factory
}

func (r *registry) get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, exists := r.factories[name]
	if !exists {
		return nil, core.NewExtensionNotFoundError(name)
	}
	return factory, nil
}

func (r *registry) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears the registry. Test hook.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}
