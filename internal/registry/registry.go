// Package registry holds the compile-time set of rule factories and resolves
// a rules directory into a catalog of runnable rules.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ludo-technologies/ccheck/domain"
)

// ErrDuplicateRule is returned when a factory name is registered twice
var ErrDuplicateRule = errors.New("rule already registered")

// Registry maps rule names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]domain.RuleFactory
}

// New creates an empty registry
func New() *Registry {
	return &Registry{factories: make(map[string]domain.RuleFactory)}
}

// Register adds factory under name. Registering a name twice is an error and
// keeps the first factory.
func (r *Registry) Register(name string, factory domain.RuleFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewInvalidInputError("rule name cannot be empty", nil)
	}
	if factory == nil {
		return domain.NewInvalidInputError(fmt.Sprintf("rule %s has no factory", name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is Register for use from init functions
func (r *Registry) MustRegister(name string, factory domain.RuleFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the factory registered under name
func (r *Registry) Get(name string) (domain.RuleFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered factories
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Default is the registry built-in rules add themselves to
var Default = New()

// Register adds a factory to the Default registry and panics on duplicates
func Register(name string, factory domain.RuleFactory) {
	Default.MustRegister(name, factory)
}
