package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrMutatorExists   = errors.New("mutator already registered")
	ErrMutatorNotFound = errors.New("mutator not found")
)

var mutatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]Mutator
}{
	m: map[string]Mutator{
		RandomValueMutation{}.Name(): RandomValueMutation{},
	},
}

// RegisterMutator makes a mutator resolvable by name.
func RegisterMutator(name string, mutator Mutator) error {
	if name == "" {
		return errors.New("mutator name is required")
	}
	if mutator == nil {
		return errors.New("mutator is required")
	}

	mutatorRegistry.mu.Lock()
	defer mutatorRegistry.mu.Unlock()

	if _, exists := mutatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrMutatorExists, name)
	}
	mutatorRegistry.m[name] = mutator
	return nil
}

// ResolveMutator returns the named mutator; an empty name resolves to the default.
func ResolveMutator(name string) (Mutator, error) {
	if name == "" {
		return RandomValueMutation{}, nil
	}
	mutatorRegistry.mu.RLock()
	mutator, ok := mutatorRegistry.m[name]
	mutatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMutatorNotFound, name)
	}
	return mutator, nil
}

func ListMutators() []string {
	mutatorRegistry.mu.RLock()
	defer mutatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(mutatorRegistry.m))
	for name := range mutatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetMutatorRegistryForTests() {
	mutatorRegistry.mu.Lock()
	defer mutatorRegistry.mu.Unlock()
	mutatorRegistry.m = map[string]Mutator{
		RandomValueMutation{}.Name(): RandomValueMutation{},
	}
}
