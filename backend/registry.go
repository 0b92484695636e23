package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/imgkernel"
	"github.com/gogpu/imgkernel/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first that opens wins). Software opens
	// everywhere, so native is only reached when software is not
	// registered; request it with Get.
	priority = []string{WebGPU, Software, Native}
)

// Register registers a factory under name, replacing any previous one.
// It is typically called from init functions in backend packages.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get opens the named backend.
func Get(name string) (gpucore.GPUAdapter, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrBackendNotAvailable, name)
	}
	a, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return a, nil
}

// Default opens the best available backend in priority order, then any
// other registered backend. It returns nil if none opens.
func Default() gpucore.GPUAdapter {
	a, _ := open()
	return a
}

// MustDefault returns the default backend or panics.
func MustDefault() gpucore.GPUAdapter {
	a, err := open()
	if err != nil {
		panic(err)
	}
	return a
}

// InitDefault opens the default backend. When none opens the error wraps
// ErrBackendNotAvailable and every factory's failure.
func InitDefault() (gpucore.GPUAdapter, error) {
	return open()
}

func open() (gpucore.GPUAdapter, error) {
	registryMu.RLock()
	order := make([]string, 0, len(factories))
	seen := make(map[string]bool, len(factories))
	for _, name := range priority {
		if _, ok := factories[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range factories {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)
	candidates := make([]Factory, len(order))
	for i, name := range order {
		candidates[i] = factories[name]
	}
	registryMu.RUnlock()

	errs := []error{ErrBackendNotAvailable}
	for i, factory := range candidates {
		a, err := factory()
		if err == nil && a != nil {
			imgkernel.Logger().Info("backend: selected", "backend", order[i], "adapter", a.Name())
			return a, nil
		}
		if err == nil {
			err = errors.New("factory returned no adapter")
		}
		imgkernel.Logger().Debug("backend: unavailable", "backend", order[i], "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", order[i], err))
	}
	return nil, errors.Join(errs...)
}
