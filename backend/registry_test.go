package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/gputest"
)

// isolate replaces the registry for the duration of a test.
func isolate(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = make(map[string]Factory)
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func recorderFactory(opened *[]string, name string) Factory {
	return func() (gpucore.GPUAdapter, error) {
		*opened = append(*opened, name)
		return gputest.New(), nil
	}
}

func failingFactory(opened *[]string, name string) Factory {
	return func() (gpucore.GPUAdapter, error) {
		*opened = append(*opened, name)
		return nil, errors.New("no device")
	}
}

func TestRegisterUnregister(t *testing.T) {
	isolate(t)
	var opened []string

	Register("b", recorderFactory(&opened, "b"))
	Register("a", recorderFactory(&opened, "a"))
	if got := Available(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Available() = %v, want [a b]", got)
	}
	if !IsRegistered("a") {
		t.Error("IsRegistered(a) = false")
	}

	Unregister("a")
	if IsRegistered("a") {
		t.Error("IsRegistered(a) = true after Unregister")
	}
}

func TestGet(t *testing.T) {
	isolate(t)
	var opened []string
	Register(Software, recorderFactory(&opened, Software))
	Register(Native, failingFactory(&opened, Native))

	a, err := Get(Software)
	if err != nil || a == nil {
		t.Fatalf("Get(software) = %v, %v", a, err)
	}
	if _, err := Get(Native); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(native) error = %v, want ErrBackendNotAvailable", err)
	}
	if _, err := Get("metal"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(metal) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestPriorityOrder(t *testing.T) {
	if want := []string{WebGPU, Software, Native}; !slices.Equal(priority, want) {
		t.Errorf("priority = %v, want %v", priority, want)
	}
}

func TestDefaultPriority(t *testing.T) {
	isolate(t)
	var opened []string
	Register(Native, recorderFactory(&opened, Native))
	Register(Software, recorderFactory(&opened, Software))
	Register(WebGPU, recorderFactory(&opened, WebGPU))
	Register("custom", recorderFactory(&opened, "custom"))

	if a := Default(); a == nil {
		t.Fatal("Default() = nil")
	}
	if want := []string{WebGPU}; !slices.Equal(opened, want) {
		t.Errorf("opened = %v, want %v", opened, want)
	}
}

func TestDefaultSkipsNativeWhenSoftwareOpens(t *testing.T) {
	isolate(t)
	var opened []string
	Register(Native, recorderFactory(&opened, Native))
	Register(Software, recorderFactory(&opened, Software))
	Register(WebGPU, failingFactory(&opened, WebGPU))

	if a := Default(); a == nil {
		t.Fatal("Default() = nil")
	}
	if want := []string{WebGPU, Software}; !slices.Equal(opened, want) {
		t.Errorf("opened = %v, want %v", opened, want)
	}
}

func TestDefaultFallsBackToUnprioritized(t *testing.T) {
	isolate(t)
	var opened []string
	Register(Native, failingFactory(&opened, Native))
	Register("custom", recorderFactory(&opened, "custom"))

	if a := Default(); a == nil {
		t.Fatal("Default() = nil")
	}
	if want := []string{Native, "custom"}; !slices.Equal(opened, want) {
		t.Errorf("opened = %v, want %v", opened, want)
	}
}

func TestInitDefaultNone(t *testing.T) {
	isolate(t)
	var opened []string
	Register(Native, failingFactory(&opened, Native))

	_, err := InitDefault()
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}
	if Default() != nil {
		t.Error("Default() != nil with no working backend")
	}
}

func TestMustDefaultPanics(t *testing.T) {
	isolate(t)
	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic")
		}
	}()
	MustDefault()
}
