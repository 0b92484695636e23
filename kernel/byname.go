package kernel

import (
	"fmt"

	"github.com/gogpu/imgkernel/gpucore"
)

type constructor func(device gpucore.GPUAdapter, strength float32, opts ...Option) (Unary, error)

var constructors = map[string]struct {
	new      constructor
	strength float32
}{
	"saturation": {func(d gpucore.GPUAdapter, s float32, o ...Option) (Unary, error) { return NewSaturation(d, s, o...) }, 1},
	"threshold":  {func(d gpucore.GPUAdapter, s float32, o ...Option) (Unary, error) { return NewThresholdToZero(d, s, o...) }, DefaultThreshold},
	"sobel":      {func(d gpucore.GPUAdapter, s float32, o ...Option) (Unary, error) { return NewSobel(d, s, o...) }, 1},
	"laplacian":  {func(d gpucore.GPUAdapter, s float32, o ...Option) (Unary, error) { return NewLaplacian(d, s, o...) }, 1},
}

// Names returns the names accepted by NewByName.
func Names() []string {
	return []string{"laplacian", "saturation", "sobel", "threshold"}
}

// DefaultStrength returns the identity or customary strength for a kernel
// name, and false for unknown names.
func DefaultStrength(name string) (float32, bool) {
	c, ok := constructors[name]
	return c.strength, ok
}

// NewByName creates the kernel called name.
func NewByName(name string, device gpucore.GPUAdapter, strength float32, opts ...Option) (Unary, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return c.new(device, strength, opts...)
}
