package backend

import (
	"errors"

	"github.com/gogpu/imgkernel/gpucore"
)

// Backend names.
const (
	// Native is the Pure Go Vulkan backend (gogpu/wgpu hal).
	Native = "native"
	// WebGPU is the wgpu-native backend (cogentcore/webgpu).
	WebGPU = "webgpu"
	// Software is the CPU backend.
	Software = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no registered backend, or
	// not the requested one, can be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory opens a new adapter. It returns an error when the backend cannot
// run on this machine.
type Factory func() (gpucore.GPUAdapter, error)
