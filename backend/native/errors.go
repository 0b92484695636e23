//go:build !nogpu

package native

import "errors"

var (
	// ErrNoGPU is returned when no Vulkan adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrInvalidProvider is returned when a device provider does not
	// expose hal.Device and hal.Queue.
	ErrInvalidProvider = errors.New("native: device provider does not expose HAL types")

	// ErrTimeout is returned when the GPU does not finish a submission
	// within the adapter's timeout.
	ErrTimeout = errors.New("native: timed out waiting for GPU")
)
