//go:build !nogpu

package native

import (
	"time"

	"github.com/gogpu/gpucontext"
)

// Option configures an Adapter.
type Option func(*options)

type options struct {
	provider gpucontext.DeviceProvider
	timeout  time.Duration
	poll     time.Duration
	compile  func(source string) ([]uint32, error)
}

func defaultOptions() options {
	return options{
		timeout: 5 * time.Second,
		poll:    100 * time.Microsecond,
	}
}

// WithDeviceProvider makes New use the provider's device and queue instead
// of opening a Vulkan device. The provider must implement HalDevice() any
// and HalQueue() any returning hal.Device and hal.Queue. The adapter does
// not destroy a provided device on Close.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithTimeout bounds how long WaitUntilCompleted and ReadTexture wait for
// the GPU. The default is five seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// withCompiler replaces the WGSL to SPIR-V compiler.
func withCompiler(fn func(string) ([]uint32, error)) Option {
	return func(o *options) {
		o.compile = fn
	}
}
