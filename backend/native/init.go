//go:build !nogpu

package native

import (
	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/gpucore"

	// Vulkan hal backend, registered with hal.GetBackend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.Native, func() (gpucore.GPUAdapter, error) {
		return New()
	})
}
