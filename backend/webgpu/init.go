//go:build !nogpu

package webgpu

import (
	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/gpucore"
)

func init() {
	backend.Register(backend.WebGPU, func() (gpucore.GPUAdapter, error) {
		return New()
	})
}
