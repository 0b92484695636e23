package software

import (
	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/gpucore"
)

func init() {
	backend.Register(backend.Software, func() (gpucore.GPUAdapter, error) {
		return New()
	})
}
