// Package backend selects a gpucore.GPUAdapter implementation at runtime.
//
// Adapters register a factory under a name from an init function:
//
//	import _ "github.com/gogpu/imgkernel/backend/software"
//
// Default opens the best available adapter in priority order (webgpu,
// software, native). A factory that fails, for example because no GPU is
// present, is skipped. The native backend binds storage textures as sampled
// images on Vulkan, so it is opt-in through Get:
//
//	adapter, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer adapter.Close()
//
// Or request one by name:
//
//	adapter, err := backend.Get(backend.Software)
//
// # Available Backends
//
//   - "native": Vulkan through gogpu/wgpu hal
//   - "webgpu": wgpu-native through cogentcore/webgpu
//   - "software": CPU execution of the kernel programs, always available
package backend
