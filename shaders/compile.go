package shaders

import (
	"fmt"

	"github.com/gogpu/imgkernel/internal/cache"
	"github.com/gogpu/naga"
)

// spirvCacheSize bounds the compiled programs kept in memory.
const spirvCacheSize = 32

var spirvCache = cache.New[string, []uint32](spirvCacheSize)

// CompileSPIRV compiles WGSL source to SPIR-V words with naga. Results are
// cached by source, so a program is normally compiled once per process.
func CompileSPIRV(source string) ([]uint32, error) {
	return spirvCache.GetOrCreate(source, func() ([]uint32, error) {
		return compileSPIRV(source)
	})
}

func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile WGSL: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
