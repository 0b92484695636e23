// Package cli holds the flag parsing shared by the imgkernel commands.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/jobqueue"
	"github.com/gogpu/imgkernel/internal/process"
	"github.com/gogpu/imgkernel/kernel"
)

// ErrSyntax is returned for malformed flag values.
var ErrSyntax = errors.New("cli: invalid value")

// ParseRequest builds a process.Request from flag strings. Empty strength,
// offset and clip keep their defaults.
func ParseRequest(name, strength, edge, offset, clip string) (process.Request, error) {
	req := process.Request{Kernel: name}
	if _, ok := kernel.DefaultStrength(name); !ok {
		return req, fmt.Errorf("%w: %q (have %s)", kernel.ErrUnknownKernel, name, strings.Join(kernel.Names(), ", "))
	}

	if strength != "" {
		v, err := strconv.ParseFloat(strength, 32)
		if err != nil {
			return req, fmt.Errorf("%w: strength %q", ErrSyntax, strength)
		}
		s := float32(v)
		req.Strength = &s
	}

	if edge != "" {
		mode, err := kernel.ParseEdgeMode(edge)
		if err != nil {
			return req, err
		}
		req.Edge = mode
	}

	if offset != "" {
		v, err := parseInts(offset, 2)
		if err != nil {
			return req, fmt.Errorf("offset: %w", err)
		}
		req.Offset = kernel.Offset{X: v[0], Y: v[1]}
	}

	if clip != "" {
		v, err := parseInts(clip, 4)
		if err != nil {
			return req, fmt.Errorf("clip: %w", err)
		}
		r := kernel.Rect(v[0], v[1], v[2], v[3])
		req.Clip = &r
	}
	return req, nil
}

// RequestFromJob converts a queued job into a process.Request.
func RequestFromJob(job *jobqueue.Job) (process.Request, error) {
	req, err := ParseRequest(job.Kernel, "", job.Edge, "", "")
	if err != nil {
		return req, err
	}
	req.Strength = job.Strength
	req.Offset = kernel.Offset{X: job.OffsetX, Y: job.OffsetY}
	if c := job.Clip; c != nil {
		r := kernel.Rect(c.X, c.Y, c.Width, c.Height)
		req.Clip = &r
	}
	return req, nil
}

// parseInts parses exactly n comma-separated integers.
func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %q wants %d comma-separated integers", ErrSyntax, s, n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrSyntax, p)
		}
		out[i] = v
	}
	return out, nil
}

// OpenBackend opens the named backend, or the best available one when
// name is empty.
func OpenBackend(name string) (gpucore.GPUAdapter, error) {
	if name == "" {
		return backend.InitDefault()
	}
	return backend.Get(name)
}
