package cli

import (
	"errors"
	"testing"

	"github.com/gogpu/imgkernel/backend"
	"github.com/gogpu/imgkernel/internal/jobqueue"
	"github.com/gogpu/imgkernel/kernel"

	_ "github.com/gogpu/imgkernel/backend/software"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("threshold", "0.3", "clamp", "1, -2", "0,0,10,20")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.Kernel != "threshold" || req.Strength == nil || *req.Strength != 0.3 {
		t.Errorf("kernel/strength = %q/%v", req.Kernel, req.Strength)
	}
	if req.Edge != kernel.EdgeModeClamp {
		t.Errorf("edge = %v, want clamp", req.Edge)
	}
	if req.Offset != (kernel.Offset{X: 1, Y: -2}) {
		t.Errorf("offset = %+v", req.Offset)
	}
	if req.Clip == nil || *req.Clip != kernel.Rect(0, 0, 10, 20) {
		t.Errorf("clip = %v", req.Clip)
	}
}

func TestParseRequestDefaults(t *testing.T) {
	req, err := ParseRequest("sobel", "", "", "", "")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.Strength != nil || req.Clip != nil || req.Edge != kernel.EdgeModeZero {
		t.Errorf("ParseRequest() = %+v, want defaults", req)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name                               string
		kernel, strength, edge, off, clip string
		want                               error
	}{
		{"unknown kernel", "blur", "", "", "", "", kernel.ErrUnknownKernel},
		{"bad strength", "sobel", "lots", "", "", "", ErrSyntax},
		{"bad edge", "sobel", "", "wrap", "", "", kernel.ErrInvalidEdgeMode},
		{"short offset", "sobel", "", "", "1", "", ErrSyntax},
		{"bad clip", "sobel", "", "", "", "0,0,x,1", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(tt.kernel, tt.strength, tt.edge, tt.off, tt.clip)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseRequest() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestFromJob(t *testing.T) {
	s := float32(2)
	req, err := RequestFromJob(&jobqueue.Job{
		Kernel:   "laplacian",
		Strength: &s,
		Edge:     "clamp",
		OffsetX:  3,
		Clip:     &jobqueue.Clip{X: 1, Y: 1, Width: 4, Height: 5},
	})
	if err != nil {
		t.Fatalf("RequestFromJob() error = %v", err)
	}
	if *req.Strength != 2 || req.Edge != kernel.EdgeModeClamp || req.Offset.X != 3 {
		t.Errorf("RequestFromJob() = %+v", req)
	}
	if *req.Clip != kernel.Rect(1, 1, 4, 5) {
		t.Errorf("clip = %v", *req.Clip)
	}

	if _, err := RequestFromJob(&jobqueue.Job{Kernel: "nope"}); !errors.Is(err, kernel.ErrUnknownKernel) {
		t.Errorf("RequestFromJob(nope) error = %v", err)
	}
}

func TestOpenBackend(t *testing.T) {
	a, err := OpenBackend(backend.Software)
	if err != nil {
		t.Fatalf("OpenBackend(software) error = %v", err)
	}
	defer a.Close()
	if a.Name() != "software" {
		t.Errorf("Name() = %q", a.Name())
	}
	if _, err := OpenBackend("metal"); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("OpenBackend(metal) error = %v", err)
	}
}
