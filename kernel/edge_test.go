package kernel

import (
	"errors"
	"testing"

	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/internal/gputest"
)

func TestParseEdgeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    EdgeMode
		wantErr bool
	}{
		{"zero", EdgeModeZero, false},
		{"Clamp", EdgeModeClamp, false},
		{"wrap", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEdgeMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEdgeMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseEdgeMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEdgeModeDefaultSampler(t *testing.T) {
	rec := gputest.New()
	k, err := NewSaturation(rec, 1)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	if k.EdgeMode() != EdgeModeZero {
		t.Errorf("EdgeMode() = %v, want zero", k.EdgeMode())
	}
	if rec.SamplersMade != 1 {
		t.Fatalf("SamplersMade = %d, want 1", rec.SamplersMade)
	}
	desc := rec.Samplers[k.sampler]
	if desc.AddressModeU != gpucore.AddressModeClampToZero || desc.AddressModeV != gpucore.AddressModeClampToZero {
		t.Errorf("address modes = %v/%v, want clamp-to-zero", desc.AddressModeU, desc.AddressModeV)
	}
	if desc.MinFilter != gpucore.FilterModeNearest || desc.MagFilter != gpucore.FilterModeNearest {
		t.Errorf("filters = %v/%v, want nearest", desc.MinFilter, desc.MagFilter)
	}
	if desc.NormalizedCoordinates {
		t.Error("NormalizedCoordinates = true, want false")
	}
}

func TestSetEdgeModeIdempotent(t *testing.T) {
	rec := gputest.New()
	k, err := NewSaturation(rec, 1)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	for i := 0; i < 3; i++ {
		if err := k.SetEdgeMode(EdgeModeZero); err != nil {
			t.Fatalf("SetEdgeMode(zero) error = %v", err)
		}
	}
	if rec.SamplersMade != 1 {
		t.Errorf("SamplersMade = %d after repeated same-mode sets, want 1", rec.SamplersMade)
	}
}

func TestSetEdgeModeRebuilds(t *testing.T) {
	rec := gputest.New()
	k, err := NewSaturation(rec, 1)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	first := k.sampler
	if err := k.SetEdgeMode(EdgeModeClamp); err != nil {
		t.Fatalf("SetEdgeMode(clamp) error = %v", err)
	}
	if got := rec.Samplers[k.sampler].AddressModeU; got != gpucore.AddressModeClampToEdge {
		t.Errorf("clamp sampler address mode = %v, want clamp-to-edge", got)
	}
	if _, alive := rec.Samplers[first]; alive {
		t.Error("previous sampler was not destroyed")
	}

	if err := k.SetEdgeMode(EdgeModeZero); err != nil {
		t.Fatalf("SetEdgeMode(zero) error = %v", err)
	}
	if got := rec.Samplers[k.sampler].AddressModeU; got != gpucore.AddressModeClampToZero {
		t.Errorf("zero sampler address mode = %v, want clamp-to-zero", got)
	}
	if rec.SamplersMade != 3 {
		t.Errorf("SamplersMade = %d, want 3 (initial + 2 rebuilds)", rec.SamplersMade)
	}
	if len(rec.Samplers) != 1 {
		t.Errorf("live samplers = %d, want 1", len(rec.Samplers))
	}
}

func TestSetEdgeModeFailureKeepsSampler(t *testing.T) {
	rec := gputest.New()
	k, err := NewSaturation(rec, 1)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	before := k.sampler
	rec.FailOn(gputest.OpSampler)
	err = k.SetEdgeMode(EdgeModeClamp)
	if !errors.Is(err, ErrSampler) {
		t.Fatalf("SetEdgeMode() error = %v, want ErrSampler", err)
	}
	if k.EdgeMode() != EdgeModeZero || k.sampler != before {
		t.Errorf("state changed on failure: mode %v sampler %d", k.EdgeMode(), k.sampler)
	}

	rec.FailOn()
	if err := k.SetEdgeMode(EdgeModeClamp); err != nil {
		t.Fatalf("SetEdgeMode() after clearing failure error = %v", err)
	}
	if k.EdgeMode() != EdgeModeClamp {
		t.Errorf("EdgeMode() = %v, want clamp", k.EdgeMode())
	}
}

func TestSetEdgeModeInvalid(t *testing.T) {
	rec := gputest.New()
	k, err := NewSaturation(rec, 1)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	if err := k.SetEdgeMode(EdgeMode(7)); !errors.Is(err, ErrInvalidEdgeMode) {
		t.Errorf("SetEdgeMode(7) error = %v, want ErrInvalidEdgeMode", err)
	}
	if rec.SamplersMade != 1 {
		t.Errorf("SamplersMade = %d, want 1", rec.SamplersMade)
	}
}
