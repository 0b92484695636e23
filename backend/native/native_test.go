//go:build !nogpu

package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/imgkernel/gpucore"
	"github.com/gogpu/imgkernel/kernel"
	"github.com/gogpu/imgkernel/shaders"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// fakeSPIRV stands in for naga so the tests do not depend on the compiler.
func fakeSPIRV(string) ([]uint32, error) {
	return []uint32{0x07230203, 0x00010000}, nil
}

func newNoopAdapter(t *testing.T) *Adapter {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	a := NewFromHAL(device, queue, gputypes.DefaultLimits(), withCompiler(fakeSPIRV))
	t.Cleanup(func() {
		_ = a.Close()
		cleanup()
	})
	return a
}

func newTexture(t *testing.T, a *Adapter, label string, w, h int) gpucore.Texture {
	t.Helper()
	tex, err := a.CreateTexture(&gpucore.TextureDesc{
		Label:  label,
		Width:  w,
		Height: h,
		Format: gpucore.TextureFormatRGBA8Unorm,
		Usage:  gpucore.TextureUsageKernelIO,
	})
	if err != nil {
		t.Fatalf("CreateTexture(%s) error = %v", label, err)
	}
	return tex
}

func TestAdapterCapabilities(t *testing.T) {
	a := newNoopAdapter(t)
	if a.Name() != "native" {
		t.Errorf("Name() = %q, want native", a.Name())
	}
	if !a.SupportsCompute() {
		t.Error("SupportsCompute() = false")
	}
	lim := gputypes.DefaultLimits()
	want := [3]uint32{lim.MaxComputeWorkgroupSizeX, lim.MaxComputeWorkgroupSizeY, lim.MaxComputeWorkgroupSizeZ}
	if got := a.MaxWorkgroupSize(); got != want {
		t.Errorf("MaxWorkgroupSize() = %v, want %v", got, want)
	}
}

func TestTextureRoundTripShape(t *testing.T) {
	a := newNoopAdapter(t)
	tex := newTexture(t, a, "img", 3, 2)

	if err := a.WriteTexture(tex, make([]byte, 3*2*4)); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	if err := a.WriteTexture(tex, make([]byte, 5)); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("WriteTexture(short) error = %v, want ErrInvalidDescriptor", err)
	}

	// The noop queue does not copy texels, but padding must be stripped.
	data, err := a.ReadTexture(tex)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if len(data) != 3*2*4 {
		t.Errorf("len(ReadTexture()) = %d, want %d", len(data), 3*2*4)
	}

	a.DestroyTexture(tex.ID)
	if _, err := a.ReadTexture(tex); !errors.Is(err, gpucore.ErrResourceNotFound) {
		t.Errorf("ReadTexture(destroyed) error = %v, want ErrResourceNotFound", err)
	}
}

func TestCreateTextureRejectsInvalid(t *testing.T) {
	a := newNoopAdapter(t)
	_, err := a.CreateTexture(&gpucore.TextureDesc{Width: 0, Height: 4, Format: gpucore.TextureFormatRGBA8Unorm, Usage: gpucore.TextureUsageKernelIO})
	if !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateTexture(0x4) error = %v, want ErrInvalidDescriptor", err)
	}
	_, err = a.CreateTexture(&gpucore.TextureDesc{Width: 4, Height: 4, Format: 99, Usage: gpucore.TextureUsageKernelIO})
	if !errors.Is(err, gpucore.ErrUnsupportedFormat) {
		t.Errorf("CreateTexture(format 99) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestConvertSampler(t *testing.T) {
	desc, err := convertSampler(&gpucore.SamplerDesc{
		AddressModeU: gpucore.AddressModeClampToZero,
		AddressModeV: gpucore.AddressModeRepeat,
		AddressModeW: gpucore.AddressModeMirrorRepeat,
		MagFilter:    gpucore.FilterModeNearest,
		MinFilter:    gpucore.FilterModeLinear,
	})
	if err != nil {
		t.Fatalf("convertSampler() error = %v", err)
	}
	if desc.AddressModeU != gputypes.AddressModeClampToEdge {
		t.Errorf("AddressModeU = %v, want ClampToEdge", desc.AddressModeU)
	}
	if desc.AddressModeV != gputypes.AddressModeRepeat || desc.AddressModeW != gputypes.AddressModeMirrorRepeat {
		t.Errorf("AddressModeV/W = %v/%v", desc.AddressModeV, desc.AddressModeW)
	}
	if desc.MagFilter != gputypes.FilterModeNearest || desc.MinFilter != gputypes.FilterModeLinear {
		t.Errorf("filters = %v/%v", desc.MagFilter, desc.MinFilter)
	}

	_, err = convertSampler(&gpucore.SamplerDesc{
		AddressModeU: 42,
		AddressModeV: gpucore.AddressModeRepeat,
		AddressModeW: gpucore.AddressModeRepeat,
		MagFilter:    gpucore.FilterModeNearest,
		MinFilter:    gpucore.FilterModeNearest,
	})
	if !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("convertSampler(mode 42) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestConvertUnaryLayout(t *testing.T) {
	layout := shaders.UnaryLayout("unary")
	got := make(map[uint32]gputypes.BindGroupLayoutEntry)
	for _, e := range layout.Entries {
		entry, err := convertBindGroupLayoutEntry(e)
		if err != nil {
			t.Fatalf("convertBindGroupLayoutEntry(%d) error = %v", e.Binding, err)
		}
		if entry.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("binding %d visibility = %v", e.Binding, entry.Visibility)
		}
		got[e.Binding] = entry
	}

	if got[gpucore.BindingSource].Texture == nil {
		t.Error("source binding is not a sampled texture")
	}
	st := got[gpucore.BindingDestination].StorageTexture
	if st == nil || st.Access != gputypes.StorageTextureAccessWriteOnly || st.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("destination binding = %+v, want write-only RGBA8Unorm storage texture", st)
	}
	if got[gpucore.BindingSampler].Sampler == nil {
		t.Error("sampler binding is not a sampler")
	}
	buf := got[gpucore.BindingParams].Buffer
	if buf == nil || buf.Type != gputypes.BufferBindingTypeUniform || buf.MinBindingSize != shaders.ParamsSize {
		t.Errorf("params binding = %+v, want %d-byte uniform buffer", buf, shaders.ParamsSize)
	}

	if _, err := convertBindGroupLayoutEntry(gpucore.BindGroupLayoutEntry{Binding: 9}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("convertBindGroupLayoutEntry(untyped) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestKernelDispatch(t *testing.T) {
	a := newNoopAdapter(t)
	src := newTexture(t, a, "src", 40, 20)
	dst := newTexture(t, a, "dst", 40, 20)
	if err := a.WriteTexture(src, make([]byte, 40*20*4)); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}

	k, err := kernel.NewSaturation(a, 0.5, kernel.WithEdgeMode(kernel.EdgeModeClamp))
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	cb, err := a.NewCommandBuffer("saturate")
	if err != nil {
		t.Fatalf("NewCommandBuffer() error = %v", err)
	}
	k.Encode(cb, src, dst)

	if err := cb.WaitUntilCompleted(); !errors.Is(err, gpucore.ErrNotCommitted) {
		t.Errorf("WaitUntilCompleted() before Commit error = %v, want ErrNotCommitted", err)
	}
	if err := cb.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := cb.Commit(); !errors.Is(err, gpucore.ErrAlreadyCommitted) {
		t.Errorf("second Commit() error = %v, want ErrAlreadyCommitted", err)
	}
	if err := cb.WaitUntilCompleted(); err != nil {
		t.Fatalf("WaitUntilCompleted() error = %v", err)
	}

	raw := cb.(*commandBuffer)
	if raw.raw != nil || raw.transients != nil {
		t.Error("completed command buffer still holds hal resources")
	}
	srcTex, _ := a.texture(src.ID)
	dstTex, _ := a.texture(dst.ID)
	if srcTex.usage != gputypes.TextureUsageTextureBinding {
		t.Errorf("source usage = %v, want TextureBinding", srcTex.usage)
	}
	if dstTex.usage != gputypes.TextureUsageStorageBinding {
		t.Errorf("destination usage = %v, want StorageBinding", dstTex.usage)
	}

	if _, err := a.ReadTexture(dst); err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if dstTex.usage != gputypes.TextureUsageTextureBinding {
		t.Errorf("destination usage after readback = %v, want TextureBinding", dstTex.usage)
	}
}

func TestZeroEdgePipeline(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	var sources []string
	a := NewFromHAL(device, queue, gputypes.DefaultLimits(), withCompiler(func(src string) ([]uint32, error) {
		sources = append(sources, src)
		return fakeSPIRV(src)
	}))
	defer a.Close()

	k, err := kernel.NewSaturation(a, 0.5)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	if len(sources) != 2 {
		t.Fatalf("compiled %d sources, want base and zero-edge builds", len(sources))
	}
	if !strings.Contains(sources[1], "const ZERO_EDGE: bool = true;") {
		t.Error("second build does not turn ZERO_EDGE on")
	}

	if len(a.pipelines) != 1 {
		t.Fatalf("pipelines = %d, want 1", len(a.pipelines))
	}
	var p *pipeline
	for _, p = range a.pipelines {
	}
	if p.zero == nil {
		t.Fatal("pipeline has no zero-edge build")
	}
	if len(a.samplers) != 1 {
		t.Fatalf("samplers = %d, want 1", len(a.samplers))
	}
	var s *sampler
	for _, s = range a.samplers {
	}
	if !s.zero {
		t.Error("EdgeModeZero sampler is not marked as clamping to zero")
	}
	if got := p.forSampler(s); got != p.zero {
		t.Error("EdgeModeZero dispatch does not use the zero-edge build")
	}

	if err := k.SetEdgeMode(kernel.EdgeModeClamp); err != nil {
		t.Fatalf("SetEdgeMode(Clamp) error = %v", err)
	}
	for _, s = range a.samplers {
	}
	if s.zero {
		t.Error("EdgeModeClamp sampler is marked as clamping to zero")
	}
	if got := p.forSampler(s); got != p.raw {
		t.Error("EdgeModeClamp dispatch does not use the base build")
	}

	k.Release()
	if len(a.pipelines) != 0 || len(a.modules) != 0 {
		t.Errorf("pipelines/modules left after Release: %d/%d", len(a.pipelines), len(a.modules))
	}
}

func TestCommitRejectsAliasedTextures(t *testing.T) {
	a := newNoopAdapter(t)
	img := newTexture(t, a, "img", 8, 8)

	k, err := kernel.NewSaturation(a, 0)
	if err != nil {
		t.Fatalf("NewSaturation() error = %v", err)
	}
	defer k.Release()

	cb, _ := a.NewCommandBuffer("alias")
	k.Encode(cb, img, img)
	if err := cb.Commit(); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Fatalf("Commit() error = %v, want ErrInvalidDescriptor", err)
	}
	if err := cb.WaitUntilCompleted(); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("WaitUntilCompleted() error = %v, want the commit error", err)
	}
}

func TestCommitMissingResource(t *testing.T) {
	a := newNoopAdapter(t)
	src := newTexture(t, a, "src", 8, 8)
	dst := newTexture(t, a, "dst", 8, 8)

	k, err := kernel.NewSobel(a, 1)
	if err != nil {
		t.Fatalf("NewSobel() error = %v", err)
	}
	defer k.Release()

	cb, _ := a.NewCommandBuffer("missing")
	k.Encode(cb, src, dst)
	a.DestroyTexture(dst.ID)
	if err := cb.Commit(); !errors.Is(err, gpucore.ErrResourceNotFound) {
		t.Errorf("Commit() error = %v, want ErrResourceNotFound", err)
	}
}

func TestCommitWithOpenPass(t *testing.T) {
	a := newNoopAdapter(t)
	cb, _ := a.NewCommandBuffer("open")
	cb.BeginComputePass("pass")
	if err := cb.Commit(); err == nil {
		t.Error("Commit() with an open pass succeeded")
	}
}

func TestPipelineNeedsSingleBindGroup(t *testing.T) {
	a := newNoopAdapter(t)
	mod, err := a.CreateShaderModule(&gpucore.ShaderModuleDesc{Label: "m", WGSL: "fn main() {}"})
	if err != nil {
		t.Fatalf("CreateShaderModule() error = %v", err)
	}
	layout, err := a.CreatePipelineLayout(nil)
	if err != nil {
		t.Fatalf("CreatePipelineLayout() error = %v", err)
	}
	_, err = a.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        "p",
		Layout:       layout,
		ShaderModule: mod,
		EntryPoint:   "main",
	})
	if !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateComputePipeline() error = %v, want ErrInvalidDescriptor", err)
	}

	if _, err := a.CreatePipelineLayout([]gpucore.BindGroupLayoutID{777}); !errors.Is(err, gpucore.ErrResourceNotFound) {
		t.Errorf("CreatePipelineLayout(unknown) error = %v, want ErrResourceNotFound", err)
	}
}

func TestCompileError(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	boom := errors.New("boom")
	a := NewFromHAL(device, queue, gputypes.DefaultLimits(), withCompiler(func(string) ([]uint32, error) {
		return nil, boom
	}))
	defer a.Close()

	if _, err := a.CreateShaderModule(&gpucore.ShaderModuleDesc{WGSL: "x"}); !errors.Is(err, boom) {
		t.Errorf("CreateShaderModule() error = %v, want compiler error", err)
	}
	if _, err := a.CreateShaderModule(&gpucore.ShaderModuleDesc{}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateShaderModule(empty) error = %v, want ErrInvalidDescriptor", err)
	}
}

type fakeProvider struct {
	gpucontext.DeviceProvider
	device any
	queue  any
}

func (p *fakeProvider) HalDevice() any { return p.device }
func (p *fakeProvider) HalQueue() any  { return p.queue }

func TestDeviceProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	a, err := New(WithDeviceProvider(&fakeProvider{device: device, queue: queue}), withCompiler(fakeSPIRV))
	if err != nil {
		t.Fatalf("New(WithDeviceProvider) error = %v", err)
	}
	if a.Name() != "native (shared)" {
		t.Errorf("Name() = %q", a.Name())
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	_, err = New(WithDeviceProvider(&fakeProvider{device: "not a device", queue: queue}))
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("New(bad device) error = %v, want ErrInvalidProvider", err)
	}
	_, err = New(WithDeviceProvider(struct{ gpucontext.DeviceProvider }{}))
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("New(no HAL) error = %v, want ErrInvalidProvider", err)
	}
}

func TestClose(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	a := NewFromHAL(device, queue, gputypes.DefaultLimits(), withCompiler(fakeSPIRV))
	newTexture(t, a, "img", 4, 4)

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(a.textures) != 0 {
		t.Errorf("%d textures left after Close", len(a.textures))
	}
	_, err := a.CreateTexture(&gpucore.TextureDesc{Width: 1, Height: 1, Format: gpucore.TextureFormatRGBA8Unorm, Usage: gpucore.TextureUsageKernelIO})
	if !errors.Is(err, gpucore.ErrAdapterClosed) {
		t.Errorf("CreateTexture() after Close error = %v, want ErrAdapterClosed", err)
	}
	if _, err := a.NewCommandBuffer("late"); !errors.Is(err, gpucore.ErrAdapterClosed) {
		t.Errorf("NewCommandBuffer() after Close error = %v, want ErrAdapterClosed", err)
	}
}
