package kernel

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestParamsLayout(t *testing.T) {
	p := NewParams(Offset{X: -3, Y: 4}, Rect(10, 20, 30, 40), 1.5)
	b := p.Bytes()
	if len(b) != ParamsSize || ParamsSize != 32 {
		t.Fatalf("len(Bytes()) = %d, ParamsSize = %d, want 32", len(b), ParamsSize)
	}

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }
	tests := []struct {
		field string
		off   int
		want  uint32
	}{
		{"offset.x", 0, uint32(0xFFFFFFFD)},
		{"offset.y", 4, 4},
		{"clip_origin.x", 8, 10},
		{"clip_origin.y", 12, 20},
		{"clip_max.x", 16, 40},
		{"clip_max.y", 20, 60},
		{"strength", 24, math.Float32bits(1.5)},
		{"padding", 28, 0},
	}
	for _, tt := range tests {
		if got := u32(tt.off); got != tt.want {
			t.Errorf("%s @%d = %#x, want %#x", tt.field, tt.off, got, tt.want)
		}
	}
}

func TestParamsStrengthOnlyChangesStrength(t *testing.T) {
	clip := ClipRegion(NoClip, 64, 64)
	a := NewParams(Offset{}, clip, 0).Bytes()
	b := NewParams(Offset{}, clip, 1).Bytes()

	if !bytes.Equal(a[:24], b[:24]) {
		t.Errorf("bytes 0..24 differ: %x vs %x", a[:24], b[:24])
	}
	if !bytes.Equal(a[28:], b[28:]) {
		t.Errorf("padding differs: %x vs %x", a[28:], b[28:])
	}
	if bytes.Equal(a[24:28], b[24:28]) {
		t.Error("strength bytes are equal for strength 0 and 1")
	}
}

func TestParamsNoClipFitsUint32(t *testing.T) {
	p := NewParams(Offset{}, NoClip, 1)
	if p.ClipMaxX != math.MaxInt32 || p.ClipMaxY != math.MaxInt32 {
		t.Errorf("ClipMax = (%d, %d), want MaxInt32", p.ClipMaxX, p.ClipMaxY)
	}
}

func TestParamsOffsetSaturates(t *testing.T) {
	const maxInt = int(^uint(0) >> 1)
	tests := []struct {
		name   string
		offset Offset
		wantX  int32
		wantY  int32
	}{
		{"in range", Offset{X: -7, Y: 9}, -7, 9},
		{"int32 bounds", Offset{X: math.MaxInt32, Y: math.MinInt32}, math.MaxInt32, math.MinInt32},
		{"above int32", Offset{X: maxInt, Y: 3}, math.MaxInt32, 3},
		{"below int32", Offset{X: 0, Y: -maxInt - 1}, 0, math.MinInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams(tt.offset, Rect(0, 0, 1, 1), 1)
			if p.OffsetX != tt.wantX || p.OffsetY != tt.wantY {
				t.Errorf("offset = (%d, %d), want (%d, %d)", p.OffsetX, p.OffsetY, tt.wantX, tt.wantY)
			}
		})
	}
}
