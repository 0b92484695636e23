package kernel

import (
	"math"
	"testing"

	"github.com/gogpu/imgkernel/gpucore"
)

func TestClipRegion(t *testing.T) {
	tests := []struct {
		name          string
		r             Region
		width, height int
		want          Region
	}{
		{"no clip", NoClip, 640, 480, Rect(0, 0, 640, 480)},
		{"inside", Rect(10, 20, 30, 40), 100, 100, Rect(10, 20, 30, 40)},
		{"overhangs right and bottom", Rect(0, 0, 100, 100), 50, 200, Rect(0, 0, 50, 100)},
		{"negative origin", Rect(-10, -5, 20, 20), 100, 100, Rect(0, 0, 10, 15)},
		{"disjoint", Rect(60, 60, 10, 10), 50, 50, Rect(50, 50, 0, 0)},
		{"left of destination", Rect(-30, 0, 10, 10), 50, 50, Rect(0, 0, 0, 10)},
		{"negative size", Rect(5, 5, -3, 10), 50, 50, Rect(5, 5, 0, 10)},
		{"huge size", Rect(5, 5, math.MaxInt, math.MaxInt), 50, 50, Rect(5, 5, 45, 45)},
		{"empty destination", Rect(0, 0, 10, 10), 0, 0, Rect(0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipRegion(tt.r, tt.width, tt.height)
			if got != tt.want {
				t.Errorf("ClipRegion(%v, %d, %d) = %v, want %v", tt.r, tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestClipRegionContained(t *testing.T) {
	regions := []Region{
		NoClip,
		Rect(0, 0, 0, 0),
		Rect(-100, -100, 50, 50),
		Rect(-100, 3, 1000, 7),
		Rect(7, 7, 1, 1),
		Rect(math.MaxInt32, 0, 10, 10),
		Rect(math.MinInt32, math.MinInt32, math.MaxInt, math.MaxInt),
	}
	sizes := [][2]int{{1, 1}, {16, 16}, {17, 33}, {50, 200}, {1920, 1080}}

	for _, r := range regions {
		for _, s := range sizes {
			dst := Rect(0, 0, s[0], s[1])
			got := ClipRegion(r, s[0], s[1])
			if !dst.Contains(got) {
				t.Errorf("ClipRegion(%v, %dx%d) = %v, not inside destination", r, s[0], s[1], got)
			}
			if !r.Contains(got) {
				t.Errorf("ClipRegion(%v, %dx%d) = %v, not inside clip rect", r, s[0], s[1], got)
			}
			if again := ClipRegion(got, s[0], s[1]); again != got {
				t.Errorf("ClipRegion not idempotent: %v then %v", got, again)
			}
		}
	}
}

func TestThreadgroups(t *testing.T) {
	tests := []struct {
		name string
		r    Region
		want gpucore.Grid
	}{
		{"exact", Rect(0, 0, 32, 16), gpucore.Grid{X: 2, Y: 1, Z: 1}},
		{"partial", Rect(0, 0, 50, 100), gpucore.Grid{X: 4, Y: 7, Z: 1}},
		{"single pixel", Rect(9, 9, 1, 1), gpucore.Grid{X: 1, Y: 1, Z: 1}},
		{"empty", Rect(50, 50, 0, 0), gpucore.Grid{X: 0, Y: 0, Z: 1}},
		{"empty width only", Rect(0, 0, 0, 40), gpucore.Grid{X: 0, Y: 0, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Threadgroups(tt.r, ThreadsPerGroup)
			if got != tt.want {
				t.Errorf("Threadgroups(%v) = %+v, want %+v", tt.r, got, tt.want)
			}
		})
	}
}

func TestThreadgroupsCover(t *testing.T) {
	for w := 1; w <= 40; w++ {
		for h := 1; h <= 40; h += 3 {
			g := Threadgroups(Rect(0, 0, w, h), ThreadsPerGroup)
			if int(g.X*16) < w || int(g.X*16) >= w+16 {
				t.Fatalf("%dx%d: X groups %d do not tightly cover width", w, h, g.X)
			}
			if int(g.Y*16) < h || int(g.Y*16) >= h+16 {
				t.Fatalf("%dx%d: Y groups %d do not tightly cover height", w, h, g.Y)
			}
		}
	}
}

func TestRegionMaxSaturates(t *testing.T) {
	r := Rect(math.MaxInt-5, 0, 100, 1)
	if got := r.Max().X; got != math.MaxInt {
		t.Errorf("Max().X = %d, want MaxInt", got)
	}
}
