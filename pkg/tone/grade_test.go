package tone

import (
	"image/color"
	"math"
	"testing"
)

// createTestBuffer fills a w×h buffer with a smooth pattern defined over
// normalized pixel-center coordinates, so buffers of different sizes show
// the same picture. Integer arithmetic keeps coinciding centers identical.
func createTestBuffer(w, h int) *PixelBuffer {
	b := NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u, v := 2*x+1, 2*y+1
			b.Set(x, y, color.NRGBA{
				R: uint8(255 * u / (2 * w)),
				G: uint8(255 * v / (2 * h)),
				B: uint8(255 - 255*u*v/(4*w*h)),
				A: 255,
			})
		}
	}
	return b
}

func gradeOne(c color.NRGBA, adj Adjustment) color.NRGBA {
	return GradeGlobal(NewFilled(1, 1, c), adj).At(0, 0)
}

func TestGradeGlobalIdentity(t *testing.T) {
	buf := createTestBuffer(37, 23)
	buf.Set(3, 4, color.NRGBA{R: 1, G: 254, B: 128, A: 40})

	if got := GradeGlobal(buf, DefaultAdjustment()); !got.Equal(buf) {
		t.Error("identity adjustment changed pixels")
	}
	if got := GradeWithRegions(buf, DefaultAdjustment(), []RegionalAdjustment{NewRegion(0.5, 0.5)}); !got.Equal(buf) {
		t.Error("identity region changed pixels")
	}
}

func TestGradeGlobalDoesNotMutateInput(t *testing.T) {
	buf := createTestBuffer(16, 16)
	before := buf.Clone()

	adj := Adjustment{Brightness: 130, Contrast: 80, Saturation: 150, Shadows: 20, Highlights: -10}
	region := NewRegion(0.4, 0.6)
	region.Brightness = 60

	out := GradeWithRegions(buf, adj, []RegionalAdjustment{region})
	if !buf.Equal(before) {
		t.Error("input buffer was modified")
	}
	if &out.Pix[0] == &buf.Pix[0] {
		t.Error("output shares memory with input")
	}
}

func TestGradeGlobalStages(t *testing.T) {
	tests := []struct {
		name string
		in   color.NRGBA
		adj  Adjustment
		want color.NRGBA
	}{
		{"brightness", color.NRGBA{200, 100, 50, 255}, Adjustment{Brightness: 50, Contrast: 100, Saturation: 100}, color.NRGBA{100, 50, 25, 255}},
		{"contrast", color.NRGBA{100, 128, 200, 255}, Adjustment{Brightness: 100, Contrast: 200, Saturation: 100}, color.NRGBA{72, 128, 255, 255}},
		{"desaturate", color.NRGBA{200, 100, 50, 255}, Adjustment{Brightness: 100, Contrast: 100, Saturation: 0}, color.NRGBA{124, 124, 124, 255}},
		{"shadows lift black", color.NRGBA{0, 0, 0, 255}, Adjustment{Brightness: 100, Contrast: 100, Saturation: 100, Shadows: 100}, color.NRGBA{255, 255, 255, 255}},
		{"highlights pull white", color.NRGBA{255, 255, 255, 255}, Adjustment{Brightness: 100, Contrast: 100, Saturation: 100, Highlights: -100}, color.NRGBA{0, 0, 0, 255}},
		{"shadows on mid gray", color.NRGBA{128, 128, 128, 255}, Adjustment{Brightness: 100, Contrast: 100, Saturation: 100, Shadows: 50}, color.NRGBA{144, 144, 144, 255}},
		{"alpha passes through", color.NRGBA{200, 100, 50, 77}, Adjustment{Brightness: 50, Contrast: 100, Saturation: 100}, color.NRGBA{100, 50, 25, 77}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeOne(tt.in, tt.adj); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGradeGlobalStageOrder(t *testing.T) {
	// Brightness runs before contrast: 100·1.5 = 150, (150−128)·2+128 = 172.
	got := gradeOne(color.NRGBA{100, 100, 100, 255}, Adjustment{Brightness: 150, Contrast: 200, Saturation: 100})
	if got.R != 172 {
		t.Errorf("brightness then contrast: got %d, want 172", got.R)
	}
}

func TestGradeGlobalNoIntermediateClamp(t *testing.T) {
	// 200·2 = 400, (400−128)·0.5+128 = 264 → 255. Clamping after brightness
	// would give 192.
	got := gradeOne(color.NRGBA{200, 200, 200, 255}, Adjustment{Brightness: 200, Contrast: 50, Saturation: 100})
	if got.R != 255 {
		t.Errorf("got %d, want 255", got.R)
	}
}

func TestGradeOutOfRangeValues(t *testing.T) {
	// Saturation beyond 200 is applied with the same formula.
	got := gradeOne(color.NRGBA{200, 100, 50, 255}, Adjustment{Brightness: 100, Contrast: 100, Saturation: 400})
	// gray = 124.2; R = 124.2 + 75.8·4 = 427.4 → 255; B = 124.2 − 74.2·4 → 0.
	if got.R != 255 || got.B != 0 {
		t.Errorf("got %v", got)
	}
}

func TestCombine(t *testing.T) {
	global := Adjustment{Brightness: 120, Contrast: 50, Saturation: 100, Shadows: 80, Highlights: -70}
	region := Adjustment{Brightness: 50, Contrast: 200, Saturation: 0, Shadows: 40, Highlights: -50}
	got := Combine(global, region)

	want := Adjustment{Brightness: 60, Contrast: 100, Saturation: 0, Shadows: 100, Highlights: -100}
	if math.Abs(got.Brightness-want.Brightness) > 1e-9 || got.Contrast != want.Contrast ||
		got.Saturation != want.Saturation || got.Shadows != want.Shadows || got.Highlights != want.Highlights {
		t.Errorf("Combine = %+v, want %+v", got, want)
	}
}

func TestMaskStops(t *testing.T) {
	tests := []struct{ d, want float64 }{
		{0, 1},
		{2.5, 0.9},
		{5, 0.8},
		{7.5, 0.4},
		{10, 0},
		{25, 0},
	}
	for _, tt := range tests {
		if got := MaskAt(tt.d, 10); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("MaskAt(%v, 10) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if MaskAt(0, 0) != 0 {
		t.Error("zero radius should produce an empty mask")
	}
}

func TestRegionalContainment(t *testing.T) {
	const w, h = 100, 80
	buf := createTestBuffer(w, h)
	global := Adjustment{Brightness: 110, Contrast: 100, Saturation: 100}
	region := NewRegion(0.5, 0.5)
	region.Radius = 0.2
	region.Brightness = 160
	region.Saturation = 40

	base := GradeGlobal(buf, global)
	out := GradeWithRegions(buf, global, []RegionalAdjustment{region})

	cx, cy, r := 0.5*w, 0.5*h, 0.2*w
	changed := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d >= r && out.At(x, y) != base.At(x, y) {
				t.Fatalf("pixel (%d,%d) at distance %.2f outside radius %.0f changed", x, y, d, r)
			}
			if out.At(x, y) != base.At(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("region had no effect inside its radius")
	}
}

func TestRegionCenterUsesCombinedAdjustment(t *testing.T) {
	// 101 pixels: the center of pixel 50 lies exactly on the region center.
	buf := createTestBuffer(101, 101)
	global := Adjustment{Brightness: 120, Contrast: 90, Saturation: 100, Shadows: 10}
	region := NewRegion(0.5, 0.5)
	region.Brightness = 70
	region.Highlights = 30

	out := GradeWithRegions(buf, global, []RegionalAdjustment{region})
	want := GradeGlobal(buf, Combine(global, region.Adjustment)).At(50, 50)
	if got := out.At(50, 50); got != want {
		t.Errorf("center pixel = %v, want %v", got, want)
	}
}

func TestRegionsCompositeInOrder(t *testing.T) {
	buf := createTestBuffer(101, 101)
	bright := NewRegion(0.5, 0.5)
	bright.Brightness = 180
	dark := NewRegion(0.5, 0.5)
	dark.Brightness = 40

	first := GradeWithRegions(buf, DefaultAdjustment(), []RegionalAdjustment{bright, dark})
	second := GradeWithRegions(buf, DefaultAdjustment(), []RegionalAdjustment{dark, bright})

	// At full mask opacity the later region wins.
	if first.At(50, 50) != GradeGlobal(buf, Combine(DefaultAdjustment(), dark.Adjustment)).At(50, 50) {
		t.Error("later region should cover the earlier one at the center")
	}
	if first.At(50, 50) == second.At(50, 50) {
		t.Error("region order should change the result")
	}
}

func TestGradeResolutionIndependence(t *testing.T) {
	// A 3× upscale keeps every coarse pixel center on a fine pixel center.
	small := createTestBuffer(40, 30)
	large := createTestBuffer(120, 90)

	global := Adjustment{Brightness: 115, Contrast: 130, Saturation: 70, Shadows: 25, Highlights: -15}
	region := NewRegion(0.35, 0.55)
	region.Radius = 0.3
	region.Brightness = 140
	region.Contrast = 80
	regions := []RegionalAdjustment{region}

	gs := GradeWithRegions(small, global, regions)
	gl := GradeWithRegions(large, global, regions)

	for y := 0; y < 30; y += 3 {
		for x := 0; x < 40; x += 3 {
			if small.At(x, y) != large.At(3*x+1, 3*y+1) {
				t.Fatalf("test pattern differs at (%d,%d)", x, y)
			}
			a, b := gs.At(x, y), gl.At(3*x+1, 3*y+1)
			if absDiff(a.R, b.R) > 1 || absDiff(a.G, b.G) > 1 || absDiff(a.B, b.B) > 1 {
				t.Errorf("(%d,%d): %v vs %v", x, y, a, b)
			}
		}
	}
}

func TestGradeParallelMatchesSequential(t *testing.T) {
	buf := createTestBuffer(300, 300)
	adj := Adjustment{Brightness: 90, Contrast: 120, Saturation: 130, Shadows: -20, Highlights: 15}
	got := GradeGlobal(buf, adj)

	f := adj.factors()
	for _, p := range [][2]int{{0, 0}, {150, 150}, {299, 17}, {3, 298}} {
		c := buf.At(p[0], p[1])
		r, g, b := f.apply(float64(c.R), float64(c.G), float64(c.B))
		want := color.NRGBA{toByte(r), toByte(g), toByte(b), c.A}
		if got.At(p[0], p[1]) != want {
			t.Errorf("pixel %v = %v, want %v", p, got.At(p[0], p[1]), want)
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func BenchmarkGradeWithRegions(b *testing.B) {
	buf := createTestBuffer(1024, 768)
	global := Adjustment{Brightness: 110, Contrast: 105, Saturation: 95, Shadows: 10}
	r1 := NewRegion(0.3, 0.4)
	r1.Brightness = 130
	r2 := NewRegion(0.6, 0.5)
	r2.Saturation = 60
	regions := []RegionalAdjustment{r1, r2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GradeWithRegions(buf, global, regions)
	}
}
