package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/mthorp/stenopad/internal/mapping"
)

func stickWithSegments(n int, offset float64) *mapping.Stick {
	segments := make([]string, n)
	for i := range segments {
		segments[i] = fmt.Sprintf("s%d", i)
	}
	return &mapping.Stick{Name: "test", XAxis: 0, YAxis: 1, Offset: offset, Segments: segments}
}

func TestClassifyDeadZone(t *testing.T) {
	stick := stickWithSegments(6, 0)

	// Below the dead zone every angle is Neutral.
	for deg := 0; deg < 360; deg += 15 {
		rad := float64(deg) * math.Pi / 180
		x, y := 0.3*math.Cos(rad), 0.3*math.Sin(rad)
		if got := ClassifySegment(x, y, 0.5, stick); got != Neutral {
			t.Errorf("ClassifySegment(%d deg, mag 0.3) = %d, want Neutral", deg, got)
		}
	}

	// Magnitude exactly at the dead zone is classified (closed lower edge).
	if got := ClassifySegment(0.5, 0, 0.5, stick); got == Neutral {
		t.Error("ClassifySegment(mag == dead zone) = Neutral, want a segment")
	}
}

func TestClassifyMagnitudeIrrelevant(t *testing.T) {
	stick := stickWithSegments(8, 0)

	for deg := 10; deg < 360; deg += 20 {
		rad := float64(deg) * math.Pi / 180
		var segs []int
		for _, mag := range []float64{0.55, 0.7, 0.9, 1.0} {
			segs = append(segs, ClassifySegment(mag*math.Cos(rad), mag*math.Sin(rad), 0.5, stick))
		}
		for _, s := range segs[1:] {
			if s != segs[0] {
				t.Fatalf("angle %d deg: segments %v differ across magnitudes", deg, segs)
			}
		}
	}
}

func TestClassifySectorMidpoints(t *testing.T) {
	// The sector midpoint of every sector must classify to that sector, for
	// any segment count and offset.
	for _, n := range []int{1, 2, 3, 5, 6, 8, 12} {
		for _, offset := range []float64{0, 30, -45, 90, 360} {
			stick := stickWithSegments(n, offset)
			width := 360 / float64(n)
			for k := 0; k < n; k++ {
				mid := (float64(k)+0.5)*width + offset
				rad := mid * math.Pi / 180
				got := ClassifySegment(math.Cos(rad), math.Sin(rad), 0.5, stick)
				if got != k {
					t.Errorf("n=%d offset=%v sector %d midpoint: got %d", n, offset, k, got)
				}
			}
		}
	}
}

func TestClassifyBoundariesClosedOpen(t *testing.T) {
	// atan2 is exact at the cardinal points, so N=4 boundaries land exactly
	// on sector edges: each edge belongs to the sector it opens.
	stick := stickWithSegments(4, 0)
	tests := []struct {
		x, y float64
		want int
	}{
		{1, 0, 0},   // 0 deg, lower edge of sector 0
		{0, 1, 1},   // 90 deg, lower edge of sector 1
		{-1, 0, 2},  // 180 deg
		{0, -1, 3},  // 270 deg
		{1, 1, 0},   // 45 deg, interior of sector 0
		{1, 0.001, 0}, // just above 0 deg
	}
	for _, tt := range tests {
		if got := ClassifySegment(tt.x, tt.y, 0.5, stick); got != tt.want {
			t.Errorf("ClassifySegment(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestClassifyOffset(t *testing.T) {
	// With a 90 degree offset, straight down (90 deg) is the start of
	// sector 0.
	stick := stickWithSegments(4, 90)
	if got := ClassifySegment(0, 1, 0.5, stick); got != 0 {
		t.Errorf("ClassifySegment(down, offset 90) = %d, want 0", got)
	}
	// And straight right (0 deg) wraps to the last sector.
	if got := ClassifySegment(1, 0, 0.5, stick); got != 3 {
		t.Errorf("ClassifySegment(right, offset 90) = %d, want 3", got)
	}
}

func TestClassifySingleSegment(t *testing.T) {
	stick := stickWithSegments(1, 0)
	for deg := 0; deg < 360; deg += 30 {
		rad := float64(deg) * math.Pi / 180
		if got := ClassifySegment(math.Cos(rad), math.Sin(rad), 0.5, stick); got != 0 {
			t.Errorf("ClassifySegment(%d deg, n=1) = %d, want 0", deg, got)
		}
	}
}

func TestClassifySpecExample(t *testing.T) {
	// "left stick has segments (dr,d,dl,ul,u,ur) ... offset by 0 degrees":
	// straight down on a y-grows-downward pad is 90 degrees, segment "d".
	stick := &mapping.Stick{
		Name: "left", XAxis: 0, YAxis: 1, Offset: 0,
		Segments: []string{"dr", "d", "dl", "ul", "u", "ur"},
	}
	got := ClassifySegment(0, 1, 0.6, stick)
	if got == Neutral || stick.Segments[got] != "d" {
		t.Errorf("straight down classified as %d, want segment d", got)
	}
	if got := ClassifySegment(0, -1, 0.6, stick); stick.Segments[got] != "u" {
		t.Errorf("straight up classified as %q, want u", stick.Segments[got])
	}
}
