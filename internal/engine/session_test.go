package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/mthorp/stenopad/internal/mapping"
	"github.com/mthorp/stenopad/internal/steno"
)

const sessionMapping = `
left stick has segments (dr,d,dl,ul,u,ur) on axes 0 and 1 offset by 0 degrees
trigger on axis 2 is lefttrigger
button 0 is a
button 1 is spare
hat 0 is dpad

leftd -> W-
leftdl -> K-
leftu -> T-
left(d,dl,ul,u,ul) -> KPW-
lefttrigger -> A-
a -> -S
dpadu -> #
dpadd -> *
`

func newTestSession(t *testing.T) (*Session, *[]steno.Stroke) {
	t.Helper()
	tbl, err := mapping.Parse(sessionMapping)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var strokes []steno.Stroke
	s := NewSession(tbl, Options{}, func(st steno.Stroke) {
		strokes = append(strokes, st)
	})
	return s, &strokes
}

// Sector midpoint angles for the six declared segments.
var segmentAngle = map[string]float64{
	"dr": 30, "d": 90, "dl": 150, "ul": 210, "u": 270, "ur": 330,
}

// stickSim drives a session's stick one axis event at a time, the way a
// polled controller does, while keeping intermediate positions from straying
// through the dead zone or unrelated sectors.
type stickSim struct {
	s    *Session
	x, y float64
}

func (p *stickSim) move(segment string) {
	rad := segmentAngle[segment] * math.Pi / 180
	nx, ny := 0.65*math.Cos(rad), 0.65*math.Sin(rad)
	// Grow the widening axis first so the intermediate magnitude stays
	// above the dead zone.
	if math.Abs(nx)-math.Abs(p.x) >= math.Abs(ny)-math.Abs(p.y) {
		p.setX(nx)
		p.setY(ny)
	} else {
		p.setY(ny)
		p.setX(nx)
	}
}

func (p *stickSim) center() {
	// Zero the dominant axis first; the leftover minor component is inside
	// the dead zone, so the stick is Neutral from the first event on.
	if math.Abs(p.x) >= math.Abs(p.y) {
		p.setX(0)
		p.setY(0)
	} else {
		p.setY(0)
		p.setX(0)
	}
}

func (p *stickSim) setX(v float64) { p.x = v; p.s.HandleAxis(0, v) }
func (p *stickSim) setY(v float64) { p.y = v; p.s.HandleAxis(1, v) }

func TestEndToEndStroke(t *testing.T) {
	// Stick straight down plus button a, released together, yields one
	// stroke {W-, -S} in canonical order.
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	sim.move("d")
	s.HandleButton(0, true)
	sim.center()
	s.HandleButton(0, false)

	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	want := steno.Stroke{"W-", "-S"}
	if !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("stroke = %v, want %v", (*strokes)[0], want)
	}
}

func TestEmittedKeysIndependentOfReleaseOrder(t *testing.T) {
	orders := []struct {
		name    string
		release func(s *Session, sim *stickSim)
	}{
		{"stick first", func(s *Session, sim *stickSim) { sim.center(); s.HandleButton(0, false) }},
		{"button first", func(s *Session, sim *stickSim) { s.HandleButton(0, false); sim.center() }},
	}

	var results []steno.Stroke
	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			s, strokes := newTestSession(t)
			sim := &stickSim{s: s}
			s.HandleButton(0, true)
			sim.move("d")
			o.release(s, sim)

			if len(*strokes) != 1 {
				t.Fatalf("emitted %d strokes, want 1", len(*strokes))
			}
			results = append(results, (*strokes)[0])
		})
	}
	if len(results) == 2 && !reflect.DeepEqual(results[0], results[1]) {
		t.Errorf("release order changed the stroke: %v vs %v", results[0], results[1])
	}
}

func TestComplexGesturePreferred(t *testing.T) {
	// d -> dl -> ul -> u -> ul then release matches the sequence rule and
	// emits KPW-, not the simple mapping of ul.
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	for _, seg := range []string{"d", "dl", "ul", "u", "ul"} {
		sim.move(seg)
	}
	sim.center()

	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	want := steno.Stroke{"K-", "P-", "W-"}
	if !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("stroke = %v, want %v", (*strokes)[0], want)
	}
}

func TestGestureFallbackToLastSegment(t *testing.T) {
	// d -> dl matches no sequence rule; the fallback is the simple mapping
	// of the last segment visited (dl -> K-).
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	sim.move("d")
	sim.move("dl")
	sim.center()

	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	want := steno.Stroke{"K-"}
	if !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("stroke = %v, want %v", (*strokes)[0], want)
	}
}

func TestRepeatedSegmentNotRecorded(t *testing.T) {
	// Jitter within one segment must not grow the history: d, d, dl, d
	// records d -> dl -> d.
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	sim.move("d")
	sim.setY(0.9) // still d, different magnitude
	sim.move("dl")
	sim.move("d")
	sim.center()

	// No rule matches (d,dl,d); fallback is the simple mapping of d.
	want := steno.Stroke{"W-"}
	if len(*strokes) != 1 || !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("strokes = %v, want [%v]", *strokes, want)
	}
}

func TestEmissionOncePerCycle(t *testing.T) {
	s, strokes := newTestSession(t)

	// Overlapping presses and releases inside one cycle.
	s.HandleButton(0, true)
	s.HandleAxis(2, 1.0) // trigger engaged (A-)
	s.HandleButton(0, false)
	s.HandleHat(0, mapping.HatUp)
	s.HandleAxis(2, 0.0) // trigger released
	if len(*strokes) != 0 {
		t.Fatalf("stroke emitted while hat still active: %v", *strokes)
	}
	s.HandleHat(0, mapping.HatCentered)

	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	want := steno.Stroke{"#", "A-", "-S"}
	if !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("stroke = %v, want %v", (*strokes)[0], want)
	}

	// A second cycle starts clean.
	s.HandleButton(0, true)
	s.HandleButton(0, false)
	if len(*strokes) != 2 {
		t.Fatalf("emitted %d strokes after second cycle, want 2", len(*strokes))
	}
	if !reflect.DeepEqual((*strokes)[1], steno.Stroke{"-S"}) {
		t.Errorf("second stroke = %v, want [-S]", (*strokes)[1])
	}
}

func TestUnknownIndicesIgnored(t *testing.T) {
	s, strokes := newTestSession(t)
	var warnings []string
	s.OnWarning = func(msg string) { warnings = append(warnings, msg) }

	s.HandleButton(99, true)
	s.HandleAxis(42, 1.0)
	s.HandleHat(7, mapping.HatDown)
	s.HandleButton(99, false)

	if len(*strokes) != 0 {
		t.Errorf("unknown indices emitted strokes: %v", *strokes)
	}
	if len(warnings) != 4 {
		t.Errorf("got %d warnings, want 4", len(warnings))
	}

	// Subsequent processing is unaffected.
	s.HandleButton(0, true)
	s.HandleButton(0, false)
	if len(*strokes) != 1 {
		t.Errorf("emitted %d strokes after unknown input, want 1", len(*strokes))
	}
}

func TestUnmappedSourceGatesEmission(t *testing.T) {
	// Button "spare" has no rule. Holding it contributes no keys but keeps
	// the stroke open until it is released.
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	s.HandleButton(1, true)
	sim.move("d")
	sim.center()
	if len(*strokes) != 0 {
		t.Fatalf("stroke emitted while unmapped button held: %v", *strokes)
	}

	s.HandleButton(1, false)
	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	if !reflect.DeepEqual((*strokes)[0], steno.Stroke{"W-"}) {
		t.Errorf("stroke = %v, want [W-]", (*strokes)[0])
	}
}

func TestNoKeysNoStroke(t *testing.T) {
	// A cycle in which nothing mapped was touched emits nothing.
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	s.HandleButton(1, true) // unmapped
	s.HandleButton(1, false)
	sim.move("ur") // segment with no simple mapping
	sim.center()

	if len(*strokes) != 0 {
		t.Errorf("strokes = %v, want none", *strokes)
	}
}

func TestResetDropsPartialStroke(t *testing.T) {
	s, strokes := newTestSession(t)
	sim := &stickSim{s: s}

	s.HandleButton(0, true)
	sim.move("d")
	s.Reset()

	if len(*strokes) != 0 {
		t.Fatalf("Reset() emitted strokes: %v", *strokes)
	}

	// State is fully initial: a fresh cycle emits only its own keys.
	s.HandleButton(0, true)
	s.HandleButton(0, false)
	if len(*strokes) != 1 || !reflect.DeepEqual((*strokes)[0], steno.Stroke{"-S"}) {
		t.Errorf("strokes after reset = %v, want [[-S]]", *strokes)
	}
}

func TestHatDirectionChangeAccumulates(t *testing.T) {
	s, strokes := newTestSession(t)

	s.HandleHat(0, mapping.HatUp)
	s.HandleHat(0, mapping.HatDown)
	s.HandleHat(0, mapping.HatCentered)

	if len(*strokes) != 1 {
		t.Fatalf("emitted %d strokes, want 1", len(*strokes))
	}
	want := steno.Stroke{"#", "*"}
	if !reflect.DeepEqual((*strokes)[0], want) {
		t.Errorf("stroke = %v, want %v", (*strokes)[0], want)
	}
}

func TestChordReflectsPartialGesture(t *testing.T) {
	s, _ := newTestSession(t)
	sim := &stickSim{s: s}

	sim.move("d")
	if got := s.Chord(); !reflect.DeepEqual(got, steno.Stroke{"W-"}) {
		t.Errorf("Chord() mid-gesture = %v, want [W-]", got)
	}

	sim.move("ur") // no simple mapping; live contribution empty
	if got := s.Chord(); len(got) != 0 {
		t.Errorf("Chord() on unmapped segment = %v, want empty", got)
	}
}

func TestTriggerBelowDeadZoneInert(t *testing.T) {
	s, strokes := newTestSession(t)

	s.HandleAxis(2, 0.5) // below the 0.9 default
	s.HandleAxis(2, 0.0)

	if len(*strokes) != 0 {
		t.Errorf("strokes = %v, want none", *strokes)
	}
}
