package engine

import (
	"math"

	"github.com/mthorp/stenopad/internal/mapping"
)

// Neutral is the classification of a stick resting inside its dead zone.
const Neutral = -1

// ClassifySegment maps a normalized stick position to a segment index of the
// stick's declared segment list, or Neutral when the magnitude is below the
// dead zone. Direction alone selects the segment: the circle is split into
// len(Segments) equal sectors starting at the stick's offset angle, each
// closed on its lower edge and open on its upper edge. The sector index is
// computed by multiply-then-floor so the boundary tie-break is exact.
func ClassifySegment(x, y, deadZone float64, stick *mapping.Stick) int {
	if math.Hypot(x, y) < deadZone {
		return Neutral
	}
	n := len(stick.Segments)
	theta := math.Atan2(y, x)*(180/math.Pi) - stick.Offset
	theta = math.Mod(theta, 360)
	if theta < 0 {
		theta += 360
	}
	// theta can land exactly on 360 after rounding; the final mod folds it
	// back into sector 0.
	return int(math.Floor(theta*float64(n)/360)) % n
}
