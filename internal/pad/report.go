package pad

import (
	"encoding/binary"
	"fmt"
)

// ReportIDState identifies the gamepad state report.
const ReportIDState byte = 0x01

// HatCentered is the State.Hat value for a centered hat.
const HatCentered = -1

// State is one decoded gamepad state report: the full position of every
// control at one instant. Events are produced by diffing successive states.
type State struct {
	Buttons   uint16     // pressed buttons as a bitmask, bit i = button i
	Hat       int        // 0 = up, proceeding clockwise; HatCentered when released
	Axes      [6]float64 // normalized to [-1, 1], triggers resting at 0
	Timestamp uint32     // ms since device boot
}

// EventKind discriminates the control a state change belongs to.
type EventKind byte

const (
	AxisEvent EventKind = iota
	ButtonEvent
	HatEvent
)

func (k EventKind) String() string {
	switch k {
	case AxisEvent:
		return "axis"
	case ButtonEvent:
		return "button"
	case HatEvent:
		return "hat"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// Event is one control transition extracted from a pair of state reports.
type Event struct {
	Kind      EventKind
	Index     int     // axis, button, or hat index
	Value     float64 // axis events
	Pressed   bool    // button events
	Hat       int     // hat events, HatCentered when released
	Timestamp uint32
}

func (e Event) String() string {
	switch e.Kind {
	case AxisEvent:
		return fmt.Sprintf("axis %d = %.3f", e.Index, e.Value)
	case ButtonEvent:
		if e.Pressed {
			return fmt.Sprintf("button %d pressed", e.Index)
		}
		return fmt.Sprintf("button %d released", e.Index)
	case HatEvent:
		if e.Hat == HatCentered {
			return fmt.Sprintf("hat %d centered", e.Index)
		}
		return fmt.Sprintf("hat %d = %d", e.Index, e.Hat)
	default:
		return "unknown event"
	}
}

// ParseReport decodes a raw HID report into a State.
// Expected format:
//
//	Byte 0:     Report ID (0x01)
//	Byte 1-2:   Button bitmask (16 buttons max, little-endian)
//	Byte 3:     Hat nibble (0 = up, clockwise to 7 = up-left; 8+ = centered)
//	Byte 4-9:   Six axis bytes, 0x80 centered
//	Byte 10-13: Timestamp (ms since boot, little-endian u32)
func ParseReport(data []byte) (*State, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("state report too short: %d bytes", len(data))
	}
	if data[0] != ReportIDState {
		return nil, fmt.Errorf("unexpected report ID: 0x%02X", data[0])
	}

	s := &State{
		Buttons:   binary.LittleEndian.Uint16(data[1:3]),
		Hat:       HatCentered,
		Timestamp: binary.LittleEndian.Uint32(data[10:14]),
	}
	if nib := data[3] & 0x0F; nib < 8 {
		s.Hat = int(nib)
	}
	for i := 0; i < 6; i++ {
		s.Axes[i] = normalizeAxis(data[4+i])
	}
	return s, nil
}

// normalizeAxis maps a 0x80-centered axis byte to [-1, 1]. 0x00 would land
// just past -1 on a 127 divisor, so it is clamped.
func normalizeAxis(b byte) float64 {
	v := float64(int(b)-0x80) / 127.0
	if v < -1 {
		return -1
	}
	return v
}

// Diff returns the control transitions between two successive states, stamped
// with the newer state's timestamp. Button transitions come first, then axes,
// then the hat, so a single report never interleaves kinds.
func Diff(prev, next *State) []Event {
	var events []Event
	for i := 0; i < 16; i++ {
		bit := uint16(1) << i
		if prev.Buttons&bit != next.Buttons&bit {
			events = append(events, Event{
				Kind:      ButtonEvent,
				Index:     i,
				Pressed:   next.Buttons&bit != 0,
				Timestamp: next.Timestamp,
			})
		}
	}
	for i := range next.Axes {
		if prev.Axes[i] != next.Axes[i] {
			events = append(events, Event{
				Kind:      AxisEvent,
				Index:     i,
				Value:     next.Axes[i],
				Timestamp: next.Timestamp,
			})
		}
	}
	if prev.Hat != next.Hat {
		events = append(events, Event{
			Kind:      HatEvent,
			Index:     0,
			Hat:       next.Hat,
			Timestamp: next.Timestamp,
		})
	}
	return events
}

// initialState is the implied state before the first report: everything
// released and centered.
func initialState() *State {
	return &State{Hat: HatCentered}
}
