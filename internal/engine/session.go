// Package engine turns controller events into steno strokes using a compiled
// mapping table. All runtime state lives in a Session so independent devices
// (and tests) get independent state.
package engine

import (
	"fmt"

	"github.com/mthorp/stenopad/internal/mapping"
	"github.com/mthorp/stenopad/internal/steno"
)

// Options holds the runtime thresholds for a session.
type Options struct {
	StickDeadZone   float64 // minimum stick magnitude for a non-Neutral segment
	TriggerDeadZone float64 // minimum trigger travel to count as engaged
}

// Defaults for Options, matching the usual analog stick and trigger travel.
const (
	DefaultStickDeadZone   = 0.6
	DefaultTriggerDeadZone = 0.9
)

// sourceKind enumerates the closed set of input source kinds.
type sourceKind uint8

const (
	kindButton sourceKind = iota
	kindTrigger
	kindStick
	kindHat
)

// source identifies one input source: a button/hat index, a trigger axis, or
// a stick's position in the table's stick list.
type source struct {
	kind sourceKind
	id   int
}

// stickState is the per-stick runtime state: the current segment and the
// ordered history of distinct segments visited since the last Neutral.
type stickState struct {
	src     source
	def     *mapping.Stick
	segment int
	history []string
}

// Session is the per-device translation state machine. It must be driven
// from a single goroutine; events are processed to completion synchronously.
type Session struct {
	table    *mapping.Table
	opts     Options
	onStroke func(steno.Stroke)

	// OnWarning, when set, receives a message for each event referencing an
	// index absent from the mapping table. Such events are otherwise ignored.
	OnWarning func(string)

	axes        map[int]float64
	sticks      []*stickState
	stickByAxis map[int]*stickState
	contrib     map[source][]steno.Key // live contribution per engaged source
	pending     steno.KeySet           // keys latched for the stroke in progress
}

// NewSession creates a session over an immutable mapping table. onStroke is
// called once per completed stroke with the keys in canonical order.
func NewSession(table *mapping.Table, opts Options, onStroke func(steno.Stroke)) *Session {
	if opts.StickDeadZone <= 0 {
		opts.StickDeadZone = DefaultStickDeadZone
	}
	if opts.TriggerDeadZone <= 0 {
		opts.TriggerDeadZone = DefaultTriggerDeadZone
	}
	s := &Session{
		table:    table,
		opts:     opts,
		onStroke: onStroke,
	}
	s.Reset()
	return s
}

// Reset returns all runtime state to initial: every stick Neutral, every
// history empty, no pending keys. Nothing is emitted. Called on device
// disconnect and after each emitted stroke.
func (s *Session) Reset() {
	s.axes = make(map[int]float64)
	s.contrib = make(map[source][]steno.Key)
	s.pending = steno.NewKeySet()
	s.sticks = nil
	s.stickByAxis = make(map[int]*stickState)
	for i, def := range s.table.Sticks() {
		st := &stickState{src: source{kindStick, i}, def: def, segment: Neutral}
		s.sticks = append(s.sticks, st)
		s.stickByAxis[def.XAxis] = st
		s.stickByAxis[def.YAxis] = st
	}
}

// HandleAxis processes a normalized axis event in [-1, 1]. The axis may
// belong to a stick or a trigger; anything else is ignored with a warning.
func (s *Session) HandleAxis(index int, value float64) {
	if trig, ok := s.table.TriggerForAxis(index); ok {
		s.handleTrigger(trig, value)
		return
	}
	if st, ok := s.stickByAxis[index]; ok {
		s.axes[index] = value
		s.handleStick(st)
		return
	}
	s.warnf("axis %d not in mapping table", index)
}

// HandleButton processes a digital button transition.
func (s *Session) HandleButton(index int, pressed bool) {
	btn, ok := s.table.ButtonAt(index)
	if !ok {
		s.warnf("button %d not in mapping table", index)
		return
	}
	src := source{kindButton, index}
	if pressed {
		if _, held := s.contrib[src]; held {
			return
		}
		keys := s.table.SimpleKeys(btn.Name)
		s.contrib[src] = keys
		s.pending.Add(keys...)
		return
	}
	if _, held := s.contrib[src]; held {
		delete(s.contrib, src)
		s.maybeEmit()
	}
}

// HandleHat processes a hat position. Centered releases the hat; each
// distinct direction latches the simple mapping of <hatname><direction>.
func (s *Session) HandleHat(index int, dir mapping.HatDirection) {
	hat, ok := s.table.HatAt(index)
	if !ok {
		s.warnf("hat %d not in mapping table", index)
		return
	}
	src := source{kindHat, index}
	if dir == mapping.HatCentered {
		if _, held := s.contrib[src]; held {
			delete(s.contrib, src)
			s.maybeEmit()
		}
		return
	}
	keys := s.table.SimpleKeys(hat.Name + string(dir))
	s.contrib[src] = keys
	s.pending.Add(keys...)
}

func (s *Session) handleTrigger(trig *mapping.Trigger, value float64) {
	src := source{kindTrigger, trig.Axis}
	engaged := value > s.opts.TriggerDeadZone
	_, held := s.contrib[src]
	switch {
	case engaged && !held:
		keys := s.table.SimpleKeys(trig.Name)
		s.contrib[src] = keys
		s.pending.Add(keys...)
	case !engaged && held:
		delete(s.contrib, src)
		s.maybeEmit()
	}
}

func (s *Session) handleStick(st *stickState) {
	x := s.axes[st.def.XAxis]
	y := s.axes[st.def.YAxis]
	seg := ClassifySegment(x, y, s.opts.StickDeadZone, st.def)

	if seg == Neutral {
		if st.segment != Neutral {
			st.segment = Neutral
			delete(s.contrib, st.src)
			s.finalizeGesture(st)
			s.maybeEmit()
		}
		return
	}
	if seg == st.segment {
		return
	}
	st.segment = seg
	name := st.def.Segments[seg]
	if n := len(st.history); n == 0 || st.history[n-1] != name {
		st.history = append(st.history, name)
	}
	// Partial gestures register immediately: the live contribution is the
	// simple mapping of the current segment, if any.
	s.contrib[st.src] = s.table.SimpleKeys(st.def.Name + name)
}

// finalizeGesture resolves a stick's recorded history exactly once, on the
// transition to Neutral: an exact full-sequence rule wins, otherwise the
// simple mapping of the last segment visited, otherwise nothing.
func (s *Session) finalizeGesture(st *stickState) {
	defer func() { st.history = nil }()
	if len(st.history) == 0 {
		return
	}
	if keys, ok := s.table.SequenceKeys(st.def.Name, st.history); ok {
		s.pending.Add(keys...)
		return
	}
	last := st.history[len(st.history)-1]
	s.pending.Add(s.table.SimpleKeys(st.def.Name + last)...)
}

// maybeEmit completes the stroke when every source has been released. A
// source still engaged keeps the stroke open even if it contributes no keys.
func (s *Session) maybeEmit() {
	if len(s.contrib) > 0 {
		return
	}
	if s.pending.Len() == 0 {
		return
	}
	stroke := s.pending.Stroke()
	s.pending = steno.NewKeySet()
	for _, st := range s.sticks {
		st.history = nil
	}
	s.onStroke(stroke)
}

// Chord returns the keys of the stroke in progress: everything latched so
// far plus the live contributions of currently engaged sources.
func (s *Session) Chord() steno.Stroke {
	ks := steno.NewKeySet()
	for k := range s.pending {
		ks.Add(k)
	}
	for _, keys := range s.contrib {
		ks.Add(keys...)
	}
	return ks.Stroke()
}

func (s *Session) warnf(format string, args ...any) {
	if s.OnWarning != nil {
		s.OnWarning(fmt.Sprintf(format, args...))
	}
}
