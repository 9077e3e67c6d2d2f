// Package mapping compiles the plain-text controller mapping DSL into an
// immutable lookup table consumed by the translation engine.
package mapping

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/mthorp/stenopad/internal/steno"
)

// DefaultMapping is the mapping shipped with the binary, used when the
// configured mapping file does not exist yet.
//
//go:embed default_mapping.txt
var DefaultMapping string

// Stick declares an analog stick: an axis pair and the named segments its
// circle is divided into. Segment order defines the sector layout, starting
// at the offset angle and proceeding clockwise on screen (y grows downward).
type Stick struct {
	Name     string
	XAxis    int
	YAxis    int
	Offset   float64 // degrees
	Segments []string
}

// Trigger declares an analog trigger axis.
type Trigger struct {
	Name string
	Axis int
}

// Button declares a named digital button.
type Button struct {
	Name  string
	Index int
}

// Hat declares a named hat (d-pad).
type Hat struct {
	Name  string
	Index int
}

// HatDirection is a hat position token. The zero value is centered.
type HatDirection string

const (
	HatCentered  HatDirection = ""
	HatUp        HatDirection = "u"
	HatUpRight   HatDirection = "ur"
	HatRight     HatDirection = "r"
	HatDownRight HatDirection = "dr"
	HatDown      HatDirection = "d"
	HatDownLeft  HatDirection = "dl"
	HatLeft      HatDirection = "l"
	HatUpLeft    HatDirection = "ul"
)

var hatDirections = []HatDirection{
	HatUp, HatUpRight, HatRight, HatDownRight,
	HatDown, HatDownLeft, HatLeft, HatUpLeft,
}

// HatDirectionFor maps a hat position value (0 = up, proceeding clockwise)
// to its direction token. Out-of-range values are centered.
func HatDirectionFor(pos int) HatDirection {
	if pos < 0 || pos >= len(hatDirections) {
		return HatCentered
	}
	return hatDirections[pos]
}

// Table is the fully resolved mapping table. It is immutable after Parse;
// a reload builds a fresh table and swaps it wholesale.
type Table struct {
	sticks      map[string]*Stick
	stickByAxis map[int]*Stick
	triggers    map[int]*Trigger
	buttons     map[int]*Button
	hats        map[int]*Hat
	simple      map[string][]steno.Key
	sequences   map[string][]steno.Key
}

func newTable() *Table {
	return &Table{
		sticks:      make(map[string]*Stick),
		stickByAxis: make(map[int]*Stick),
		triggers:    make(map[int]*Trigger),
		buttons:     make(map[int]*Button),
		hats:        make(map[int]*Hat),
		simple:      make(map[string][]steno.Key),
		sequences:   make(map[string][]steno.Key),
	}
}

// Sticks returns the declared sticks sorted by name.
func (t *Table) Sticks() []*Stick {
	out := make([]*Stick, 0, len(t.sticks))
	for _, s := range t.sticks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StickForAxis returns the stick owning the given axis index, if any.
func (t *Table) StickForAxis(axis int) (*Stick, bool) {
	s, ok := t.stickByAxis[axis]
	return s, ok
}

// TriggerForAxis returns the trigger on the given axis index, if any.
func (t *Table) TriggerForAxis(axis int) (*Trigger, bool) {
	tr, ok := t.triggers[axis]
	return tr, ok
}

// ButtonAt returns the button declared at the given index, if any.
func (t *Table) ButtonAt(index int) (*Button, bool) {
	b, ok := t.buttons[index]
	return b, ok
}

// HatAt returns the hat declared at the given index, if any.
func (t *Table) HatAt(index int) (*Hat, bool) {
	h, ok := t.hats[index]
	return h, ok
}

// SimpleKeys returns the key set mapped to a simple source name such as a
// button name, trigger name, stick name + segment, or hat name + direction.
// A nil result means the source has no simple mapping.
func (t *Table) SimpleKeys(source string) []steno.Key {
	return t.simple[source]
}

// SequenceKeys returns the key set for an exact stick gesture sequence.
func (t *Table) SequenceKeys(stick string, segments []string) ([]steno.Key, bool) {
	keys, ok := t.sequences[sequenceKey(stick, segments)]
	return keys, ok
}

// Counts reports declaration and rule totals, for status output.
func (t *Table) Counts() (sticks, triggers, buttons, hats, rules int) {
	return len(t.sticks), len(t.triggers), len(t.buttons), len(t.hats),
		len(t.simple) + len(t.sequences)
}

func sequenceKey(stick string, segments []string) string {
	return stick + "(" + strings.Join(segments, ",") + ")"
}

// SyntaxError reports a line that matches no production of the mapping DSL.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mapping line %d: cannot parse %q", e.Line, e.Text)
}

// SemanticError reports a structurally valid mapping that cannot be resolved:
// duplicate indices, references to undeclared sources, or bad target strokes.
type SemanticError struct {
	Line   int
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("mapping line %d: %s", e.Line, e.Reason)
}
