package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mthorp/stenopad/internal/steno"
)

// One regexp per DSL production. A line that is neither blank, a comment,
// nor a match for exactly one of these is a syntax error.
var (
	stickRe   = regexp.MustCompile(`^([a-z][a-z0-9]*) stick has segments \(([a-z,]+)\) on axes (\d+) and (\d+) offset by (-?[0-9.]+) degrees$`)
	triggerRe = regexp.MustCompile(`^trigger on axis (\d+) is ([a-z][a-z0-9]*)$`)
	buttonRe  = regexp.MustCompile(`^button (\d+) is ([a-z][a-z0-9]*)$`)
	hatRe     = regexp.MustCompile(`^hat (\d+) is ([a-z][a-z0-9]*)$`)
	seqRe     = regexp.MustCompile(`^([a-z][a-z0-9]*)\(([a-z,]+)\) -> ([-A-Z#*]+)$`)
	simpleRe  = regexp.MustCompile(`^([a-z][a-z0-9]*) -> ([-A-Z#*]+)$`)
)

// rawRule is a mapping line held until every declaration has been read, so
// rules may reference sources declared anywhere in the file.
type rawRule struct {
	line     int
	source   string   // simple rules
	stick    string   // sequence rules
	segments []string // sequence rules
	stroke   string
}

// Parse compiles mapping DSL text into a Table. It returns *SyntaxError for
// an unrecognized line and *SemanticError for duplicate indices or names,
// references to undeclared sources, and invalid target strokes. On error the
// result is nil; a table is never partially built for the caller.
func Parse(text string) (*Table, error) {
	t := newTable()
	declLine := make(map[string]int) // source name -> declaring line
	axisLine := make(map[int]int)    // axis index -> declaring line
	var simples, seqs []rawRule

	declareName := func(name string, line int) error {
		if prev, ok := declLine[name]; ok {
			return &SemanticError{line, fmt.Sprintf("duplicate source name %q (first declared on line %d)", name, prev)}
		}
		declLine[name] = line
		return nil
	}
	claimAxis := func(axis, line int) error {
		if prev, ok := axisLine[axis]; ok {
			return &SemanticError{line, fmt.Sprintf("axis %d already in use (line %d)", axis, prev)}
		}
		axisLine[axis] = line
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		n := i + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if m := stickRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			segments := strings.Split(m[2], ",")
			seen := make(map[string]bool)
			for _, seg := range segments {
				if seg == "" {
					return nil, &SemanticError{n, fmt.Sprintf("stick %q has an empty segment name", name)}
				}
				if seen[seg] {
					return nil, &SemanticError{n, fmt.Sprintf("stick %q declares segment %q twice", name, seg)}
				}
				seen[seg] = true
			}
			x, _ := strconv.Atoi(m[3])
			y, _ := strconv.Atoi(m[4])
			offset, err := strconv.ParseFloat(m[5], 64)
			if err != nil {
				return nil, &SemanticError{n, fmt.Sprintf("bad offset %q: %v", m[5], err)}
			}
			if x == y {
				return nil, &SemanticError{n, fmt.Sprintf("stick %q uses axis %d for both x and y", name, x)}
			}
			if err := declareName(name, n); err != nil {
				return nil, err
			}
			if err := claimAxis(x, n); err != nil {
				return nil, err
			}
			if err := claimAxis(y, n); err != nil {
				return nil, err
			}
			stick := &Stick{Name: name, XAxis: x, YAxis: y, Offset: offset, Segments: segments}
			t.sticks[name] = stick
			t.stickByAxis[x] = stick
			t.stickByAxis[y] = stick
			continue
		}

		if m := triggerRe.FindStringSubmatch(line); m != nil {
			axis, _ := strconv.Atoi(m[1])
			if err := declareName(m[2], n); err != nil {
				return nil, err
			}
			if err := claimAxis(axis, n); err != nil {
				return nil, err
			}
			t.triggers[axis] = &Trigger{Name: m[2], Axis: axis}
			continue
		}

		if m := buttonRe.FindStringSubmatch(line); m != nil {
			index, _ := strconv.Atoi(m[1])
			if prev, ok := t.buttons[index]; ok {
				return nil, &SemanticError{n, fmt.Sprintf("button %d already declared as %q", index, prev.Name)}
			}
			if err := declareName(m[2], n); err != nil {
				return nil, err
			}
			t.buttons[index] = &Button{Name: m[2], Index: index}
			continue
		}

		if m := hatRe.FindStringSubmatch(line); m != nil {
			index, _ := strconv.Atoi(m[1])
			if prev, ok := t.hats[index]; ok {
				return nil, &SemanticError{n, fmt.Sprintf("hat %d already declared as %q", index, prev.Name)}
			}
			if err := declareName(m[2], n); err != nil {
				return nil, err
			}
			t.hats[index] = &Hat{Name: m[2], Index: index}
			continue
		}

		if m := seqRe.FindStringSubmatch(line); m != nil {
			seqs = append(seqs, rawRule{line: n, stick: m[1], segments: strings.Split(m[2], ","), stroke: m[3]})
			continue
		}

		if m := simpleRe.FindStringSubmatch(line); m != nil {
			simples = append(simples, rawRule{line: n, source: m[1], stroke: m[2]})
			continue
		}

		return nil, &SyntaxError{n, line}
	}

	for _, r := range simples {
		keys, err := steno.ParseStroke(r.stroke)
		if err != nil {
			return nil, &SemanticError{r.line, fmt.Sprintf("bad stroke %q: %v", r.stroke, err)}
		}
		if !t.sourceDeclared(r.source) {
			return nil, &SemanticError{r.line, fmt.Sprintf("mapping for undeclared source %q", r.source)}
		}
		t.simple[r.source] = keys
	}

	for _, r := range seqs {
		keys, err := steno.ParseStroke(r.stroke)
		if err != nil {
			return nil, &SemanticError{r.line, fmt.Sprintf("bad stroke %q: %v", r.stroke, err)}
		}
		stick, ok := t.sticks[r.stick]
		if !ok {
			return nil, &SemanticError{r.line, fmt.Sprintf("gesture mapping for undeclared stick %q", r.stick)}
		}
		for _, seg := range r.segments {
			if !stick.hasSegment(seg) {
				return nil, &SemanticError{r.line, fmt.Sprintf("stick %q has no segment %q", r.stick, seg)}
			}
		}
		t.sequences[sequenceKey(r.stick, r.segments)] = keys
	}

	return t, nil
}

func (s *Stick) hasSegment(name string) bool {
	for _, seg := range s.Segments {
		if seg == name {
			return true
		}
	}
	return false
}

// sourceDeclared reports whether a simple-mapping source name resolves to a
// declared button, trigger, hat direction, or stick segment.
func (t *Table) sourceDeclared(source string) bool {
	for _, b := range t.buttons {
		if b.Name == source {
			return true
		}
	}
	for _, tr := range t.triggers {
		if tr.Name == source {
			return true
		}
	}
	for _, h := range t.hats {
		if rest, ok := strings.CutPrefix(source, h.Name); ok {
			for _, dir := range hatDirections {
				if rest == string(dir) {
					return true
				}
			}
		}
	}
	for _, s := range t.sticks {
		if rest, ok := strings.CutPrefix(source, s.Name); ok && s.hasSegment(rest) {
			return true
		}
	}
	return false
}
