// Package steno models the stenotype key alphabet and complete strokes.
package steno

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a single key on the steno layout, in its hyphenated form:
// "S-" for the left bank, "-S" for the right bank, "#" and "*" bare.
type Key string

// keyOrder is the canonical serialization order for a stroke.
var keyOrder = []Key{
	"#",
	"S-", "T-", "K-", "P-", "W-", "H-", "R-",
	"A-", "O-",
	"*",
	"-E", "-U",
	"-F", "-R", "-P", "-B", "-L", "-G", "-T", "-S", "-D", "-Z",
}

var orderIndex = func() map[Key]int {
	m := make(map[Key]int, len(keyOrder))
	for i, k := range keyOrder {
		m[k] = i
	}
	return m
}()

// AllKeys returns the full key alphabet in canonical order.
func AllKeys() []Key {
	out := make([]Key, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// Letter returns the key's bare letter, without bank hyphens.
func (k Key) Letter() string {
	return strings.Trim(string(k), "-")
}

// Valid reports whether k is a key of the steno alphabet.
func (k Key) Valid() bool {
	_, ok := orderIndex[k]
	return ok
}

// ParseStroke splits stroke notation like "KPW-", "-S" or "A*EU" into keys.
// Letters before the hyphen are left-bank keys, letters after it right-bank.
// "#" and "*" carry no hyphen, and the vowels E and U exist only on the right
// bank, so they imply the hyphen when it is absent. Returns an error on
// characters outside the alphabet or a key appearing twice.
func ParseStroke(s string) ([]Key, error) {
	if s == "" {
		return nil, fmt.Errorf("empty stroke")
	}
	var keys []Key
	seen := make(map[Key]bool)
	right := false
	for _, r := range s {
		var k Key
		switch r {
		case '-':
			right = true
			continue
		case '#', '*':
			k = Key(r)
		case 'E', 'U':
			right = true
			k = Key("-" + string(r))
		default:
			if right {
				k = Key("-" + string(r))
			} else {
				k = Key(string(r) + "-")
			}
		}
		if !k.Valid() {
			return nil, fmt.Errorf("%q is not a steno key", k)
		}
		if seen[k] {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("stroke %q contains no keys", s)
	}
	return keys, nil
}

// Stroke is a duplicate-free set of keys in canonical order.
type Stroke []Key

// String renders the stroke in standard steno notation. The hyphen is
// omitted when a middle key (A- O- * -E -U) already separates the banks.
func (s Stroke) String() string {
	var b strings.Builder
	hyphenated := false
	for _, k := range s {
		switch {
		case k == "#" || k == "*":
			b.WriteString(string(k))
			if k == "*" {
				hyphenated = true
			}
		case strings.HasSuffix(string(k), "-"):
			b.WriteString(strings.TrimSuffix(string(k), "-"))
			if k == "A-" || k == "O-" {
				hyphenated = true
			}
		case k == "-E" || k == "-U":
			b.WriteString(strings.TrimPrefix(string(k), "-"))
			hyphenated = true
		default:
			if !hyphenated {
				b.WriteString("-")
				hyphenated = true
			}
			b.WriteString(strings.TrimPrefix(string(k), "-"))
		}
	}
	return b.String()
}

// KeySet accumulates keys during a stroke capture.
type KeySet map[Key]struct{}

// NewKeySet returns an empty key set.
func NewKeySet() KeySet {
	return make(KeySet)
}

// Add inserts every given key into the set.
func (ks KeySet) Add(keys ...Key) {
	for _, k := range keys {
		ks[k] = struct{}{}
	}
}

// Len returns the number of keys in the set.
func (ks KeySet) Len() int {
	return len(ks)
}

// Stroke returns the set's keys as a stroke in canonical order.
func (ks KeySet) Stroke() Stroke {
	keys := make(Stroke, 0, len(ks))
	for k := range ks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return orderIndex[keys[i]] < orderIndex[keys[j]]
	})
	return keys
}
