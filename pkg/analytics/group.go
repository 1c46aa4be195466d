package analytics

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Group is a bitset classifying an event for routing.
// Group values are immutable; set operations always return a new value.
type Group uint

// Built-in groups. Bits above Sensitive are free for application groups.
const (
	Trace Group = 1 << iota
	Debug
	Info
	Action
	State
	Notice
	Warning
	Error
	Critical
	Sensitive
)

// DefaultGroups is the union of every built-in group.
const DefaultGroups = Trace | Debug | Info | Action | State |
	Notice | Warning | Error | Critical | Sensitive

var groupNames = []struct {
	group Group
	name  string
}{
	{Trace, "trace"},
	{Debug, "debug"},
	{Info, "info"},
	{Action, "action"},
	{State, "state"},
	{Notice, "notice"},
	{Warning, "warning"},
	{Error, "error"},
	{Critical, "critical"},
	{Sensitive, "sensitive"},
}

// Union returns the groups present in g or other.
func (g Group) Union(other Group) Group {
	return g | other
}

// Intersection returns the groups present in both g and other.
func (g Group) Intersection(other Group) Group {
	return g & other
}

// Subtracting returns g without the groups in other.
func (g Group) Subtracting(other Group) Group {
	return g &^ other
}

// IsDisjoint reports whether g and other share no group.
func (g Group) IsDisjoint(other Group) bool {
	return g&other == 0
}

// Contains reports whether every group in other is also in g.
func (g Group) Contains(other Group) bool {
	return g&other == other
}

// IsEmpty reports whether g has no group set.
func (g Group) IsEmpty() bool {
	return g == 0
}

// Count returns the number of groups set in g.
func (g Group) Count() int {
	return bits.OnesCount(uint(g))
}

// String renders g as built-in names joined by "|".
// Application-defined bits are rendered in hex.
func (g Group) String() string {
	if g == 0 {
		return "none"
	}
	var parts []string
	rest := g
	for _, gn := range groupNames {
		if g&gn.group != 0 {
			parts = append(parts, gn.name)
			rest &^= gn.group
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint(rest)))
	}
	return strings.Join(parts, "|")
}

// MarshalText implements encoding.TextMarshaler.
func (g Group) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Group) UnmarshalText(text []byte) error {
	parsed, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGroup parses group names separated by "|" or ",".
// "default" and "defaults" stand for DefaultGroups, "none" for the empty
// group, and hex literals ("0x400") for application-defined bits.
func ParseGroup(s string) (Group, error) {
	var g Group
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ','
	})
	for _, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field))
		switch name {
		case "":
			continue
		case "none":
			continue
		case "default", "defaults":
			g |= DefaultGroups
			continue
		}
		parsed, ok := lookupGroup(name)
		if !ok {
			return 0, fmt.Errorf("unknown analytics group %q", field)
		}
		g |= parsed
	}
	return g, nil
}

func lookupGroup(name string) (Group, bool) {
	for _, gn := range groupNames {
		if gn.name == name {
			return gn.group, true
		}
	}
	if hex, ok := strings.CutPrefix(name, "0x"); ok {
		raw, err := strconv.ParseUint(hex, 16, 0)
		if err == nil && raw != 0 {
			return Group(raw), true
		}
	}
	return 0, false
}
