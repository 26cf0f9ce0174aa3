package banner

import (
	"fmt"

	"crosstab/domain/core"
)

// ColumnKind is the closed set of segmentation kinds.
type ColumnKind string

const (
	// KindStandard matches one option of a single-choice column.
	KindStandard ColumnKind = "standard"
	// KindMultiMention matches one option across several mention columns.
	KindMultiMention ColumnKind = "multi_mention"
	// KindBoxCategory ORs several option values into one segment.
	KindBoxCategory ColumnKind = "box_category"
)

// Column is one population segment of the banner.
type Column struct {
	Key            core.SegmentKey
	Label          string
	Letter         string
	Kind           ColumnKind
	SourceColumn   string
	MentionColumns []string
	Values         []string
	Tested         bool
}

// Group is one banner group: the columns derived from a single source
// variable. Significance tests run only between columns of one group.
type Group struct {
	Name    string
	Columns []Column
}

// Keys returns the group's keys in declared order.
func (g Group) Keys() []core.SegmentKey {
	keys := make([]core.SegmentKey, len(g.Columns))
	for i, c := range g.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Structure is the full segmentation definition: ordered groups plus
// the implicit Total column.
type Structure struct {
	groups []Group
	byKey  map[core.SegmentKey]Column
}

// NewStructure validates group definitions, assigns significance
// letters in declared column order and returns the structure. Keys
// must be unique across the whole banner.
func NewStructure(groups []Group) (*Structure, error) {
	byKey := make(map[core.SegmentKey]Column)
	out := make([]Group, len(groups))
	for gi, g := range groups {
		if len(g.Columns) == 0 {
			return nil, fmt.Errorf("banner group %q has no columns", g.Name)
		}
		cols := make([]Column, len(g.Columns))
		for ci, c := range g.Columns {
			if _, err := core.ParseSegmentKey(c.Key.String()); err != nil {
				return nil, fmt.Errorf("banner group %q: %w", g.Name, err)
			}
			if _, dup := byKey[c.Key]; dup {
				return nil, fmt.Errorf("duplicate banner key %q", c.Key)
			}
			if c.Key.IsTotal() {
				return nil, fmt.Errorf("the Total column is implicit and cannot be declared")
			}
			c.Letter = letterFor(ci)
			c.Tested = true
			cols[ci] = c
			byKey[c.Key] = c
		}
		out[gi] = Group{Name: g.Name, Columns: cols}
	}
	return &Structure{groups: out, byKey: byKey}, nil
}

// Groups returns the ordered banner groups.
func (s *Structure) Groups() []Group {
	return s.groups
}

// Keys returns every banner key in report order: Total first, then
// each group's columns in declared order.
func (s *Structure) Keys() []core.SegmentKey {
	keys := []core.SegmentKey{core.TotalSegmentKey}
	for _, g := range s.groups {
		keys = append(keys, g.Keys()...)
	}
	return keys
}

// ColumnByKey looks up a declared column. The Total column is implicit
// and not returned here.
func (s *Structure) ColumnByKey(key core.SegmentKey) (Column, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// Label returns the display label for a key.
func (s *Structure) Label(key core.SegmentKey) string {
	if key.IsTotal() {
		return "Total"
	}
	if c, ok := s.byKey[key]; ok {
		return c.Label
	}
	return key.Value()
}

// letterFor maps a within-group column position to its significance
// letter: A..Z, then AA, AB, ...
func letterFor(i int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(alphabet) {
		return string(alphabet[i])
	}
	first := i/len(alphabet) - 1
	second := i % len(alphabet)
	return string(alphabet[first]) + string(alphabet[second])
}
