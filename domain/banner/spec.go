package banner

import (
	"fmt"
	"strings"

	"crosstab/domain/core"
)

// ColumnSpec declares one segment of a banner group as it appears in
// the run configuration.
type ColumnSpec struct {
	Label  string   `mapstructure:"label"`
	Value  string   `mapstructure:"value"`
	Values []string `mapstructure:"values"`
}

// GroupSpec declares one banner group: the source variable, the
// segmentation kind and the ordered segments.
type GroupSpec struct {
	Name           string       `mapstructure:"name"`
	Question       string       `mapstructure:"question"`
	Kind           string       `mapstructure:"kind"`
	SourceColumn   string       `mapstructure:"source_column"`
	MentionColumns []string     `mapstructure:"mention_columns"`
	Columns        []ColumnSpec `mapstructure:"columns"`
}

// StructureFromSpec turns the declarative banner specification into a
// validated Structure. Specification parsing itself happens outside;
// this re-validates the invariants the engine depends on.
func StructureFromSpec(specs []GroupSpec) (*Structure, error) {
	groups := make([]Group, 0, len(specs))
	for _, gs := range specs {
		kind, err := parseKind(gs.Kind)
		if err != nil {
			return nil, fmt.Errorf("banner group %q: %w", gs.Name, err)
		}
		if gs.Question == "" {
			return nil, fmt.Errorf("banner group %q: question is required", gs.Name)
		}
		switch kind {
		case KindMultiMention:
			if len(gs.MentionColumns) == 0 {
				return nil, fmt.Errorf("banner group %q: multi-mention groups need mention_columns", gs.Name)
			}
		default:
			if gs.SourceColumn == "" {
				return nil, fmt.Errorf("banner group %q: source_column is required", gs.Name)
			}
		}

		name := gs.Name
		if name == "" {
			name = gs.Question
		}
		cols := make([]Column, 0, len(gs.Columns))
		for _, cs := range gs.Columns {
			values := cs.Values
			colKind := kind
			if len(values) == 0 {
				values = []string{cs.Value}
			} else if len(values) > 1 {
				// Several grouped values make this segment a box.
				if kind == KindStandard {
					colKind = KindBoxCategory
				}
			}
			keyValue := cs.Value
			if keyValue == "" {
				keyValue = cs.Label
			}
			if strings.TrimSpace(keyValue) == "" {
				return nil, fmt.Errorf("banner group %q: segment needs a value or label", gs.Name)
			}
			key, err := core.MakeSegmentKey(gs.Question, name, keyValue)
			if err != nil {
				return nil, fmt.Errorf("banner group %q: %w", gs.Name, err)
			}
			label := cs.Label
			if label == "" {
				label = keyValue
			}
			cols = append(cols, Column{
				Key:            key,
				Label:          label,
				Kind:           colKind,
				SourceColumn:   gs.SourceColumn,
				MentionColumns: gs.MentionColumns,
				Values:         values,
			})
		}
		groups = append(groups, Group{Name: name, Columns: cols})
	}
	return NewStructure(groups)
}

func parseKind(s string) (ColumnKind, error) {
	switch ColumnKind(strings.TrimSpace(s)) {
	case KindStandard, "":
		return KindStandard, nil
	case KindMultiMention:
		return KindMultiMention, nil
	case KindBoxCategory:
		return KindBoxCategory, nil
	}
	return "", fmt.Errorf("unknown segmentation kind %q", s)
}
