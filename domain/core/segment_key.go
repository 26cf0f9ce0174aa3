package core

import (
	"fmt"
	"strings"
)

// SegmentKey identifies one banner column. The wire format is
// "Question::Category::Value" and is the join point between the
// segmentation engine, the cell calculator and the report writer, so
// malformed keys are rejected at construction rather than surfacing as
// silent lookup misses.
type SegmentKey string

const segmentKeySeparator = "::"

// TotalSegmentKey is the implicit all-respondents column present in
// every banner structure.
const TotalSegmentKey SegmentKey = "Total::Total::Total"

// MakeSegmentKey builds a segment key from its three parts.
func MakeSegmentKey(question, category, value string) (SegmentKey, error) {
	parts := []string{question, category, value}
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return "", fmt.Errorf("segment key part cannot be empty (question=%q category=%q value=%q)", question, category, value)
		}
		if strings.Contains(trimmed, segmentKeySeparator) {
			return "", fmt.Errorf("segment key part %q contains reserved separator", trimmed)
		}
	}
	return SegmentKey(strings.TrimSpace(question) + segmentKeySeparator +
		strings.TrimSpace(category) + segmentKeySeparator +
		strings.TrimSpace(value)), nil
}

// ParseSegmentKey validates a raw key string.
func ParseSegmentKey(s string) (SegmentKey, error) {
	parts := strings.Split(s, segmentKeySeparator)
	if len(parts) != 3 {
		return "", fmt.Errorf("segment key %q must have exactly three parts", s)
	}
	return MakeSegmentKey(parts[0], parts[1], parts[2])
}

// String returns the wire representation.
func (k SegmentKey) String() string {
	return string(k)
}

// IsTotal reports whether the key is the implicit Total column.
func (k SegmentKey) IsTotal() bool {
	return k == TotalSegmentKey
}

// Question returns the question part of the key.
func (k SegmentKey) Question() string {
	parts := strings.SplitN(string(k), segmentKeySeparator, 3)
	return parts[0]
}

// Value returns the value part of the key.
func (k SegmentKey) Value() string {
	parts := strings.SplitN(string(k), segmentKeySeparator, 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
