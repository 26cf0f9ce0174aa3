package significance

import (
	"testing"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/survey"
)

func threeSegmentGroup(t *testing.T) banner.Group {
	t.Helper()
	keys := make([]core.SegmentKey, 3)
	for i, v := range []string{"18-34", "35-54", "55+"} {
		k, err := core.MakeSegmentKey("age", "Age", v)
		if err != nil {
			t.Fatalf("bad key: %v", err)
		}
		keys[i] = k
	}
	return banner.Group{Name: "Age", Columns: []banner.Column{
		{Key: keys[0], Label: "18-34", Letter: "A", Tested: true},
		{Key: keys[1], Label: "35-54", Letter: "B", Tested: true},
		{Key: keys[2], Label: "55+", Letter: "C", Tested: true},
	}}
}

func TestProportionLettersAccumulate(t *testing.T) {
	group := threeSegmentGroup(t)
	inputs := map[core.SegmentKey]ProportionInput{
		group.Columns[0].Key: {Proportion: 0.9, EffectiveN: 500, Base: 500, Defined: true},
		group.Columns[1].Key: {Proportion: 0.5, EffectiveN: 500, Base: 500, Defined: true},
		group.Columns[2].Key: {Proportion: 0.1, EffectiveN: 500, Base: 500, Defined: true},
	}
	diags := &survey.Diagnostics{}
	letters := ProportionLetters(group, inputs, Config{Alpha: 0.05, MinBase: 30}, "Q1", diags)

	if letters[group.Columns[0].Key] != "BC" {
		t.Errorf("highest segment should beat both others in declared order, got %q", letters[group.Columns[0].Key])
	}
	if letters[group.Columns[1].Key] != "C" {
		t.Errorf("middle segment should beat only the lowest, got %q", letters[group.Columns[1].Key])
	}
	if letters[group.Columns[2].Key] != "" {
		t.Errorf("lowest segment should carry no letters, got %q", letters[group.Columns[2].Key])
	}
}

func TestMinBaseGateSkipsAndRecords(t *testing.T) {
	group := threeSegmentGroup(t)
	inputs := map[core.SegmentKey]ProportionInput{
		group.Columns[0].Key: {Proportion: 0.9, EffectiveN: 500, Base: 500, Defined: true},
		group.Columns[1].Key: {Proportion: 0.1, EffectiveN: 10, Base: 10, Defined: true},
		group.Columns[2].Key: {Proportion: 0.1, EffectiveN: 500, Base: 500, Defined: true},
	}
	diags := &survey.Diagnostics{}
	letters := ProportionLetters(group, inputs, Config{Alpha: 0.05, MinBase: 30}, "Q1", diags)

	if letters[group.Columns[0].Key] != "C" {
		t.Errorf("pair with the small segment must be skipped, got %q", letters[group.Columns[0].Key])
	}
	skips := 0
	for _, d := range diags.Items() {
		if d.Code == survey.DiagSigTestSkipped {
			skips++
		}
	}
	if skips != 2 {
		t.Errorf("two pairs touch the small segment, expected 2 skip diagnostics, got %d", skips)
	}
}

func TestUndefinedSegmentsAreSilentlySkipped(t *testing.T) {
	group := threeSegmentGroup(t)
	inputs := map[core.SegmentKey]ProportionInput{
		group.Columns[0].Key: {Proportion: 0.9, EffectiveN: 500, Base: 500, Defined: true},
		group.Columns[2].Key: {Proportion: 0.1, EffectiveN: 500, Base: 500, Defined: true},
	}
	diags := &survey.Diagnostics{}
	letters := ProportionLetters(group, inputs, Config{Alpha: 0.05, MinBase: 30}, "Q1", diags)
	if letters[group.Columns[0].Key] != "C" {
		t.Errorf("defined pair should still test, got %q", letters[group.Columns[0].Key])
	}
	for _, d := range diags.Items() {
		if d.Code == survey.DiagSigTestSkipped {
			t.Error("undefined cells are expected, not diagnostic-worthy")
		}
	}
}

func TestMeanLetters(t *testing.T) {
	group := threeSegmentGroup(t)
	inputs := map[core.SegmentKey]MeanInput{
		group.Columns[0].Key: {Mean: 4.5, Variance: 0.5, EffectiveN: 300, Base: 300, Defined: true},
		group.Columns[1].Key: {Mean: 3.0, Variance: 0.5, EffectiveN: 300, Base: 300, Defined: true},
		group.Columns[2].Key: {Mean: 3.0, Variance: 0.5, EffectiveN: 300, Base: 300, Defined: true},
	}
	diags := &survey.Diagnostics{}
	letters := MeanLetters(group, inputs, Config{Alpha: 0.05, MinBase: 30}, "Q1", diags)
	if letters[group.Columns[0].Key] != "BC" {
		t.Errorf("higher mean should beat both, got %q", letters[group.Columns[0].Key])
	}
	if letters[group.Columns[1].Key] != "" || letters[group.Columns[2].Key] != "" {
		t.Error("equal means must not earn letters")
	}
}
