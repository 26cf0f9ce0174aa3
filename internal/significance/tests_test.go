package significance

import (
	"math"
	"testing"
)

func TestTwoProportionZObviousDifference(t *testing.T) {
	res := TwoProportionZ(0.8, 400, 0.2, 400)
	if !res.Performed {
		t.Fatal("test should run")
	}
	if res.PValue > 0.001 {
		t.Errorf("80%% vs 20%% on n=400 should be highly significant, p=%.6f", res.PValue)
	}
	if res.Statistic <= 0 {
		t.Errorf("first proportion is larger, expected positive z, got %.4f", res.Statistic)
	}
}

func TestTwoProportionZNoDifference(t *testing.T) {
	res := TwoProportionZ(0.5, 200, 0.5, 200)
	if !res.Performed {
		t.Fatal("test should run")
	}
	if math.Abs(res.Statistic) > 1e-12 || res.PValue < 0.999 {
		t.Errorf("identical proportions should give z=0, p=1, got z=%.4f p=%.4f", res.Statistic, res.PValue)
	}
}

func TestTwoProportionZDegenerate(t *testing.T) {
	if TwoProportionZ(0.5, 0, 0.5, 100).Performed {
		t.Error("zero effective n must not test")
	}
	if TwoProportionZ(1, 100, 1, 100).Performed {
		t.Error("pooled proportion of 1 leaves no variance to test")
	}
}

func TestWelchTObviousDifference(t *testing.T) {
	res := WelchT(4.5, 0.5, 200, 3.0, 0.5, 200)
	if !res.Performed {
		t.Fatal("test should run")
	}
	if res.PValue > 0.001 {
		t.Errorf("large mean gap should be significant, p=%.6f", res.PValue)
	}
}

func TestWelchTSmallSamples(t *testing.T) {
	if WelchT(4, 1, 1, 3, 1, 50).Performed {
		t.Error("effective n of 1 leaves no degrees of freedom")
	}
	if WelchT(4, 0, 10, 4, 0, 10).Performed {
		t.Error("zero variance on both sides must not test")
	}
}

func TestBonferroniAlpha(t *testing.T) {
	if got := BonferroniAlpha(0.05, 2); got != 0.05 {
		t.Errorf("one pair keeps the nominal alpha, got %.4f", got)
	}
	if got := BonferroniAlpha(0.06, 4); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("four segments have six pairs, expected 0.01, got %.5f", got)
	}
	if got := BonferroniAlpha(0.05, 1); got != 0.05 {
		t.Errorf("a single segment has no pairs, got %.4f", got)
	}
}
