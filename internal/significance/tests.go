package significance

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of one pairwise comparison.
type TestResult struct {
	Statistic float64
	PValue    float64
	Performed bool
}

// TwoProportionZ performs the weighted two-proportion z-test. The
// sample sizes are each segment's Kish effective n, which absorbs the
// weighting-induced variance inflation.
func TwoProportionZ(p1, n1, p2, n2 float64) TestResult {
	if n1 <= 0 || n2 <= 0 {
		return TestResult{}
	}
	pooled := (p1*n1 + p2*n2) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 || math.IsNaN(se) {
		return TestResult{}
	}
	z := (p1 - p2) / se
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * (1 - normal.CDF(math.Abs(z)))
	return TestResult{Statistic: z, PValue: p, Performed: true}
}

// WelchT performs the two-sample weighted t-test on means with
// unequal variances. Effective n's stand in for the sample sizes and
// the Welch-Satterthwaite equation supplies the degrees of freedom.
func WelchT(mean1, var1, n1, mean2, var2, n2 float64) TestResult {
	if n1 <= 1 || n2 <= 1 {
		return TestResult{}
	}
	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 || math.IsNaN(se) {
		return TestResult{}
	}
	t := (mean1 - mean2) / se

	num := math.Pow(var1/n1+var2/n2, 2)
	den := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if den == 0 {
		return TestResult{}
	}
	df := num / den
	if df < 1 {
		df = 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	return TestResult{Statistic: t, PValue: p, Performed: true}
}

// BonferroniAlpha divides the nominal alpha by the number of pairwise
// comparisons C(k,2) among k segments.
func BonferroniAlpha(alpha float64, k int) float64 {
	if k < 2 {
		return alpha
	}
	comparisons := float64(k*(k-1)) / 2
	return alpha / comparisons
}
