package loo

import (
	"math"
	"sort"
)

// Tail sizing and shape-estimate regularization follow Vehtari, Simpson,
// Gelman, Yao & Gabry, "Pareto Smoothed Importance Sampling" (2024) and the
// reference loo implementation.
const (
	minTailLen    = 5
	gpdPriorScale = 3.0
	gpdPriorK     = 10.0
)

// tailLength returns the number of largest importance ratios smoothed per
// observation: ceil(min(0.2*S, 3*sqrt(S))).
func tailLength(s int) int {
	v := math.Min(0.2*float64(s), 3*math.Sqrt(float64(s)))
	return int(math.Ceil(v))
}

// gpdFit estimates the shape k and scale sigma of a generalized Pareto
// distribution over positive exceedances using the profile-likelihood method
// of Zhang & Stephens (2009), with the weak prior adjustment on k used by
// PSIS. x must be sorted ascending and strictly positive.
func gpdFit(x []float64) (k, sigma float64) {
	n := len(x)
	xStar := x[int(math.Floor(float64(n)/4+0.5))-1]
	xMax := x[n-1]

	m := 30 + int(math.Floor(math.Sqrt(float64(n))))
	theta := make([]float64, m)
	for j := 0; j < m; j++ {
		theta[j] = 1/xMax + (1-math.Sqrt(float64(m)/(float64(j)+0.5)))/(gpdPriorScale*xStar)
	}

	// Profile log-likelihood for each grid point.
	profile := make([]float64, m)
	kOf := func(t float64) float64 {
		s := 0.0
		for _, v := range x {
			s += math.Log1p(-t * v)
		}
		return s / float64(n)
	}
	for j, t := range theta {
		kj := kOf(t)
		profile[j] = float64(n) * (math.Log(-t/kj) - kj - 1)
	}

	// Weights proportional to the profile likelihood.
	thetaHat := 0.0
	for j := range theta {
		denom := 0.0
		for i := range theta {
			denom += math.Exp(profile[i] - profile[j])
		}
		thetaHat += theta[j] / denom
	}

	k = kOf(thetaHat)
	sigma = -k / thetaHat

	// Weakly informative prior pulls k toward 0.5 for small tails.
	k = (float64(n)*k + gpdPriorK*0.5) / (float64(n) + gpdPriorK)
	return k, sigma
}

// gpdQuantile inverts the generalized Pareto CDF.
func gpdQuantile(p, k, sigma float64) float64 {
	if k == 0 {
		return -sigma * math.Log(1-p)
	}
	return sigma / k * (math.Pow(1-p, -k) - 1)
}

// smoothTail replaces the largest importance ratios with expected order
// statistics of the fitted generalized Pareto distribution. logRatios is
// modified in place; the returned k-hat is the fitted (regularized) shape.
// When the tail is too short or has no variation, no smoothing happens and
// k-hat reflects that: +Inf for a too-short tail, -Inf for a flat one.
func smoothTail(logRatios []float64) (khat float64) {
	s := len(logRatios)
	m := tailLength(s)
	if m < minTailLen || m >= s {
		return math.Inf(1)
	}

	// Identify the tail: indices of the m largest log ratios.
	order := make([]int, s)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return logRatios[order[a]] < logRatios[order[b]] })

	// Work on the ratio scale relative to the largest ratio so nothing
	// overflows; the generalized Pareto shape is scale-invariant.
	logMax := logRatios[order[s-1]]
	cutoffRel := math.Exp(logRatios[order[s-m-1]] - logMax)

	exceed := make([]float64, m)
	for j := 0; j < m; j++ {
		exceed[j] = math.Exp(logRatios[order[s-m+j]]-logMax) - cutoffRel
	}
	if exceed[m-1] <= 0 {
		// All tail ratios tied with the cutoff: nothing to smooth.
		return math.Inf(-1)
	}
	for j := range exceed {
		if exceed[j] <= 0 {
			exceed[j] = math.SmallestNonzeroFloat64
		}
	}

	k, sigma := gpdFit(exceed)
	if math.IsNaN(k) || math.IsInf(k, 0) || !(sigma > 0) {
		// Degenerate tail (e.g. a lone extreme ratio over near-ties): the
		// fit carries no information, so leave the ratios unsmoothed and
		// report the estimate as unreliable.
		return math.Inf(1)
	}

	// Replace tail values with expected order statistics of the fit, capped
	// at the largest raw ratio.
	for j := 0; j < m; j++ {
		p := (float64(j) + 0.5) / float64(m)
		smoothed := math.Log(gpdQuantile(p, k, sigma)+cutoffRel) + logMax
		if smoothed > logMax {
			smoothed = logMax
		}
		logRatios[order[s-m+j]] = smoothed
	}

	return k
}

// logSumExp computes log(sum(exp(x))) with the usual max shift.
func logSumExp(x []float64) float64 {
	max := math.Inf(-1)
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	s := 0.0
	for _, v := range x {
		s += math.Exp(v - max)
	}
	return max + math.Log(s)
}
