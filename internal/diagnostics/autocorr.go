package diagnostics

// effectiveSampleSize estimates the number of independent-equivalent draws
// for one parameter from the autocorrelation decay of its chains. The
// combined autocorrelation estimate follows Gelman et al. (BDA3, §11.5),
// truncated with Geyer's initial positive sequence: lag pairs are summed
// while the pair sum stays positive. The result is clamped to
// [0, total draw count].
func effectiveSampleSize(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])
	total := float64(m * n)
	if n < 2 {
		return total
	}

	means := make([]float64, m)
	w := 0.0
	for i, c := range chains {
		means[i] = mean(c)
		w += sampleVariance(c, means[i])
	}
	w /= float64(m)

	grand := mean(means)
	b := 0.0
	for _, mu := range means {
		d := mu - grand
		b += d * d
	}
	if m > 1 {
		b *= float64(n) / float64(m-1)
	} else {
		b = 0
	}

	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	if varPlus == 0 {
		// Constant parameter: autocorrelation is undefined, treat every draw
		// as independent.
		return total
	}

	// Mean autocovariance across chains at each lag.
	maxLag := n - 1
	acov := func(lag int) float64 {
		s := 0.0
		for i, c := range chains {
			s += autocovariance(c, means[i], lag)
		}
		return s / float64(m)
	}

	// tau = -1 + 2 * sum of initial-positive lag pairs of rho.
	rho := func(lag int) float64 {
		return 1 - (w-acov(lag))/varPlus
	}

	tau := -1.0
	for lag := 0; lag+1 <= maxLag; lag += 2 {
		pair := rho(lag)
		if lag+1 <= maxLag {
			pair += rho(lag + 1)
		}
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau < 1 {
		tau = 1
	}

	ess := total / tau
	if ess > total {
		ess = total
	}
	if ess < 0 {
		ess = 0
	}
	return ess
}

// autocovariance at the given lag, normalized by n (not n-lag) so estimates
// shrink toward zero at long lags.
func autocovariance(values []float64, mu float64, lag int) float64 {
	n := len(values)
	if lag >= n {
		return 0
	}
	s := 0.0
	for i := 0; i+lag < n; i++ {
		s += (values[i] - mu) * (values[i+lag] - mu)
	}
	return s / float64(n)
}
