// Package statistics provides the bootstrap confidence interval used for
// per-group light score means.
package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// Interval holds a bootstrap confidence interval.
type Interval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	Resamples       int     `json:"resamples"`
}

// DefaultResamples is the number of bootstrap resamples.
const DefaultResamples = 2000

// BootstrapCI computes a percentile-method bootstrap confidence interval
// over values. confidenceLevel is in (0, 1), e.g. 0.95. The seed makes the
// resampling deterministic so repeated metric runs over an unchanged ledger
// produce identical snapshots. Fewer than 2 data points collapse the
// interval to the mean.
func BootstrapCI(values []float64, confidenceLevel float64, seed int64) Interval {
	n := len(values)
	m := mean(values)
	if n < 2 {
		return Interval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
			Resamples:       0,
		}
	}

	rng := rand.New(rand.NewSource(seed))
	iters := DefaultResamples

	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = values[rng.Intn(n)]
		}
		bootMeans[i] = mean(sample)
	}
	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return Interval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		Resamples:       iters,
	}
}

// ExcludesZero reports whether the interval lies strictly on one side of
// zero, i.e. the mean direction is significant at the interval's level.
func (i Interval) ExcludesZero() bool {
	return i.Lower > 0 || i.Upper < 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
