package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBootstrapCISmallSamples(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{name: "empty", values: nil},
		{name: "single", values: []float64{0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ci := BootstrapCI(tt.values, 0.95, 1)
			assert.Equal(t, ci.Mean, ci.Lower)
			assert.Equal(t, ci.Mean, ci.Upper)
			assert.Zero(t, ci.Resamples)
		})
	}
}

func TestBootstrapCIDeterministicForSeed(t *testing.T) {
	values := []float64{0.1, -0.2, 0.3, 0.05, -0.1, 0.2}

	a := BootstrapCI(values, 0.95, 7)
	b := BootstrapCI(values, 0.95, 7)
	assert.Equal(t, a, b)

	c := BootstrapCI(values, 0.95, 8)
	// Different seed resamples differently; bounds move at least slightly.
	assert.NotEqual(t, a.Lower, c.Lower)
}

func TestBootstrapCIBracketsMean(t *testing.T) {
	values := []float64{0.2, 0.25, 0.3, 0.22, 0.28, 0.31, 0.19}

	ci := BootstrapCI(values, 0.95, 1)
	assert.LessOrEqual(t, ci.Lower, ci.Mean)
	assert.GreaterOrEqual(t, ci.Upper, ci.Mean)
	assert.Equal(t, DefaultResamples, ci.Resamples)
	assert.InDelta(t, 0.25, ci.Mean, 0.02)
}

func TestExcludesZero(t *testing.T) {
	assert.True(t, Interval{Lower: 0.1, Upper: 0.3}.ExcludesZero())
	assert.True(t, Interval{Lower: -0.3, Upper: -0.1}.ExcludesZero())
	assert.False(t, Interval{Lower: -0.1, Upper: 0.1}.ExcludesZero())
	assert.False(t, Interval{Lower: 0, Upper: 0.1}.ExcludesZero())
}
