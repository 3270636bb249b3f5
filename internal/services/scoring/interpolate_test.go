package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreMetric(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		zero   float64
		ideal  float64
		maxPts float64
		invert bool
		want   float64
	}{
		{name: "at zero point", value: 0, zero: 0, ideal: 0.15, maxPts: 15, want: 0},
		{name: "at ideal point", value: 0.15, zero: 0, ideal: 0.15, maxPts: 15, want: 15},
		{name: "midpoint", value: 0.075, zero: 0, ideal: 0.15, maxPts: 15, want: 7.5},
		{name: "clamped below band", value: -1, zero: 0, ideal: 0.15, maxPts: 15, want: 0},
		{name: "clamped above band", value: 5, zero: 0, ideal: 0.15, maxPts: 15, want: 15},
		{name: "inverted at low end", value: 1.0, zero: 1.0, ideal: 3.0, maxPts: 20, invert: true, want: 20},
		{name: "inverted at high end", value: 3.0, zero: 1.0, ideal: 3.0, maxPts: 20, invert: true, want: 0},
		{name: "inverted midpoint", value: 2.0, zero: 1.0, ideal: 3.0, maxPts: 20, invert: true, want: 10},
		{name: "inverted clamped below band", value: 0.2, zero: 1.0, ideal: 3.0, maxPts: 20, invert: true, want: 20},
		{name: "inverted clamped above band", value: 9.0, zero: 1.0, ideal: 3.0, maxPts: 20, invert: true, want: 0},
		{name: "degenerate band", value: 1, zero: 2, ideal: 2, maxPts: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreMetric(tt.value, tt.zero, tt.ideal, tt.maxPts, tt.invert)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreMetricMonotonicAndBounded(t *testing.T) {
	prev := ScoreMetric(-0.5, 0, 1, 50, false)
	for v := -0.45; v <= 1.5; v += 0.05 {
		got := ScoreMetric(v, 0, 1, 50, false)
		assert.GreaterOrEqual(t, got, prev, "value %.2f", v)
		assert.GreaterOrEqual(t, got, 0.0, "value %.2f", v)
		assert.LessOrEqual(t, got, 50.0, "value %.2f", v)
		prev = got
	}
}
