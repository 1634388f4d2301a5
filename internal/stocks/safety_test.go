package stocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestSafetyScore(t *testing.T) {
	tests := []struct {
		name string
		in   SafetyInput
		want float64
	}{
		{
			name: "perfect stock",
			in: SafetyInput{
				DividendYield:    f(3.5),
				PayoutRatio:      f(45),
				GrowthRate:       f(8),
				ConsecutiveYears: 25,
				Beta:             f(0.6),
			},
			want: 5.0,
		},
		{
			name: "no usable data defaults to neutral",
			in:   SafetyInput{},
			want: 2.5,
		},
		{
			name: "single perfect criterion scales to full marks",
			in:   SafetyInput{DividendYield: f(4.0)},
			want: 5.0,
		},
		{
			name: "high payout drags the score",
			in: SafetyInput{
				DividendYield: f(4.0),
				PayoutRatio:   f(95),
			},
			want: 2.5, // (1.0 + 0) / 2 * 5
		},
		{
			name: "partial credit tiers",
			in: SafetyInput{
				DividendYield:    f(1.5), // 0.5
				PayoutRatio:      f(70),  // 0.6
				GrowthRate:       f(2),   // 0.7
				ConsecutiveYears: 6,      // 0.7
				Beta:             f(0.9), // 0.7
			},
			want: 3.2, // 3.2 / 5 * 5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SafetyScore(tt.in), 0.0001)
		})
	}
}

func TestSafetyRating(t *testing.T) {
	assert.Equal(t, "Excellent", SafetyRating(4.8))
	assert.Equal(t, "Excellent", SafetyRating(4.5))
	assert.Equal(t, "Good", SafetyRating(4.0))
	assert.Equal(t, "Fair", SafetyRating(2.9))
	assert.Equal(t, "Below Average", SafetyRating(2.2))
	assert.Equal(t, "Poor", SafetyRating(1.0))
}

func TestRecommendation(t *testing.T) {
	strong := Recommendation(SafetyInput{DividendYield: f(3.0)}, 4.2)
	assert.Contains(t, strong, "Strong dividend candidate")
	assert.Contains(t, strong, "Optimal yield range")

	risky := Recommendation(SafetyInput{DividendYield: f(9.5)}, 2.0)
	assert.Contains(t, risky, "Moderate quality")
	assert.Contains(t, risky, "Very high yield")

	solid := Recommendation(SafetyInput{}, 3.4)
	assert.Equal(t, "Solid dividend payer", solid)
}
