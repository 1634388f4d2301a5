package stocks

import "strings"

// SafetyInput carries the metrics the safety score is built from. Nil fields
// are excluded from the evaluation instead of counting as zero.
type SafetyInput struct {
	DividendYield    *float64
	PayoutRatio      *float64
	GrowthRate       *float64
	ConsecutiveYears int
	Beta             *float64
}

// SafetyScore grades a stock 0 to 5 across up to five criteria. Each
// criterion contributes at most one point and the total is normalized by the
// number of criteria that could actually be evaluated. With no usable data
// the score is a neutral 2.5.
func SafetyScore(in SafetyInput) float64 {
	var score float64
	var criteria int

	if in.DividendYield != nil {
		criteria++
		switch dy := *in.DividendYield; {
		case dy >= 2 && dy <= 6:
			score += 1.0
		case dy >= 1 && dy < 8:
			score += 0.5
		}
	}

	if in.PayoutRatio != nil {
		criteria++
		switch pr := *in.PayoutRatio; {
		case pr < 60:
			score += 1.0
		case pr < 75:
			score += 0.6
		case pr < 90:
			score += 0.3
		}
	}

	if in.GrowthRate != nil {
		criteria++
		switch dgr := *in.GrowthRate; {
		case dgr > 5:
			score += 1.0
		case dgr > 0:
			score += 0.7
		case dgr >= -2:
			score += 0.3
		}
	}

	if in.ConsecutiveYears > 0 {
		criteria++
		switch cy := in.ConsecutiveYears; {
		case cy >= 10:
			score += 1.0
		case cy >= 5:
			score += 0.7
		case cy >= 3:
			score += 0.4
		}
	}

	if in.Beta != nil {
		criteria++
		switch beta := *in.Beta; {
		case beta < 0.8:
			score += 1.0
		case beta < 1.0:
			score += 0.7
		case beta < 1.3:
			score += 0.4
		}
	}

	if criteria == 0 {
		return 2.5
	}
	return score / float64(criteria) * 5
}

// SafetyRating maps a score to its label.
func SafetyRating(score float64) string {
	switch {
	case score >= 4.5:
		return "Excellent"
	case score >= 3.5:
		return "Good"
	case score >= 2.5:
		return "Fair"
	case score >= 2.0:
		return "Below Average"
	default:
		return "Poor"
	}
}

// Recommendation builds a short advisory string from the score and yield.
func Recommendation(in SafetyInput, score float64) string {
	var parts []string

	switch {
	case score >= 4.0:
		parts = append(parts, "Strong dividend candidate")
	case score >= 3.0:
		parts = append(parts, "Solid dividend payer")
	default:
		parts = append(parts, "Moderate quality")
	}

	if in.DividendYield != nil {
		switch dy := *in.DividendYield; {
		case dy > 8:
			parts = append(parts, "Very high yield, verify sustainability")
		case dy >= 2 && dy <= 6:
			parts = append(parts, "Optimal yield range")
		}
	}

	return strings.Join(parts, "; ")
}
