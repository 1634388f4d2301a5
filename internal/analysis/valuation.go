package analysis

import (
	"fmt"
	"math"

	"divtrack/internal/marketdata"
)

// Valuation is the over/undervalued assessment of one stock.
type Valuation struct {
	PERatio           *float64 `json:"peRatio"`
	PBRatio           *float64 `json:"pbRatio"`
	FiftyTwoWeekHigh  *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow   *float64 `json:"fiftyTwoWeekLow"`
	RangePosition     *float64 `json:"rangePosition"`
	TargetPrice       *float64 `json:"targetPrice"`
	UpsidePotential   *float64 `json:"upsidePotential"`
	OverallAssessment string   `json:"overallAssessment"`
	Status            string   `json:"status"`
	Signals           []string `json:"signals"`
}

// Valuate weighs P/E, P/B, the 52-week range position and the analyst
// target into an overall cheap/fair/rich call.
func Valuate(q *marketdata.Quote) *Valuation {
	v := &Valuation{
		PERatio:          round2Ptr(q.TrailingPE),
		PBRatio:          round2Ptr(q.PriceToBook),
		FiftyTwoWeekHigh: round2Ptr(q.High52Week),
		FiftyTwoWeekLow:  round2Ptr(q.Low52Week),
		TargetPrice:      round2Ptr(q.TargetMeanPrice),
	}

	var undervalued, overvalued int

	if q.TrailingPE != nil {
		switch pe := *q.TrailingPE; {
		case pe < 15:
			v.Signals = append(v.Signals, "Low P/E (Undervalued)")
			undervalued += 2
		case pe > 30:
			v.Signals = append(v.Signals, "High P/E (Overvalued)")
			overvalued += 2
		default:
			v.Signals = append(v.Signals, "Moderate P/E (Fair)")
		}
	}

	if q.PriceToBook != nil {
		switch pb := *q.PriceToBook; {
		case pb < 1:
			v.Signals = append(v.Signals, "Low P/B (Undervalued)")
			undervalued++
		case pb > 3:
			v.Signals = append(v.Signals, "High P/B (Overvalued)")
			overvalued++
		default:
			v.Signals = append(v.Signals, "Moderate P/B (Fair)")
		}
	}

	if q.CurrentPrice != nil && q.High52Week != nil && q.Low52Week != nil && *q.High52Week != *q.Low52Week {
		pos := (*q.CurrentPrice - *q.Low52Week) / (*q.High52Week - *q.Low52Week) * 100
		rounded := math.Round(pos*10) / 10
		v.RangePosition = &rounded
		switch {
		case pos < 30:
			v.Signals = append(v.Signals, "Near 52-week Low (Potential Bargain)")
			undervalued++
		case pos > 90:
			v.Signals = append(v.Signals, "Near 52-week High (Potentially Overbought)")
			overvalued++
		case pos > 70:
			v.Signals = append(v.Signals, "Upper Range (Strong Momentum)")
		}
	}

	if q.TargetMeanPrice != nil && q.CurrentPrice != nil && *q.CurrentPrice > 0 {
		upside := (*q.TargetMeanPrice - *q.CurrentPrice) / *q.CurrentPrice * 100
		rounded := math.Round(upside*10) / 10
		v.UpsidePotential = &rounded
		switch {
		case upside > 20:
			v.Signals = append(v.Signals, fmt.Sprintf("Analyst Target +%.1f%% Upside", upside))
			undervalued++
		case upside < -10:
			v.Signals = append(v.Signals, fmt.Sprintf("Analyst Target %.1f%% Downside", upside))
			overvalued++
		}
	}

	switch {
	case undervalued > overvalued+1:
		v.OverallAssessment = "Undervalued"
		v.Status = "discount"
	case overvalued > undervalued+1:
		v.OverallAssessment = "Overvalued"
		v.Status = "premium"
	default:
		v.OverallAssessment = "Fairly Valued"
		v.Status = "fair"
	}

	return v
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*100) / 100
	return &r
}
