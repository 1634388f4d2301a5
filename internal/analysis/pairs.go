// Package analysis implements the portfolio analytics: pair trading
// scans, valuation and growth screens, strategy comparisons and benchmark
// performance reports.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"divtrack/internal/marketdata"
)

// CorrelationCell is one entry of the pairwise correlation matrix.
type CorrelationCell struct {
	Symbol1       string  `json:"symbol1"`
	Symbol2       string  `json:"symbol2"`
	Correlation   float64 `json:"correlation"`
	Cointegration float64 `json:"cointegration"`
}

// PairSuggestion is a tradeable pair candidate with its scoring breakdown.
type PairSuggestion struct {
	Symbol1            string  `json:"symbol1"`
	Symbol2            string  `json:"symbol2"`
	Score              float64 `json:"score"`
	RecommendationType string  `json:"recommendationType"`
	Reasoning          string  `json:"reasoning"`
	OptimalRatio       float64 `json:"optimalRatio"`
	Correlation        float64 `json:"correlation"`
	Cointegration      float64 `json:"cointegration"`
	HalfLife           *int    `json:"halfLife"`
	IsStationaryPair   bool    `json:"isStationaryPair"`
	ExpectedReturns    float64 `json:"expectedReturns"`
	RiskLevel          string  `json:"riskLevel"`
}

// PairsReport is the full correlation and pair trading analysis.
type PairsReport struct {
	Success           bool              `json:"success"`
	Period            string            `json:"period"`
	Years             int               `json:"years"`
	Symbols           []string          `json:"symbols"`
	DataPoints        int               `json:"dataPoints"`
	StartDate         string            `json:"startDate"`
	EndDate           string            `json:"endDate"`
	CorrelationMatrix []CorrelationCell `json:"correlationMatrix"`
	PairSuggestions   []PairSuggestion  `json:"pairSuggestions"`
	TopPairs          []PairSuggestion  `json:"topPairs"`
	CalculatedAt      time.Time         `json:"calculatedAt"`
}

// HistorySource fetches candles for a symbol over a range.
type HistorySource interface {
	GetHistory(symbol, rng, interval string) ([]marketdata.Candle, error)
}

// PairsAnalyzer builds correlation matrices and pair suggestions.
type PairsAnalyzer struct {
	source HistorySource
	log    zerolog.Logger
}

// NewPairsAnalyzer creates a pairs analyzer.
func NewPairsAnalyzer(source HistorySource, log zerolog.Logger) *PairsAnalyzer {
	return &PairsAnalyzer{
		source: source,
		log:    log.With().Str("component", "pairs_analyzer").Logger(),
	}
}

// Analyze fetches history for every symbol, aligns the series to common
// dates and scores every pair.
func (a *PairsAnalyzer) Analyze(symbols []string, years int) (*PairsReport, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("need at least 2 symbols, got %d", len(symbols))
	}
	if years <= 0 {
		years = 5
	}

	rng := fmt.Sprintf("%dy", years)
	series := make(map[string]map[string]float64, len(symbols))
	var kept []string
	for _, symbol := range symbols {
		candles, err := a.source.GetHistory(symbol, rng, "1d")
		if err != nil || len(candles) == 0 {
			a.log.Warn().Err(err).Str("symbol", symbol).Msg("No data for symbol")
			continue
		}
		byDate := make(map[string]float64, len(candles))
		for _, c := range candles {
			byDate[c.Date.UTC().Format("2006-01-02")] = c.Close
		}
		series[symbol] = byDate
		kept = append(kept, symbol)
	}
	if len(kept) < 2 {
		return nil, fmt.Errorf("need at least 2 symbols with valid data")
	}

	dates := commonDates(series, kept)
	if len(dates) < 30 {
		return nil, fmt.Errorf("only %d overlapping dates across symbols", len(dates))
	}

	aligned := make(map[string][]float64, len(kept))
	for _, symbol := range kept {
		prices := make([]float64, len(dates))
		for i, d := range dates {
			prices[i] = series[symbol][d]
		}
		aligned[symbol] = prices
	}

	report := &PairsReport{
		Success:      true,
		Period:       fmt.Sprintf("%dY", years),
		Years:        years,
		Symbols:      symbols,
		DataPoints:   len(dates),
		StartDate:    dates[0],
		EndDate:      dates[len(dates)-1],
		CalculatedAt: time.Now().UTC(),
	}

	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			sym1, sym2 := kept[i], kept[j]
			p1, p2 := aligned[sym1], aligned[sym2]

			corr := stat.Correlation(p1, p2, nil)
			cointScore, stationary := cointegration(p1, p2)
			ratio := hedgeRatio(p1, p2)

			var halfLife *int
			if stationary {
				spread := make([]float64, len(p1))
				for k := range p1 {
					spread[k] = p1[k] - ratio*p2[k]
				}
				halfLife = meanReversionHalfLife(spread)
			}

			report.CorrelationMatrix = append(report.CorrelationMatrix, CorrelationCell{
				Symbol1:       sym1,
				Symbol2:       sym2,
				Correlation:   round4(corr),
				Cointegration: round4(cointScore),
			})

			score := scorePair(corr, cointScore, stationary, halfLife)
			if score < 30 {
				continue
			}

			risk := riskLevel(score)
			expected := score * 0.10
			if risk == "Low" {
				expected = score * 0.15
			}
			report.PairSuggestions = append(report.PairSuggestions, PairSuggestion{
				Symbol1:            sym1,
				Symbol2:            sym2,
				Score:              score,
				RecommendationType: strategyType(corr, stationary),
				Reasoning:          pairReasoning(corr, cointScore, stationary, halfLife),
				OptimalRatio:       round4(ratio),
				Correlation:        round4(corr),
				Cointegration:      round4(cointScore),
				HalfLife:           halfLife,
				IsStationaryPair:   stationary,
				ExpectedReturns:    math.Round(expected*100) / 100,
				RiskLevel:          risk,
			})
		}
	}

	sort.Slice(report.PairSuggestions, func(i, j int) bool {
		return report.PairSuggestions[i].Score > report.PairSuggestions[j].Score
	})
	top := len(report.PairSuggestions)
	if top > 5 {
		top = 5
	}
	report.TopPairs = report.PairSuggestions[:top]

	a.log.Info().
		Int("correlations", len(report.CorrelationMatrix)).
		Int("pairs", len(report.PairSuggestions)).
		Msg("Pair analysis complete")
	return report, nil
}

// commonDates returns the dates present in every series, ascending.
func commonDates(series map[string]map[string]float64, symbols []string) []string {
	var dates []string
	for date := range series[symbols[0]] {
		shared := true
		for _, symbol := range symbols[1:] {
			if _, ok := series[symbol][date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// hedgeRatio is the OLS slope of prices1 regressed on prices2.
func hedgeRatio(p1, p2 []float64) float64 {
	_, beta := stat.LinearRegression(p2, p1, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 1.0
	}
	return beta
}

// cointegration runs the Engle-Granger two-step test: regress one series on
// the other, then test the residual for a unit root. Returns a 0-1 score
// (1 means strongly cointegrated) and whether the spread is stationary at
// the 5% level.
func cointegration(p1, p2 []float64) (float64, bool) {
	alpha, beta := stat.LinearRegression(p2, p1, nil, false)
	resid := make([]float64, len(p1))
	for i := range p1 {
		resid[i] = p1[i] - (alpha + beta*p2[i])
	}

	tStat, ok := unitRootTStat(resid)
	if !ok {
		return 0, false
	}

	pvalue := engleGrangerPValue(tStat)
	score := 1 - pvalue
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, pvalue < 0.05
}

// unitRootTStat regresses the residual's first difference on its lag and
// returns the t-statistic of the slope.
func unitRootTStat(resid []float64) (float64, bool) {
	n := len(resid) - 1
	if n < 20 {
		return 0, false
	}

	lag := make([]float64, n)
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		lag[i] = resid[i]
		diff[i] = resid[i+1] - resid[i]
	}

	alpha, gamma := stat.LinearRegression(lag, diff, nil, false)

	var lagMean float64
	for _, v := range lag {
		lagMean += v
	}
	lagMean /= float64(n)

	var rss, sxx float64
	for i := 0; i < n; i++ {
		e := diff[i] - alpha - gamma*lag[i]
		rss += e * e
		d := lag[i] - lagMean
		sxx += d * d
	}
	if sxx == 0 || n <= 2 {
		return 0, false
	}

	se := math.Sqrt(rss / float64(n-2) / sxx)
	if se == 0 {
		return 0, false
	}
	return gamma / se, true
}

// engleGrangerPValue interpolates an approximate p-value from the test
// statistic using the two-variable Engle-Granger critical values.
func engleGrangerPValue(tStat float64) float64 {
	// (critical value, p) anchors, most negative first
	anchors := []struct {
		crit float64
		p    float64
	}{
		{-4.32, 0.001},
		{-3.90, 0.01},
		{-3.34, 0.05},
		{-3.04, 0.10},
		{-2.57, 0.25},
		{-2.00, 0.50},
		{-1.00, 0.80},
		{0.00, 0.95},
	}

	if tStat <= anchors[0].crit {
		return anchors[0].p
	}
	for i := 1; i < len(anchors); i++ {
		if tStat <= anchors[i].crit {
			lo, hi := anchors[i-1], anchors[i]
			frac := (tStat - lo.crit) / (hi.crit - lo.crit)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return 0.99
}

// meanReversionHalfLife fits an AR(1) model to the spread and converts the
// decay coefficient to days. Returns nil when the spread is not reverting.
func meanReversionHalfLife(spread []float64) *int {
	n := len(spread) - 1
	if n < 2 {
		return nil
	}

	lag := make([]float64, n)
	ret := make([]float64, n)
	for i := 0; i < n; i++ {
		lag[i] = spread[i]
		ret[i] = spread[i+1] - spread[i]
	}

	_, lambda := stat.LinearRegression(lag, ret, nil, false)
	if lambda >= 0 {
		return nil
	}

	halfLife := -math.Ln2 / lambda
	if halfLife <= 0 || math.IsInf(halfLife, 0) || math.IsNaN(halfLife) {
		return nil
	}
	days := int(halfLife)
	return &days
}

// scorePair grades a pair 0-100: correlation strength 30, cointegration 30,
// stationarity 20, usable half-life 20.
func scorePair(corr, cointScore float64, stationary bool, halfLife *int) float64 {
	var score float64

	absCorr := math.Abs(corr)
	switch {
	case absCorr > 0.8:
		score += 30
	case absCorr > 0.6:
		score += 20
	case absCorr > 0.4:
		score += 10
	}

	score += cointScore * 30

	if stationary {
		score += 20
	}

	if halfLife != nil {
		switch hl := *halfLife; {
		case hl >= 5 && hl <= 60:
			score += 20
		case hl <= 90:
			score += 10
		}
	}

	return math.Round(score*100) / 100
}

func strategyType(corr float64, stationary bool) string {
	absCorr := math.Abs(corr)
	switch {
	case stationary && absCorr > 0.6:
		return "MeanReversion"
	case absCorr > 0.7:
		return "Correlation"
	case absCorr >= 0.3 && absCorr <= 0.6:
		return "Ratio"
	default:
		return "Diversification"
	}
}

func riskLevel(score float64) string {
	switch {
	case score >= 70:
		return "Low"
	case score >= 50:
		return "Medium"
	default:
		return "High"
	}
}

func pairReasoning(corr, cointScore float64, stationary bool, halfLife *int) string {
	var reasons []string
	if math.Abs(corr) > 0.7 {
		direction := "Strong positive"
		if corr < 0 {
			direction = "Strong negative"
		}
		reasons = append(reasons, fmt.Sprintf("%s correlation (%.2f)", direction, corr))
	}
	if cointScore > 0.7 {
		reasons = append(reasons, fmt.Sprintf("High cointegration (%.2f)", cointScore))
	}
	if stationary {
		reasons = append(reasons, "Stationary spread suitable for mean reversion")
	}
	if halfLife != nil && *halfLife >= 5 && *halfLife <= 60 {
		reasons = append(reasons, fmt.Sprintf("Optimal half-life of %d days", *halfLife))
	}
	if len(reasons) == 0 {
		return "Moderate correlation suggests potential for pair trading"
	}

	out := reasons[0]
	for _, r := range reasons[1:] {
		out += ". " + r
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
