package analysis

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/indicators"
)

// Default risk parameters for a trade plan, as fractions of the entry price.
const (
	stopLossPct           = 8.0
	profitTargetLowPct    = 5.0
	profitTargetMidPct    = 10.0
	profitTargetHighPct   = 15.0
	trailingActivationPct = 10.0
	trailingDistancePct   = 5.0
)

// PlanRecommendations carries the go/no-go signals of a trade plan.
type PlanRecommendations struct {
	BuySignal       bool     `json:"buySignal"`
	SellSignal      bool     `json:"sellSignal"`
	FavorableMonths []string `json:"favorableMonths"`
	AvoidMonths     []string `json:"avoidMonths"`
	RiskLevel       string   `json:"riskLevel"`
}

// TradePlan sizes a position and lays out exact entry and exit levels.
type TradePlan struct {
	Success      bool    `json:"success"`
	Symbol       string  `json:"symbol"`
	CompanyName  string  `json:"companyName"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`
	CurrentPrice float64 `json:"currentPrice"`

	Capital       float64 `json:"capital"`
	SharesToBuy   int     `json:"sharesToBuy"`
	PositionValue float64 `json:"positionValue"`
	RemainingCash float64 `json:"remainingCash"`

	EntryPrice             float64 `json:"entryPrice"`
	StopLossPrice          float64 `json:"stopLossPrice"`
	ProfitTargetLow        float64 `json:"profitTargetLow"`
	ProfitTargetMid        float64 `json:"profitTargetMid"`
	ProfitTargetHigh       float64 `json:"profitTargetHigh"`
	TrailingStopActivation float64 `json:"trailingStopActivation"`
	TrailingStopDistance   float64 `json:"trailingStopDistancePct"`

	RiskPerShare        float64 `json:"riskPerShare"`
	MaxLossDollars      float64 `json:"maxLossDollars"`
	PotentialProfitLow  float64 `json:"potentialProfitLow"`
	PotentialProfitMid  float64 `json:"potentialProfitMid"`
	PotentialProfitHigh float64 `json:"potentialProfitHigh"`

	RiskRewardLow  float64 `json:"riskRewardLow"`
	RiskRewardMid  float64 `json:"riskRewardMid"`
	RiskRewardHigh float64 `json:"riskRewardHigh"`

	MonthlyStats []MonthlyStat `json:"monthlyStats"`
	BestMonths   []string      `json:"bestMonths"`
	WorstMonths  []string      `json:"worstMonths"`

	Volatility     float64  `json:"volatility"`
	AvgDailyReturn float64  `json:"avgDailyReturn"`
	High52Week     float64  `json:"high52Week"`
	Low52Week      float64  `json:"low52Week"`
	MA20           float64  `json:"ma20"`
	MA50           *float64 `json:"ma50"`
	MA200          *float64 `json:"ma200"`
	Trend          string   `json:"trend"`

	Recommendations PlanRecommendations `json:"recommendations"`
	FetchedAt       time.Time           `json:"fetchedAt"`
}

// StrategyPlanner builds trade plans with exact dollar amounts.
type StrategyPlanner struct {
	history HistorySource
	quotes  QuoteSource
	log     zerolog.Logger
}

// NewStrategyPlanner creates a strategy planner.
func NewStrategyPlanner(history HistorySource, quotes QuoteSource, log zerolog.Logger) *StrategyPlanner {
	return &StrategyPlanner{
		history: history,
		quotes:  quotes,
		log:     log.With().Str("component", "strategy_plan").Logger(),
	}
}

// Plan sizes a whole-share position for the given capital and derives stop,
// targets, and seasonal context from the last N years of daily candles. The
// quote is optional, the last close stands in when it is missing.
func (p *StrategyPlanner) Plan(symbol string, capital float64, years int) (*TradePlan, error) {
	if capital <= 0 {
		capital = 1000
	}
	if years <= 0 {
		years = 3
	}

	candles, err := p.history.GetHistory(symbol, fmt.Sprintf("%dy", years), "1d")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if len(candles) < 20 {
		return nil, fmt.Errorf("not enough history for %s", symbol)
	}

	plan := &TradePlan{
		Success:   true,
		Symbol:    symbol,
		Capital:   capital,
		FetchedAt: time.Now().UTC(),
	}

	price := candles[len(candles)-1].Close
	if p.quotes != nil {
		if quote, err := p.quotes.GetQuote(symbol); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote unavailable, using last close")
		} else if quote != nil {
			plan.CompanyName = firstNonEmpty(quote.LongName, quote.ShortName)
			plan.Sector = firstNonEmpty(quote.Sector)
			plan.Industry = firstNonEmpty(quote.Industry)
			if quote.CurrentPrice != nil && *quote.CurrentPrice > 0 {
				price = *quote.CurrentPrice
			}
		}
	}
	if plan.CompanyName == "" {
		plan.CompanyName = symbol
	}
	if plan.Sector == "" {
		plan.Sector = "Unknown"
	}
	if plan.Industry == "" {
		plan.Industry = "Unknown"
	}
	plan.CurrentPrice = round2(price)

	plan.SharesToBuy = int(capital / price)
	plan.PositionValue = round2(float64(plan.SharesToBuy) * price)
	plan.RemainingCash = round2(capital - plan.PositionValue)

	plan.EntryPrice = round2(price)
	plan.StopLossPrice = round2(price * (1 - stopLossPct/100))
	plan.ProfitTargetLow = round2(price * (1 + profitTargetLowPct/100))
	plan.ProfitTargetMid = round2(price * (1 + profitTargetMidPct/100))
	plan.ProfitTargetHigh = round2(price * (1 + profitTargetHighPct/100))
	plan.TrailingStopActivation = round2(price * (1 + trailingActivationPct/100))
	plan.TrailingStopDistance = trailingDistancePct

	riskPerShare := price - price*(1-stopLossPct/100)
	plan.RiskPerShare = round2(riskPerShare)
	plan.MaxLossDollars = round2(riskPerShare * float64(plan.SharesToBuy))

	rewardLow := price * profitTargetLowPct / 100
	rewardMid := price * profitTargetMidPct / 100
	rewardHigh := price * profitTargetHighPct / 100
	plan.PotentialProfitLow = round2(rewardLow * float64(plan.SharesToBuy))
	plan.PotentialProfitMid = round2(rewardMid * float64(plan.SharesToBuy))
	plan.PotentialProfitHigh = round2(rewardHigh * float64(plan.SharesToBuy))
	if riskPerShare > 0 {
		plan.RiskRewardLow = round2(rewardLow / riskPerShare)
		plan.RiskRewardMid = round2(rewardMid / riskPerShare)
		plan.RiskRewardHigh = round2(rewardHigh / riskPerShare)
	}

	plan.MonthlyStats = monthlyStats(candles)
	if len(plan.MonthlyStats) >= 3 {
		for _, s := range plan.MonthlyStats[:3] {
			plan.BestMonths = append(plan.BestMonths, s.Month)
		}
		for _, s := range plan.MonthlyStats[len(plan.MonthlyStats)-3:] {
			plan.WorstMonths = append(plan.WorstMonths, s.Month)
		}
	}

	closes := make([]float64, len(candles))
	plan.High52Week = candles[0].High
	plan.Low52Week = candles[0].Low
	for i, c := range candles {
		closes[i] = c.Close
		if c.High > plan.High52Week {
			plan.High52Week = c.High
		}
		if c.Low < plan.Low52Week && c.Low > 0 {
			plan.Low52Week = c.Low
		}
	}
	plan.High52Week = round2(plan.High52Week)
	plan.Low52Week = round2(plan.Low52Week)

	returns := indicators.Returns(closes)
	for i := range returns {
		returns[i] *= 100
	}
	plan.Volatility = round2(indicators.StdDev(returns))
	plan.AvgDailyReturn = round3(indicators.Mean(returns))

	plan.MA20 = round2(tailMean(closes, 20))
	if len(closes) >= 50 {
		ma50 := round2(tailMean(closes, 50))
		plan.MA50 = &ma50
	}
	if len(closes) >= 200 {
		ma200 := round2(tailMean(closes, 200))
		plan.MA200 = &ma200
	}
	plan.Trend = classifyTrend(price, plan.MA50, plan.MA200)

	plan.Recommendations = PlanRecommendations{
		BuySignal:       price > plan.MA20 && (plan.Trend == "Uptrend" || plan.Trend == "Strong Uptrend"),
		SellSignal:      price < plan.StopLossPrice,
		FavorableMonths: plan.BestMonths,
		AvoidMonths:     plan.WorstMonths,
		RiskLevel:       planRiskLevel(plan.Volatility),
	}

	p.log.Info().
		Str("symbol", symbol).
		Int("shares", plan.SharesToBuy).
		Str("trend", plan.Trend).
		Msg("Trade plan calculated")
	return plan, nil
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// tailMean averages the last n values.
func tailMean(values []float64, n int) float64 {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return indicators.Mean(values)
}

func classifyTrend(price float64, ma50, ma200 *float64) string {
	switch {
	case ma50 != nil && ma200 != nil:
		switch {
		case price > *ma50 && *ma50 > *ma200:
			return "Strong Uptrend"
		case price > *ma50:
			return "Uptrend"
		case price < *ma50 && *ma50 < *ma200:
			return "Strong Downtrend"
		case price < *ma50:
			return "Downtrend"
		default:
			return "Sideways"
		}
	case ma50 != nil:
		if price > *ma50 {
			return "Uptrend"
		}
		return "Downtrend"
	default:
		return "Unknown"
	}
}

// planRiskLevel buckets daily-return volatility measured in percent.
func planRiskLevel(volatility float64) string {
	switch {
	case volatility < 2:
		return "LOW"
	case volatility < 4:
		return "MEDIUM"
	default:
		return "HIGH"
	}
}
