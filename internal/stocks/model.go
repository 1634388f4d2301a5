// Package stocks stores and scores dividend stock fundamentals.
package stocks

import "time"

// Stock is one row of the DividendModels table. Nullable columns are
// pointers so "never fetched" stays distinct from zero.
type Stock struct {
	Symbol             string     `json:"symbol"`
	CompanyName        string     `json:"companyName"`
	Sector             string     `json:"sector"`
	Industry           string     `json:"industry"`
	Country            string     `json:"country"`
	Exchange           string     `json:"exchange"`
	Currency           string     `json:"currency"`
	CurrentPrice       *float64   `json:"currentPrice"`
	DividendYield      *float64   `json:"dividendYield"`
	AnnualDividend     *float64   `json:"annualDividend"`
	PayoutRatio        *float64   `json:"payoutRatio"`
	PERatio            *float64   `json:"peRatio"`
	PBRatio            *float64   `json:"pbRatio"`
	EPS                *float64   `json:"eps"`
	AnnualEPS          *float64   `json:"annualEps"`
	BookValue          *float64   `json:"bookValue"`
	MarketCap          *float64   `json:"marketCap"`
	Beta               *float64   `json:"beta"`
	High52Week         *float64   `json:"high52Week"`
	Low52Week          *float64   `json:"low52Week"`
	TotalDividend      *float64   `json:"totalDividend"`
	DividendGrowthRate *float64   `json:"dividendGrowthRate"`
	ConsecutiveYears   int        `json:"consecutiveYears"`
	SafetyScore        *float64   `json:"safetyScore"`
	SafetyRating       string     `json:"safetyRating"`
	Recommendation     string     `json:"recommendation"`
	ExDividendDate     *time.Time `json:"exDividendDate"`
	PaymentDate        *time.Time `json:"paymentDate"`
	LastUpdated        *time.Time `json:"lastUpdated"`
}
