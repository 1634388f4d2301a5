// Package contracts holds futures contract specifications and the exchange
// cost model applied by the backtest engine.
package contracts

// Spec describes a futures contract.
type Spec struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	ContractSize float64 `json:"contractSize"`
	TickSize     float64 `json:"tickSize"`
	TickValue    float64 `json:"tickValue"`
	Margin       float64 `json:"margin"`
}

var specs = map[string]Spec{
	"GC=F": {Symbol: "GC=F", Name: "Gold", ContractSize: 100, TickSize: 0.10, TickValue: 10.00, Margin: 8000},
	"SI=F": {Symbol: "SI=F", Name: "Silver", ContractSize: 5000, TickSize: 0.005, TickValue: 25.00, Margin: 6000},
	"HG=F": {Symbol: "HG=F", Name: "Copper", ContractSize: 25000, TickSize: 0.0005, TickValue: 12.50, Margin: 5500},
	"PL=F": {Symbol: "PL=F", Name: "Platinum", ContractSize: 50, TickSize: 0.10, TickValue: 5.00, Margin: 5000},
	"CL=F": {Symbol: "CL=F", Name: "Crude Oil", ContractSize: 1000, TickSize: 0.01, TickValue: 10.00, Margin: 5000},
	"NG=F": {Symbol: "NG=F", Name: "Natural Gas", ContractSize: 10000, TickSize: 0.001, TickValue: 10.00, Margin: 3000},
	"HO=F": {Symbol: "HO=F", Name: "Heating Oil", ContractSize: 42000, TickSize: 0.0001, TickValue: 4.20, Margin: 4500},
}

// SpecFor returns the contract specification for a symbol. Unknown symbols
// get a neutral one-unit contract so equities can run through the same
// engine.
func SpecFor(symbol string) Spec {
	if spec, ok := specs[symbol]; ok {
		return spec
	}
	return Spec{
		Symbol:       symbol,
		Name:         symbol,
		ContractSize: 1,
		TickSize:     0.01,
		TickValue:    1.00,
		Margin:       5000,
	}
}

// Known reports whether a symbol has a real contract specification.
func Known(symbol string) bool {
	_, ok := specs[symbol]
	return ok
}

// Symbols returns every known contract symbol.
func Symbols() []string {
	out := make([]string, 0, len(specs))
	for symbol := range specs {
		out = append(out, symbol)
	}
	return out
}

// CostProfile holds per-contract broker and exchange fees plus financing
// rates.
type CostProfile struct {
	Commission    float64 `json:"commission" yaml:"commission"`
	ExchangeFee   float64 `json:"exchangeFee" yaml:"exchange_fee"`
	ClearingFee   float64 `json:"clearingFee" yaml:"clearing_fee"`
	OvernightRate float64 `json:"overnightRate" yaml:"overnight_rate"`
	MarginRate    float64 `json:"marginRate" yaml:"margin_rate"`
}

// DefaultCostProfile returns the standard CME cost schedule.
func DefaultCostProfile() CostProfile {
	return CostProfile{
		Commission:    2.50,
		ExchangeFee:   1.50,
		ClearingFee:   0.50,
		OvernightRate: 0.000137, // roughly 5% annually
		MarginRate:    0.05,
	}
}

// PerSideCost returns the fee for entering or exiting the given number of
// contracts.
func (c CostProfile) PerSideCost(numContracts int) float64 {
	return (c.Commission + c.ExchangeFee + c.ClearingFee) * float64(numContracts)
}

// OvernightCost returns the financing charge for holding margin over the
// given number of calendar days.
func (c CostProfile) OvernightCost(margin float64, numContracts, daysHeld int) float64 {
	if daysHeld < 0 {
		daysHeld = 0
	}
	return margin * float64(numContracts) * c.OvernightRate * float64(daysHeld)
}
