package personas

import "math"

// DCFParams are the assumptions behind the intrinsic value estimate. They
// are deliberately fixed rather than fitted; the valuation is a coarse
// screen, not a price target.
type DCFParams struct {
	GrowthRate       float64
	DiscountRate     float64
	TerminalMultiple float64
	ProjectionYears  int
}

// DefaultDCFParams holds the standard assumptions: 6% growth, 10% discount,
// 15x terminal multiple over a five year projection.
var DefaultDCFParams = DCFParams{
	GrowthRate:       0.06,
	DiscountRate:     0.10,
	TerminalMultiple: 15,
	ProjectionYears:  5,
}

// IntrinsicValue estimates a company's value from its latest free cash flow
// by discounting a fixed-growth projection plus a terminal value. A
// non-positive FCF yields zero; a company that burns cash gets no valuation
// credit rather than an error.
func IntrinsicValue(fcf float64, p DCFParams) float64 {
	if fcf <= 0 {
		return 0
	}

	value := 0.0
	for year := 1; year <= p.ProjectionYears; year++ {
		projected := fcf * math.Pow(1+p.GrowthRate, float64(year))
		value += projected / math.Pow(1+p.DiscountRate, float64(year))
	}

	terminalFCF := fcf * math.Pow(1+p.GrowthRate, float64(p.ProjectionYears))
	value += terminalFCF * p.TerminalMultiple / math.Pow(1+p.DiscountRate, float64(p.ProjectionYears))

	return value
}

// MarginOfSafety returns (intrinsic - marketCap) / marketCap. Positive means
// the market prices the company below the estimate.
func MarginOfSafety(intrinsic, marketCap float64) float64 {
	if marketCap <= 0 {
		return 0
	}
	return (intrinsic - marketCap) / marketCap
}
