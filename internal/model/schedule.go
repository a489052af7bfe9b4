package model

// DepreciationScheduleYear is one row of an asset's depreciation schedule.
// Rows are generated once and never mutated; a classification change
// regenerates the whole schedule.
type DepreciationScheduleYear struct {
	TaxYear      int
	OpeningBasis float64
	Section179   float64
	Bonus        float64
	RegularMACRS float64
	DeMinimis    float64
	ClosingBasis float64
}

// Deduction returns the total current-year deduction for this row.
func (y DepreciationScheduleYear) Deduction() float64 {
	return RoundCents(y.Section179 + y.Bonus + y.RegularMACRS + y.DeMinimis)
}

// Schedule is the full multi-year projection for a single asset.
type Schedule struct {
	AssetID string
	Years   []DepreciationScheduleYear
}

// TotalDeductions sums every year's deduction components.
func (s *Schedule) TotalDeductions() float64 {
	var total float64
	for _, y := range s.Years {
		total += y.Deduction()
	}
	return RoundCents(total)
}
