package model

// ConventionDecision is the batch-level convention determination for one
// tax year's current-year additions. Personal property in the batch must
// share a single convention; mixing is a compliance error.
type ConventionDecision struct {
	TaxYear           int
	Convention        Convention
	TotalAdditions    float64
	QuarterBasis      [4]float64
	QuarterPercent    [4]float64
	FourthQuarterPct  float64
	MidQuarterTripped bool
}
