package model

// RollforwardResult reports the balance reconciliation for one batch.
// Computed per run; read-only.
type RollforwardResult struct {
	Warnings         []string
	BeginningBalance float64
	EffectiveOpening float64
	Additions        float64
	Disposals        float64
	TransfersIn      float64
	TransfersOut     float64
	ExpectedEnding   float64
	ActualEnding     float64
	Variance         float64
	Tolerance        float64
	Balanced         bool
}
