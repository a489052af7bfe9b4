package model

import "time"

// ClassificationSource indicates which tier produced a classification.
type ClassificationSource string

// Classification source constants, in precedence order.
const (
	SourceOverride ClassificationSource = "OVERRIDE"
	SourceRule     ClassificationSource = "RULE"
	SourceMemory   ClassificationSource = "MEMORY"
	SourceExternal ClassificationSource = "EXTERNAL"
	SourceFallback ClassificationSource = "FALLBACK"
)

// DepreciationMethod identifies the recovery computation applied to an asset.
type DepreciationMethod string

// Depreciation method constants.
const (
	Method200DB        DepreciationMethod = "200DB"
	Method150DB        DepreciationMethod = "150DB"
	MethodStraightLine DepreciationMethod = "SL"
	MethodADS          DepreciationMethod = "ADS"
)

// Convention identifies the first/last-year averaging convention.
type Convention string

// Convention constants.
const (
	ConventionHalfYear   Convention = "HY"
	ConventionMidQuarter Convention = "MQ"
	ConventionMidMonth   Convention = "MM"
)

// ClassificationResult is the outcome of classifying one AssetRecord.
// It is created once by the orchestrator and never mutated afterward
// except by an explicit, audited override action.
type ClassificationResult struct {
	ClassifiedAt   time.Time
	AssetID        string
	ClassName      string
	Reason         string
	Method         DepreciationMethod
	Convention     Convention
	Source         ClassificationSource
	RecoveryYears  float64
	Confidence     float64
	BonusEligible  bool
	QIP            bool
	IsRealProperty bool
	IsListedAuto   bool
	NeedsReview    bool
}

// IsPersonalProperty reports whether the mid-quarter test applies to this class.
func (c *ClassificationResult) IsPersonalProperty() bool {
	return !c.IsRealProperty
}
