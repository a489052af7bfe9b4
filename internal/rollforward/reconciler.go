// Package rollforward validates that a batch's asset balances reconcile:
// beginning balance plus movements must equal the ending balance within
// tolerance.
package rollforward

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/fixedassets/depflow/internal/model"
)

// DefaultTolerance is the allowed reconciliation variance in dollars.
const DefaultTolerance = 0.01

// TypedAsset pairs a record with its transaction-type decision.
type TypedAsset struct {
	Asset model.AssetRecord
	Type  model.TransactionTypeResult
}

// Reconciler performs the batch-level rollforward check.
type Reconciler struct {
	logger    *slog.Logger
	tolerance float64
}

// NewReconciler creates a reconciler. A non-positive tolerance falls back
// to the one-cent default.
func NewReconciler(tolerance float64, logger *slog.Logger) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{tolerance: tolerance, logger: logger}
}

// ExpectedEnding is the rollforward identity:
// beginning + additions - disposals + transfers-in - transfers-out.
func ExpectedEnding(beginning, additions, disposals, transfersIn, transfersOut float64) float64 {
	return model.RoundCents(beginning + additions - disposals + transfersIn - transfersOut)
}

// Reconcile partitions the batch by transaction type and checks the balance
// identity. Existing assets and amounts leaving during the year are folded
// into an effective beginning balance, since they existed at period start.
// reportedEnding is the client's stated ending balance; when nil the ending
// is computed from the records still held.
func (r *Reconciler) Reconcile(beginningBalance float64, batch []TypedAsset, reportedEnding *float64) *model.RollforwardResult {
	result := &model.RollforwardResult{
		BeginningBalance: beginningBalance,
		Tolerance:        r.tolerance,
	}

	var actual float64

	for _, ta := range batch {
		basis := math.Abs(ta.Asset.CostBasis)

		switch ta.Type.Type {
		case model.TypeCurrentYearAddition:
			result.Additions += basis
			actual += basis
		case model.TypeExistingAsset:
			actual += basis
		case model.TypeDisposal:
			result.Disposals += basis
		case model.TypeTransfer:
			switch ta.Type.Direction {
			case model.TransferIn:
				result.TransfersIn += basis
				actual += basis
			case model.TransferOut:
				result.TransfersOut += basis
			default:
				// Should not happen: the type classifier always resolves a
				// direction, defaulting per policy.
				result.TransfersOut += basis
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("asset %s: transfer with unresolved direction treated as transfer-out", ta.Asset.ID))
			}
			if ta.Type.Defaulted {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("asset %s: %s", ta.Asset.ID, ta.Type.Reason))
			}
		}
	}

	// Disposed and transferred-out assets were on hand at period start.
	existing := actual - result.Additions - result.TransfersIn
	result.EffectiveOpening = model.RoundCents(beginningBalance + existing + result.Disposals + result.TransfersOut)

	result.ExpectedEnding = ExpectedEnding(result.EffectiveOpening,
		result.Additions, result.Disposals, result.TransfersIn, result.TransfersOut)
	if reportedEnding != nil {
		result.ActualEnding = model.RoundCents(*reportedEnding)
	} else {
		result.ActualEnding = model.RoundCents(beginningBalance + actual)
	}
	result.Variance = model.RoundCents(result.ExpectedEnding - result.ActualEnding)
	result.Balanced = math.Abs(result.Variance) <= r.tolerance

	result.Additions = model.RoundCents(result.Additions)
	result.Disposals = model.RoundCents(result.Disposals)
	result.TransfersIn = model.RoundCents(result.TransfersIn)
	result.TransfersOut = model.RoundCents(result.TransfersOut)

	r.logger.Info("rollforward reconciled",
		"beginning", result.BeginningBalance,
		"additions", result.Additions,
		"disposals", result.Disposals,
		"expected_ending", result.ExpectedEnding,
		"variance", result.Variance,
		"balanced", result.Balanced)

	return result
}

// Issues converts an imbalanced result into batch-level issues that block
// export-readiness until resolved or explicitly acknowledged.
func (r *Reconciler) Issues(result *model.RollforwardResult) []model.Issue {
	var issues []model.Issue
	if !result.Balanced {
		issues = append(issues, model.Issue{
			Kind:     model.IssueReconciliation,
			Severity: model.SeverityCritical,
			Message: fmt.Sprintf("rollforward variance $%.2f exceeds tolerance $%.2f",
				math.Abs(result.Variance), result.Tolerance),
			Remediation: "verify beginning balance and per-record cost bases, or acknowledge the variance to proceed",
		})
	}
	for _, w := range result.Warnings {
		issues = append(issues, model.Issue{
			Kind:        model.IssueData,
			Severity:    model.SeverityWarning,
			Message:     w,
			Remediation: "confirm the transfer direction on the source record",
		})
	}
	return issues
}
