package rollforward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/model"
)

func typed(id string, basis float64, txnType model.TransactionType, direction model.TransferDirection) TypedAsset {
	return TypedAsset{
		Asset: model.AssetRecord{ID: id, CostBasis: basis},
		Type:  model.TransactionTypeResult{AssetID: id, Type: txnType, Direction: direction},
	}
}

func TestExpectedEndingIdentity(t *testing.T) {
	// beginning 0, additions 100, disposals 20, transfers in 5, transfers out 10.
	assert.InDelta(t, 75.0, ExpectedEnding(0, 100, 20, 5, 10), 0.001)
	assert.InDelta(t, 1075.0, ExpectedEnding(1000, 100, 20, 5, 10), 0.001)
}

func TestReconcileBalancedBatch(t *testing.T) {
	r := NewReconciler(0.01, nil)

	batch := []TypedAsset{
		typed("add1", 100, model.TypeCurrentYearAddition, ""),
		typed("disp1", 20, model.TypeDisposal, ""),
		typed("in1", 5, model.TypeTransfer, model.TransferIn),
		typed("out1", 10, model.TypeTransfer, model.TransferOut),
	}

	result := r.Reconcile(0, batch, nil)

	assert.InDelta(t, 100, result.Additions, 0.001)
	assert.InDelta(t, 20, result.Disposals, 0.001)
	assert.InDelta(t, 5, result.TransfersIn, 0.001)
	assert.InDelta(t, 10, result.TransfersOut, 0.001)
	assert.InDelta(t, 105, result.ExpectedEnding, 0.001)
	assert.InDelta(t, 105, result.ActualEnding, 0.001)
	assert.True(t, result.Balanced)
	assert.Empty(t, r.Issues(result))
}

func TestReconcileAgainstReportedEnding(t *testing.T) {
	r := NewReconciler(0.01, nil)

	batch := []TypedAsset{
		typed("add1", 100, model.TypeCurrentYearAddition, ""),
		typed("exist1", 500, model.TypeExistingAsset, ""),
	}

	reported := 600.0
	result := r.Reconcile(0, batch, &reported)
	assert.True(t, result.Balanced)

	wrong := 650.0
	result = r.Reconcile(0, batch, &wrong)
	assert.False(t, result.Balanced)
	assert.InDelta(t, -50, result.Variance, 0.001)

	issues := r.Issues(result)
	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueReconciliation, issues[0].Kind)
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.True(t, issues[0].BlocksExport())
}

func TestReconcileWithinToleranceBalances(t *testing.T) {
	r := NewReconciler(0.01, nil)

	batch := []TypedAsset{
		typed("add1", 100.004, model.TypeCurrentYearAddition, ""),
	}
	reported := 100.0
	result := r.Reconcile(0, batch, &reported)
	assert.True(t, result.Balanced)
}

func TestReconcileFoldsPreexistingHoldingsIntoOpening(t *testing.T) {
	r := NewReconciler(0.01, nil)

	// Disposed and transferred-out assets were on hand at period start even
	// though the stated beginning balance didn't include them.
	batch := []TypedAsset{
		typed("exist1", 300, model.TypeExistingAsset, ""),
		typed("disp1", 50, model.TypeDisposal, ""),
		typed("out1", 25, model.TypeTransfer, model.TransferOut),
	}

	result := r.Reconcile(0, batch, nil)
	assert.InDelta(t, 375, result.EffectiveOpening, 0.001)
	assert.InDelta(t, 300, result.ExpectedEnding, 0.001)
	assert.True(t, result.Balanced)
}

func TestReconcileNegativeBasisUsesAbsoluteValue(t *testing.T) {
	r := NewReconciler(0.01, nil)

	// Disposal rows often arrive as credits.
	batch := []TypedAsset{
		typed("disp1", -40, model.TypeDisposal, ""),
	}

	result := r.Reconcile(100, batch, nil)
	assert.InDelta(t, 40, result.Disposals, 0.001)
}

func TestReconcileWarnsOnDefaultedTransfers(t *testing.T) {
	r := NewReconciler(0.01, nil)

	ta := typed("t1", 30, model.TypeTransfer, model.TransferOut)
	ta.Type.Defaulted = true
	ta.Type.Reason = "transfer metadata \"intercompany move\" names no direction; defaulted to transfer-out"

	result := r.Reconcile(100, []TypedAsset{ta}, nil)
	require.Len(t, result.Warnings, 1)

	issues := r.Issues(result)
	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueData, issues[0].Kind)
	assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	assert.False(t, issues[0].BlocksExport())
}

func TestReconcilerDefaultsTolerance(t *testing.T) {
	r := NewReconciler(0, nil)
	assert.InDelta(t, DefaultTolerance, r.tolerance, 0.0001)
}
