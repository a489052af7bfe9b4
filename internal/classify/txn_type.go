package classify

import (
	"fmt"
	"strings"

	"github.com/fixedassets/depflow/internal/model"
)

// TransferPolicy configures how directionless transfer records are treated.
type TransferPolicy struct {
	// DefaultDirection is applied when the transfer metadata names no
	// direction. The out default mirrors the common ledger convention but
	// is deliberately configurable.
	DefaultDirection model.TransferDirection
}

// TypeClassifier determines each record's transaction type for one tax
// year, which gates Section 179 and bonus eligibility downstream.
type TypeClassifier struct {
	policy  TransferPolicy
	taxYear int
}

// NewTypeClassifier creates a transaction-type classifier for a tax year.
func NewTypeClassifier(taxYear int, policy TransferPolicy) *TypeClassifier {
	if policy.DefaultDirection == "" {
		policy.DefaultDirection = model.TransferOut
	}
	return &TypeClassifier{taxYear: taxYear, policy: policy}
}

// Classify types one record. Precedence: disposal during the tax year, then
// transfer metadata, then in-service date against the tax year.
func (c *TypeClassifier) Classify(asset model.AssetRecord) model.TransactionTypeResult {
	result := model.TransactionTypeResult{AssetID: asset.ID, Confidence: 1.0}

	if asset.DisposalDate != nil && asset.DisposalDate.Year() == c.taxYear {
		result.Type = model.TypeDisposal
		result.Reason = fmt.Sprintf("disposal date %s falls in tax year %d",
			asset.DisposalDate.Format("2006-01-02"), c.taxYear)
		return result
	}

	if note := strings.TrimSpace(asset.TransferNote); note != "" {
		result.Type = model.TypeTransfer
		result.Direction, result.Defaulted = parseTransferDirection(note, c.policy.DefaultDirection)
		if result.Defaulted {
			result.Confidence = 0.6
			result.Reason = fmt.Sprintf("transfer metadata %q names no direction; defaulted to transfer-%s",
				note, strings.ToLower(string(result.Direction)))
		} else {
			result.Reason = fmt.Sprintf("transfer metadata %q", note)
		}
		return result
	}

	switch {
	case asset.InServiceDate.Year() == c.taxYear:
		result.Type = model.TypeCurrentYearAddition
		result.Reason = fmt.Sprintf("placed in service %s during tax year %d",
			asset.InServiceDate.Format("2006-01-02"), c.taxYear)
	case asset.InServiceDate.Year() < c.taxYear:
		result.Type = model.TypeExistingAsset
		result.Reason = fmt.Sprintf("in service since %s, before tax year %d",
			asset.InServiceDate.Format("2006-01-02"), c.taxYear)
	default:
		result.Type = model.TypeExistingAsset
		result.Confidence = 0.5
		result.Reason = fmt.Sprintf("in-service date %s is after tax year %d; verify the record",
			asset.InServiceDate.Format("2006-01-02"), c.taxYear)
	}
	return result
}

// parseTransferDirection extracts a direction from free-text transfer
// metadata. Returns the configured default, flagged, when the text names
// neither direction.
func parseTransferDirection(note string, fallback model.TransferDirection) (model.TransferDirection, bool) {
	lower := strings.ToLower(note)

	inHints := []string{"transfer in", "transfer-in", "xfer in", "received from", "in from", "incoming"}
	outHints := []string{"transfer out", "transfer-out", "xfer out", "sent to", "out to", "outgoing"}

	for _, h := range inHints {
		if strings.Contains(lower, h) {
			return model.TransferIn, false
		}
	}
	for _, h := range outHints {
		if strings.Contains(lower, h) {
			return model.TransferOut, false
		}
	}
	return fallback, true
}
