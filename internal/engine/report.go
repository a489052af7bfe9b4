package engine

import (
	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/projection"
)

// AssetResult is the per-record outcome of a batch run.
type AssetResult struct {
	Classification *model.ClassificationResult
	Schedule       *model.Schedule
	Asset          model.AssetRecord
	TxnType        model.TransactionTypeResult
	Issues         []model.Issue
}

// FirstYearDeduction is the record's total deduction in the batch tax year.
func (r *AssetResult) FirstYearDeduction(taxYear int) float64 {
	if r.Schedule == nil {
		return 0
	}
	for _, y := range r.Schedule.Years {
		if y.TaxYear == taxYear {
			return y.Deduction()
		}
	}
	return 0
}

// BatchReport is the full outcome of one batch run.
type BatchReport struct {
	Rollforward *model.RollforwardResult
	Results     []AssetResult
	Issues      []model.Issue
	Section179  projection.Section179Allocation
	Convention  model.ConventionDecision
	Summary     Summary
	TaxYear     int
	ExportReady bool
}

// Summary aggregates the batch for display.
type Summary struct {
	BySource         map[model.ClassificationSource]int
	TotalAssets      int
	NeedsReview      int
	CriticalIssues   int
	TotalDeduction   float64
	TotalSection179  float64
	TotalBonus       float64
	TotalFirstYear   float64
	TotalDepreciable float64
}

// finish computes the summary and the export-readiness gate. Any blocking
// issue anywhere in the batch holds the export.
func (b *BatchReport) finish() {
	s := Summary{
		TotalAssets: len(b.Results),
		BySource:    make(map[model.ClassificationSource]int),
	}

	blocked := false
	for _, issue := range b.Issues {
		if issue.BlocksExport() {
			blocked = true
		}
		if issue.Severity == model.SeverityCritical {
			s.CriticalIssues++
		}
	}

	for i := range b.Results {
		r := &b.Results[i]
		for _, issue := range r.Issues {
			if issue.BlocksExport() {
				blocked = true
			}
			if issue.Severity == model.SeverityCritical {
				s.CriticalIssues++
			}
		}
		if r.Classification == nil {
			continue
		}
		s.BySource[r.Classification.Source]++
		if r.Classification.NeedsReview {
			s.NeedsReview++
		}
		s.TotalDepreciable = model.RoundCents(s.TotalDepreciable + r.Asset.DepreciableBasis())
		if r.Schedule != nil {
			s.TotalDeduction = model.RoundCents(s.TotalDeduction + r.Schedule.TotalDeductions())
			s.TotalFirstYear = model.RoundCents(s.TotalFirstYear + r.FirstYearDeduction(b.TaxYear))
			for _, y := range r.Schedule.Years {
				s.TotalSection179 = model.RoundCents(s.TotalSection179 + y.Section179)
				s.TotalBonus = model.RoundCents(s.TotalBonus + y.Bonus)
			}
		}
	}

	b.Summary = s
	b.ExportReady = !blocked
}

// AllIssues flattens batch-level and per-record issues.
func (b *BatchReport) AllIssues() []model.Issue {
	out := make([]model.Issue, 0, len(b.Issues))
	out = append(out, b.Issues...)
	for i := range b.Results {
		out = append(out, b.Results[i].Issues...)
	}
	return out
}
