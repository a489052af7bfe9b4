// Package convention determines the depreciation convention for a batch of
// current-year additions: the 40% fourth-quarter test for personal property
// and mid-month for real property.
package convention

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fixedassets/depflow/internal/model"
)

// MidQuarterThreshold is the fraction of annual addition basis in the fourth
// quarter that forces the mid-quarter convention.
const MidQuarterThreshold = 0.40

// Addition is one current-year addition considered by the batch test.
// Real property is excluded from the test by the resolver itself.
type Addition struct {
	InService    time.Time
	AssetID      string
	Basis        float64
	RealProperty bool
}

// Resolver computes batch-level convention decisions.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a convention resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve runs the mid-quarter test over every personal-property addition
// placed in service during the tax year. It must be called only after the
// whole batch's additions are known; the result applies uniformly to all
// personal property in the batch.
func (r *Resolver) Resolve(taxYear int, additions []Addition) model.ConventionDecision {
	decision := model.ConventionDecision{
		TaxYear:    taxYear,
		Convention: model.ConventionHalfYear,
	}

	for _, a := range additions {
		if a.RealProperty {
			continue
		}
		if a.InService.Year() != taxYear {
			continue
		}
		q := QuarterOf(a.InService)
		decision.QuarterBasis[q-1] += a.Basis
		decision.TotalAdditions += a.Basis
	}

	if decision.TotalAdditions <= 0 {
		return decision
	}

	for i := range decision.QuarterBasis {
		decision.QuarterPercent[i] = decision.QuarterBasis[i] / decision.TotalAdditions
	}
	decision.FourthQuarterPct = decision.QuarterPercent[3]

	if decision.FourthQuarterPct > MidQuarterThreshold {
		decision.Convention = model.ConventionMidQuarter
		decision.MidQuarterTripped = true
	}

	r.logger.Info("convention resolved",
		"tax_year", taxYear,
		"convention", decision.Convention,
		"total_additions", decision.TotalAdditions,
		"q4_percent", decision.FourthQuarterPct)

	return decision
}

// QuarterOf returns the calendar quarter (1-4) of a date.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// ValidateUniform checks that every personal-property classification in the
// batch carries the batch convention. Mixing half-year and mid-quarter in
// one batch/year is a compliance error, never silently tolerated.
func ValidateUniform(decision model.ConventionDecision, results []*model.ClassificationResult) []model.Issue {
	var issues []model.Issue
	for _, res := range results {
		if res == nil || res.IsRealProperty {
			continue
		}
		if res.Convention != decision.Convention {
			issues = append(issues, model.Issue{
				AssetID:  res.AssetID,
				Kind:     model.IssueCompliance,
				Severity: model.SeverityCritical,
				Message: fmt.Sprintf("asset uses %s convention but the batch resolved to %s for %d",
					res.Convention, decision.Convention, decision.TaxYear),
				Remediation: "regenerate the schedule with the batch convention before export",
			})
		}
	}
	return issues
}
