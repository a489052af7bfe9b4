// Package projection generates multi-year depreciation schedules for
// classified assets: Section 179, then bonus, then regular MACRS from the
// published tables, with convention handling in the first and last years.
package projection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fixedassets/depflow/internal/convention"
	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/tables"
)

// Engine produces depreciation schedules. Stateless beyond its table
// provider; safe for concurrent use.
type Engine struct {
	tables *tables.Provider
	logger *slog.Logger
}

// NewEngine creates a projection engine over the given table provider.
func NewEngine(provider *tables.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tables: provider, logger: logger}
}

// Request carries everything needed to project one asset.
type Request struct {
	Asset          model.AssetRecord
	Classification *model.ClassificationResult
	TxnType        model.TransactionTypeResult
	Decision       model.ConventionDecision
	// Section179 is this asset's share of the batch allocation (§ caps
	// applied at the batch level before projection).
	Section179 float64
	// DeMinimisThreshold expenses the whole basis in year one when the
	// basis falls at or under it. Zero disables the safe harbor.
	DeMinimisThreshold float64
}

// Project generates the full schedule for one asset. Section 179 and bonus
// amounts are forced to zero for anything that is not a current-year
// addition; the closing basis never goes negative and the deductions sum to
// the depreciable basis (or less, when the asset is disposed early).
func (e *Engine) Project(req Request) (*model.Schedule, error) {
	cls := req.Classification
	if cls == nil {
		return nil, fmt.Errorf("asset %s: no classification", req.Asset.ID)
	}

	basis := req.Asset.DepreciableBasis()
	schedule := &model.Schedule{AssetID: req.Asset.ID}

	// Schedules anchor at the in-service year. The batch tax year is only
	// the reporting year: a carryover asset's batch-year row must carry the
	// table percentage for its actual recovery year, not year one.
	taxYear := req.Asset.InServiceDate.Year()

	if basis <= 0 {
		return schedule, nil
	}

	// De-minimis safe harbor: expense outright, no MACRS rows.
	if req.DeMinimisThreshold > 0 && basis <= req.DeMinimisThreshold && req.TxnType.Section179Eligible() {
		schedule.Years = append(schedule.Years, model.DepreciationScheduleYear{
			TaxYear:      taxYear,
			OpeningBasis: basis,
			DeMinimis:    basis,
			ClosingBasis: 0,
		})
		return schedule, nil
	}

	section179 := 0.0
	bonus := 0.0
	if req.TxnType.Section179Eligible() {
		section179 = model.RoundCents(req.Section179)
		if section179 > basis {
			section179 = basis
		}
		if cls.BonusEligible && cls.Method != model.MethodADS {
			rate := tables.BonusRate(req.Asset.AcquisitionDate, req.Asset.InServiceDate)
			bonus = model.RoundCents((basis - section179) * rate / 100)
		}
	}

	macrsBasis := model.RoundCents(basis - section179 - bonus)

	percentages, err := e.recoveryPercentages(req, cls)
	if err != nil {
		return nil, err
	}

	years := e.buildYears(taxYear, basis, section179, bonus, macrsBasis, percentages)

	if cls.IsListedAuto {
		years = e.applyAutoCap(taxYear, years)
	}

	if req.Asset.DisposalDate != nil {
		years = e.truncateForDisposal(req, cls, years)
	}

	schedule.Years = years
	return schedule, nil
}

// recoveryPercentages returns the year-by-year table for the asset's class
// and resolved convention.
func (e *Engine) recoveryPercentages(req Request, cls *model.ClassificationResult) ([]float64, error) {
	if cls.IsRealProperty {
		month := int(req.Asset.InServiceDate.Month())
		fullYears := int(cls.RecoveryYears) + 1
		if cls.RecoveryYears != float64(int(cls.RecoveryYears)) {
			fullYears++
		}
		out := make([]float64, 0, fullYears)
		for y := 1; y <= fullYears; y++ {
			pct, err := e.tables.RealPropertyPercentage(cls.RecoveryYears, month, y)
			if err != nil {
				return nil, err
			}
			out = append(out, pct)
		}
		return out, nil
	}

	quarter := 0
	if req.Decision.Convention == model.ConventionMidQuarter {
		quarter = convention.QuarterOf(req.Asset.InServiceDate)
	}
	return e.tables.Table(cls.RecoveryYears, cls.Method, req.Decision.Convention, quarter)
}

// buildYears lays out the schedule rows. The final MACRS year takes the
// residual so the rows tie to the basis exactly.
func (e *Engine) buildYears(taxYear int, basis, section179, bonus, macrsBasis float64, percentages []float64) []model.DepreciationScheduleYear {
	var years []model.DepreciationScheduleYear

	opening := basis
	remaining := macrsBasis

	for i, pct := range percentages {
		row := model.DepreciationScheduleYear{
			TaxYear:      taxYear + i,
			OpeningBasis: opening,
		}
		if i == 0 {
			row.Section179 = section179
			row.Bonus = bonus
		}

		var regular float64
		if i == len(percentages)-1 {
			regular = remaining
		} else {
			regular = model.RoundCents(macrsBasis * pct / 100)
			if regular > remaining {
				regular = remaining
			}
		}
		row.RegularMACRS = regular
		remaining = model.RoundCents(remaining - regular)

		row.ClosingBasis = model.RoundCents(opening - row.Deduction())
		if row.ClosingBasis < 0 {
			row.ClosingBasis = 0
		}
		opening = row.ClosingBasis
		years = append(years, row)

		if remaining <= 0 && i < len(percentages)-1 {
			break
		}
	}

	return years
}

// applyAutoCap enforces the luxury-auto first-year limit. The disallowed
// amount is recovered in an extra year appended after the recovery period.
func (e *Engine) applyAutoCap(taxYear int, years []model.DepreciationScheduleYear) []model.DepreciationScheduleYear {
	if len(years) == 0 {
		return years
	}
	limits, err := tables.LuxuryAuto(taxYear)
	if err != nil {
		// No published cap for this year; leave the schedule alone.
		e.logger.Warn("no luxury auto limits published", "tax_year", taxYear)
		return years
	}

	first := &years[0]
	limit := limits.FirstYearNoBonus
	if first.Bonus > 0 {
		limit = limits.FirstYearWithBonus
	}
	excess := model.RoundCents(first.Deduction() - limit)
	if excess <= 0 {
		return years
	}

	// Reduce regular, then bonus, then Section 179 to fit under the cap.
	for _, component := range []*float64{&first.RegularMACRS, &first.Bonus, &first.Section179} {
		if excess <= 0 {
			break
		}
		cut := excess
		if cut > *component {
			cut = *component
		}
		*component = model.RoundCents(*component - cut)
		excess = model.RoundCents(excess - cut)
	}

	// Re-chain closing bases and push the disallowed amount to a final row.
	opening := first.OpeningBasis
	for i := range years {
		years[i].OpeningBasis = opening
		years[i].ClosingBasis = model.RoundCents(opening - years[i].Deduction())
		opening = years[i].ClosingBasis
	}
	if opening > 0 {
		last := years[len(years)-1]
		years = append(years, model.DepreciationScheduleYear{
			TaxYear:      last.TaxYear + 1,
			OpeningBasis: opening,
			RegularMACRS: opening,
			ClosingBasis: 0,
		})
	}
	return years
}

// truncateForDisposal cuts the schedule at the disposal year and applies the
// convention's partial-year rule to that final year. An asset placed in
// service and disposed within the same year gets no deduction at all.
func (e *Engine) truncateForDisposal(req Request, cls *model.ClassificationResult, years []model.DepreciationScheduleYear) []model.DepreciationScheduleYear {
	disposal := *req.Asset.DisposalDate
	disposalYear := disposal.Year()

	if disposalYear <= req.Asset.InServiceDate.Year() {
		return nil
	}

	var out []model.DepreciationScheduleYear
	for _, row := range years {
		if row.TaxYear < disposalYear {
			out = append(out, row)
			continue
		}
		if row.TaxYear > disposalYear {
			break
		}

		fraction := disposalFraction(req.Decision.Convention, cls, disposal)
		partial := row
		partial.Section179 = 0
		partial.Bonus = 0
		partial.RegularMACRS = model.RoundCents(row.RegularMACRS * fraction)
		partial.ClosingBasis = model.RoundCents(partial.OpeningBasis - partial.Deduction())
		out = append(out, partial)
		break
	}
	return out
}

// disposalFraction returns the allowed portion of the disposal year's
// deduction under the asset's convention.
func disposalFraction(conv model.Convention, cls *model.ClassificationResult, disposal time.Time) float64 {
	if cls.IsRealProperty || conv == model.ConventionMidMonth {
		months := float64(int(disposal.Month())-1) + 0.5
		return months / 12
	}
	if conv == model.ConventionMidQuarter {
		quarters := float64(convention.QuarterOf(disposal)-1) + 0.5
		return quarters / 4
	}
	return 0.5
}
