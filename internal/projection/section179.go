package projection

import (
	"fmt"

	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/tables"
)

// Section179Election is one asset's requested expensing amount. Amount of
// zero means "elect the full basis".
type Section179Election struct {
	AssetID string
	Basis   float64
	Amount  float64
}

// Section179Allocation is the batch-level result of applying the statutory
// caps. The taxable-income excess carries forward; it never creates a loss.
type Section179Allocation struct {
	Amounts           map[string]float64
	Elected           float64
	Allowed           float64
	Carryforward      float64
	PhaseOutReduction float64
	AnnualCap         float64
}

// AllocateSection179 applies the aggregate annual cap, the dollar-for-dollar
// phase-out above the qualifying-property threshold, and the taxable-income
// limit, then allocates the allowed deduction pro rata across elections.
// totalQualifying is the full cost of Section 179 property placed in service
// during the year, which may exceed the sum of elected bases.
func AllocateSection179(taxYear int, taxableIncome, totalQualifying float64, elections []Section179Election) (Section179Allocation, error) {
	limits, err := tables.Section179(taxYear)
	if err != nil {
		return Section179Allocation{}, err
	}

	alloc := Section179Allocation{Amounts: make(map[string]float64, len(elections))}

	annualCap := limits.MaxDeduction
	if totalQualifying > limits.PhaseOutThreshold {
		alloc.PhaseOutReduction = totalQualifying - limits.PhaseOutThreshold
		annualCap -= alloc.PhaseOutReduction
		if annualCap < 0 {
			annualCap = 0
		}
	}
	alloc.AnnualCap = annualCap

	for i := range elections {
		e := &elections[i]
		if err := validateElection(*e); err != nil {
			return Section179Allocation{}, err
		}
		if e.Amount <= 0 || e.Amount > e.Basis {
			e.Amount = e.Basis
		}
		alloc.Elected += e.Amount
	}
	alloc.Elected = model.RoundCents(alloc.Elected)

	allowed := alloc.Elected
	if allowed > annualCap {
		allowed = annualCap
	}
	if taxableIncome >= 0 && allowed > taxableIncome {
		// The excess over taxable income carries forward to future years.
		alloc.Carryforward = model.RoundCents(allowed - taxableIncome)
		allowed = taxableIncome
	}
	alloc.Allowed = model.RoundCents(allowed)

	if alloc.Elected <= 0 || alloc.Allowed <= 0 {
		return alloc, nil
	}

	// Pro-rata allocation, residual to the last election so the parts sum
	// exactly to the allowed total.
	var assigned float64
	for i, e := range elections {
		var amount float64
		if i == len(elections)-1 {
			amount = model.RoundCents(alloc.Allowed - assigned)
		} else {
			amount = model.RoundCents(alloc.Allowed * e.Amount / alloc.Elected)
		}
		if amount > e.Basis {
			amount = e.Basis
		}
		alloc.Amounts[e.AssetID] = amount
		assigned += amount
	}

	return alloc, nil
}

// validateElection guards against malformed entries before allocation.
func validateElection(e Section179Election) error {
	if e.AssetID == "" {
		return fmt.Errorf("section 179 election missing asset id")
	}
	if e.Basis < 0 {
		return fmt.Errorf("section 179 election for %s: negative basis", e.AssetID)
	}
	return nil
}
