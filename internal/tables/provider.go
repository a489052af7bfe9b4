// Package tables provides the published depreciation lookup data: MACRS
// percentage tables, bonus depreciation phase schedules, and Section 179
// limits. Everything here is static reference data; no I/O.
package tables

import (
	"fmt"
	"math"
	"time"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/model"
)

// tableKey identifies one published recovery table. Quarter is 0 for
// half-year tables and 1-4 for mid-quarter tables.
type tableKey struct {
	method     model.DepreciationMethod
	convention model.Convention
	life       float64
	quarter    int
}

// Provider serves percentage and limit lookups. Construct once with New;
// safe for concurrent readers.
type Provider struct {
	tables map[tableKey][]float64
}

// New builds the published MACRS tables. Declining-balance tables are
// generated with the straight-line switch in the year it yields the larger
// deduction, rounded to two decimals of a percent, which reproduces the
// published values exactly.
func New() *Provider {
	p := &Provider{tables: make(map[tableKey][]float64)}

	type spec struct {
		life   float64
		method model.DepreciationMethod
		rate   float64
	}
	specs := []spec{
		{3, model.Method200DB, 2.0},
		{5, model.Method200DB, 2.0},
		{7, model.Method200DB, 2.0},
		{10, model.Method200DB, 2.0},
		{15, model.Method150DB, 1.5},
		{20, model.Method150DB, 1.5},
	}

	for _, s := range specs {
		p.tables[tableKey{s.method, model.ConventionHalfYear, s.life, 0}] =
			buildDecliningBalance(s.life, s.rate, 0.5)
		for q := 1; q <= 4; q++ {
			firstYear := (float64(4-q)*3 + 1.5) / 12
			p.tables[tableKey{s.method, model.ConventionMidQuarter, s.life, q}] =
				buildDecliningBalance(s.life, s.rate, firstYear)
		}
	}

	// Straight-line tables cover elective SL, QIP, and the ADS lives.
	slLives := []float64{3, 4, 5, 6, 7, 9, 10, 12, 15, 18, 20, 25}
	for _, life := range slLives {
		for _, method := range []model.DepreciationMethod{model.MethodStraightLine, model.MethodADS} {
			p.tables[tableKey{method, model.ConventionHalfYear, life, 0}] =
				buildStraightLine(life, 0.5)
			for q := 1; q <= 4; q++ {
				firstYear := (float64(4-q)*3 + 1.5) / 12
				p.tables[tableKey{method, model.ConventionMidQuarter, life, q}] =
					buildStraightLine(life, firstYear)
			}
		}
	}

	return p
}

// Percentage returns the published recovery percentage for one year of a
// personal-property table. yearIndex is 1-based; quarter is ignored for the
// half-year convention. Returns TableNotFound for any unpublished
// combination; this is never silently defaulted.
func (p *Provider) Percentage(life float64, method model.DepreciationMethod, convention model.Convention, quarter, yearIndex int) (float64, error) {
	table, err := p.Table(life, method, convention, quarter)
	if err != nil {
		return 0, err
	}
	if yearIndex < 1 || yearIndex > len(table) {
		return 0, nil
	}
	return table[yearIndex-1], nil
}

// Table returns the full published table for a (life, method, convention).
func (p *Provider) Table(life float64, method model.DepreciationMethod, convention model.Convention, quarter int) ([]float64, error) {
	key := tableKey{method, convention, life, quarter}
	if convention == model.ConventionHalfYear {
		key.quarter = 0
	}
	table, ok := p.tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: life=%g method=%s convention=%s quarter=%d",
			common.ErrTableNotFound, life, method, convention, quarter)
	}
	return table, nil
}

// RealPropertyPercentage returns the straight-line mid-month percentage for
// one recovery year of real property placed in service in the given month.
func (p *Provider) RealPropertyPercentage(life float64, monthPlaced, yearIndex int) (float64, error) {
	if life != 27.5 && life != 39 && life != 40 && life != 30 {
		return 0, fmt.Errorf("%w: no mid-month table for %g-year life", common.ErrTableNotFound, life)
	}
	if monthPlaced < 1 || monthPlaced > 12 {
		return 0, fmt.Errorf("invalid in-service month %d", monthPlaced)
	}

	annual := 100 / life
	firstYear := annual * (float64(12-monthPlaced) + 0.5) / 12
	fullYears := int(math.Ceil(life))

	// The published mid-month tables carry three decimals (2.564%, 3.636%),
	// unlike the two-decimal personal-property tables.
	switch {
	case yearIndex == 1:
		return round3(firstYear), nil
	case yearIndex > 1 && yearIndex <= fullYears:
		return round3(annual), nil
	case yearIndex == fullYears+1:
		used := firstYear + float64(fullYears-1)*annual
		if used >= 100 {
			return 0, nil
		}
		return round3(100 - used), nil
	}
	return 0, nil
}

// buildDecliningBalance generates one declining-balance table with the
// automatic straight-line switch. firstYearFraction is the portion of the
// first recovery year allowed by the convention.
func buildDecliningBalance(life, rate, firstYearFraction float64) []float64 {
	dbRate := rate / life
	remaining := 100.0
	remainingLife := life

	var out []float64

	first := round2(100 * dbRate * firstYearFraction)
	out = append(out, first)
	remaining -= first
	remainingLife -= firstYearFraction

	for remaining > 0.004 {
		db := remaining * dbRate
		sl := remaining / remainingLife
		pct := db
		if sl > db || remainingLife <= 1 {
			pct = sl
		}
		if pct > remaining {
			pct = remaining
		}
		pct = round2(pct)
		out = append(out, pct)
		remaining = round2(remaining - pct)
		remainingLife--
	}

	return out
}

// buildStraightLine generates a straight-line table with the convention's
// first-year fraction and the remainder in the final stub year.
func buildStraightLine(life, firstYearFraction float64) []float64 {
	annual := 100 / life
	remaining := 100.0

	var out []float64

	first := round2(annual * firstYearFraction)
	out = append(out, first)
	remaining = round2(remaining - first)

	for remaining > 0.004 {
		pct := round2(annual)
		if pct > remaining {
			pct = remaining
		}
		out = append(out, pct)
		remaining = round2(remaining - pct)
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// BonusRate returns the bonus depreciation percentage (0-100) for property
// with the given acquisition and in-service dates. The rate turns on the
// acquisition date relative to the statutory cutoffs, not merely the tax
// year the asset enters service.
func BonusRate(acquisition, inService time.Time) float64 {
	tcjaCutoff := time.Date(2017, time.September, 27, 0, 0, 0, 0, time.UTC)
	restoreCutoff := time.Date(2025, time.January, 19, 0, 0, 0, 0, time.UTC)

	if !acquisition.After(tcjaCutoff) {
		// Pre-TCJA acquisitions follow the old phase-down, fully expired.
		return 0
	}
	if acquisition.After(restoreCutoff) {
		return 100
	}

	switch inService.Year() {
	case 2017, 2018, 2019, 2020, 2021, 2022:
		return 100
	case 2023:
		return 80
	case 2024:
		return 60
	case 2025:
		return 40
	case 2026:
		return 20
	}
	return 0
}

// Section179Limits holds the statutory expensing caps for one tax year.
type Section179Limits struct {
	MaxDeduction      float64
	PhaseOutThreshold float64
}

var section179ByYear = map[int]Section179Limits{
	2021: {1_050_000, 2_620_000},
	2022: {1_080_000, 2_700_000},
	2023: {1_160_000, 2_890_000},
	2024: {1_220_000, 3_050_000},
	2025: {2_500_000, 4_000_000},
	2026: {2_560_000, 4_090_000},
}

// Section179 returns the expensing limits for a tax year.
func Section179(taxYear int) (Section179Limits, error) {
	limits, ok := section179ByYear[taxYear]
	if !ok {
		return Section179Limits{}, fmt.Errorf("%w: section 179 limits for %d", common.ErrTableNotFound, taxYear)
	}
	return limits, nil
}

// AutoLimits holds the passenger-automobile first-year caps.
type AutoLimits struct {
	FirstYearWithBonus float64
	FirstYearNoBonus   float64
}

var autoLimitsByYear = map[int]AutoLimits{
	2022: {19_200, 11_200},
	2023: {20_200, 12_200},
	2024: {20_400, 12_400},
	2025: {20_200, 12_200},
	2026: {20_400, 12_400},
}

// LuxuryAuto returns the listed-auto first-year limits for a tax year.
func LuxuryAuto(taxYear int) (AutoLimits, error) {
	limits, ok := autoLimitsByYear[taxYear]
	if !ok {
		return AutoLimits{}, fmt.Errorf("%w: luxury auto limits for %d", common.ErrTableNotFound, taxYear)
	}
	return limits, nil
}
