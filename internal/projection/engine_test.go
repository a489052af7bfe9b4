package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/tables"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fiveYearClassification(assetID string) *model.ClassificationResult {
	return &model.ClassificationResult{
		AssetID:       assetID,
		ClassName:     "Computers & Peripherals",
		RecoveryYears: 5,
		Method:        model.Method200DB,
		Convention:    model.ConventionHalfYear,
		Source:        model.SourceRule,
		Confidence:    0.9,
		BonusEligible: true,
	}
}

func addition(assetID string) model.TransactionTypeResult {
	return model.TransactionTypeResult{AssetID: assetID, Type: model.TypeCurrentYearAddition, Confidence: 1.0}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(tables.New(), nil)
}

func TestProjectFiveYearHalfYearSchedule(t *testing.T) {
	e := newTestEngine(t)

	// Pre-TCJA acquisition so no bonus applies and the table percentages
	// come through undiluted.
	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "Dell workstation",
			CostBasis:       10_000,
			AcquisitionDate: date(2016, time.May, 1),
			InServiceDate:   date(2016, time.June, 1),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2016, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.Len(t, schedule.Years, 6)

	wantRegular := []float64{2000.00, 3200.00, 1920.00, 1152.00, 1152.00, 576.00}
	for i, want := range wantRegular {
		assert.InDeltaf(t, want, schedule.Years[i].RegularMACRS, 0.001, "year %d", i+1)
		assert.Equal(t, 2016+i, schedule.Years[i].TaxYear)
	}

	assert.InDelta(t, 10_000, schedule.TotalDeductions(), 0.001)
	assert.Zero(t, schedule.Years[len(schedule.Years)-1].ClosingBasis)
}

func TestProjectSchedulesNeverOverDepreciate(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "press brake",
			CostBasis:       33_333.33,
			AcquisitionDate: date(2016, time.January, 10),
			InServiceDate:   date(2016, time.February, 1),
		},
		Classification: &model.ClassificationResult{
			AssetID:       "a1",
			ClassName:     "Machinery & Equipment",
			RecoveryYears: 7,
			Method:        model.Method200DB,
			Convention:    model.ConventionHalfYear,
		},
		TxnType:  addition("a1"),
		Decision: model.ConventionDecision{TaxYear: 2016, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)

	assert.InDelta(t, 33_333.33, schedule.TotalDeductions(), 0.001)
	for _, y := range schedule.Years {
		assert.GreaterOrEqual(t, y.ClosingBasis, 0.0)
		assert.GreaterOrEqual(t, y.RegularMACRS, 0.0)
	}
}

func TestProjectSection179AndBonusOnlyForAdditions(t *testing.T) {
	e := newTestEngine(t)

	req := Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "server rack",
			CostBasis:       50_000,
			AcquisitionDate: date(2025, time.March, 1),
			InServiceDate:   date(2025, time.March, 15),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        model.TransactionTypeResult{AssetID: "a1", Type: model.TypeExistingAsset},
		Decision:       model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
		Section179:     10_000,
	}

	schedule, err := e.Project(req)
	require.NoError(t, err)
	for _, y := range schedule.Years {
		assert.Zero(t, y.Section179)
		assert.Zero(t, y.Bonus)
	}
}

func TestProjectExistingAssetAnchorsAtInServiceYear(t *testing.T) {
	e := newTestEngine(t)

	// An asset placed in service in 2023 but run in a 2025 batch keeps its
	// 2023-anchored schedule; the 2025 row carries the year-3 percentage.
	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "plasma cutter",
			CostBasis:       10_000,
			AcquisitionDate: date(2023, time.May, 1),
			InServiceDate:   date(2023, time.June, 1),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        model.TransactionTypeResult{AssetID: "a1", Type: model.TypeExistingAsset},
		Decision:       model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.Len(t, schedule.Years, 6)

	assert.Equal(t, 2023, schedule.Years[0].TaxYear)
	assert.InDelta(t, 2_000.00, schedule.Years[0].RegularMACRS, 0.001)
	assert.Equal(t, 2025, schedule.Years[2].TaxYear)
	assert.InDelta(t, 1_920.00, schedule.Years[2].RegularMACRS, 0.001)
}

func TestProjectCarryoverDisposalUsesVintageYearRow(t *testing.T) {
	e := newTestEngine(t)
	disposal := date(2025, time.August, 10)

	// 2022 vintage disposed in 2025: the disposal year is recovery year four,
	// so the half-year rule halves 11.52%, not the year-one percentage.
	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "injection molder",
			CostBasis:       10_000,
			AcquisitionDate: date(2022, time.May, 1),
			InServiceDate:   date(2022, time.June, 1),
			DisposalDate:    &disposal,
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        model.TransactionTypeResult{AssetID: "a1", Type: model.TypeDisposal},
		Decision:       model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.Len(t, schedule.Years, 4)

	last := schedule.Years[3]
	assert.Equal(t, 2025, last.TaxYear)
	assert.InDelta(t, 576.00, last.RegularMACRS, 0.001) // 11.52% * 10,000 / 2
}

func TestProjectBonusAfterSection179(t *testing.T) {
	e := newTestEngine(t)

	// 2024 in-service, TCJA-window acquisition: 60% bonus on the basis
	// remaining after Section 179.
	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "CNC mill",
			CostBasis:       100_000,
			AcquisitionDate: date(2024, time.February, 1),
			InServiceDate:   date(2024, time.March, 1),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2024, Convention: model.ConventionHalfYear},
		Section179:     20_000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, schedule.Years)

	first := schedule.Years[0]
	assert.InDelta(t, 20_000, first.Section179, 0.001)
	assert.InDelta(t, 48_000, first.Bonus, 0.001) // (100k - 20k) * 60%
	assert.InDelta(t, 6_400, first.RegularMACRS, 0.001)
	assert.InDelta(t, 100_000, schedule.TotalDeductions(), 0.001)
}

func TestProjectADSExcludesBonus(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "lab equipment",
			CostBasis:       10_000,
			AcquisitionDate: date(2024, time.February, 1),
			InServiceDate:   date(2024, time.March, 1),
		},
		Classification: &model.ClassificationResult{
			AssetID:       "a1",
			ClassName:     "Machinery & Equipment",
			RecoveryYears: 12,
			Method:        model.MethodADS,
			Convention:    model.ConventionHalfYear,
			BonusEligible: true,
		},
		TxnType:  addition("a1"),
		Decision: model.ConventionDecision{TaxYear: 2024, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.NotEmpty(t, schedule.Years)
	assert.Zero(t, schedule.Years[0].Bonus)
}

func TestProjectMidQuarterUsesInServiceQuarter(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "forklift",
			CostBasis:       10_000,
			AcquisitionDate: date(2016, time.November, 1),
			InServiceDate:   date(2016, time.November, 15),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2016, Convention: model.ConventionMidQuarter},
	})
	require.NoError(t, err)
	require.NotEmpty(t, schedule.Years)

	// Fourth-quarter mid-quarter first year for 5-year property is 5%.
	assert.InDelta(t, 500.00, schedule.Years[0].RegularMACRS, 0.001)
}

func TestProjectDeMinimisExpensesWholeBasis(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "label printer",
			CostBasis:       2_000,
			AcquisitionDate: date(2025, time.March, 1),
			InServiceDate:   date(2025, time.March, 15),
		},
		Classification:     fiveYearClassification("a1"),
		TxnType:            addition("a1"),
		Decision:           model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
		DeMinimisThreshold: 2_500,
	})
	require.NoError(t, err)
	require.Len(t, schedule.Years, 1)
	assert.InDelta(t, 2_000, schedule.Years[0].DeMinimis, 0.001)
	assert.Zero(t, schedule.Years[0].ClosingBasis)
}

func TestProjectDisposalTruncatesSchedule(t *testing.T) {
	e := newTestEngine(t)
	disposal := date(2018, time.August, 10)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "delivery van",
			CostBasis:       10_000,
			AcquisitionDate: date(2016, time.May, 1),
			InServiceDate:   date(2016, time.June, 1),
			DisposalDate:    &disposal,
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2016, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.Len(t, schedule.Years, 3)

	// Half-year convention allows half of the disposal year's deduction.
	assert.InDelta(t, 960.00, schedule.Years[2].RegularMACRS, 0.001)
	assert.Less(t, schedule.TotalDeductions(), 10_000.0)
}

func TestProjectSameYearDisposalGetsNothing(t *testing.T) {
	e := newTestEngine(t)
	disposal := date(2025, time.October, 1)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "returned copier",
			CostBasis:       5_000,
			AcquisitionDate: date(2025, time.February, 1),
			InServiceDate:   date(2025, time.March, 1),
			DisposalDate:    &disposal,
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	assert.Empty(t, schedule.Years)
}

func TestProjectRealPropertyMidMonth(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "b1",
			Description:     "office building",
			CostBasis:       390_000,
			AcquisitionDate: date(2025, time.January, 1),
			InServiceDate:   date(2025, time.July, 10),
		},
		Classification: &model.ClassificationResult{
			AssetID:        "b1",
			ClassName:      "Nonresidential Real Property",
			RecoveryYears:  39,
			Method:         model.MethodStraightLine,
			Convention:     model.ConventionMidMonth,
			IsRealProperty: true,
		},
		TxnType:  addition("b1"),
		Decision: model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.NotEmpty(t, schedule.Years)

	// July in-service: 5.5 months of the first year at 1.175%.
	assert.InDelta(t, 4_582.50, schedule.Years[0].RegularMACRS, 0.01)
	assert.InDelta(t, 390_000, schedule.TotalDeductions(), 0.01)

	// No Section 179 or bonus on real property rows.
	for _, y := range schedule.Years {
		assert.Zero(t, y.Section179)
		assert.Zero(t, y.Bonus)
	}
}

func TestProjectLuxuryAutoFirstYearCap(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "car1",
			Description:     "executive sedan",
			CostBasis:       80_000,
			AcquisitionDate: date(2025, time.February, 1),
			InServiceDate:   date(2025, time.March, 1),
		},
		Classification: &model.ClassificationResult{
			AssetID:       "car1",
			ClassName:     "Automobiles",
			RecoveryYears: 5,
			Method:        model.Method200DB,
			Convention:    model.ConventionHalfYear,
			BonusEligible: true,
			IsListedAuto:  true,
		},
		TxnType:  addition("car1"),
		Decision: model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	require.NotEmpty(t, schedule.Years)

	// 2025 with-bonus cap is $20,200.
	assert.InDelta(t, 20_200, schedule.Years[0].Deduction(), 0.001)
	assert.InDelta(t, 80_000, schedule.TotalDeductions(), 0.01)
}

func TestProjectZeroBasisProducesEmptySchedule(t *testing.T) {
	e := newTestEngine(t)

	schedule, err := e.Project(Request{
		Asset: model.AssetRecord{
			ID:              "a1",
			Description:     "fully expensed item",
			CostBasis:       0,
			AcquisitionDate: date(2025, time.March, 1),
			InServiceDate:   date(2025, time.March, 15),
		},
		Classification: fiveYearClassification("a1"),
		TxnType:        addition("a1"),
		Decision:       model.ConventionDecision{TaxYear: 2025, Convention: model.ConventionHalfYear},
	})
	require.NoError(t, err)
	assert.Empty(t, schedule.Years)
}

func TestProjectMissingClassificationFails(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Project(Request{
		Asset: model.AssetRecord{ID: "a1", Description: "mystery", CostBasis: 100},
	})
	assert.Error(t, err)
}
