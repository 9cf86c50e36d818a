package tariff

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whsiao/tariffcompare/internal/catalog"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	cat, err := catalog.Default().Catalog(context.Background())
	require.NoError(t, err)
	return NewCalculator(cat)
}

func summerPeriod() BillingPeriod {
	return BillingPeriod{
		Start: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
		Days:  31,
	}
}

func nonSummerPeriod() BillingPeriod {
	return BillingPeriod{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Days:  31,
	}
}

func resultByPlan(t *testing.T, results []PlanCalculationResult, id string) *PlanCalculationResult {
	t.Helper()
	for i := range results {
		if results[i].PlanID == id {
			return &results[i]
		}
	}
	t.Fatalf("plan %s not in results", id)
	return nil
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestTieredSummerWalk(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 500},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_tiered")

	// 120*1.78 + 210*2.55 + 170*3.80
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1395.1")),
		"energy = %s", res.Charges.Energy)

	require.Len(t, res.Breakdown.TierBreakdown, 3)
	assert.Equal(t, 120.0, res.Breakdown.TierBreakdown[0].Kwh)
	assert.Equal(t, 210.0, res.Breakdown.TierBreakdown[1].Kwh)
	assert.Equal(t, 170.0, res.Breakdown.TierBreakdown[2].Kwh)
	assert.Equal(t, AccuracyAccurate, res.Label.Accuracy)
	assert.True(t, res.SeasonInfo.IsSummer)
}

func TestTieredNonSummerRates(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 500},
		BillingPeriod: nonSummerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_tiered")
	// 120*1.58 + 210*2.33 + 170*3.52
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1277.3")),
		"energy = %s", res.Charges.Energy)
	assert.False(t, res.SeasonInfo.IsSummer)
}

func TestTieredExactBoundary(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 120},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_tiered")
	require.Len(t, res.Breakdown.TierBreakdown, 1)
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "213.6")))
}

func TestTwoTierMeasuredReadings(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 250, PeakOnPeak: fp(150), OffPeak: fp(100)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_2_tier")
	// 150*4.71 + 100*1.85
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "891.5")),
		"energy = %s", res.Charges.Energy)
	assert.Equal(t, AccuracyAccurate, res.Label.Accuracy)
}

func TestTwoTierSemiPeakBilledOffPeak(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300, PeakOnPeak: fp(100), SemiPeak: fp(80), OffPeak: fp(120)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_2_tier")
	// 100*4.71 + (80+120)*1.85
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "841")),
		"energy = %s", res.Charges.Energy)
	assert.Equal(t, AccuracyAccurate, res.Label.Accuracy)
}

func TestThreeTierMeasuredReadings(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300, PeakOnPeak: fp(100), SemiPeak: fp(80), OffPeak: fp(120)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// 100*6.20 + 80*4.07 + 120*1.85
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1167.6")),
		"energy = %s", res.Charges.Energy)
	assert.Equal(t, AccuracyAccurate, res.Label.Accuracy)
}

func TestThreeTierNonSummerPeakFoldsIntoSemiPeak(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300, PeakOnPeak: fp(100), SemiPeak: fp(80), OffPeak: fp(120)},
		BillingPeriod: nonSummerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// Non-summer defines no peak rate: (100+80)*4.00 + 120*1.78
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "933.6")),
		"energy = %s", res.Charges.Energy)
}

func TestThreeTierProRataWithoutSemiPeakRate(t *testing.T) {
	plan := &catalog.Plan{
		ID:      "test_plan",
		TouType: catalog.TouSimple3Tier,
		EnergyCharges: catalog.SeasonalEnergyCharges{
			Summer: []catalog.EnergyChargeRate{
				{Period: catalog.PeriodPeak, Rate: mustDecimal(t, "6")},
				{Period: catalog.PeriodOffPeak, Rate: mustDecimal(t, "2")},
			},
		},
	}

	// 90 semi-peak kWh redistribute 1:2 over peak 100 and off-peak 200.
	energy, items := threeTierEnergy(plan, TOUConsumption{PeakOnPeak: 100, SemiPeak: 90, OffPeak: 200}, true)
	require.Len(t, items, 2)
	assert.InDelta(t, 130, items[0].Kwh, 1e-9)
	assert.InDelta(t, 260, items[1].Kwh, 1e-9)
	assert.InDelta(t, 130*6+260*2, mustFloat(energy), 1e-6)

	// Zero denominator sends everything off-peak.
	energy, items = threeTierEnergy(plan, TOUConsumption{SemiPeak: 90}, true)
	require.Len(t, items, 1)
	assert.Equal(t, catalog.PeriodOffPeak, items[0].Period)
	assert.InDelta(t, 180, mustFloat(energy), 1e-9)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func TestFlatRatePlan(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 400},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "low_voltage_power")
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1012")),
		"energy = %s", res.Charges.Energy)
	require.Len(t, res.Breakdown.TierBreakdown, 1)
	assert.Equal(t, catalog.PeriodFlat, res.Breakdown.TierBreakdown[0].Period)
}

func TestEstimationFallbackForTotalOnly(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// average summer profile: 105 peak, 75 semi, 120 off
	assert.InDelta(t, 1178.25, mustFloat(res.Charges.Energy), 1e-6)
	assert.Equal(t, AccuracyEstimated, res.Label.Accuracy)
	assert.Contains(t, res.Label.Tooltip, "typical working household")
}

func TestTwoTierInputSplitsForThreePeriodPlans(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 240, PeakOnPeak: fp(150), OffPeak: fp(90)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// Default split of 150/90: 70 peak, 100 semi, 70 off.
	assert.InDelta(t, 970.5, mustFloat(res.Charges.Energy), 1e-6)
	assert.Equal(t, AccuracyPartialEstimated, res.Label.Accuracy)
}

func TestCustomSplitSettings(t *testing.T) {
	calc := testCalculator(t)
	pct := 75.0
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 240, PeakOnPeak: fp(150), OffPeak: fp(90)},
		BillingPeriod: summerPeriod(),
		SplitSettings: &SplitSettings{Mode: SplitCustom, CustomPeakPercent: &pct},
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// 75% retention of 150/90: 112.5 peak, 57.5 semi, 70 off.
	assert.InDelta(t, 1061.025, mustFloat(res.Charges.Energy), 1e-6)
	assert.Equal(t, AccuracyPartialEstimated, res.Label.Accuracy)
}

func TestEstimatedSegmentViewIsRederived(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:    Consumption{Usage: 240, PeakOnPeak: fp(150), OffPeak: fp(90)},
		TOUConsumption: &TOUConsumption{PeakOnPeak: 240, IsEstimated: true},
		BillingPeriod:  summerPeriod(),
	})
	require.NoError(t, err)

	// The stale estimated view is ignored in favor of the default split.
	res := resultByPlan(t, results, "lighting_simple_3_tier")
	assert.InDelta(t, 970.5, mustFloat(res.Charges.Energy), 1e-6)
}

func TestSuppliedSegmentViewIsAccurate(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:    Consumption{Usage: 300},
		TOUConsumption: &TOUConsumption{PeakOnPeak: 100, SemiPeak: 80, OffPeak: 120},
		BillingPeriod:  summerPeriod(),
	})
	require.NoError(t, err)

	// A non-estimated caller-supplied breakdown counts as measured data.
	res := resultByPlan(t, results, "lighting_simple_3_tier")
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1167.6")),
		"energy = %s", res.Charges.Energy)
	assert.Equal(t, AccuracyAccurate, res.Label.Accuracy)

	twoTier := resultByPlan(t, results, "lighting_simple_2_tier")
	assert.Equal(t, AccuracyAccurate, twoTier.Label.Accuracy)
}

func TestSurchargeAboveThreshold(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 2500, PeakOnPeak: fp(1500), OffPeak: fp(1000)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_2_tier")
	// 1500*4.71 + 1000*1.85 + 500*1.02
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "9425")),
		"energy = %s", res.Charges.Energy)

	last := res.Breakdown.TOUBreakdown[len(res.Breakdown.TOUBreakdown)-1]
	assert.Equal(t, 500.0, last.Kwh)
	assert.Contains(t, last.Label, "surcharge")
}

func TestNoSurchargeAtThreshold(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 2000, PeakOnPeak: fp(1200), OffPeak: fp(800)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_2_tier")
	for _, item := range res.Breakdown.TOUBreakdown {
		assert.NotContains(t, item.Label, "surcharge")
	}
}

func TestMinimumUsageScalesSmallBills(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 5},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_tiered")
	// Floor: 10 A single-phase 110 V -> 1.1 kW * 16.5 kWh/kW = 18.15 kWh.
	want := mustDecimal(t, "1.78").Mul(decimal.NewFromFloat(18.15))
	assert.InDelta(t, mustFloat(want), mustFloat(res.Charges.Energy), 1e-6)
	assert.Equal(t, "minimum usage applied", res.Label.Detail)
}

func TestMinimumUsageZeroConsumption(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 0},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_tiered")
	assert.True(t, res.Charges.Energy.IsPositive())
	assert.Equal(t, "minimum usage applied", res.Label.Detail)
}

// minimumUsageTouCalculator builds a single-plan catalog whose two-period
// plan carries a minimum-usage rule, which no stock plan does.
func minimumUsageTouCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(&catalog.Catalog{
		Version: "test",
		MinimumUsageRules: map[string]catalog.MinimumUsageRule{
			"residential_default": {KwhPerKw: 16.5},
		},
		Plans: []catalog.Plan{{
			ID:       "tou_with_floor",
			Name:     "tou with floor",
			Category: catalog.CategoryLighting,
			TouType:  catalog.TouSimple2Tier,
			EnergyCharges: catalog.SeasonalEnergyCharges{
				Summer: []catalog.EnergyChargeRate{
					{Period: catalog.PeriodPeak, Rate: mustDecimal(t, "4")},
					{Period: catalog.PeriodOffPeak, Rate: mustDecimal(t, "2")},
				},
			},
			BillingRules: &catalog.BillingRules{MinimumUsage: "residential_default"},
		}},
	})
}

func TestMinimumUsageScalesTouSegments(t *testing.T) {
	calc := minimumUsageTouCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 10, PeakOnPeak: fp(6), OffPeak: fp(4)},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	// Floor 18.15 kWh over 10 kWh measured scales everything by 1.815:
	// (6*4 + 4*2) * 1.815.
	res := resultByPlan(t, results, "tou_with_floor")
	assert.InDelta(t, 58.08, mustFloat(res.Charges.Energy), 1e-6)
	assert.Equal(t, "minimum usage applied", res.Label.Detail)

	var kwh float64
	for _, item := range res.Breakdown.TOUBreakdown {
		kwh += item.Kwh
	}
	assert.InDelta(t, 18.15, kwh, 1e-6)
}

func TestMinimumUsageZeroConsumptionTouBillsFloorOffPeak(t *testing.T) {
	calc := minimumUsageTouCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 0},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "tou_with_floor")
	assert.InDelta(t, 36.3, mustFloat(res.Charges.Energy), 1e-6)

	require.Len(t, res.Breakdown.TOUBreakdown, 1)
	item := res.Breakdown.TOUBreakdown[0]
	assert.Equal(t, catalog.PeriodOffPeak, item.Period)
	assert.InDelta(t, 18.15, item.Kwh, 1e-6)
	assert.Equal(t, "minimum usage applied", res.Label.Detail)
}

func TestBasicChargeHouseholdPlusContract(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_standard_3_tier")
	// Single-phase household fee 75 plus 236.2/kW on the default 1.1 kW.
	assert.True(t, res.Charges.Base.Equal(mustDecimal(t, "334.82")),
		"base = %s", res.Charges.Base)
}

func TestBasicChargeThreePhase(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:      Consumption{Usage: 300},
		BillingPeriod:    summerPeriod(),
		Phase:            catalog.PhaseThree,
		VoltageV:         220,
		ContractCapacity: 30,
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "residential_standard_3_tier")
	kw := 30 * 220 * 1.7320508075688772 / 1000
	want := 112.5 + 236.2*kw
	assert.InDelta(t, want, mustFloat(res.Charges.Base), 1e-6)
}

func TestFixedBasicFee(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_2_tier")
	assert.True(t, res.Charges.Base.Equal(mustDecimal(t, "75")))
}

func TestNonComparableCategoriesExcluded(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)

	for _, res := range results {
		assert.NotEqual(t, "commercial_simple_3_tier", res.PlanID)
		assert.NotEqual(t, "ev_charging_tou", res.PlanID)
	}
}

func TestResultsSortedByTotal(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 450},
		BillingPeriod: summerPeriod(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t,
			mustFloat(results[i-1].Charges.Total),
			mustFloat(results[i].Charges.Total))
	}
}

func TestCustomEstimationSettings(t *testing.T) {
	calc := testCalculator(t)
	results, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
		EstimationSettings: &EstimationSettings{
			Mode:           ModeCustom,
			CustomPercents: &SegmentPercents{PeakOnPeak: 40, SemiPeak: 30, OffPeak: 30},
		},
	})
	require.NoError(t, err)

	res := resultByPlan(t, results, "lighting_simple_3_tier")
	// 120*6.20 + 90*4.07 + 90*1.85
	assert.True(t, res.Charges.Energy.Equal(mustDecimal(t, "1276.8")),
		"energy = %s", res.Charges.Energy)
}

func TestZeroSegmentViewWithPositiveUsage(t *testing.T) {
	calc := testCalculator(t)
	_, err := calc.CalculateAll(CalculationInput{
		Consumption:    Consumption{Usage: 100},
		TOUConsumption: &TOUConsumption{},
		BillingPeriod:  summerPeriod(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTOUData)

	var me *MissingTOUDataError
	assert.ErrorAs(t, err, &me)
}

func TestCustomEstimationBadPercentsFailsRun(t *testing.T) {
	calc := testCalculator(t)
	_, err := calc.CalculateAll(CalculationInput{
		Consumption:   Consumption{Usage: 300},
		BillingPeriod: summerPeriod(),
		EstimationSettings: &EstimationSettings{
			Mode:           ModeCustom,
			CustomPercents: &SegmentPercents{PeakOnPeak: 50, SemiPeak: 30, OffPeak: 30},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
