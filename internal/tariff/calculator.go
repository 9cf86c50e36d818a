package tariff

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/whsiao/tariffcompare/internal/catalog"
)

// Defaults applied when the customer's contract details are unknown. A small
// residential connection: 10 A single-phase at 110 V.
const (
	defaultContractAmps = 10.0
	defaultVoltage      = 110.0
)

// Calculator computes per-plan costs over one catalog snapshot. It is
// read-only after construction and safe for concurrent use.
type Calculator struct {
	plans    []catalog.Plan
	minRules map[string]catalog.MinimumUsageRule
}

// NewCalculator builds a calculator over the given catalog.
func NewCalculator(cat *catalog.Catalog) *Calculator {
	return &Calculator{plans: cat.Plans, minRules: cat.MinimumUsageRules}
}

// resolved is the per-run working state shared by all plan computations.
// touMeasured marks a three-segment view backed by real readings (measured
// segments or a trusted caller-supplied breakdown) rather than a split or
// an estimation.
type resolved struct {
	usage       float64
	measured    Consumption
	level       CompletenessLevel
	tou         TOUConsumption
	touMeasured bool
	season      Season
	amps        float64
	kw          float64
	phase       catalog.Phase
}

// CalculateAll computes the cost of every comparable plan for one input and
// returns the results sorted by total cost ascending. Ties keep catalog
// order. Rank, difference and saving fields are left zero; stamp them with
// FinalizeComparison once the baseline plan is known.
func (c *Calculator) CalculateAll(in CalculationInput) ([]PlanCalculationResult, error) {
	r, err := c.resolve(in)
	if err != nil {
		return nil, err
	}

	results := make([]PlanCalculationResult, 0, len(c.plans))
	for i := range c.plans {
		plan := &c.plans[i]
		if !plan.Comparable() {
			continue
		}
		res, err := c.calculatePlan(plan, r)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", plan.ID, err)
		}
		results = append(results, *res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Charges.Total.Cmp(results[j].Charges.Total) < 0
	})
	return results, nil
}

func (c *Calculator) resolve(in CalculationInput) (*resolved, error) {
	r := &resolved{
		usage:    in.Consumption.Usage,
		measured: in.Consumption,
		level:    classifyLevel(in.Consumption),
		season:   ResolveSeason(in.BillingPeriod),
		amps:     in.ContractCapacity,
		phase:    in.Phase,
	}
	if r.amps <= 0 {
		r.amps = defaultContractAmps
	}
	if r.phase == "" {
		r.phase = catalog.PhaseSingle
	}
	voltage := in.VoltageV
	if voltage <= 0 {
		voltage = defaultVoltage
	}
	r.kw = contractKw(r.amps, voltage, r.phase)

	tou, err := c.resolveTOU(in, r)
	if err != nil {
		return nil, err
	}
	r.tou = tou
	r.touMeasured = r.level == ThreeTier ||
		(in.TOUConsumption != nil && !in.TOUConsumption.IsEstimated)
	return r, nil
}

// resolveTOU picks the three-segment view for the run: a caller-supplied
// measured breakdown wins, then fully measured segments, then a split of
// two-period readings, then estimation from the total using the requested
// profile (or the average profile when none was requested). A supplied
// breakdown flagged estimated is discarded and re-derived, so the caller's
// current settings always drive synthetic views.
func (c *Calculator) resolveTOU(in CalculationInput, r *resolved) (TOUConsumption, error) {
	if in.TOUConsumption != nil && !in.TOUConsumption.IsEstimated {
		return *in.TOUConsumption, nil
	}
	if r.level == ThreeTier {
		return TOUConsumption{
			PeakOnPeak: *in.Consumption.PeakOnPeak,
			SemiPeak:   *in.Consumption.SemiPeak,
			OffPeak:    *in.Consumption.OffPeak,
		}, nil
	}
	if r.level == TwoTier {
		mode, custom := SplitDefault, (*float64)(nil)
		if s := in.SplitSettings; s != nil {
			if s.Mode != "" {
				mode = s.Mode
			}
			custom = s.CustomPeakPercent
		}
		return Split(*in.Consumption.PeakOnPeak, *in.Consumption.OffPeak, mode, custom)
	}

	mode := ModeAverage
	season := r.season
	var custom *SegmentPercents
	if s := in.EstimationSettings; s != nil {
		if s.Mode != "" {
			mode = s.Mode
		}
		if s.Season != "" {
			season = s.Season
		}
		custom = s.CustomPercents
	}
	return Estimate(r.usage, mode, season, custom)
}

// contractKw converts a contracted ampere capacity to kilowatts.
func contractKw(amps, voltage float64, phase catalog.Phase) float64 {
	kw := amps * voltage / 1000
	if phase == catalog.PhaseThree {
		kw *= math.Sqrt(3)
	}
	return kw
}

func (c *Calculator) calculatePlan(plan *catalog.Plan, r *resolved) (*PlanCalculationResult, error) {
	summer := r.season.IsSummer()

	if plan.TouType != catalog.TouNone && r.usage > 0 && r.level == TotalOnly && r.tou.Total() <= 0 {
		return nil, &MissingTOUDataError{PlanID: plan.ID}
	}

	var energy decimal.Decimal
	var breakdown Breakdown
	switch plan.TouType {
	case catalog.TouNone:
		energy, breakdown.TierBreakdown = c.tieredEnergy(plan, r.usage, summer)
	case catalog.TouSimple2Tier:
		energy, breakdown.TOUBreakdown = c.twoTierEnergy(plan, r, summer)
	case catalog.TouSimple3Tier, catalog.TouFull:
		energy, breakdown.TOUBreakdown = threeTierEnergy(plan, r.tou, summer)
	default:
		return nil, fmt.Errorf("%w: unhandled tou type %q", ErrInvalidArgument, plan.TouType)
	}

	var minApplied bool
	energy, breakdown, minApplied = c.applyMinimumUsage(plan, r, summer, energy, breakdown)
	energy, breakdown = applySurcharge(plan, r.usage, energy, breakdown)

	base := basicCharge(plan, r, summer)
	return &PlanCalculationResult{
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		PlanNameEn: plan.NameEn,
		Charges: Charges{
			Base:   base,
			Energy: energy,
			Total:  base.Add(energy),
		},
		Breakdown:  breakdown,
		Label:      labelFor(plan, r, minApplied),
		SeasonInfo: SeasonInfo{Season: r.season, IsSummer: summer},
	}, nil
}

// tieredEnergy walks the progressive bands, or bills the flat rate when the
// plan has no bands.
func (c *Calculator) tieredEnergy(plan *catalog.Plan, kwh float64, summer bool) (decimal.Decimal, []BreakdownItem) {
	if len(plan.TierRates) == 0 {
		rate, _ := plan.RateFor(catalog.PeriodFlat, summer)
		return flatEnergy(rate, kwh)
	}
	return walkTiers(plan.TierRates, kwh, summer)
}

func flatEnergy(rate decimal.Decimal, kwh float64) (decimal.Decimal, []BreakdownItem) {
	charge := rate.Mul(decimal.NewFromFloat(kwh))
	items := []BreakdownItem{{Period: catalog.PeriodFlat, Kwh: kwh, Rate: rate, Charge: charge}}
	return charge, items
}

// walkTiers bills kwh across contiguous bands: each band charges its own
// rate on the portion of usage that falls inside it.
func walkTiers(tiers []catalog.TierRate, kwh float64, summer bool) (decimal.Decimal, []BreakdownItem) {
	total := decimal.Zero
	var items []BreakdownItem
	remaining := kwh
	for _, t := range tiers {
		if remaining <= 0 {
			break
		}
		band := remaining
		if t.MaxKwh != nil {
			if width := *t.MaxKwh - t.MinKwh; width < band {
				band = width
			}
		}
		rate := t.SummerRate
		if !summer {
			rate = t.NonSummerRate
		}
		charge := rate.Mul(decimal.NewFromFloat(band))
		total = total.Add(charge)
		items = append(items, BreakdownItem{Tier: t.Tier, Kwh: band, Rate: rate, Charge: charge})
		remaining -= band
	}
	return total, items
}

// twoTierEnergy bills a two-period plan. Measured peak and off-peak readings
// are used directly when present; otherwise the resolved three-segment view
// is collapsed, with semi-peak energy billed at the off-peak rate.
func (c *Calculator) twoTierEnergy(plan *catalog.Plan, r *resolved, summer bool) (decimal.Decimal, []BreakdownItem) {
	peakRate, hasPeak := plan.RateFor(catalog.PeriodPeak, summer)
	offRate, _ := plan.RateFor(catalog.PeriodOffPeak, summer)
	if !hasPeak {
		peakRate = offRate
	}

	var peak, semi, off float64
	if r.level == TwoTier || r.level == ThreeTier {
		peak = *r.measured.PeakOnPeak
		off = *r.measured.OffPeak
		if r.level == ThreeTier {
			semi = *r.measured.SemiPeak
		}
	} else {
		peak, semi, off = r.tou.PeakOnPeak, r.tou.SemiPeak, r.tou.OffPeak
	}

	total := decimal.Zero
	var items []BreakdownItem
	appendLine := func(period catalog.Period, kwh float64, rate decimal.Decimal, label string) {
		if kwh <= 0 {
			return
		}
		charge := rate.Mul(decimal.NewFromFloat(kwh))
		total = total.Add(charge)
		items = append(items, BreakdownItem{Period: period, Kwh: kwh, Rate: rate, Charge: charge, Label: label})
	}
	appendLine(catalog.PeriodPeak, peak, peakRate, "")
	appendLine(catalog.PeriodSemiPeak, semi, offRate, "billed at off-peak rate")
	appendLine(catalog.PeriodOffPeak, off, offRate, "")
	return total, items
}

// threeTierEnergy bills a three-period plan, degrading gracefully when a
// season defines fewer periods than the schedule: with no peak rate, peak
// energy folds into semi-peak; with no semi-peak rate, semi-peak energy is
// distributed pro rata over the other two segments.
func threeTierEnergy(plan *catalog.Plan, tou TOUConsumption, summer bool) (decimal.Decimal, []BreakdownItem) {
	peakRate, hasPeak := plan.RateFor(catalog.PeriodPeak, summer)
	semiRate, hasSemi := plan.RateFor(catalog.PeriodSemiPeak, summer)
	offRate, hasOff := plan.RateFor(catalog.PeriodOffPeak, summer)

	peak, semi, off := tou.PeakOnPeak, tou.SemiPeak, tou.OffPeak
	switch {
	case !hasPeak && hasSemi:
		semi += peak
		peak = 0
	case hasPeak && !hasSemi:
		denom := peak + off
		if denom > 0 {
			peak += semi * peak / denom
			off += semi * off / denom
		} else {
			off += semi
		}
		semi = 0
	case !hasPeak && !hasSemi && hasOff:
		off += peak + semi
		peak, semi = 0, 0
	}

	total := decimal.Zero
	var items []BreakdownItem
	appendLine := func(period catalog.Period, kwh float64, rate decimal.Decimal, has bool) {
		if kwh <= 0 || !has {
			return
		}
		charge := rate.Mul(decimal.NewFromFloat(kwh))
		total = total.Add(charge)
		items = append(items, BreakdownItem{Period: period, Kwh: kwh, Rate: rate, Charge: charge})
	}
	appendLine(catalog.PeriodPeak, peak, peakRate, hasPeak)
	appendLine(catalog.PeriodSemiPeak, semi, semiRate, hasSemi)
	appendLine(catalog.PeriodOffPeak, off, offRate, hasOff)
	return total, items
}

// applyMinimumUsage enforces the contract-capacity kWh floor of plans that
// carry one: below the floor the bill is what the floor itself would cost.
func (c *Calculator) applyMinimumUsage(plan *catalog.Plan, r *resolved, summer bool, energy decimal.Decimal, breakdown Breakdown) (decimal.Decimal, Breakdown, bool) {
	if plan.BillingRules == nil || plan.BillingRules.MinimumUsage == "" {
		return energy, breakdown, false
	}
	rule, ok := c.minRules[plan.BillingRules.MinimumUsage]
	if !ok {
		return energy, breakdown, false
	}
	floor := r.kw * rule.KwhPerKw
	if r.usage >= floor {
		return energy, breakdown, false
	}

	if r.usage > 0 {
		factor := decimal.NewFromFloat(floor / r.usage)
		scale := func(items []BreakdownItem) {
			for i := range items {
				items[i].Kwh *= floor / r.usage
				items[i].Charge = items[i].Charge.Mul(factor)
			}
		}
		scale(breakdown.TierBreakdown)
		scale(breakdown.TOUBreakdown)
		return energy.Mul(factor), breakdown, true
	}

	// Zero usage still bills the floor. Tiered plans walk the floor through
	// their bands; time-of-use plans bill it entirely off-peak.
	if plan.TouType == catalog.TouNone {
		e, items := c.tieredEnergy(plan, floor, summer)
		return e, Breakdown{TierBreakdown: items}, true
	}
	offRate, _ := plan.RateFor(catalog.PeriodOffPeak, summer)
	charge := offRate.Mul(decimal.NewFromFloat(floor))
	items := []BreakdownItem{{Period: catalog.PeriodOffPeak, Kwh: floor, Rate: offRate, Charge: charge, Label: "minimum usage"}}
	return charge, Breakdown{TOUBreakdown: items}, true
}

// applySurcharge adds the over-threshold per-kWh surcharge when the plan
// defines one and the period's usage exceeds it.
func applySurcharge(plan *catalog.Plan, usage float64, energy decimal.Decimal, breakdown Breakdown) (decimal.Decimal, Breakdown) {
	if plan.BillingRules == nil || plan.BillingRules.Over2000KwhSurcharge == nil {
		return energy, breakdown
	}
	rule := plan.BillingRules.Over2000KwhSurcharge
	excess := usage - rule.ThresholdKwh
	if excess <= 0 {
		return energy, breakdown
	}
	charge := rule.CostPerKwh.Mul(decimal.NewFromFloat(excess))
	item := BreakdownItem{
		Kwh:    excess,
		Rate:   rule.CostPerKwh,
		Charge: charge,
		Label:  fmt.Sprintf("surcharge above %.0f kWh", rule.ThresholdKwh),
	}
	if breakdown.TOUBreakdown != nil {
		breakdown.TOUBreakdown = append(breakdown.TOUBreakdown, item)
	} else {
		breakdown.TierBreakdown = append(breakdown.TierBreakdown, item)
	}
	return energy.Add(charge), breakdown
}

// basicCharge resolves the fixed monthly charge of a plan. Scoped charge
// tables bill a per-household fee plus a per-kW contract fee; simpler plans
// carry a single fixed fee. Plans with neither fall back to the minimum
// monthly fee scaled by contracted amps, then to the first table entry.
func basicCharge(plan *catalog.Plan, r *resolved, summer bool) decimal.Decimal {
	if len(plan.BasicCharges) > 0 {
		if fee, ok := chargesFromTable(plan.BasicCharges, r, summer); ok {
			return fee
		}
	}
	if plan.BasicFee != nil {
		return *plan.BasicFee
	}
	if plan.BillingRules != nil && plan.BillingRules.MinMonthlyFee != nil {
		return plan.BillingRules.MinMonthlyFee.Mul(decimal.NewFromFloat(r.amps / 10))
	}
	if len(plan.BasicCharges) > 0 {
		return seasonRate(plan.BasicCharges[0], summer)
	}
	return decimal.Zero
}

// chargesFromTable sums the household fee matching the customer's phase and
// the per-kW contract fee covering the contracted capacity.
func chargesFromTable(charges []catalog.BasicChargeRate, r *resolved, summer bool) (decimal.Decimal, bool) {
	total := decimal.Zero
	matched := false
	for _, bc := range charges {
		if bc.CapacityMin == 0 && bc.CapacityMax == nil {
			// Per-household entry, scoped by phase when one is set.
			if bc.Phase == "" || bc.Phase == r.phase {
				total = total.Add(seasonRate(bc, summer))
				matched = true
			}
			continue
		}
		// Per-kW contract entry, scoped by capacity range.
		if r.kw < bc.CapacityMin {
			continue
		}
		if bc.CapacityMax != nil && r.kw >= *bc.CapacityMax {
			continue
		}
		total = total.Add(seasonRate(bc, summer).Mul(decimal.NewFromFloat(r.kw)))
		matched = true
	}
	return total, matched
}

func seasonRate(bc catalog.BasicChargeRate, summer bool) decimal.Decimal {
	if summer {
		return bc.SummerRate
	}
	return bc.NonSummerRate
}

// labelFor grades one result. Non-TOU plans and plans billed from measured
// segments are accurate; a split two-period reading is partially estimated;
// a synthesized breakdown is estimated and names the profile used.
func labelFor(plan *catalog.Plan, r *resolved, minApplied bool) ResultLabel {
	label := accuracyLabel(plan, r)
	if minApplied {
		label.Detail = "minimum usage applied"
	}
	return label
}

func accuracyLabel(plan *catalog.Plan, r *resolved) ResultLabel {
	switch plan.TouType {
	case catalog.TouNone:
		return ResultLabel{Accuracy: AccuracyAccurate, Badge: "actual", Tooltip: "computed from the metered total"}
	case catalog.TouSimple2Tier:
		if r.touMeasured || r.level == TwoTier {
			return ResultLabel{Accuracy: AccuracyAccurate, Badge: "actual", Tooltip: "computed from measured period readings"}
		}
	default:
		if r.touMeasured {
			return ResultLabel{Accuracy: AccuracyAccurate, Badge: "actual", Tooltip: "computed from measured period readings"}
		}
		if r.level == TwoTier {
			return ResultLabel{
				Accuracy: AccuracyPartialEstimated,
				Badge:    "partially estimated",
				Tooltip:  "semi-peak usage derived from two-period readings",
			}
		}
	}
	tooltip := "usage split estimated"
	if desc := HabitDescription(r.tou.EstimationMode); desc != "" {
		tooltip = fmt.Sprintf("usage split estimated from the %s profile", desc)
	}
	return ResultLabel{Accuracy: AccuracyEstimated, Badge: "estimated", Tooltip: tooltip}
}
