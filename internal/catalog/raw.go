package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// The raw document is the published plan dataset. Money fields decode
// through shopspring/decimal so rates like 1.78 stay exact.

type rawDocument struct {
	Version     string         `json:"version"`
	Definitions *rawDefinitions `json:"definitions,omitempty"`
	Plans       []rawPlan      `json:"plans"`
}

type rawDefinitions struct {
	MinimumUsageRules map[string]MinimumUsageRule `json:"minimum_usage_rules,omitempty"`
}

type rawPlan struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	NameEn       string           `json:"name_en,omitempty"`
	Type         string           `json:"type"`
	TouType      string           `json:"tou_type,omitempty"`
	Category     string           `json:"category"`
	Voltage      string           `json:"voltage,omitempty"`
	BasicFee     *decimal.Decimal `json:"basic_fee,omitempty"`
	BasicFees    []rawBasicFee    `json:"basic_fees,omitempty"`
	Tiers        []rawTier        `json:"tiers,omitempty"`
	Rates        []rawRate        `json:"rates,omitempty"`
	Schedules    []rawSchedule    `json:"schedules,omitempty"`
	BillingRules *BillingRules    `json:"billing_rules,omitempty"`
}

type rawTier struct {
	Min       float64         `json:"min"`
	Max       *float64        `json:"max"`
	Summer    decimal.Decimal `json:"summer"`
	NonSummer decimal.Decimal `json:"non_summer"`
}

type rawRate struct {
	Season string          `json:"season"`
	Period string          `json:"period"`
	Cost   decimal.Decimal `json:"cost"`
}

type rawBasicFee struct {
	Phase       string          `json:"phase,omitempty"`
	CapacityMin float64         `json:"capacity_min"`
	CapacityMax *float64        `json:"capacity_max"`
	Summer      decimal.Decimal `json:"summer"`
	NonSummer   decimal.Decimal `json:"non_summer"`
}

type rawSchedule struct {
	Season  string `json:"season"`
	DayType string `json:"day_type"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Period  string `json:"period"`
}

// Parse decodes and transforms a raw catalog document into the typed model.
// Failures wrap ErrCatalogLoad.
func Parse(payload []byte) (*Catalog, error) {
	var doc rawDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrCatalogLoad, err)
	}
	return transform(&doc)
}

func transform(doc *rawDocument) (*Catalog, error) {
	cat := &Catalog{
		Version: doc.Version,
		Plans:   make([]Plan, 0, len(doc.Plans)),
	}
	if doc.Definitions != nil {
		cat.MinimumUsageRules = doc.Definitions.MinimumUsageRules
	}

	for i := range doc.Plans {
		plan, err := transformPlan(&doc.Plans[i])
		if err != nil {
			return nil, fmt.Errorf("%w: plan %q: %v", ErrCatalogLoad, doc.Plans[i].ID, err)
		}
		cat.Plans = append(cat.Plans, *plan)
	}
	return cat, nil
}

func transformPlan(rp *rawPlan) (*Plan, error) {
	touType, err := resolveTouType(rp)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		ID:           rp.ID,
		Name:         rp.Name,
		NameEn:       rp.NameEn,
		Category:     Category(rp.Category),
		TouType:      touType,
		Voltage:      rp.Voltage,
		BasicFee:     rp.BasicFee,
		BillingRules: rp.BillingRules,
	}

	for _, bf := range rp.BasicFees {
		plan.BasicCharges = append(plan.BasicCharges, BasicChargeRate{
			Phase:         Phase(bf.Phase),
			CapacityMin:   bf.CapacityMin,
			CapacityMax:   bf.CapacityMax,
			SummerRate:    bf.Summer,
			NonSummerRate: bf.NonSummer,
		})
	}

	for _, r := range rp.Rates {
		ec := EnergyChargeRate{Period: Period(r.Period), Rate: r.Cost}
		switch r.Season {
		case "summer":
			plan.EnergyCharges.Summer = append(plan.EnergyCharges.Summer, ec)
		case "non_summer":
			plan.EnergyCharges.NonSummer = append(plan.EnergyCharges.NonSummer, ec)
		default:
			return nil, fmt.Errorf("unknown season %q in rates", r.Season)
		}
	}

	if len(rp.Tiers) > 0 {
		plan.TierRates = transformTiers(rp.Tiers)
		if err := validateTiers(plan.TierRates); err != nil {
			return nil, err
		}
	}

	if len(rp.Schedules) > 0 {
		plan.TimeSlots = transformSchedules(rp.Schedules)
	}

	if err := validateRateStructure(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// resolveTouType prefers the explicit tou_type field. The id-substring
// inference below it is a known data-quality hazard kept for older documents
// that only carry the TIERED/TOU/FULL_TOU rate structure marker.
func resolveTouType(rp *rawPlan) (TouType, error) {
	if rp.TouType != "" {
		switch TouType(rp.TouType) {
		case TouNone, TouSimple2Tier, TouSimple3Tier, TouFull:
			return TouType(rp.TouType), nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownTouType, rp.TouType)
	}

	switch rp.Type {
	case "TIERED":
		return TouNone, nil
	case "FULL_TOU":
		return TouFull, nil
	case "TOU":
		if strings.Contains(rp.ID, "2_tier") {
			return TouSimple2Tier, nil
		}
		if strings.Contains(rp.ID, "3_tier") {
			return TouSimple3Tier, nil
		}
		return TouFull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlanType, rp.Type)
	}
}

func transformTiers(raws []rawTier) []TierRate {
	tiers := make([]TierRate, len(raws))
	for i, rt := range raws {
		tiers[i] = TierRate{
			MinKwh:        rt.Min,
			MaxKwh:        rt.Max,
			SummerRate:    rt.Summer,
			NonSummerRate: rt.NonSummer,
		}
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinKwh < tiers[j].MinKwh })
	for i := range tiers {
		tiers[i].Tier = i + 1
	}
	return tiers
}

// validateTiers enforces the band invariants: contiguous, non-overlapping,
// exactly one unbounded tier and it is the last.
func validateTiers(tiers []TierRate) error {
	for i, t := range tiers {
		last := i == len(tiers)-1
		if t.MaxKwh == nil {
			if !last {
				return fmt.Errorf("tier %d is unbounded but not last", t.Tier)
			}
			continue
		}
		if *t.MaxKwh <= t.MinKwh {
			return fmt.Errorf("tier %d has max %.0f <= min %.0f", t.Tier, *t.MaxKwh, t.MinKwh)
		}
		if last {
			return fmt.Errorf("last tier must be unbounded")
		}
		if next := tiers[i+1]; next.MinKwh != *t.MaxKwh {
			return fmt.Errorf("tier %d ends at %.0f but tier %d starts at %.0f", t.Tier, *t.MaxKwh, next.Tier, next.MinKwh)
		}
	}
	return nil
}

func transformSchedules(raws []rawSchedule) *TimeSlots {
	ts := &TimeSlots{}
	for _, rs := range raws {
		slot := TimeSlot{
			Season: rs.Season,
			Period: Period(rs.Period),
			Start:  rs.Start,
			End:    rs.End,
		}
		switch rs.DayType {
		case "weekday":
			ts.Weekday = append(ts.Weekday, slot)
		case "saturday":
			ts.Saturday = append(ts.Saturday, slot)
		case "sunday_holiday":
			ts.SundayHoliday = append(ts.SundayHoliday, slot)
		}
	}
	return ts
}

// validateRateStructure checks that touType and the populated rate tables
// agree: non-TOU plans carry tiers or a flat rate, TOU plans carry per-period
// energy charges and no tiers.
func validateRateStructure(p *Plan) error {
	hasEnergy := len(p.EnergyCharges.Summer) > 0 || len(p.EnergyCharges.NonSummer) > 0
	switch p.TouType {
	case TouNone:
		if len(p.TierRates) == 0 {
			_, summer := p.RateFor(PeriodFlat, true)
			_, nonSummer := p.RateFor(PeriodFlat, false)
			if !summer && !nonSummer {
				return fmt.Errorf("non-TOU plan has neither tiers nor a flat rate")
			}
		}
	case TouSimple2Tier, TouSimple3Tier, TouFull:
		if !hasEnergy {
			return fmt.Errorf("TOU plan has no energy charges")
		}
		if len(p.TierRates) > 0 {
			return fmt.Errorf("TOU plan must not carry tier rates")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTouType, p.TouType)
	}
	return nil
}
