package catalog

import "github.com/shopspring/decimal"

// Category is the usage class of a plan. Only residential and lighting
// categories take part in consumer comparisons; the rest are carried so the
// catalog can describe them without the engine consulting them.
type Category string

const (
	CategoryResidential Category = "residential"
	CategoryLighting    Category = "lighting"
	CategoryLowVoltage  Category = "low_voltage"
	CategoryCommercial  Category = "commercial"
	CategoryEV          Category = "ev"
	CategoryBatch       Category = "batch"
)

// TouType is the closed set of time-of-use structures a plan can have.
type TouType string

const (
	TouNone        TouType = "none"
	TouSimple2Tier TouType = "simple_2_tier"
	TouSimple3Tier TouType = "simple_3_tier"
	TouFull        TouType = "full_tou"
)

// Period is a clock-time billing segment within a day.
type Period string

const (
	PeriodPeak     Period = "peak"
	PeriodSemiPeak Period = "semi_peak"
	PeriodOffPeak  Period = "off_peak"
	PeriodFlat     Period = "flat"
)

// Phase of the customer's supply.
type Phase string

const (
	PhaseSingle Phase = "single"
	PhaseThree  Phase = "three"
)

// TierRate is one band of a progressive tariff. MaxKwh nil marks the
// unbounded top tier, which must be the last band.
type TierRate struct {
	Tier          int             `json:"tier"`
	MinKwh        float64         `json:"minKwh"`
	MaxKwh        *float64        `json:"maxKwh"`
	SummerRate    decimal.Decimal `json:"summerRate"`
	NonSummerRate decimal.Decimal `json:"nonSummerRate"`
}

// EnergyChargeRate is the per-kWh rate for one period within one season.
type EnergyChargeRate struct {
	Period Period          `json:"period"`
	Rate   decimal.Decimal `json:"rate"`
}

// SeasonalEnergyCharges holds the per-period rates for both seasons.
type SeasonalEnergyCharges struct {
	Summer    []EnergyChargeRate `json:"summer"`
	NonSummer []EnergyChargeRate `json:"nonSummer"`
}

// BasicChargeRate is a fixed monthly fee scoped by phase and contract
// capacity range (kW). Phase may be empty for phase-independent entries; a
// CapacityMin of 0 with nil CapacityMax marks a per-household fee.
type BasicChargeRate struct {
	Phase         Phase           `json:"phase,omitempty"`
	CapacityMin   float64         `json:"capacityMin"`
	CapacityMax   *float64        `json:"capacityMax"`
	SummerRate    decimal.Decimal `json:"summerRate"`
	NonSummerRate decimal.Decimal `json:"nonSummerRate"`
}

// TimeSlot maps a clock range to a period. Slots may wrap past midnight
// (start 22:30, end 07:30).
type TimeSlot struct {
	Season string `json:"season,omitempty"`
	Period Period `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// TimeSlots groups a plan's schedule by day type.
type TimeSlots struct {
	Weekday       []TimeSlot `json:"weekday"`
	Saturday      []TimeSlot `json:"saturday"`
	SundayHoliday []TimeSlot `json:"sundayHoliday"`
}

// SurchargeRule adds a per-kWh charge to consumption above a threshold.
type SurchargeRule struct {
	ThresholdKwh float64         `json:"threshold_kwh"`
	CostPerKwh   decimal.Decimal `json:"cost_per_kwh"`
}

// BillingRules carries the optional billing adjustments of a plan.
type BillingRules struct {
	MinMonthlyFee        *decimal.Decimal `json:"min_monthly_fee,omitempty"`
	MinimumUsage         string           `json:"minimum_usage,omitempty"`
	Over2000KwhSurcharge *SurchargeRule   `json:"over_2000_kwh_surcharge,omitempty"`
}

// MinimumUsageRule converts contract capacity into a billable kWh floor.
type MinimumUsageRule struct {
	KwhPerKw float64 `json:"kwh_per_kw"`
}

// Plan is the typed tariff definition the calculation engine consumes.
// TouType determines which rate structure is populated: TouNone plans carry
// TierRates (or a flat energy rate), every other type carries EnergyCharges.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	NameEn   string   `json:"nameEn,omitempty"`
	Category Category `json:"category"`
	TouType  TouType  `json:"touType"`
	Voltage  string   `json:"voltage,omitempty"`

	BasicFee      *decimal.Decimal      `json:"basicFee,omitempty"`
	BasicCharges  []BasicChargeRate     `json:"basicCharges,omitempty"`
	EnergyCharges SeasonalEnergyCharges `json:"energyCharges"`
	TierRates     []TierRate            `json:"tierRates,omitempty"`
	TimeSlots     *TimeSlots            `json:"timeSlots,omitempty"`
	BillingRules  *BillingRules         `json:"billingRules,omitempty"`
}

// Catalog is the immutable, fully transformed plan set shared read-only by
// all calculations.
type Catalog struct {
	Version           string                      `json:"version"`
	MinimumUsageRules map[string]MinimumUsageRule `json:"minimumUsageRules,omitempty"`
	Plans             []Plan                      `json:"plans"`
}

// PlanByID returns the plan with the given id, or nil.
func (c *Catalog) PlanByID(id string) *Plan {
	for i := range c.Plans {
		if c.Plans[i].ID == id {
			return &c.Plans[i]
		}
	}
	return nil
}

// Comparable reports whether a plan takes part in the consumer-facing
// comparison. Commercial, EV and batch tariffs are out of scope.
func (p *Plan) Comparable() bool {
	switch p.Category {
	case CategoryResidential, CategoryLighting, CategoryLowVoltage:
		return true
	default:
		return false
	}
}

// SeasonCharges returns the energy charge list for the given summer flag.
func (p *Plan) SeasonCharges(summer bool) []EnergyChargeRate {
	if summer {
		return p.EnergyCharges.Summer
	}
	return p.EnergyCharges.NonSummer
}

// RateFor returns the rate for a period in the given season, and whether the
// plan defines one.
func (p *Plan) RateFor(period Period, summer bool) (decimal.Decimal, bool) {
	for _, ec := range p.SeasonCharges(summer) {
		if ec.Period == period {
			return ec.Rate, true
		}
	}
	return decimal.Zero, false
}
