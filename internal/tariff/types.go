// Package tariff implements the plan comparison engine: completeness
// classification, segment estimation and splitting, and per-plan cost
// calculation over a loaded catalog snapshot.
//
// Everything here is a pure computation over its inputs. Energy quantities
// are float64 kWh; money is decimal.Decimal so per-tier charges and totals
// stay exact.
package tariff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/whsiao/tariffcompare/internal/catalog"
)

// BillingPeriod is the span a bill covers. Days is the inclusive day count.
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Consumption is the metered usage for a period. Segment readings are
// pointers: absence, not zero, means "not measured".
type Consumption struct {
	Usage      float64  `json:"usage"`
	PeakOnPeak *float64 `json:"peakOnPeak,omitempty"`
	SemiPeak   *float64 `json:"semiPeak,omitempty"`
	OffPeak    *float64 `json:"offPeak,omitempty"`
}

// TOUConsumption is a resolved three-segment breakdown.
type TOUConsumption struct {
	PeakOnPeak     float64        `json:"peakOnPeak"`
	SemiPeak       float64        `json:"semiPeak"`
	OffPeak        float64        `json:"offPeak"`
	IsEstimated    bool           `json:"isEstimated,omitempty"`
	EstimationMode EstimationMode `json:"estimationMode,omitempty"`
}

// Total returns the sum of the three segments.
func (t TOUConsumption) Total() float64 {
	return t.PeakOnPeak + t.SemiPeak + t.OffPeak
}

// SegmentPercents is a caller-supplied percentage split for custom
// estimation. The three values must sum to 100 within ±0.1.
type SegmentPercents struct {
	PeakOnPeak float64 `json:"peakOnPeak"`
	SemiPeak   float64 `json:"semiPeak"`
	OffPeak    float64 `json:"offPeak"`
}

// EstimationSettings selects how a missing segment breakdown is synthesized.
type EstimationSettings struct {
	Mode           EstimationMode   `json:"mode"`
	Season         Season           `json:"season,omitempty"`
	CustomPercents *SegmentPercents `json:"customPercents,omitempty"`
}

// SplitSettings selects how a measured two-period reading is split for
// three-period plans.
type SplitSettings struct {
	Mode              SplitMode `json:"mode"`
	CustomPeakPercent *float64  `json:"customPeakPercent,omitempty"`
}

// CalculationInput is everything a comparison run needs. Consumption keeps
// the original segment readings so plans that can bill measured data
// directly are not forced through an estimated breakdown. A caller-supplied
// TOUConsumption is trusted as-is only when it is not flagged estimated;
// estimated views are re-derived from the readings and settings instead.
type CalculationInput struct {
	Consumption        Consumption         `json:"consumption"`
	TOUConsumption     *TOUConsumption     `json:"touConsumption,omitempty"`
	BillingPeriod      BillingPeriod       `json:"billingPeriod"`
	Phase              catalog.Phase       `json:"phase,omitempty"`
	VoltageV           float64             `json:"voltageV,omitempty"`
	ContractCapacity   float64             `json:"contractCapacity,omitempty"` // amps
	EstimationSettings *EstimationSettings `json:"estimationSettings,omitempty"`
	SplitSettings      *SplitSettings      `json:"splitSettings,omitempty"`
	CurrentPlanID      string              `json:"currentPlanId,omitempty"`
}

// Charges is the cost summary of one plan.
type Charges struct {
	Base   decimal.Decimal `json:"base"`
	Energy decimal.Decimal `json:"energy"`
	Total  decimal.Decimal `json:"total"`
}

// BreakdownItem is one line of a cost breakdown.
type BreakdownItem struct {
	Tier   int             `json:"tier,omitempty"`
	Period catalog.Period  `json:"period,omitempty"`
	Kwh    float64         `json:"kwh"`
	Rate   decimal.Decimal `json:"rate"`
	Charge decimal.Decimal `json:"charge"`
	Label  string          `json:"label,omitempty"`
}

// Breakdown holds either the tier walk or the per-period lines.
type Breakdown struct {
	TierBreakdown []BreakdownItem `json:"tierBreakdown,omitempty"`
	TOUBreakdown  []BreakdownItem `json:"touBreakdown,omitempty"`
}

// Accuracy grades how trustworthy a result is.
type Accuracy string

const (
	AccuracyAccurate         Accuracy = "accurate"
	AccuracyEstimated        Accuracy = "estimated"
	AccuracyPartialEstimated Accuracy = "partial_estimated"
)

// ResultLabel is the user-facing accuracy annotation of one result.
type ResultLabel struct {
	Accuracy Accuracy `json:"accuracy"`
	Badge    string   `json:"badge"`
	Tooltip  string   `json:"tooltip"`
	Detail   string   `json:"detail,omitempty"`
}

// Comparison relates one result to the baseline plan. Rank and the
// difference fields are stamped by FinalizeComparison after sorting.
type Comparison struct {
	IsCurrentPlan    bool            `json:"isCurrentPlan"`
	Rank             int             `json:"rank"`
	Difference       decimal.Decimal `json:"difference"`
	SavingPercentage float64         `json:"savingPercentage"`
}

// SeasonInfo records which rate season applied.
type SeasonInfo struct {
	Season   Season `json:"season"`
	IsSummer bool   `json:"isSummer"`
}

// PlanCalculationResult is the cost of one plan for the given input.
type PlanCalculationResult struct {
	PlanID     string      `json:"planId"`
	PlanName   string      `json:"planName"`
	PlanNameEn string      `json:"planNameEn,omitempty"`
	Charges    Charges     `json:"charges"`
	Breakdown  Breakdown   `json:"breakdown"`
	Label      ResultLabel `json:"label"`
	Comparison Comparison  `json:"comparison"`
	SeasonInfo SeasonInfo  `json:"seasonInfo"`
}
