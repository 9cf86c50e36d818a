package tariff

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FinalizeComparison stamps rank and baseline-relative fields onto sorted
// results. The baseline is the caller's current plan when it is in the
// result set, otherwise the cheapest plan. Difference is each plan's total
// minus the baseline total, so negative means cheaper than the baseline.
func FinalizeComparison(results []PlanCalculationResult, currentPlanID string) {
	if len(results) == 0 {
		return
	}

	baseline := results[0].Charges.Total
	for i := range results {
		if results[i].PlanID == currentPlanID {
			results[i].Comparison.IsCurrentPlan = true
			baseline = results[i].Charges.Total
		}
	}

	for i := range results {
		results[i].Comparison.Rank = i + 1
		diff := results[i].Charges.Total.Sub(baseline)
		results[i].Comparison.Difference = diff
		if baseline.IsPositive() {
			saving, _ := baseline.Sub(results[i].Charges.Total).
				Div(baseline).Mul(decimal.NewFromInt(100)).Float64()
			results[i].Comparison.SavingPercentage = saving
		}
	}
}

// Recommendation summarizes the comparison outcome for display.
type Recommendation struct {
	BestPlanID       string          `json:"bestPlanId"`
	BestPlanName     string          `json:"bestPlanName"`
	CurrentPlanID    string          `json:"currentPlanId,omitempty"`
	MonthlySaving    decimal.Decimal `json:"monthlySaving"`
	SavingPercentage float64         `json:"savingPercentage"`
	Message          string          `json:"message"`
}

// BuildRecommendation derives the headline recommendation from finalized
// results. It returns nil for an empty result set.
func BuildRecommendation(results []PlanCalculationResult) *Recommendation {
	if len(results) == 0 {
		return nil
	}

	best := results[0]
	rec := &Recommendation{
		BestPlanID:       best.PlanID,
		BestPlanName:     best.PlanName,
		MonthlySaving:    decimal.Zero,
		SavingPercentage: 0,
	}

	for i := range results {
		if !results[i].Comparison.IsCurrentPlan {
			continue
		}
		rec.CurrentPlanID = results[i].PlanID
		if results[i].PlanID == best.PlanID {
			rec.Message = "your current plan is already the cheapest for this usage"
			return rec
		}
		rec.MonthlySaving = results[i].Charges.Total.Sub(best.Charges.Total)
		rec.SavingPercentage = best.Comparison.SavingPercentage
		rec.Message = fmt.Sprintf("switching to %s would save %s per period", best.PlanName, rec.MonthlySaving.StringFixed(1))
		return rec
	}

	rec.Message = fmt.Sprintf("%s is the cheapest plan for this usage", best.PlanName)
	return rec
}
