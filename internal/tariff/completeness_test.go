package tariff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/whsiao/tariffcompare/internal/catalog"
)

func fp(v float64) *float64 { return &v }

func TestClassifyLevels(t *testing.T) {
	tests := []struct {
		name string
		in   Consumption
		want CompletenessLevel
	}{
		{"total only", Consumption{Usage: 300}, TotalOnly},
		{"all three segments", Consumption{Usage: 300, PeakOnPeak: fp(100), SemiPeak: fp(80), OffPeak: fp(120)}, ThreeTier},
		{"peak and off-peak", Consumption{Usage: 250, PeakOnPeak: fp(150), OffPeak: fp(100)}, TwoTier},
		{"semi-peak alone", Consumption{Usage: 80, SemiPeak: fp(80)}, TotalOnly},
		{"peak alone", Consumption{Usage: 100, PeakOnPeak: fp(100)}, TotalOnly},
		{"peak and semi without off-peak", Consumption{Usage: 180, PeakOnPeak: fp(100), SemiPeak: fp(80)}, TotalOnly},
		{"zero segments count as absent", Consumption{Usage: 100, PeakOnPeak: fp(0), SemiPeak: fp(0), OffPeak: fp(0)}, TotalOnly},
		{"zero semi-peak downgrades to two-tier", Consumption{Usage: 250, PeakOnPeak: fp(150), SemiPeak: fp(0), OffPeak: fp(100)}, TwoTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in).Level)
		})
	}
}

func TestClassifyPlanTypeLists(t *testing.T) {
	three := Classify(Consumption{Usage: 300, PeakOnPeak: fp(100), SemiPeak: fp(80), OffPeak: fp(120)})
	assert.Len(t, three.CanCalculateAccurately, 4)
	assert.Empty(t, three.NeedsEstimation)
	assert.Empty(t, three.NeedsSplit)

	two := Classify(Consumption{Usage: 250, PeakOnPeak: fp(150), OffPeak: fp(100)})
	assert.ElementsMatch(t, []catalog.TouType{catalog.TouNone, catalog.TouSimple2Tier}, two.CanCalculateAccurately)
	assert.ElementsMatch(t, []catalog.TouType{catalog.TouSimple3Tier, catalog.TouFull}, two.NeedsSplit)
	assert.Empty(t, two.NeedsEstimation)

	total := Classify(Consumption{Usage: 300})
	assert.Equal(t, []catalog.TouType{catalog.TouNone}, total.CanCalculateAccurately)
	assert.Len(t, total.NeedsEstimation, 3)
	assert.Empty(t, total.NeedsSplit)
}
