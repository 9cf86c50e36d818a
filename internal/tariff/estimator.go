package tariff

import (
	"fmt"
	"math"
)

// EstimationMode names a household behavior profile used to synthesize a
// three-segment breakdown from a total-only reading.
type EstimationMode string

const (
	ModeAverage       EstimationMode = "average"
	ModeHomeDuringDay EstimationMode = "home_during_day"
	ModeNightOwl      EstimationMode = "night_owl"
	ModeCustom        EstimationMode = "custom"
)

// percentTolerance is the accepted deviation of custom percentages from 100.
// An epsilon rather than exact equality, so float-entered values pass.
const percentTolerance = 0.1

type segmentRatios struct {
	peakOnPeak float64
	semiPeak   float64
	offPeak    float64
}

// habitRatios carries the fixed per-season fraction tables of the named
// profiles. Summer shifts usage toward the peak window (air conditioning);
// the night owl profile is season-independent.
var habitRatios = map[EstimationMode]map[Season]segmentRatios{
	ModeAverage: {
		SeasonSummer:    {peakOnPeak: 0.35, semiPeak: 0.25, offPeak: 0.40},
		SeasonNonSummer: {peakOnPeak: 0.30, semiPeak: 0.25, offPeak: 0.45},
	},
	ModeHomeDuringDay: {
		SeasonSummer:    {peakOnPeak: 0.45, semiPeak: 0.20, offPeak: 0.35},
		SeasonNonSummer: {peakOnPeak: 0.40, semiPeak: 0.20, offPeak: 0.40},
	},
	ModeNightOwl: {
		SeasonSummer:    {peakOnPeak: 0.25, semiPeak: 0.20, offPeak: 0.55},
		SeasonNonSummer: {peakOnPeak: 0.25, semiPeak: 0.20, offPeak: 0.55},
	},
}

// habitDescriptions names the profiles for result tooltips.
var habitDescriptions = map[EstimationMode]string{
	ModeAverage:       "typical working household",
	ModeHomeDuringDay: "home during the day",
	ModeNightOwl:      "night owl",
	ModeCustom:        "custom split",
}

// HabitDescription returns the human-readable name of a profile.
func HabitDescription(mode EstimationMode) string {
	return habitDescriptions[mode]
}

// Estimate synthesizes a three-segment breakdown from a total-only reading.
// The segments are exact fractional multiples of total, so their sum
// reconstructs total to floating precision. Rounding is left to the
// presentation layer.
func Estimate(total float64, mode EstimationMode, season Season, custom *SegmentPercents) (TOUConsumption, error) {
	if mode == ModeCustom {
		return estimateCustom(total, custom)
	}

	seasons, ok := habitRatios[mode]
	if !ok {
		return TOUConsumption{}, fmt.Errorf("%w: unknown estimation mode %q", ErrInvalidArgument, mode)
	}
	ratios, ok := seasons[season]
	if !ok {
		return TOUConsumption{}, fmt.Errorf("%w: unknown season %q", ErrInvalidArgument, season)
	}

	return TOUConsumption{
		PeakOnPeak:     total * ratios.peakOnPeak,
		SemiPeak:       total * ratios.semiPeak,
		OffPeak:        total * ratios.offPeak,
		IsEstimated:    true,
		EstimationMode: mode,
	}, nil
}

func estimateCustom(total float64, percents *SegmentPercents) (TOUConsumption, error) {
	if percents == nil {
		return TOUConsumption{}, fmt.Errorf("%w: custom mode requires customPercents", ErrInvalidArgument)
	}
	sum := percents.PeakOnPeak + percents.SemiPeak + percents.OffPeak
	if math.Abs(sum-100) > percentTolerance {
		return TOUConsumption{}, &InvalidPercentError{Sum: sum}
	}
	return TOUConsumption{
		PeakOnPeak:     total * percents.PeakOnPeak / 100,
		SemiPeak:       total * percents.SemiPeak / 100,
		OffPeak:        total * percents.OffPeak / 100,
		IsEstimated:    true,
		EstimationMode: ModeCustom,
	}, nil
}
