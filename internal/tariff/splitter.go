package tariff

import "fmt"

// SplitMode selects how a measured two-period reading is split into three
// periods. The modes only vary the fraction of the two-period peak reading
// that stays "true peak"; the off-peak side is a fixed clock-hour ratio.
type SplitMode string

const (
	SplitDefault      SplitMode = "default"
	SplitConservative SplitMode = "conservative"
	SplitAggressive   SplitMode = "aggressive"
	SplitCustom       SplitMode = "custom"
)

// Clock-hour ratios of the reference schedules. The two-period peak window
// spans 15 hours of which the three-period true peak covers 7; the
// two-period off-peak window spans 9 hours of which 2 fall in the
// three-period semi-peak window.
const (
	defaultPeakRetention = 7.0 / 15.0
	semiFromOffPeakRatio = 2.0 / 9.0
	offPeakRetention     = 7.0 / 9.0
)

// Split derives a three-segment breakdown from a measured two-period
// reading. A fraction p of the two-period peak stays peak and the rest
// moves to semi-peak; a fixed share of the off-peak reading also moves to
// semi-peak. The three outputs always sum to peak+offPeak to floating
// precision.
func Split(peak, offPeak float64, mode SplitMode, customPeakPercent *float64) (TOUConsumption, error) {
	p, err := peakRetention(mode, customPeakPercent)
	if err != nil {
		return TOUConsumption{}, err
	}

	threeTierPeak := peak * p
	semiFromPeak := peak * (1 - p)
	semiFromOffPeak := offPeak * semiFromOffPeakRatio
	threeTierOffPeak := offPeak * offPeakRetention

	return TOUConsumption{
		PeakOnPeak:  threeTierPeak,
		SemiPeak:    semiFromPeak + semiFromOffPeak,
		OffPeak:     threeTierOffPeak,
		IsEstimated: true,
	}, nil
}

func peakRetention(mode SplitMode, customPeakPercent *float64) (float64, error) {
	switch mode {
	case SplitDefault:
		return defaultPeakRetention, nil
	case SplitConservative:
		// Assumes usage concentrates in true peak hours.
		return 0.6, nil
	case SplitAggressive:
		// Assumes usage concentrates in semi-peak hours.
		return 0.3, nil
	case SplitCustom:
		if customPeakPercent == nil {
			return 0, fmt.Errorf("%w: custom split requires customPeakPercent", ErrInvalidArgument)
		}
		return *customPeakPercent / 100, nil
	default:
		return 0, fmt.Errorf("%w: unknown split mode %q", ErrInvalidArgument, mode)
	}
}
