package tariff

import "time"

// Season selects which of the two annual rate tables applies.
type Season string

const (
	SeasonSummer    Season = "summer"
	SeasonNonSummer Season = "non_summer"
)

// IsSummer reports whether s is the summer season.
func (s Season) IsSummer() bool { return s == SeasonSummer }

// ResolveSeason maps a billing period to its rate season from the start
// date's month alone: June through September is summer, everything else is
// non-summer.
func ResolveSeason(period BillingPeriod) Season {
	return seasonForMonth(period.Start.Month())
}

func seasonForMonth(m time.Month) Season {
	if m >= time.June && m <= time.September {
		return SeasonSummer
	}
	return SeasonNonSummer
}
