package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Season
	}{
		{time.January, SeasonNonSummer},
		{time.May, SeasonNonSummer},
		{time.June, SeasonSummer},
		{time.July, SeasonSummer},
		{time.September, SeasonSummer},
		{time.October, SeasonNonSummer},
		{time.December, SeasonNonSummer},
	}
	for _, tt := range tests {
		period := BillingPeriod{Start: time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC)}
		assert.Equal(t, tt.want, ResolveSeason(period), "month %s", tt.month)
	}
}

func TestSeasonUsesStartDate(t *testing.T) {
	// A period straddling the boundary follows its start month.
	period := BillingPeriod{
		Start: time.Date(2025, time.May, 25, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 24, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, SeasonNonSummer, ResolveSeason(period))
	assert.False(t, ResolveSeason(period).IsSummer())
}
