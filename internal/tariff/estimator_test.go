package tariff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateAverageSummer(t *testing.T) {
	got, err := Estimate(300, ModeAverage, SeasonSummer, nil)
	require.NoError(t, err)

	assert.InDelta(t, 105, got.PeakOnPeak, 1e-9)
	assert.InDelta(t, 75, got.SemiPeak, 1e-9)
	assert.InDelta(t, 120, got.OffPeak, 1e-9)
	assert.True(t, got.IsEstimated)
	assert.Equal(t, ModeAverage, got.EstimationMode)
}

func TestEstimateConservesTotal(t *testing.T) {
	for _, mode := range []EstimationMode{ModeAverage, ModeHomeDuringDay, ModeNightOwl} {
		for _, season := range []Season{SeasonSummer, SeasonNonSummer} {
			got, err := Estimate(437.5, mode, season, nil)
			require.NoError(t, err)
			assert.InDelta(t, 437.5, got.Total(), 1e-9, "mode %s season %s", mode, season)
		}
	}
}

func TestEstimatePeakOrderingAcrossModes(t *testing.T) {
	day, err := Estimate(300, ModeHomeDuringDay, SeasonSummer, nil)
	require.NoError(t, err)
	avg, err := Estimate(300, ModeAverage, SeasonSummer, nil)
	require.NoError(t, err)
	owl, err := Estimate(300, ModeNightOwl, SeasonSummer, nil)
	require.NoError(t, err)

	assert.Greater(t, day.PeakOnPeak, avg.PeakOnPeak)
	assert.Greater(t, avg.PeakOnPeak, owl.PeakOnPeak)
	assert.Greater(t, owl.OffPeak, avg.OffPeak)
}

func TestEstimateCustom(t *testing.T) {
	got, err := Estimate(300, ModeCustom, SeasonSummer, &SegmentPercents{PeakOnPeak: 40, SemiPeak: 30, OffPeak: 30})
	require.NoError(t, err)

	assert.InDelta(t, 120, got.PeakOnPeak, 1e-9)
	assert.InDelta(t, 90, got.SemiPeak, 1e-9)
	assert.InDelta(t, 90, got.OffPeak, 1e-9)
}

func TestEstimateCustomBadSum(t *testing.T) {
	_, err := Estimate(300, ModeCustom, SeasonSummer, &SegmentPercents{PeakOnPeak: 40, SemiPeak: 30, OffPeak: 29})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var pe *InvalidPercentError
	require.ErrorAs(t, err, &pe)
	assert.InDelta(t, 99, pe.Sum, 1e-9)
}

func TestEstimateCustomTolerance(t *testing.T) {
	_, err := Estimate(300, ModeCustom, SeasonSummer, &SegmentPercents{PeakOnPeak: 40.05, SemiPeak: 30, OffPeak: 30})
	assert.NoError(t, err)
}

func TestEstimateCustomWithoutPercents(t *testing.T) {
	_, err := Estimate(300, ModeCustom, SeasonSummer, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEstimateUnknownMode(t *testing.T) {
	_, err := Estimate(300, EstimationMode("weekend_warrior"), SeasonSummer, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestEstimateZeroTotal(t *testing.T) {
	got, err := Estimate(0, ModeAverage, SeasonNonSummer, nil)
	require.NoError(t, err)
	assert.Zero(t, got.Total())
}
