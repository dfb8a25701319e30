package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

func TestRecommend_DecisionTable(t *testing.T) {
	r := NewRecommender(DefaultCalibration())
	grinder := types.DefaultGrinderConfiguration()

	tests := []struct {
		name       string
		deviation  int
		taste      *types.TastePrimary
		direction  Direction
		steps      int
		confidence Confidence
		suggested  string
	}{
		{name: "on target without feedback", deviation: 0, taste: nil, direction: DirectionNoChange, steps: 0, confidence: ConfidenceMedium, suggested: "12.0"},
		{name: "on target and perfect", deviation: 1, taste: taste(types.TastePerfect), direction: DirectionNoChange, steps: 0, confidence: ConfidenceHigh, suggested: "12.0"},
		{name: "on target but sour", deviation: -2, taste: taste(types.TasteSour), direction: DirectionFiner, steps: 1, confidence: ConfidenceMedium, suggested: "11.5"},
		{name: "on target but slightly bitter", deviation: 2, taste: taste(types.TasteSlightlyBitter), direction: DirectionCoarser, steps: 1, confidence: ConfidenceLow, suggested: "12.5"},
		{name: "fast without feedback", deviation: -4, taste: nil, direction: DirectionFiner, steps: 1, confidence: ConfidenceMedium, suggested: "11.5"},
		{name: "fast and sour", deviation: -12, taste: taste(types.TasteSour), direction: DirectionFiner, steps: 3, confidence: ConfidenceHigh, suggested: "10.5"},
		{name: "fast but bitter", deviation: -6, taste: taste(types.TasteBitter), direction: DirectionFiner, steps: 2, confidence: ConfidenceLow, suggested: "11.0"},
		{name: "slow without feedback", deviation: 5, taste: nil, direction: DirectionCoarser, steps: 1, confidence: ConfidenceMedium, suggested: "12.5"},
		{name: "slow and bitter", deviation: 11, taste: taste(types.TasteBitter), direction: DirectionCoarser, steps: 3, confidence: ConfidenceHigh, suggested: "13.5"},
		{name: "slow but perfect", deviation: 8, taste: taste(types.TastePerfect), direction: DirectionCoarser, steps: 2, confidence: ConfidenceLow, suggested: "13.0"},
		{name: "steps are capped", deviation: 60, taste: nil, direction: DirectionCoarser, steps: 5, confidence: ConfidenceMedium, suggested: "14.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := r.Recommend("12", tt.deviation, tt.taste, grinder)
			assert.Equal(t, tt.direction, rec.Direction)
			assert.Equal(t, tt.steps, rec.Steps)
			assert.Equal(t, tt.confidence, rec.Confidence)
			assert.Equal(t, tt.suggested, rec.SuggestedSetting)
			assert.Equal(t, "12", rec.CurrentSetting)
			assert.Equal(t, tt.deviation, rec.TimeDeviation)
			assert.NotEmpty(t, rec.Reason)
		})
	}
}

func TestRecommend_OptimalWindowEdgesKeepSetting(t *testing.T) {
	analyzer := NewAnalyzer(DefaultCalibration())
	grinder := types.DefaultGrinderConfiguration()

	tests := []struct {
		name      string
		seconds   int
		direction Direction
	}{
		{name: "lower edge", seconds: 25, direction: DirectionNoChange},
		{name: "upper edge", seconds: 30, direction: DirectionNoChange},
		{name: "one second under", seconds: 24, direction: DirectionFiner},
		{name: "one second over", seconds: 31, direction: DirectionCoarser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := analyzer.Recommend("15", analyzer.TimeDeviation(tt.seconds), taste(types.TastePerfect), grinder)
			assert.Equal(t, tt.direction, rec.Direction)
			if tt.direction == DirectionNoChange {
				assert.Equal(t, ConfidenceHigh, rec.Confidence)
				assert.Equal(t, 0, rec.Steps)
			}
		})
	}

	for seconds := 25; seconds <= 30; seconds++ {
		rec := analyzer.Recommend("15", analyzer.TimeDeviation(seconds), nil, grinder)
		assert.Equal(t, DirectionNoChange, rec.Direction, "at %ds", seconds)
	}
}

func TestCalibration_SmallDeviation(t *testing.T) {
	cal := DefaultCalibration()
	assert.Equal(t, 3.0, cal.SmallDeviation(), "rounded half-width of 25-30s")

	cal.SmallDeviationSeconds = 5
	assert.Equal(t, 5.0, cal.SmallDeviation())

	cal.SmallDeviationSeconds = 0
	cal.OptimalTime = Window{Min: 26, Max: 28}
	assert.Equal(t, 1.0, cal.SmallDeviation())
}

func TestRecommend_ZeroDeviationNoFeedbackIsNoChange(t *testing.T) {
	rec := NewRecommender(DefaultCalibration()).Recommend("fine-3", 0, nil, types.DefaultGrinderConfiguration())

	assert.Equal(t, DirectionNoChange, rec.Direction)
	assert.Equal(t, 0, rec.Steps)
	assert.Empty(t, rec.SuggestedSetting, "non-numeric settings get no suggestion")
}

func TestRecommend_CoarseningNeverShrinksWithDeviation(t *testing.T) {
	r := NewRecommender(DefaultCalibration())
	grinder := types.DefaultGrinderConfiguration()

	for _, tp := range []*types.TastePrimary{nil, taste(types.TasteBitter), taste(types.TasteSour), taste(types.TastePerfect)} {
		previous := 0
		for dev := 0; dev <= 90; dev++ {
			rec := r.Recommend("12", dev, tp, grinder)
			coarsening := 0
			if rec.Direction == DirectionCoarser {
				coarsening = rec.Steps
			}
			require.GreaterOrEqual(t, coarsening, previous, "deviation %d", dev)
			previous = coarsening
		}
	}
}

func TestRecommend_ClampsToGrinderRange(t *testing.T) {
	r := NewRecommender(DefaultCalibration())
	grinder := types.GrinderConfiguration{ScaleMin: 0, ScaleMax: 10, StepSize: 1}

	finer := r.Recommend("1", -20, nil, grinder)
	assert.Equal(t, "0", finer.SuggestedSetting)

	coarser := r.Recommend("9", 20, nil, grinder)
	assert.Equal(t, "10", coarser.SuggestedSetting)
}

func TestFormatSetting(t *testing.T) {
	assert.Equal(t, "12", formatSetting(12, 1))
	assert.Equal(t, "12.5", formatSetting(12.5, 0.5))
	assert.Equal(t, "3.25", formatSetting(3.25, 0.25))
	assert.Equal(t, "3.0", formatSetting(3, 0.1))
}

func TestDoseHint(t *testing.T) {
	assert.Contains(t, doseHint(types.TasteWeak), "increasing")
	assert.Contains(t, doseHint(types.TasteStrong), "decreasing")
}
