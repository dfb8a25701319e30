package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// Analyzer orchestrates scoring, aggregation and recommendation over one calibration
type Analyzer struct {
	cal         Calibration
	scorer      *Scorer
	recommender *Recommender
}

// NewAnalyzer creates an analyzer with all components
func NewAnalyzer(cal Calibration) *Analyzer {
	return &Analyzer{
		cal:         cal,
		scorer:      NewScorer(cal),
		recommender: NewRecommender(cal),
	}
}

// NewAnalyzerFromDir loads calibration.json from dataDir. A broken file falls back
// to the defaults and the error is returned alongside a usable analyzer.
func NewAnalyzerFromDir(dataDir string) (*Analyzer, error) {
	cal, err := NewCalibrationStore(dataDir).LoadCalibration()
	return NewAnalyzer(cal), err
}

// Calibration returns the constants the analyzer was built with
func (a *Analyzer) Calibration() Calibration {
	return a.cal
}

// Score rates one shot against the bean's history
func (a *Analyzer) Score(shot types.Shot, history []types.Shot) QualityScore {
	return a.scorer.Score(shot, history)
}

// Recommend suggests a grind adjustment for the most recent shot
func (a *Analyzer) Recommend(setting string, timeDeviation int, taste *types.TastePrimary, grinder types.GrinderConfiguration) Recommendation {
	return a.recommender.Recommend(setting, timeDeviation, taste, grinder)
}

// TimeDeviation is seconds minus the target time, rounded to whole seconds
func (a *Analyzer) TimeDeviation(seconds int) int {
	return int(math.Round(float64(seconds) - a.cal.TargetTime()))
}

// Summarize folds the shots matching f into summary statistics
func (a *Analyzer) Summarize(shots []types.Shot, f Filter) Summary {
	prepared := PrepareShots(shots, f)

	summary := Summary{
		Count:          len(prepared),
		RatioHistogram: []Bucket{},
		TimeHistogram:  []Bucket{},
		ShotsPerBean:   map[string]int{},
	}
	if len(prepared) == 0 {
		return summary
	}

	ratios := make([]float64, 0, len(prepared))
	times := make([]float64, 0, len(prepared))
	settings := make(map[string]int)
	optimal, typical, qualityTotal := 0, 0, 0

	for _, s := range prepared {
		r := s.BrewRatio()
		t := float64(s.ExtractionTimeSeconds)
		ratios = append(ratios, r)
		times = append(times, t)

		if a.cal.OptimalTime.Contains(t) {
			optimal++
		}
		if a.cal.TypicalRatio.Contains(r) {
			typical++
		}
		summary.ShotsPerBean[s.BeanID]++
		if s.GrinderSetting != "" {
			settings[s.GrinderSetting]++
		}
		qualityTotal += a.scorer.Score(s, prepared).Score
	}

	summary.Ratio = describe(ratios)
	summary.ExtractionTime = describe(times)
	summary.OptimalTimePercentage = percentage(optimal, len(prepared))
	summary.TypicalRatioPercentage = percentage(typical, len(prepared))
	summary.AverageQuality = round2(float64(qualityTotal) / float64(len(prepared)))
	summary.RatioHistogram = histogram(ratios, a.cal.RatioBucketWidth)
	summary.TimeHistogram = histogram(times, a.cal.TimeBucketWidth)
	summary.MostUsedGrinderSetting = mostUsed(settings)

	first := prepared[0].Timestamp
	last := prepared[len(prepared)-1].Timestamp
	summary.FirstShotAt = &first
	summary.LastShotAt = &last

	return summary
}

// SplitHalves splits a time-ordered list into [0, n/2) and [n/2, n)
func SplitHalves(shots []types.Shot) ([]types.Shot, []types.Shot) {
	mid := len(shots) / 2
	return shots[:mid], shots[mid:]
}

// Trend compares the older half of the matching shots with the newer half
func (a *Analyzer) Trend(shots []types.Shot, f Filter) Trend {
	prepared := PrepareShots(shots, f)
	first, second := SplitHalves(prepared)
	fh, sh := halfStats(first), halfStats(second)
	outlook := a.outlook(sh, halfStats(prepared))
	if len(prepared) < 2 {
		return Trend{FirstHalf: fh, SecondHalf: sh, Outlook: outlook}
	}

	firstTimeGap := a.cal.OptimalTime.Distance(fh.MeanTime)
	secondTimeGap := a.cal.OptimalTime.Distance(sh.MeanTime)
	firstRatioGap := a.cal.TypicalRatio.Distance(fh.MeanRatio)
	secondRatioGap := a.cal.TypicalRatio.Distance(sh.MeanRatio)

	noWorse := secondTimeGap <= firstTimeGap && secondRatioGap <= firstRatioGap
	better := secondTimeGap < firstTimeGap || secondRatioGap < firstRatioGap

	return Trend{
		FirstHalf:  fh,
		SecondHalf: sh,
		RatioDelta: round2(sh.MeanRatio - fh.MeanRatio),
		TimeDelta:  round2(sh.MeanTime - fh.MeanTime),
		Improving:  noWorse && better,
		Outlook:    outlook,
	}
}

// outlook weights the recent half against the long-run means
func (a *Analyzer) outlook(recent, all HalfStats) HalfStats {
	if all.Count == 0 {
		return HalfStats{}
	}
	lambda := a.cal.TrendRecentWeight
	return HalfStats{
		Count:     all.Count,
		MeanRatio: round2(BlendDualHorizon(recent.MeanRatio, all.MeanRatio, lambda)),
		MeanTime:  round2(BlendDualHorizon(recent.MeanTime, all.MeanTime, lambda)),
	}
}

func halfStats(shots []types.Shot) HalfStats {
	if len(shots) == 0 {
		return HalfStats{}
	}
	ratios := make([]float64, len(shots))
	times := make([]float64, len(shots))
	for i, s := range shots {
		ratios[i] = s.BrewRatio()
		times[i] = float64(s.ExtractionTimeSeconds)
	}
	return HalfStats{
		Count:     len(shots),
		MeanRatio: round2(mean(ratios)),
		MeanTime:  round2(mean(times)),
	}
}

// AnalyzeShot bundles score, recommendation and insights for one shot. bean may be nil.
func (a *Analyzer) AnalyzeShot(shot types.Shot, history []types.Shot, bean *types.Bean, grinder types.GrinderConfiguration, now time.Time) ShotAnalysis {
	quality := a.scorer.Score(shot, history)
	rec := a.recommender.Recommend(shot.GrinderSetting, a.TimeDeviation(shot.ExtractionTimeSeconds), shot.TastePrimary, grinder)
	if shot.TasteSecondary != nil {
		rec.DoseHint = doseHint(*shot.TasteSecondary)
	}

	result := ShotAnalysis{
		ShotID:         shot.ID,
		BrewRatio:      shot.RoundedBrewRatio(),
		Quality:        quality,
		Recommendation: rec,
		Insights:       []string{},
	}

	ratio := shot.BrewRatio()
	seconds := float64(shot.ExtractionTimeSeconds)
	switch {
	case seconds < a.cal.OptimalTime.Min:
		result.Insights = append(result.Insights, fmt.Sprintf("extraction ran fast: %ds is under the %.0f-%.0fs window", shot.ExtractionTimeSeconds, a.cal.OptimalTime.Min, a.cal.OptimalTime.Max))
	case seconds > a.cal.OptimalTime.Max:
		result.Insights = append(result.Insights, fmt.Sprintf("extraction ran slow: %ds is over the %.0f-%.0fs window", shot.ExtractionTimeSeconds, a.cal.OptimalTime.Min, a.cal.OptimalTime.Max))
	}
	switch {
	case ratio < a.cal.TypicalRatio.Min:
		result.Insights = append(result.Insights, fmt.Sprintf("ratio 1:%.2f is tighter than a typical espresso", ratio))
	case ratio > a.cal.TypicalRatio.Max:
		result.Insights = append(result.Insights, fmt.Sprintf("ratio 1:%.2f is longer than a typical espresso", ratio))
	}
	if quality.HistorySize == 0 {
		result.Insights = append(result.Insights, "first shot for this bean, consistency not yet measurable")
	}

	if bean != nil {
		result.Freshness = bean.Freshness(now)
		switch result.Freshness {
		case types.FreshnessTooFresh:
			result.Insights = append(result.Insights, "beans are very fresh, expect extra CO2 and uneven extraction")
		case types.FreshnessStale:
			result.Insights = append(result.Insights, "beans are past their best, shots may taste flat")
		}
	}

	return result
}

// histogram counts values into contiguous fixed-width buckets spanning min..max
func histogram(values []float64, width float64) []Bucket {
	if len(values) == 0 || width <= 0 {
		return []Bucket{}
	}

	index := func(v float64) int {
		return int(math.Floor(v/width + 1e-9))
	}

	lo, hi := index(values[0]), index(values[0])
	for _, v := range values[1:] {
		i := index(v)
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}

	buckets := make([]Bucket, hi-lo+1)
	for i := range buckets {
		buckets[i] = Bucket{
			Lower: round2(float64(lo+i) * width),
			Upper: round2(float64(lo+i+1) * width),
		}
	}
	for _, v := range values {
		buckets[index(v)-lo].Count++
	}
	return buckets
}

// mostUsed picks the highest count, breaking ties by the smaller key
func mostUsed(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}
