package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// tastePoints is the fraction of the taste weight awarded per feedback category
var tastePoints = map[types.TastePrimary]float64{
	types.TastePerfect:        1.0,
	types.TasteSlightlySour:   2.0 / 3.0,
	types.TasteSlightlyBitter: 2.0 / 3.0,
	types.TasteSour:           1.0 / 3.0,
	types.TasteBitter:         1.0 / 3.0,
}

// Scorer computes quality scores against a calibration
type Scorer struct {
	cal Calibration
}

// NewScorer creates a scorer
func NewScorer(cal Calibration) *Scorer {
	return &Scorer{cal: cal}
}

// Score rates a shot 0-100. history may contain any shots; only earlier shots of
// the same bean feed the consistency sub-score.
func (s *Scorer) Score(shot types.Shot, history []types.Shot) QualityScore {
	prior := priorShots(shot, history)

	b := Breakdown{
		ExtractionTime: roundPoints(s.extractionPoints(float64(shot.ExtractionTimeSeconds))),
		BrewRatio:      roundPoints(s.ratioPoints(shot.BrewRatio())),
		Taste:          roundPoints(s.tastePoints(shot.TastePrimary)),
		Consistency:    roundPoints(s.consistencyPoints(shot, prior)),
		Precision:      roundPoints(s.precisionPoints(shot)),
	}

	total := int(clip(float64(b.Sum()), 0, 100))
	return QualityScore{
		Score:       total,
		Grade:       Grade(total),
		Breakdown:   b,
		HistorySize: len(prior),
	}
}

// ScoreShot scores with the default calibration
func ScoreShot(shot types.Shot, history []types.Shot) QualityScore {
	return NewScorer(DefaultCalibration()).Score(shot, history)
}

func (s *Scorer) extractionPoints(seconds float64) float64 {
	return linearDecay(s.cal.Weights.ExtractionTime, s.cal.OptimalTime.Distance(seconds), s.cal.TimeDecaySeconds)
}

func (s *Scorer) ratioPoints(ratio float64) float64 {
	return linearDecay(s.cal.Weights.BrewRatio, s.cal.TypicalRatio.Distance(ratio), s.cal.RatioDecay)
}

func (s *Scorer) tastePoints(taste *types.TastePrimary) float64 {
	if taste == nil {
		return 0
	}
	return s.cal.Weights.Taste * tastePoints[*taste]
}

// consistencyPoints splits the weight evenly between ratio and time. Prior shots
// are recency weighted. The time half compares how far this shot sits from the
// target with how far the bean usually sits, so landing closer to the target
// never costs consistency points.
func (s *Scorer) consistencyPoints(shot types.Shot, prior []types.Shot) float64 {
	if len(prior) == 0 {
		return math.Min(s.cal.NeutralConsistency, s.cal.Weights.Consistency)
	}

	target := s.cal.TargetTime()
	ratios := make([]float64, len(prior))
	offsets := make([]float64, len(prior))
	weights := make([]float64, len(prior))
	for i, p := range prior {
		ratios[i] = p.BrewRatio()
		offsets[i] = math.Abs(float64(p.ExtractionTimeSeconds) - target)
		weights[i] = DecayWeight(daysBetween(p.Timestamp, shot.Timestamp), s.cal.ConsistencyDecayDays)
	}

	half := s.cal.Weights.Consistency / 2
	ratioDev := math.Abs(shot.BrewRatio() - weightedMean(ratios, weights))
	timeDrift := math.Max(0, math.Abs(float64(shot.ExtractionTimeSeconds)-target)-weightedMean(offsets, weights))

	return toleranceDecay(half, ratioDev, s.cal.ConsistencyRatioTolerance, s.cal.ConsistencyRatioLimit) +
		toleranceDecay(half, timeDrift, s.cal.ConsistencyTimeTolerance, s.cal.ConsistencyTimeLimit)
}

// precisionPoints rewards weights read off a scale rather than typed as round numbers
func (s *Scorer) precisionPoints(shot types.Shot) float64 {
	half := s.cal.Weights.Precision / 2
	points := 0.0
	if hasTenths(shot.CoffeeWeightIn) {
		points += half
	}
	if hasTenths(shot.CoffeeWeightOut) {
		points += half
	}
	return points
}

func hasTenths(v float64) bool {
	tenths := int64(math.Round(v * 10))
	return tenths%10 != 0
}

// priorShots keeps the shots of the same bean pulled before shot
func priorShots(shot types.Shot, history []types.Shot) []types.Shot {
	prior := make([]types.Shot, 0, len(history))
	for _, h := range history {
		if h.ID != "" && h.ID == shot.ID {
			continue
		}
		if shot.BeanID != "" && h.BeanID != shot.BeanID {
			continue
		}
		if !shot.Timestamp.IsZero() && h.Timestamp.After(shot.Timestamp) {
			continue
		}
		if h.CoffeeWeightIn <= 0 {
			continue
		}
		prior = append(prior, h)
	}
	return prior
}

func roundPoints(x float64) int {
	return int(math.Round(x))
}

// Grade labels a total score
func Grade(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 60:
		return "fair"
	case score >= 40:
		return "poor"
	default:
		return "bad"
	}
}
