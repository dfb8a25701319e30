package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// Recommender maps the latest shot's time deviation and taste to a grind change
type Recommender struct {
	cal Calibration
}

// NewRecommender creates a recommender
func NewRecommender(cal Calibration) *Recommender {
	return &Recommender{cal: cal}
}

// Recommend applies the decision table. timeDeviation is measured minus target
// seconds: negative ran fast, positive ran slow.
func (r *Recommender) Recommend(setting string, timeDeviation int, taste *types.TastePrimary, grinder types.GrinderConfiguration) Recommendation {
	rec := Recommendation{
		Direction:      DirectionNoChange,
		Confidence:     ConfidenceMedium,
		CurrentSetting: setting,
		TimeDeviation:  timeDeviation,
	}

	dev := float64(timeDeviation)
	small := math.Abs(dev) <= r.cal.SmallDeviation()

	var t types.TastePrimary
	if taste != nil {
		t = *taste
	}

	switch {
	case small:
		switch {
		case t.IsSour():
			rec.Direction, rec.Steps = DirectionFiner, 1
			rec.Confidence = slightConfidence(t)
			rec.Reason = "time on target but taste is sour, grind a touch finer"
		case t.IsBitter():
			rec.Direction, rec.Steps = DirectionCoarser, 1
			rec.Confidence = slightConfidence(t)
			rec.Reason = "time on target but taste is bitter, grind a touch coarser"
		case t == types.TastePerfect:
			rec.Confidence = ConfidenceHigh
			rec.Reason = "time on target and taste is perfect, keep the setting"
		default:
			rec.Reason = "time on target, keep the setting"
		}

	case dev < 0:
		rec.Direction, rec.Steps = DirectionFiner, r.steps(dev)
		switch {
		case t.IsSour():
			rec.Confidence = ConfidenceHigh
			rec.Reason = fmt.Sprintf("ran %ds fast and tastes sour, grind finer", -timeDeviation)
		case taste == nil:
			rec.Reason = fmt.Sprintf("ran %ds fast, grind finer", -timeDeviation)
		default:
			rec.Confidence = ConfidenceLow
			rec.Reason = fmt.Sprintf("ran %ds fast but taste does not point the same way, grind finer cautiously", -timeDeviation)
		}

	default:
		rec.Direction, rec.Steps = DirectionCoarser, r.steps(dev)
		switch {
		case t.IsBitter():
			rec.Confidence = ConfidenceHigh
			rec.Reason = fmt.Sprintf("ran %ds slow and tastes bitter, grind coarser", timeDeviation)
		case taste == nil:
			rec.Reason = fmt.Sprintf("ran %ds slow, grind coarser", timeDeviation)
		default:
			rec.Confidence = ConfidenceLow
			rec.Reason = fmt.Sprintf("ran %ds slow but taste does not point the same way, grind coarser cautiously", timeDeviation)
		}
	}

	rec.SuggestedSetting = suggestSetting(setting, rec.Direction, rec.Steps, grinder)
	return rec
}

// steps scales with deviation magnitude and is capped at MaxSteps
func (r *Recommender) steps(dev float64) int {
	perStep := r.cal.SecondsPerStep
	if perStep <= 0 {
		perStep = 5
	}
	n := int(math.Ceil(math.Abs(dev) / perStep))
	if n < 1 {
		n = 1
	}
	if r.cal.MaxSteps > 0 && n > r.cal.MaxSteps {
		n = r.cal.MaxSteps
	}
	return n
}

func slightConfidence(t types.TastePrimary) Confidence {
	if t.IsSlight() {
		return ConfidenceLow
	}
	return ConfidenceMedium
}

func doseHint(t types.TasteSecondary) string {
	switch t {
	case types.TasteWeak:
		return "shot tasted weak, try increasing the dose"
	case types.TasteStrong:
		return "shot tasted strong, try decreasing the dose"
	}
	return ""
}

// suggestSetting moves a numeric setting by steps*StepSize, finer meaning lower.
// Non-numeric settings get no suggestion.
func suggestSetting(setting string, dir Direction, steps int, grinder types.GrinderConfiguration) string {
	current, err := strconv.ParseFloat(strings.TrimSpace(setting), 64)
	if err != nil {
		return ""
	}
	if dir == DirectionNoChange {
		return formatSetting(current, grinder.StepSize)
	}

	delta := float64(steps) * grinder.StepSize
	if dir == DirectionFiner {
		delta = -delta
	}
	next := current + delta
	if grinder.ScaleMax > grinder.ScaleMin {
		next = clip(next, grinder.ScaleMin, grinder.ScaleMax)
	}
	return formatSetting(next, grinder.StepSize)
}

// formatSetting prints v with as many decimals as the step size needs
func formatSetting(v, step float64) string {
	decimals := 0
	for decimals < 3 && math.Abs(step*math.Pow(10, float64(decimals))-math.Round(step*math.Pow(10, float64(decimals)))) > 1e-9 {
		decimals++
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
