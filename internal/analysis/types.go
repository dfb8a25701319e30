package analysis

import (
	"time"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// Breakdown holds the five labeled sub-scores of a quality score
type Breakdown struct {
	ExtractionTime int `json:"extraction_time"`
	BrewRatio      int `json:"brew_ratio"`
	Taste          int `json:"taste"`
	Consistency    int `json:"consistency"`
	Precision      int `json:"precision"`
}

// Sum adds up the sub-scores
func (b Breakdown) Sum() int {
	return b.ExtractionTime + b.BrewRatio + b.Taste + b.Consistency + b.Precision
}

// QualityScore is the 0-100 score of a single shot
type QualityScore struct {
	Score     int       `json:"score"`
	Grade     string    `json:"grade"`
	Breakdown Breakdown `json:"breakdown"`
	// HistorySize is the number of prior shots used for consistency
	HistorySize int `json:"history_size"`
}

// Stats summarises one numeric dimension. Min and Max are nil on empty input.
type Stats struct {
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// Bucket is one fixed-width histogram range [Lower, Upper)
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Filter restricts the shots an analysis runs over. Zero values match everything.
type Filter struct {
	BeanID string    `json:"bean_id,omitempty"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
}

// Summary is the aggregate view over a set of shots
type Summary struct {
	Count                  int            `json:"count"`
	Ratio                  Stats          `json:"ratio"`
	ExtractionTime         Stats          `json:"extraction_time"`
	OptimalTimePercentage  float64        `json:"optimal_time_percentage"`
	TypicalRatioPercentage float64        `json:"typical_ratio_percentage"`
	AverageQuality         float64        `json:"average_quality"`
	RatioHistogram         []Bucket       `json:"ratio_histogram"`
	TimeHistogram          []Bucket       `json:"time_histogram"`
	ShotsPerBean           map[string]int `json:"shots_per_bean"`
	MostUsedGrinderSetting string         `json:"most_used_grinder_setting,omitempty"`
	FirstShotAt            *time.Time     `json:"first_shot_at"`
	LastShotAt             *time.Time     `json:"last_shot_at"`
}

// HalfStats are the means of one half of a trend split
type HalfStats struct {
	Count     int     `json:"count"`
	MeanRatio float64 `json:"mean_ratio"`
	MeanTime  float64 `json:"mean_time"`
}

// Trend compares the older half of a time-ordered shot list with the newer half
type Trend struct {
	FirstHalf  HalfStats `json:"first_half"`
	SecondHalf HalfStats `json:"second_half"`
	RatioDelta float64   `json:"ratio_delta"`
	TimeDelta  float64   `json:"time_delta"`
	Improving  bool      `json:"improving"`
	// Outlook blends the newer half with the whole range, leaning on recent shots
	Outlook HalfStats `json:"outlook"`
}

// Direction of a grind adjustment
type Direction string

const (
	DirectionFiner    Direction = "finer"
	DirectionCoarser  Direction = "coarser"
	DirectionNoChange Direction = "no_change"
)

// Confidence label attached to a recommendation
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Recommendation is a suggested grinder change
type Recommendation struct {
	Direction        Direction  `json:"direction"`
	Steps            int        `json:"steps"`
	Confidence       Confidence `json:"confidence"`
	CurrentSetting   string     `json:"current_setting"`
	SuggestedSetting string     `json:"suggested_setting,omitempty"`
	TimeDeviation    int        `json:"time_deviation"`
	Reason           string     `json:"reason"`
	DoseHint         string     `json:"dose_hint,omitempty"`
}

// ShotAnalysis bundles everything derived for one shot
type ShotAnalysis struct {
	ShotID         string          `json:"shot_id"`
	BrewRatio      float64         `json:"brew_ratio"`
	Quality        QualityScore    `json:"quality"`
	Recommendation Recommendation  `json:"recommendation"`
	Freshness      types.Freshness `json:"freshness,omitempty"`
	Insights       []string        `json:"insights"`
}
