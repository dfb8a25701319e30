package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const calibrationFile = "calibration.json"

// Window is an inclusive numeric range
type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the window
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// Distance is how far v lies outside the window, 0 inside it
func (w Window) Distance(v float64) float64 {
	switch {
	case v < w.Min:
		return w.Min - v
	case v > w.Max:
		return v - w.Max
	default:
		return 0
	}
}

// Midpoint of the window
func (w Window) Midpoint() float64 {
	return (w.Min + w.Max) / 2
}

// Weights are the maximum points of each sub-score
type Weights struct {
	ExtractionTime float64 `json:"extraction_time"`
	BrewRatio      float64 `json:"brew_ratio"`
	Taste          float64 `json:"taste"`
	Consistency    float64 `json:"consistency"`
	Precision      float64 `json:"precision"`
}

// Calibration holds the tuning constants of scoring, aggregation and recommendation
type Calibration struct {
	OptimalTime  Window  `json:"optimal_time"`
	TypicalRatio Window  `json:"typical_ratio"`
	Weights      Weights `json:"weights"`

	// distance outside a window at which the sub-score reaches zero
	TimeDecaySeconds float64 `json:"time_decay_seconds"`
	RatioDecay       float64 `json:"ratio_decay"`

	// consistency: full points within tolerance, zero at the limit
	ConsistencyRatioTolerance float64 `json:"consistency_ratio_tolerance"`
	ConsistencyRatioLimit     float64 `json:"consistency_ratio_limit"`
	ConsistencyTimeTolerance  float64 `json:"consistency_time_tolerance"`
	ConsistencyTimeLimit      float64 `json:"consistency_time_limit"`
	NeutralConsistency        float64 `json:"neutral_consistency"`
	// prior shots lose weight in the running average with this e-folding time
	ConsistencyDecayDays float64 `json:"consistency_decay_days"`

	// weight of the newer half when Trend blends it with the whole range
	TrendRecentWeight float64 `json:"trend_recent_weight"`

	RatioBucketWidth float64 `json:"ratio_bucket_width"`
	TimeBucketWidth  float64 `json:"time_bucket_width"`

	SmallDeviationSeconds float64 `json:"small_deviation_seconds"`
	SecondsPerStep        float64 `json:"seconds_per_step"`
	MaxSteps              int     `json:"max_steps"`
}

// DefaultCalibration returns the built-in scoring constants
func DefaultCalibration() Calibration {
	return Calibration{
		OptimalTime:  Window{Min: 25, Max: 30},
		TypicalRatio: Window{Min: 1.5, Max: 3.0},
		Weights: Weights{
			ExtractionTime: 25,
			BrewRatio:      20,
			Taste:          30,
			Consistency:    15,
			Precision:      10,
		},
		TimeDecaySeconds:          10,
		RatioDecay:                1.0,
		ConsistencyRatioTolerance: 0.1,
		ConsistencyRatioLimit:     0.6,
		ConsistencyTimeTolerance:  2,
		ConsistencyTimeLimit:      10,
		NeutralConsistency:        8,
		ConsistencyDecayDays:      14,
		TrendRecentWeight:         0.7,
		RatioBucketWidth:          0.5,
		TimeBucketWidth:           5,
		SmallDeviationSeconds:     2,
		SecondsPerStep:            5,
		MaxSteps:                  5,
	}
}

// TargetTime is the extraction time recommendations aim for
func (c Calibration) TargetTime() float64 {
	return c.OptimalTime.Midpoint()
}

// SmallDeviation is the largest |time deviation| the recommender leaves alone.
// Every whole second inside OptimalTime counts as small, whatever SmallDeviationSeconds says.
func (c Calibration) SmallDeviation() float64 {
	return math.Max(c.SmallDeviationSeconds, math.Round(c.OptimalTime.Max-c.TargetTime()))
}

// CalibrationStore persists calibration overrides in the data directory
type CalibrationStore struct {
	dataDir string
}

// NewCalibrationStore creates a new calibration store
func NewCalibrationStore(dataDir string) *CalibrationStore {
	return &CalibrationStore{dataDir: dataDir}
}

// LoadCalibration reads calibration.json, falling back to defaults when it is missing.
// Fields absent from the file keep their default values.
func (c *CalibrationStore) LoadCalibration() (Calibration, error) {
	cal := DefaultCalibration()
	filePath := filepath.Join(c.dataDir, calibrationFile)

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return cal, nil
	}
	if err != nil {
		return cal, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cal); err != nil {
		return DefaultCalibration(), fmt.Errorf("failed to decode calibration data: %w", err)
	}

	return cal, nil
}

// SaveCalibration writes calibration.json
func (c *CalibrationStore) SaveCalibration(cal Calibration) error {
	if err := os.MkdirAll(c.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create calibration directory: %w", err)
	}

	file, err := os.Create(filepath.Join(c.dataDir, calibrationFile))
	if err != nil {
		return fmt.Errorf("failed to create calibration file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calibration data: %w", err)
	}

	return nil
}
