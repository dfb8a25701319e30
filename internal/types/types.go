package types

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// TastePrimary is the main taste feedback recorded against a shot
type TastePrimary string

const (
	TastePerfect        TastePrimary = "perfect"
	TasteSlightlySour   TastePrimary = "slightly_sour"
	TasteSlightlyBitter TastePrimary = "slightly_bitter"
	TasteSour           TastePrimary = "sour"
	TasteBitter         TastePrimary = "bitter"
)

// Valid reports whether t is a known primary taste
func (t TastePrimary) Valid() bool {
	switch t {
	case TastePerfect, TasteSlightlySour, TasteSlightlyBitter, TasteSour, TasteBitter:
		return true
	}
	return false
}

// ParseTastePrimary normalizes case and surrounding space. Validity is checked separately.
func ParseTastePrimary(s string) TastePrimary {
	return TastePrimary(strings.ToLower(strings.TrimSpace(s)))
}

// UnmarshalJSON accepts any letter case, so "Perfect" and "perfect" decode the same
func (t *TastePrimary) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTastePrimary(s)
	return nil
}

// IsSour groups sour and slightly sour feedback
func (t TastePrimary) IsSour() bool {
	return t == TasteSour || t == TasteSlightlySour
}

// IsBitter groups bitter and slightly bitter feedback
func (t TastePrimary) IsBitter() bool {
	return t == TasteBitter || t == TasteSlightlyBitter
}

// IsSlight reports whether the feedback is only slightly off
func (t TastePrimary) IsSlight() bool {
	return t == TasteSlightlySour || t == TasteSlightlyBitter
}

// TasteSecondary describes body/strength
type TasteSecondary string

const (
	TasteWeak   TasteSecondary = "weak"
	TasteStrong TasteSecondary = "strong"
)

func (t TasteSecondary) Valid() bool {
	return t == TasteWeak || t == TasteStrong
}

func (t *TasteSecondary) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = TasteSecondary(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Freshness buckets days since roast
type Freshness string

const (
	FreshnessTooFresh   Freshness = "too_fresh"
	FreshnessOptimal    Freshness = "optimal"
	FreshnessGood       Freshness = "good"
	FreshnessAcceptable Freshness = "acceptable"
	FreshnessStale      Freshness = "stale"
)

// Bean is a coffee bean profile
type Bean struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	RoastDate          time.Time `json:"roast_date"`
	Notes              string    `json:"notes"`
	IsActive           bool      `json:"is_active"`
	LastGrinderSetting string    `json:"last_grinder_setting,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DaysSinceRoast counts whole calendar days between the roast date and now
func (b Bean) DaysSinceRoast(now time.Time) int {
	roast := time.Date(b.RoastDate.Year(), b.RoastDate.Month(), b.RoastDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(roast).Hours() / 24)
}

// Freshness returns the freshness category of the bean at now
func (b Bean) Freshness(now time.Time) Freshness {
	return FreshnessForDays(b.DaysSinceRoast(now))
}

// FreshnessForDays maps days since roast to a category. Negative values
// (roast date in the future) count as too fresh.
func FreshnessForDays(days int) Freshness {
	switch {
	case days <= 3:
		return FreshnessTooFresh
	case days <= 14:
		return FreshnessOptimal
	case days <= 21:
		return FreshnessGood
	case days <= 30:
		return FreshnessAcceptable
	default:
		return FreshnessStale
	}
}

// Shot is a single espresso pull
type Shot struct {
	ID                    string          `json:"id"`
	BeanID                string          `json:"bean_id"`
	CoffeeWeightIn        float64         `json:"coffee_weight_in"`
	CoffeeWeightOut       float64         `json:"coffee_weight_out"`
	ExtractionTimeSeconds int             `json:"extraction_time_seconds"`
	GrinderSetting        string          `json:"grinder_setting"`
	Notes                 string          `json:"notes"`
	Timestamp             time.Time       `json:"timestamp"`
	TastePrimary          *TastePrimary   `json:"taste_primary,omitempty"`
	TasteSecondary        *TasteSecondary `json:"taste_secondary,omitempty"`
}

// BrewRatio is weight out over weight in. Zero when weight in is not positive.
func (s Shot) BrewRatio() float64 {
	if s.CoffeeWeightIn <= 0 {
		return 0
	}
	return s.CoffeeWeightOut / s.CoffeeWeightIn
}

// RoundedBrewRatio rounds the ratio to two decimals for display
func (s Shot) RoundedBrewRatio() float64 {
	return math.Round(s.BrewRatio()*100) / 100
}

// GrinderConfiguration bounds the grinder setting scale
type GrinderConfiguration struct {
	ScaleMin float64 `json:"scale_min" yaml:"scale_min"`
	ScaleMax float64 `json:"scale_max" yaml:"scale_max"`
	StepSize float64 `json:"step_size" yaml:"step_size"`
}

// DefaultGrinderConfiguration is used until the user configures a grinder
func DefaultGrinderConfiguration() GrinderConfiguration {
	return GrinderConfiguration{ScaleMin: 1, ScaleMax: 50, StepSize: 0.5}
}

// InRange reports whether v falls inside the scale
func (g GrinderConfiguration) InRange(v float64) bool {
	return v >= g.ScaleMin && v <= g.ScaleMax
}

// BasketConfiguration bounds shot weights
type BasketConfiguration struct {
	CoffeeInMin  float64 `json:"coffee_in_min" yaml:"coffee_in_min"`
	CoffeeInMax  float64 `json:"coffee_in_max" yaml:"coffee_in_max"`
	CoffeeOutMin float64 `json:"coffee_out_min" yaml:"coffee_out_min"`
	CoffeeOutMax float64 `json:"coffee_out_max" yaml:"coffee_out_max"`
}

func DefaultBasketConfiguration() BasketConfiguration {
	return BasketConfiguration{CoffeeInMin: 5, CoffeeInMax: 30, CoffeeOutMin: 10, CoffeeOutMax: 80}
}

// CreateBeanRequest is the bean form payload
type CreateBeanRequest struct {
	Name      string `json:"name" binding:"required"`
	RoastDate string `json:"roast_date" binding:"required"` // YYYY-MM-DD
	Notes     string `json:"notes"`
}

// RecordShotRequest is the payload sent at the end of a timed pour
type RecordShotRequest struct {
	BeanID                string          `json:"bean_id" binding:"required"`
	CoffeeWeightIn        float64         `json:"coffee_weight_in"`
	CoffeeWeightOut       float64         `json:"coffee_weight_out"`
	ExtractionTimeSeconds int             `json:"extraction_time_seconds"`
	GrinderSetting        string          `json:"grinder_setting"`
	Notes                 string          `json:"notes"`
	Timestamp             *time.Time      `json:"timestamp,omitempty"`
	TastePrimary          *TastePrimary   `json:"taste_primary,omitempty"`
	TasteSecondary        *TasteSecondary `json:"taste_secondary,omitempty"`
}

// UpdateShotRequest edits the mutable parts of a saved shot. ClearTaste
// removes any recorded taste feedback.
type UpdateShotRequest struct {
	Notes          *string         `json:"notes,omitempty"`
	TastePrimary   *TastePrimary   `json:"taste_primary,omitempty"`
	TasteSecondary *TasteSecondary `json:"taste_secondary,omitempty"`
	ClearTaste     bool            `json:"clear_taste,omitempty"`
}

// RecommendRequest asks for a grind adjustment
type RecommendRequest struct {
	GrinderSetting        string        `json:"grinder_setting" binding:"required"`
	ExtractionTimeSeconds int           `json:"extraction_time_seconds"`
	TastePrimary          *TastePrimary `json:"taste_primary,omitempty"`
}
