package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

const (
	MaxBeanNameLength = 100
	MaxNotesLength    = 1000
	MinExtractionTime = 1
	MaxExtractionTime = 120

	// RoastDateLayout is the accepted roast date format
	RoastDateLayout = "2006-01-02"
)

// fieldErrors collects one message per failing field
type fieldErrors map[string]string

func (f fieldErrors) add(field, format string, args ...interface{}) {
	if _, exists := f[field]; exists {
		return
	}
	f[field] = fmt.Sprintf(format, args...)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationErrorWithMap(f)
}

// checkText rejects null bytes, invalid UTF-8 and overlong values
func checkText(f fieldErrors, field, value string, max int) {
	if strings.Contains(value, "\x00") {
		f.add(field, "contains invalid characters")
		return
	}
	if !utf8.ValidString(value) {
		f.add(field, "contains invalid UTF-8 encoding")
		return
	}
	if utf8.RuneCountInString(value) > max {
		f.add(field, "must be at most %d characters", max)
	}
}

// ValidateBean checks the bean form and returns the parsed roast date
func ValidateBean(req types.CreateBeanRequest, now time.Time) (time.Time, error) {
	f := fieldErrors{}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		f.add("name", "must not be blank")
	} else {
		checkText(f, "name", name, MaxBeanNameLength)
	}

	var roast time.Time
	if strings.TrimSpace(req.RoastDate) == "" {
		f.add("roast_date", "is required")
	} else {
		parsed, err := time.Parse(RoastDateLayout, strings.TrimSpace(req.RoastDate))
		if err != nil {
			f.add("roast_date", "must be a date in YYYY-MM-DD format")
		} else {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			if parsed.After(today) {
				f.add("roast_date", "must not be in the future")
			}
			roast = parsed
		}
	}

	checkText(f, "notes", req.Notes, MaxNotesLength)

	return roast, f.err()
}

// ValidateShot checks a recorded shot against its bean and the configured
// basket and grinder ranges. bean is nil when the referenced bean does not exist.
func ValidateShot(req types.RecordShotRequest, bean *types.Bean, grinder types.GrinderConfiguration, basket types.BasketConfiguration) error {
	f := fieldErrors{}

	switch {
	case strings.TrimSpace(req.BeanID) == "":
		f.add("bean_id", "is required")
	case bean == nil:
		f.add("bean_id", "bean does not exist")
	case !bean.IsActive:
		f.add("bean_id", "bean is archived")
	}

	checkWeight(f, "coffee_weight_in", req.CoffeeWeightIn, basket.CoffeeInMin, basket.CoffeeInMax)
	checkWeight(f, "coffee_weight_out", req.CoffeeWeightOut, basket.CoffeeOutMin, basket.CoffeeOutMax)

	if req.ExtractionTimeSeconds < MinExtractionTime || req.ExtractionTimeSeconds > MaxExtractionTime {
		f.add("extraction_time_seconds", "must be between %d and %d seconds", MinExtractionTime, MaxExtractionTime)
	}

	checkSetting(f, req.GrinderSetting, grinder)
	checkText(f, "notes", req.Notes, MaxNotesLength)
	checkTaste(f, req.TastePrimary, req.TasteSecondary)

	return f.err()
}

// ValidateShotUpdate checks the editable fields of a saved shot
func ValidateShotUpdate(req types.UpdateShotRequest) error {
	f := fieldErrors{}
	if req.Notes != nil {
		checkText(f, "notes", *req.Notes, MaxNotesLength)
	}
	checkTaste(f, req.TastePrimary, req.TasteSecondary)
	return f.err()
}

// ValidateRecommendRequest checks the inputs of an ad-hoc recommendation
func ValidateRecommendRequest(req types.RecommendRequest, grinder types.GrinderConfiguration) error {
	f := fieldErrors{}
	if req.ExtractionTimeSeconds < MinExtractionTime || req.ExtractionTimeSeconds > MaxExtractionTime {
		f.add("extraction_time_seconds", "must be between %d and %d seconds", MinExtractionTime, MaxExtractionTime)
	}
	checkSetting(f, req.GrinderSetting, grinder)
	checkTaste(f, req.TastePrimary, nil)
	return f.err()
}

// ValidateGrinder checks a grinder scale configuration
func ValidateGrinder(g types.GrinderConfiguration) error {
	f := fieldErrors{}
	if g.ScaleMin >= g.ScaleMax {
		f.add("scale_max", "must be greater than scale_min")
	}
	if g.StepSize <= 0 {
		f.add("step_size", "must be greater than 0")
	} else if g.ScaleMin < g.ScaleMax && g.StepSize > g.ScaleMax-g.ScaleMin {
		f.add("step_size", "must not exceed the scale range")
	}
	return f.err()
}

// ValidateBasket checks a basket weight configuration
func ValidateBasket(b types.BasketConfiguration) error {
	f := fieldErrors{}
	checkRange(f, "coffee_in", b.CoffeeInMin, b.CoffeeInMax)
	checkRange(f, "coffee_out", b.CoffeeOutMin, b.CoffeeOutMax)
	return f.err()
}

func checkRange(f fieldErrors, prefix string, min, max float64) {
	if min <= 0 {
		f.add(prefix+"_min", "must be greater than 0")
	}
	if max <= min {
		f.add(prefix+"_max", "must be greater than %s_min", prefix)
	}
}

func checkWeight(f fieldErrors, field string, v, min, max float64) {
	if v <= 0 {
		f.add(field, "must be greater than 0")
		return
	}
	if v < min || v > max {
		f.add(field, "must be between %g and %g grams", min, max)
	}
}

func checkSetting(f fieldErrors, setting string, grinder types.GrinderConfiguration) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		f.add("grinder_setting", "must not be blank")
		return
	}
	checkText(f, "grinder_setting", setting, 20)

	v, err := strconv.ParseFloat(setting, 64)
	if err != nil {
		return
	}
	if !grinder.InRange(v) {
		f.add("grinder_setting", "must be between %g and %g", grinder.ScaleMin, grinder.ScaleMax)
	}
}

func checkTaste(f fieldErrors, primary *types.TastePrimary, secondary *types.TasteSecondary) {
	if primary != nil && !primary.Valid() {
		f.add("taste_primary", "unknown taste %q", string(*primary))
	}
	if secondary != nil && !secondary.Valid() {
		f.add("taste_secondary", "unknown taste %q", string(*secondary))
	}
}

// ShotFilter is the parsed form of the bean_id/from/to/limit query parameters
type ShotFilter struct {
	BeanID string
	From   time.Time
	To     time.Time
	Limit  int
}

// MaxListLimit caps the number of shots one list request returns
const MaxListLimit = 1000

// ParseShotFilter validates list and analytics filters. from and to accept
// RFC 3339 timestamps or plain dates; a plain to date covers the whole day.
func ParseShotFilter(beanID, from, to, limit string) (ShotFilter, error) {
	f := fieldErrors{}
	out := ShotFilter{BeanID: strings.TrimSpace(beanID)}

	var err error
	if out.From, err = parseBound(from, false); err != nil {
		f.add("from", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if out.To, err = parseBound(to, true); err != nil {
		f.add("to", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		f.add("to", "must not be before from")
	}

	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxListLimit {
			f.add("limit", "must be between 1 and %d", MaxListLimit)
		} else {
			out.Limit = n
		}
	}

	return out, f.err()
}

func parseBound(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(RoastDateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
