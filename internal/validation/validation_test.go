package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

var now = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.ToAppError(err)
	require.Equal(t, apperrors.CategoryValidation, appErr.Category)
	return appErr.Fields
}

func TestValidateBean(t *testing.T) {
	tests := []struct {
		name    string
		req     types.CreateBeanRequest
		invalid []string
	}{
		{name: "valid", req: types.CreateBeanRequest{Name: "Ethiopia Guji", RoastDate: "2026-03-10"}},
		{name: "roasted today", req: types.CreateBeanRequest{Name: "House", RoastDate: "2026-03-20"}},
		{name: "blank name", req: types.CreateBeanRequest{Name: "   ", RoastDate: "2026-03-10"}, invalid: []string{"name"}},
		{name: "long name", req: types.CreateBeanRequest{Name: strings.Repeat("a", 101), RoastDate: "2026-03-10"}, invalid: []string{"name"}},
		{name: "future roast", req: types.CreateBeanRequest{Name: "House", RoastDate: "2026-03-21"}, invalid: []string{"roast_date"}},
		{name: "bad date", req: types.CreateBeanRequest{Name: "House", RoastDate: "10/03/2026"}, invalid: []string{"roast_date"}},
		{
			name:    "everything wrong",
			req:     types.CreateBeanRequest{Name: "", RoastDate: "", Notes: strings.Repeat("n", 1001)},
			invalid: []string{"name", "roast_date", "notes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roast, err := ValidateBean(tt.req, now)
			if len(tt.invalid) == 0 {
				require.NoError(t, err)
				assert.False(t, roast.IsZero())
				return
			}
			got := fields(t, err)
			assert.Len(t, got, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, got, field)
			}
		})
	}
}

func TestValidateShot(t *testing.T) {
	grinder := types.DefaultGrinderConfiguration()
	basket := types.DefaultBasketConfiguration()
	active := &types.Bean{ID: "b1", IsActive: true}

	valid := func() types.RecordShotRequest {
		return types.RecordShotRequest{
			BeanID:                "b1",
			CoffeeWeightIn:        18,
			CoffeeWeightOut:       36,
			ExtractionTimeSeconds: 28,
			GrinderSetting:        "12",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *types.RecordShotRequest)
		bean    *types.Bean
		invalid []string
	}{
		{name: "valid", mutate: func(r *types.RecordShotRequest) {}, bean: active},
		{name: "non numeric setting", mutate: func(r *types.RecordShotRequest) { r.GrinderSetting = "fine-3" }, bean: active},
		{name: "missing bean", mutate: func(r *types.RecordShotRequest) {}, bean: nil, invalid: []string{"bean_id"}},
		{name: "archived bean", mutate: func(r *types.RecordShotRequest) {}, bean: &types.Bean{ID: "b1"}, invalid: []string{"bean_id"}},
		{name: "zero dose", mutate: func(r *types.RecordShotRequest) { r.CoffeeWeightIn = 0 }, bean: active, invalid: []string{"coffee_weight_in"}},
		{name: "dose over basket", mutate: func(r *types.RecordShotRequest) { r.CoffeeWeightIn = 31 }, bean: active, invalid: []string{"coffee_weight_in"}},
		{name: "yield under basket", mutate: func(r *types.RecordShotRequest) { r.CoffeeWeightOut = 9 }, bean: active, invalid: []string{"coffee_weight_out"}},
		{name: "time zero", mutate: func(r *types.RecordShotRequest) { r.ExtractionTimeSeconds = 0 }, bean: active, invalid: []string{"extraction_time_seconds"}},
		{name: "time too long", mutate: func(r *types.RecordShotRequest) { r.ExtractionTimeSeconds = 121 }, bean: active, invalid: []string{"extraction_time_seconds"}},
		{name: "blank setting", mutate: func(r *types.RecordShotRequest) { r.GrinderSetting = " " }, bean: active, invalid: []string{"grinder_setting"}},
		{name: "setting out of range", mutate: func(r *types.RecordShotRequest) { r.GrinderSetting = "51" }, bean: active, invalid: []string{"grinder_setting"}},
		{
			name: "unknown taste",
			mutate: func(r *types.RecordShotRequest) {
				tp := types.TastePrimary("salty")
				r.TastePrimary = &tp
			},
			bean:    active,
			invalid: []string{"taste_primary"},
		},
		{
			name: "collects every field",
			mutate: func(r *types.RecordShotRequest) {
				r.CoffeeWeightIn = -1
				r.CoffeeWeightOut = 0
				r.ExtractionTimeSeconds = 500
			},
			bean:    active,
			invalid: []string{"coffee_weight_in", "coffee_weight_out", "extraction_time_seconds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := ValidateShot(req, tt.bean, grinder, basket)
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}
			got := fields(t, err)
			assert.Len(t, got, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, got, field)
			}
		})
	}
}

func TestValidateGrinder(t *testing.T) {
	assert.NoError(t, ValidateGrinder(types.DefaultGrinderConfiguration()))
	assert.Contains(t, fields(t, ValidateGrinder(types.GrinderConfiguration{ScaleMin: 10, ScaleMax: 10, StepSize: 1})), "scale_max")
	assert.Contains(t, fields(t, ValidateGrinder(types.GrinderConfiguration{ScaleMin: 0, ScaleMax: 10, StepSize: 0})), "step_size")
	assert.Contains(t, fields(t, ValidateGrinder(types.GrinderConfiguration{ScaleMin: 0, ScaleMax: 10, StepSize: 11})), "step_size")
}

func TestValidateBasket(t *testing.T) {
	assert.NoError(t, ValidateBasket(types.DefaultBasketConfiguration()))

	got := fields(t, ValidateBasket(types.BasketConfiguration{CoffeeInMin: 0, CoffeeInMax: 20, CoffeeOutMin: 40, CoffeeOutMax: 30}))
	assert.Contains(t, got, "coffee_in_min")
	assert.Contains(t, got, "coffee_out_max")
}

func TestValidateShotUpdate(t *testing.T) {
	notes := "clean finish"
	assert.NoError(t, ValidateShotUpdate(types.UpdateShotRequest{Notes: &notes}))

	bad := types.TasteSecondary("thin")
	assert.Contains(t, fields(t, ValidateShotUpdate(types.UpdateShotRequest{TasteSecondary: &bad})), "taste_secondary")
}

func TestValidateRecommendRequest(t *testing.T) {
	grinder := types.DefaultGrinderConfiguration()
	assert.NoError(t, ValidateRecommendRequest(types.RecommendRequest{GrinderSetting: "15", ExtractionTimeSeconds: 22}, grinder))

	got := fields(t, ValidateRecommendRequest(types.RecommendRequest{GrinderSetting: "", ExtractionTimeSeconds: 0}, grinder))
	assert.Len(t, got, 2)
}

func TestParseShotFilter(t *testing.T) {
	tests := []struct {
		name      string
		beanID    string
		from      string
		to        string
		limit     string
		want      ShotFilter
		badFields []string
	}{
		{
			name: "empty",
			want: ShotFilter{},
		},
		{
			name:   "dates",
			beanID: " b1 ",
			from:   "2026-03-01",
			to:     "2026-03-02",
			limit:  "50",
			want: ShotFilter{
				BeanID: "b1",
				From:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				To:     time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC),
				Limit:  50,
			},
		},
		{
			name: "rfc3339 converted to utc",
			from: "2026-03-01T10:00:00+02:00",
			want: ShotFilter{From: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		},
		{
			name:      "garbage",
			from:      "yesterday",
			to:        "03/02/2026",
			limit:     "ten",
			badFields: []string{"from", "to", "limit"},
		},
		{
			name:      "reversed range",
			from:      "2026-03-05",
			to:        "2026-03-01",
			badFields: []string{"to"},
		},
		{
			name:      "limit too large",
			limit:     "5000",
			badFields: []string{"limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShotFilter(tt.beanID, tt.from, tt.to, tt.limit)
			if len(tt.badFields) > 0 {
				require.Error(t, err)
				fields := apperrors.ToAppError(err).Fields
				for _, field := range tt.badFields {
					assert.Contains(t, fields, field)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
