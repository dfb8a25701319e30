package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

const (
	beanColumns = `id, name, roast_date, notes, is_active, last_grinder_setting, created_at, updated_at`
	shotColumns = `id, bean_id, coffee_weight_in, coffee_weight_out, extraction_time_seconds,
		grinder_setting, notes, taste_primary, taste_secondary, timestamp`
)

// Setting keys
const (
	SettingGrinder = "grinder"
	SettingBasket  = "basket"
)

// NewBean creates an active bean with a generated ID
func NewBean(name string, roastDate time.Time, notes string) *types.Bean {
	now := time.Now().UTC()
	return &types.Bean{
		ID:        uuid.New().String(),
		Name:      name,
		RoastDate: roastDate.UTC(),
		Notes:     notes,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewShot builds a shot from a recorded pour. A missing timestamp means now.
func NewShot(req types.RecordShotRequest) *types.Shot {
	ts := time.Now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = req.Timestamp.UTC()
	}
	return &types.Shot{
		ID:                    uuid.New().String(),
		BeanID:                req.BeanID,
		CoffeeWeightIn:        req.CoffeeWeightIn,
		CoffeeWeightOut:       req.CoffeeWeightOut,
		ExtractionTimeSeconds: req.ExtractionTimeSeconds,
		GrinderSetting:        req.GrinderSetting,
		Notes:                 req.Notes,
		Timestamp:             ts,
		TastePrimary:          req.TastePrimary,
		TasteSecondary:        req.TasteSecondary,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBean(row rowScanner) (*types.Bean, error) {
	var b types.Bean
	err := row.Scan(
		&b.ID, &b.Name, &b.RoastDate, &b.Notes, &b.IsActive,
		&b.LastGrinderSetting, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanShot(row rowScanner) (*types.Shot, error) {
	var (
		s         types.Shot
		primary   sql.NullString
		secondary sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.BeanID, &s.CoffeeWeightIn, &s.CoffeeWeightOut, &s.ExtractionTimeSeconds,
		&s.GrinderSetting, &s.Notes, &primary, &secondary, &s.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if primary.Valid {
		tp := types.TastePrimary(primary.String)
		s.TastePrimary = &tp
	}
	if secondary.Valid {
		ts := types.TasteSecondary(secondary.String)
		s.TasteSecondary = &ts
	}
	return &s, nil
}

func nullPrimary(t *types.TastePrimary) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*t), Valid: true}
}

func nullSecondary(t *types.TasteSecondary) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*t), Valid: true}
}
