package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// ErrNotFound is returned (wrapped) when a bean, shot or setting does not exist
var ErrNotFound = apperrors.ErrNotFound

// ShotQuery narrows ListShots. Zero values mean no restriction.
type ShotQuery struct {
	BeanID     string
	From       time.Time
	To         time.Time
	Limit      int
	Descending bool
}

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateBean inserts a new bean
func (r *Repository) CreateBean(ctx context.Context, b *types.Bean) error {
	stmt, err := r.db.GetPreparedStatement("insert_bean")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		b.ID, b.Name, b.RoastDate, b.Notes, b.IsActive, b.LastGrinderSetting, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bean: %w", err)
	}
	return nil
}

// GetBean loads a bean by ID
func (r *Repository) GetBean(ctx context.Context, id string) (*types.Bean, error) {
	stmt, err := r.db.GetPreparedStatement("get_bean")
	if err != nil {
		return nil, err
	}

	bean, err := scanBean(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bean %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bean: %w", err)
	}
	return bean, nil
}

// ListBeans returns beans ordered by name. Archived beans are included only when asked.
func (r *Repository) ListBeans(ctx context.Context, includeInactive bool) ([]types.Bean, error) {
	query := `SELECT ` + beanColumns + ` FROM beans`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name COLLATE NOCASE, created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list beans: %w", err)
	}
	defer rows.Close()

	beans := []types.Bean{}
	for rows.Next() {
		b, err := scanBean(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bean: %w", err)
		}
		beans = append(beans, *b)
	}
	return beans, rows.Err()
}

// UpdateBean rewrites the editable bean fields
func (r *Repository) UpdateBean(ctx context.Context, b *types.Bean) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE beans SET name = ?, roast_date = ?, notes = ?, updated_at = ? WHERE id = ?
	`, b.Name, b.RoastDate, b.Notes, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update bean: %w", err)
	}
	return expectRow(res, "bean", b.ID)
}

// SetBeanActive archives or restores a bean. Shots are kept either way.
func (r *Repository) SetBeanActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE beans SET is_active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update bean status: %w", err)
	}
	return expectRow(res, "bean", id)
}

// TouchBeanSetting remembers the last grinder setting used with a bean
func (r *Repository) TouchBeanSetting(ctx context.Context, id, setting string) error {
	stmt, err := r.db.GetPreparedStatement("touch_bean_setting")
	if err != nil {
		return err
	}

	res, err := stmt.ExecContext(ctx, setting, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last grinder setting: %w", err)
	}
	return expectRow(res, "bean", id)
}

// CreateShot inserts a new shot
func (r *Repository) CreateShot(ctx context.Context, s *types.Shot) error {
	stmt, err := r.db.GetPreparedStatement("insert_shot")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		s.ID, s.BeanID, s.CoffeeWeightIn, s.CoffeeWeightOut, s.ExtractionTimeSeconds,
		s.GrinderSetting, s.Notes, nullPrimary(s.TastePrimary), nullSecondary(s.TasteSecondary), s.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create shot: %w", err)
	}
	return nil
}

// GetShot loads a shot by ID
func (r *Repository) GetShot(ctx context.Context, id string) (*types.Shot, error) {
	stmt, err := r.db.GetPreparedStatement("get_shot")
	if err != nil {
		return nil, err
	}

	shot, err := scanShot(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query shot: %w", err)
	}
	return shot, nil
}

// ListShots returns shots matching q, oldest first unless q.Descending
func (r *Repository) ListShots(ctx context.Context, q ShotQuery) ([]types.Shot, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.BeanID != "" {
		where = append(where, "bean_id = ?")
		args = append(args, q.BeanID)
	}
	if !q.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, q.To.UTC())
	}

	query := `SELECT ` + shotColumns + ` FROM shots`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if q.Descending {
		query += ` ORDER BY timestamp DESC, id DESC`
	} else {
		query += ` ORDER BY timestamp ASC, id ASC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shots: %w", err)
	}
	defer rows.Close()

	shots := []types.Shot{}
	for rows.Next() {
		s, err := scanShot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shot: %w", err)
		}
		shots = append(shots, *s)
	}
	return shots, rows.Err()
}

// UpdateShot rewrites notes and taste feedback of a saved shot
func (r *Repository) UpdateShot(ctx context.Context, s *types.Shot) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shots SET notes = ?, taste_primary = ?, taste_secondary = ? WHERE id = ?
	`, s.Notes, nullPrimary(s.TastePrimary), nullSecondary(s.TasteSecondary), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update shot: %w", err)
	}
	return expectRow(res, "shot", s.ID)
}

// DeleteShot removes a shot
func (r *Repository) DeleteShot(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shot: %w", err)
	}
	return expectRow(res, "shot", id)
}

// CountShots returns the number of stored shots
func (r *Repository) CountShots(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count shots: %w", err)
	}
	return n, nil
}

// GetSetting decodes the JSON document stored under key into v
func (r *Repository) GetSetting(ctx context.Context, key string, v interface{}) error {
	stmt, err := r.db.GetPreparedStatement("get_setting")
	if err != nil {
		return err
	}

	var raw string
	err = stmt.QueryRowContext(ctx, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query setting: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return nil
}

// PutSetting stores v as JSON under key
func (r *Repository) PutSetting(ctx context.Context, key string, v interface{}) error {
	stmt, err := r.db.GetPreparedStatement("put_setting")
	if err != nil {
		return err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	if _, err := stmt.ExecContext(ctx, key, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

func expectRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
	}
	return nil
}
