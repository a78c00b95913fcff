package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/types"
)

// GetRoadmapState returns the user's roadmap progress, or nil when the user
// never generated a month.
func (db *DB) GetRoadmapState(ctx context.Context, userID uuid.UUID) (*types.RoadmapState, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var raw []byte
	s := types.RoadmapState{UserID: userID}
	err := db.pool.QueryRow(ctx,
		`SELECT current_month_index, last_generated_at, months, version
		 FROM roadmap_states WHERE user_id = $1`,
		userID,
	).Scan(&s.CurrentMonthIndex, &s.LastGeneratedAt, &raw, &s.Version)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, db.fail("get roadmap state", err)
	}
	months, err := decodeMonths(raw)
	if err != nil {
		return nil, err
	}
	s.Months = months
	return &s, nil
}

// CommitRoadmapMonth stores month, advances the month index and bumps the
// version, but only when the stored version equals expectedVersion. Version
// zero means no row exists yet or the row was never committed. It reports
// whether this caller won.
func (db *DB) CommitRoadmapMonth(ctx context.Context, userID uuid.UUID, expectedVersion int64, month types.RoadmapMonth, at time.Time) (bool, error) {
	raw, err := json.Marshal(month)
	if err != nil {
		return false, fmt.Errorf("failed to encode roadmap month: %w", err)
	}
	key := monthKey(month.MonthIndex)

	var sql string
	if expectedVersion == 0 {
		// A row left at the column default version 0 is claimed like a
		// missing one.
		sql = `INSERT INTO roadmap_states (user_id, current_month_index, last_generated_at, months, version)
		       VALUES ($1, $2, $3, jsonb_build_object($4::text, $5::jsonb), 1)
		       ON CONFLICT (user_id) DO UPDATE
		       SET current_month_index = EXCLUDED.current_month_index,
		           last_generated_at = EXCLUDED.last_generated_at,
		           months = roadmap_states.months || EXCLUDED.months,
		           version = 1
		       WHERE roadmap_states.version = 0`
	} else {
		sql = `UPDATE roadmap_states
		       SET current_month_index = $2,
		           last_generated_at = $3,
		           months = months || jsonb_build_object($4::text, $5::jsonb),
		           version = version + 1
		       WHERE user_id = $1 AND version = $6`
	}

	args := []any{userID, month.MonthIndex + 1, at, key, raw}
	if expectedVersion != 0 {
		args = append(args, expectedVersion)
	}
	ctx, cancel := db.bound(ctx)
	defer cancel()
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, db.fail("commit roadmap month", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AttachRoadmapPDF records the object key of a month's rendered document.
func (db *DB) AttachRoadmapPDF(ctx context.Context, userID uuid.UUID, monthIndex int, ref string) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()
	tag, err := db.pool.Exec(ctx,
		`UPDATE roadmap_states
		 SET months = jsonb_set(months, ARRAY[$2::text, 'pdf_ref'], to_jsonb($3::text))
		 WHERE user_id = $1 AND months ? $2::text`,
		userID, monthKey(monthIndex), ref,
	)
	if err != nil {
		return db.fail("attach roadmap pdf", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("roadmap month %d not found", monthIndex)
	}
	return nil
}

func monthKey(index int) string {
	return strconv.Itoa(index)
}

func decodeMonths(raw []byte) (map[int]types.RoadmapMonth, error) {
	months := map[int]types.RoadmapMonth{}
	if len(raw) == 0 {
		return months, nil
	}
	if err := json.Unmarshal(raw, &months); err != nil {
		return nil, fmt.Errorf("failed to decode roadmap months: %w", err)
	}
	return months, nil
}
