package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/types"
)

// GetSkillSnapshot returns the user's last snapshot, or nil when none exists.
func (db *DB) GetSkillSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkillSnapshot, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var raw []byte
	s := types.SkillSnapshot{UserID: userID}
	err := db.pool.QueryRow(ctx,
		`SELECT skills, updated_at FROM skill_snapshots WHERE user_id = $1`,
		userID,
	).Scan(&raw, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, db.fail("get skill snapshot", err)
	}
	if err := json.Unmarshal(raw, &s.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skill snapshot: %w", err)
	}
	return &s, nil
}

// SaveSkillSnapshot replaces the user's snapshot only if the stored one is
// at least window old at time at. It reports whether the write happened, so
// concurrent refreshes inside one window produce exactly one snapshot.
func (db *DB) SaveSkillSnapshot(ctx context.Context, userID uuid.UUID, skills types.SkillScoreMap, at time.Time, window time.Duration) (bool, error) {
	if skills == nil {
		skills = types.SkillScoreMap{}
	}
	raw, err := json.Marshal(skills)
	if err != nil {
		return false, fmt.Errorf("failed to encode skill snapshot: %w", err)
	}
	ctx, cancel := db.bound(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO skill_snapshots (user_id, skills, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET skills = EXCLUDED.skills, updated_at = EXCLUDED.updated_at
		 WHERE skill_snapshots.updated_at <= $4`,
		userID, raw, at, at.Add(-window),
	)
	if err != nil {
		return false, db.fail("save skill snapshot", err)
	}
	return tag.RowsAffected() == 1, nil
}
