package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/types"
)

// GetProfile returns the profile of userID, or nil when none exists.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var p types.Profile
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, name, github_username, interests, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.GitHubUsername, &p.Interests, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, db.fail("get profile", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces the editable fields of a profile.
func (db *DB) UpsertProfile(ctx context.Context, p *types.Profile) error {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	ctx, cancel := db.bound(ctx)
	defer cancel()
	err := db.pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id, name, github_username, interests)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET name = EXCLUDED.name,
		     github_username = EXCLUDED.github_username,
		     interests = EXCLUDED.interests,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		p.UserID, p.Name, p.GitHubUsername, interests,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return db.fail("upsert profile", err)
	}
	return nil
}
