package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/types"
)

// ListUploads returns the user's uploads, oldest first.
func (db *DB) ListUploads(ctx context.Context, userID uuid.UUID) ([]types.UploadedDocument, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, type, description, file_path, created_at
		 FROM uploads WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, db.fail("list uploads", err)
	}
	defer rows.Close()

	var docs []types.UploadedDocument
	for rows.Next() {
		var d types.UploadedDocument
		if err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Description, &d.FilePath, &d.CreatedAt); err != nil {
			return nil, db.fail("scan upload", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, db.fail("iterate uploads", err)
	}
	return docs, nil
}

// GetUpload returns one upload owned by userID, or nil when absent.
func (db *DB) GetUpload(ctx context.Context, userID, uploadID uuid.UUID) (*types.UploadedDocument, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var d types.UploadedDocument
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, type, description, file_path, created_at
		 FROM uploads WHERE id = $1 AND user_id = $2`,
		uploadID, userID,
	).Scan(&d.ID, &d.UserID, &d.Type, &d.Description, &d.FilePath, &d.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, db.fail("get upload", err)
	}
	return &d, nil
}

// CreateUpload records an uploaded document and assigns its ID.
func (db *DB) CreateUpload(ctx context.Context, d *types.UploadedDocument) error {
	if !d.Type.Valid() {
		return &types.ValidationError{Field: "type", Message: fmt.Sprintf("unsupported document type %q", d.Type)}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	ctx, cancel := db.bound(ctx)
	defer cancel()
	err := db.pool.QueryRow(ctx,
		`INSERT INTO uploads (id, user_id, type, description, file_path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		d.ID, d.UserID, d.Type, d.Description, d.FilePath,
	).Scan(&d.CreatedAt)
	if err != nil {
		return db.fail("create upload", err)
	}
	return nil
}
