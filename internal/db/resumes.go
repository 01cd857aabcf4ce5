package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-manager/internal/types"
)

// ErrResumeNotFound is returned by operations that require an existing
// resume owned by the caller.
var ErrResumeNotFound = errors.New("resume not found")

// InsertResume stores a new resume at version 1.
func (db *DB) InsertResume(ctx context.Context, userID uuid.UUID, title string, profile *types.ResumeProfile) (*types.Resume, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	var r types.Resume
	var raw []byte
	err = db.pool.QueryRow(ctx,
		`INSERT INTO resumes (user_id, title, profile, version)
		 VALUES ($1, $2, $3, 1)
		 RETURNING id, user_id, title, profile, version, created_at, updated_at`,
		userID, title, profileJSON,
	).Scan(&r.ID, &r.UserID, &r.Title, &raw, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert resume: %w", err)
	}
	if err := json.Unmarshal(raw, &r.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return &r, nil
}

// GetResume fetches a resume scoped to its owner. Returns ErrResumeNotFound
// when the resume does not exist or belongs to another user.
func (db *DB) GetResume(ctx context.Context, userID, resumeID uuid.UUID) (*types.Resume, error) {
	var r types.Resume
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, profile, version, created_at, updated_at
		 FROM resumes WHERE id = $1 AND user_id = $2`,
		resumeID, userID,
	).Scan(&r.ID, &r.UserID, &r.Title, &raw, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	if err := json.Unmarshal(raw, &r.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return &r, nil
}

// ListResumes returns a user's resumes, most recently updated first.
func (db *DB) ListResumes(ctx context.Context, userID uuid.UUID) ([]types.Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, title, profile, version, created_at, updated_at
		 FROM resumes WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []types.Resume
	for rows.Next() {
		var r types.Resume
		var raw []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &raw, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Profile); err != nil {
			return nil, fmt.Errorf("failed to decode stored profile: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// UpdateResume replaces a resume's profile, snapshotting the outgoing
// profile into resume_versions in the same transaction. An empty title
// keeps the current one.
func (db *DB) UpdateResume(ctx context.Context, userID, resumeID uuid.UUID, title string, profile *types.ResumeProfile) (*types.Resume, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current types.Resume
	var currentRaw []byte
	err = tx.QueryRow(ctx,
		`SELECT id, title, profile, version FROM resumes
		 WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		resumeID, userID,
	).Scan(&current.ID, &current.Title, &currentRaw, &current.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("failed to lock resume: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO resume_versions (resume_id, version, title, profile)
		 VALUES ($1, $2, $3, $4)`,
		resumeID, current.Version, current.Title, currentRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot resume version: %w", err)
	}

	if title == "" {
		title = current.Title
	}

	var r types.Resume
	var raw []byte
	err = tx.QueryRow(ctx,
		`UPDATE resumes
		 SET title = $1, profile = $2, version = version + 1, updated_at = NOW()
		 WHERE id = $3
		 RETURNING id, user_id, title, profile, version, created_at, updated_at`,
		title, profileJSON, resumeID,
	).Scan(&r.ID, &r.UserID, &r.Title, &raw, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update resume: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit resume update: %w", err)
	}

	if err := json.Unmarshal(raw, &r.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return &r, nil
}

// DeleteResume removes a resume and its version history (via cascade).
func (db *DB) DeleteResume(ctx context.Context, userID, resumeID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM resumes WHERE id = $1 AND user_id = $2`,
		resumeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrResumeNotFound
	}
	return nil
}

// ListResumeVersions returns a resume's history, newest first. Ownership is
// checked against the parent resume.
func (db *DB) ListResumeVersions(ctx context.Context, userID, resumeID uuid.UUID) ([]types.ResumeVersion, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT v.id, v.resume_id, v.version, v.title, v.profile, v.created_at
		 FROM resume_versions v
		 JOIN resumes r ON r.id = v.resume_id
		 WHERE v.resume_id = $1 AND r.user_id = $2
		 ORDER BY v.version DESC`,
		resumeID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resume versions: %w", err)
	}
	defer rows.Close()

	var versions []types.ResumeVersion
	for rows.Next() {
		var v types.ResumeVersion
		var raw []byte
		if err := rows.Scan(&v.ID, &v.ResumeID, &v.Version, &v.Title, &raw, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume version: %w", err)
		}
		if err := json.Unmarshal(raw, &v.Profile); err != nil {
			return nil, fmt.Errorf("failed to decode stored profile: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetResumeVersion fetches one historical snapshot.
func (db *DB) GetResumeVersion(ctx context.Context, userID, resumeID uuid.UUID, version int) (*types.ResumeVersion, error) {
	var v types.ResumeVersion
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT v.id, v.resume_id, v.version, v.title, v.profile, v.created_at
		 FROM resume_versions v
		 JOIN resumes r ON r.id = v.resume_id
		 WHERE v.resume_id = $1 AND r.user_id = $2 AND v.version = $3`,
		resumeID, userID, version,
	).Scan(&v.ID, &v.ResumeID, &v.Version, &v.Title, &raw, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("failed to get resume version: %w", err)
	}
	if err := json.Unmarshal(raw, &v.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	return &v, nil
}
