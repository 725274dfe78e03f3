package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ResourceRepository stores versioned documents keyed by path. The version
// token is the revision number; writes are compare-and-swap on it.
type ResourceRepository struct {
	db *DB
}

func NewResourceRepository(db *DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// GetResource returns the current copy at path, or nil when nothing is stored.
func (r *ResourceRepository) GetResource(ctx context.Context, path string) (*Resource, error) {
	var res Resource
	err := r.db.QueryRowContext(ctx, `
		SELECT path, content, version, revision, created_at, updated_at
		FROM resources
		WHERE path = ?
	`, path).Scan(&res.Path, &res.Content, &res.Version, &res.Revision, &res.CreatedAt, &res.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return &res, nil
}

// PutResource writes content at path. An empty expectedVersion creates the
// resource; otherwise the stored version must equal expectedVersion.
// ErrVersionMismatch is returned when the precondition does not hold.
func (r *ResourceRepository) PutResource(ctx context.Context, path string, content []byte, expectedVersion, message string) (*Resource, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var (
		revision int
		version  string
	)
	if expectedVersion == "" {
		revision = 1
		version = strconv.Itoa(revision)
		result, err := tx.ExecContext(ctx, `
			INSERT INTO resources (path, content, version, revision, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO NOTHING
		`, path, content, version, revision, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return nil, err
		}
	} else {
		err := tx.QueryRowContext(ctx, `
			UPDATE resources
			SET content = ?, revision = revision + 1, version = CAST(revision + 1 AS TEXT), updated_at = ?
			WHERE path = ? AND version = ?
			RETURNING revision, version
		`, content, now, path, expectedVersion).Scan(&revision, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionMismatch
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update resource: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resource_revisions (id, path, version, revision, message, content_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), path, version, revision, message, len(content), now)
	if err != nil {
		return nil, fmt.Errorf("failed to record revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit resource write: %w", err)
	}

	return &Resource{
		Path:      path,
		Content:   content,
		Version:   version,
		Revision:  revision,
		UpdatedAt: now,
	}, nil
}

// GetRevisions returns the most recent revisions of path, newest first.
func (r *ResourceRepository) GetRevisions(ctx context.Context, path string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, path, version, revision, message, content_size, created_at
		FROM resource_revisions
		WHERE path = ?
		ORDER BY revision DESC
		LIMIT ?
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.Path, &rev.Version, &rev.Revision, &rev.Message, &rev.ContentSize, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision row: %w", err)
		}
		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revision rows: %w", err)
	}

	return revisions, nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected != 1 {
		return ErrVersionMismatch
	}
	return nil
}
