package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/rss-brief/app/database"
)

// SQLiteStore keeps resources in a SQLite database shared by the writers.
// The version token is the resource's revision number.
type SQLiteStore struct {
	repo    database.ResourceRepositoryInterface
	timeout time.Duration
}

func NewSQLiteStore(repo database.ResourceRepositoryInterface, timeout time.Duration) *SQLiteStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SQLiteStore{
		repo:    repo,
		timeout: timeout,
	}
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (Copy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.repo.GetResource(ctx, path)
	if err != nil {
		return Copy{}, &TransportError{Op: "get", Path: path, Err: err}
	}
	if res == nil {
		return Copy{}, ErrNotFound
	}

	return Copy{
		Content: res.Content,
		Version: res.Version,
	}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, path string, content []byte, version, message string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.repo.PutResource(ctx, path, content, version, message)
	if errors.Is(err, database.ErrVersionMismatch) {
		return fmt.Errorf("%w: expected version %q", ErrConflict, version)
	}
	if err != nil {
		return &TransportError{Op: "put", Path: path, Err: err}
	}

	return nil
}
