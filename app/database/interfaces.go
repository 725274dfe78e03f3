package database

import (
	"context"
	"errors"
)

// ErrVersionMismatch is returned when a write's expected version does not
// match the stored one, including creating a resource that already exists.
var ErrVersionMismatch = errors.New("resource version mismatch")

type ResourceRepositoryInterface interface {
	GetResource(ctx context.Context, path string) (*Resource, error)
	PutResource(ctx context.Context, path string, content []byte, expectedVersion, message string) (*Resource, error)
	GetRevisions(ctx context.Context, path string, limit int) ([]Revision, error)
}
