package remote

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("remote resource not found")
	ErrConflict = errors.New("remote resource version conflict")
)

// Copy is one fetched copy of a remote resource. Version is the opaque token
// that must accompany the next write.
type Copy struct {
	Content []byte
	Version string
}

// Store is a content-versioned remote store. Put with an empty version
// creates the resource; a stale version or an existing resource on create
// yields ErrConflict. Transport failures, including timeouts, are returned
// as *TransportError.
type Store interface {
	Get(ctx context.Context, path string) (Copy, error)
	Put(ctx context.Context, path string, content []byte, version, message string) error
}

type TransportError struct {
	Op         string
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s %s failed with status %d: %v", e.Op, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
