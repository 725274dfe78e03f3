package database

import (
	"time"
)

// Resource is the current copy of a stored document.
type Resource struct {
	Path      string
	Content   []byte
	Version   string // revision number as text, changes on every write
	Revision  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revision records one accepted write of a resource.
type Revision struct {
	ID          string
	Path        string
	Version     string
	Revision    int
	Message     string
	ContentSize int
	CreatedAt   time.Time
}
