package readings

import (
	"context"

	"github.com/breatheroute/ambee/pkg/ambee"
)

// DefaultListLimit applies when ListOptions.Limit is not set.
const DefaultListLimit = 50

// ListOptions filters a reading listing.
type ListOptions struct {
	Resource ambee.Resource
	Point    string
	Limit    int
}

// Repository defines the interface for reading persistence.
type Repository interface {
	// Save stores a reading.
	Save(ctx context.Context, reading *Reading) error

	// Latest returns the most recent reading of a resource for a point.
	// Returns ErrNotFound if there is none.
	Latest(ctx context.Context, resource ambee.Resource, point string) (*Reading, error)

	// List returns readings newest first.
	List(ctx context.Context, opts ListOptions) ([]*Reading, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
