package readings

import (
	"context"
	"sort"
	"sync"

	"github.com/breatheroute/ambee/pkg/ambee"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used in tests and when no database is configured.
type InMemoryRepository struct {
	mu       sync.RWMutex
	readings []*Reading
}

// NewInMemoryRepository creates a new in-memory reading repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores a copy of the reading.
func (r *InMemoryRepository) Save(_ context.Context, reading *Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *reading
	r.readings = append(r.readings, &cpy)
	return nil
}

// Latest returns the most recent reading of a resource for a point.
func (r *InMemoryRepository) Latest(ctx context.Context, resource ambee.Resource, point string) (*Reading, error) {
	list, err := r.List(ctx, ListOptions{Resource: resource, Point: point, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// List returns readings newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Reading
	for _, rd := range r.readings {
		if opts.Resource != "" && rd.Resource != opts.Resource {
			continue
		}
		if opts.Point != "" && rd.Point != opts.Point {
			continue
		}
		cpy := *rd
		out = append(out, &cpy)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})

	if limit := normalizeLimit(opts.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
