package memory

import (
	"context"

	"github.com/aretw0/plotline/pkg/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStoreSize bounds how many results a Store keeps.
const DefaultStoreSize = 1024

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data *lru.Cache[string, *domain.Result]
}

// NewStore creates a store holding at most size results. size <= 0 selects DefaultStoreSize.
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultStoreSize
	}
	cache, err := lru.New[string, *domain.Result](size)
	if err != nil {
		return nil, err
	}
	return &Store{data: cache}, nil
}

// Save records a copy of result under its bundle ID.
func (s *Store) Save(ctx context.Context, result *domain.Result) error {
	if result == nil || result.Bundle == nil || result.Bundle.ID == "" {
		return nil
	}
	s.data.Add(result.Bundle.ID, clone(result))
	return nil
}

// Load returns a copy of the stored result.
func (s *Store) Load(ctx context.Context, bundleID string) (*domain.Result, error) {
	r, ok := s.data.Get(bundleID)
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return clone(r), nil
}

// Delete removes a result.
func (s *Store) Delete(ctx context.Context, bundleID string) error {
	s.data.Remove(bundleID)
	return nil
}

// List returns stored bundle IDs, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.data.Keys(), nil
}

// clone copies a result so neither the caller nor the store can mutate the other's view.
func clone(r *domain.Result) *domain.Result {
	cp := *r
	cp.Bundle = r.Bundle.Snapshot()
	cp.Warnings = append([]domain.Warning(nil), r.Warnings...)
	return &cp
}
