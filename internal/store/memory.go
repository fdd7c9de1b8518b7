package store

import (
	"context"
	"sync"
	"time"

	"blog-sync/internal/model"
)

// MemoryStore keeps counters in process. It is meant for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	views map[string]model.ViewRecord
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithNow(time.Now)
}

func NewMemoryStoreWithNow(now func() time.Time) *MemoryStore {
	return &MemoryStore{views: make(map[string]model.ViewRecord), now: now}
}

func (s *MemoryStore) IncrementOrCreate(_ context.Context, slug string) (model.ViewRecord, error) {
	if slug == "" {
		return model.ViewRecord{}, ErrEmptySlug
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.views[slug]
	rec.Slug = slug
	rec.View++
	rec.LastUpdated = s.now()
	s.views[slug] = rec
	return rec, nil
}

func (s *MemoryStore) GetOrCreateMany(_ context.Context, slugs []string) ([]model.ViewRecord, error) {
	unique, err := uniqueSlugs(slugs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ViewRecord, 0, len(unique))
	for _, slug := range unique {
		rec, ok := s.views[slug]
		if !ok {
			rec = model.ViewRecord{Slug: slug, LastUpdated: s.now()}
			s.views[slug] = rec
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
