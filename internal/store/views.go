package store

import (
	"context"
	"errors"

	"blog-sync/internal/model"
)

var ErrEmptySlug = errors.New("slug is empty")

// ViewStore keeps per-post view counters. Implementations must make each
// increment atomic in the backend itself.
type ViewStore interface {
	// IncrementOrCreate creates the record at 1 or adds 1 to it.
	IncrementOrCreate(ctx context.Context, slug string) (model.ViewRecord, error)
	// GetOrCreateMany returns one record per distinct slug in caller order,
	// creating missing ones at 0.
	GetOrCreateMany(ctx context.Context, slugs []string) ([]model.ViewRecord, error)
	Close() error
}

// uniqueSlugs drops duplicates, keeping the first occurrence.
func uniqueSlugs(slugs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s == "" {
			return nil, ErrEmptySlug
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// inOrder arranges found records in the order of slugs. Every slug must be present.
func inOrder(slugs []string, found map[string]model.ViewRecord) ([]model.ViewRecord, error) {
	out := make([]model.ViewRecord, 0, len(slugs))
	for _, s := range slugs {
		rec, ok := found[s]
		if !ok {
			return nil, errors.New("view record missing after upsert: " + s)
		}
		out = append(out, rec)
	}
	return out, nil
}
