package service

import (
	"context"

	"github.com/okian/moodtune/internal/adapters/repository"
	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
)

// Catalog pages through catalog items, most played first, optionally
// restricted to one label.
func (s *Service) Catalog(ctx context.Context, label string, page, perPage int) (model.Page[matching.CatalogItem], error) {
	if label != "" && !emotion.IsLabel(label) {
		return model.Page[matching.CatalogItem]{}, invalid("unknown emotion %q", label)
	}
	if err := checkPage(page, perPage, maxPerPage); err != nil {
		return model.Page[matching.CatalogItem]{}, err
	}
	return s.store.ListCatalogItems(ctx, repository.CatalogFilter{Label: label, Page: page, PerPage: perPage})
}

// CatalogItem looks an item up by ID or external ID.
func (s *Service) CatalogItem(ctx context.Context, id string) (matching.CatalogItem, error) {
	return s.store.GetCatalogItem(ctx, id)
}

// CatalogStats summarizes the whole catalog.
func (s *Service) CatalogStats(ctx context.Context) (model.CatalogStats, error) {
	all, err := s.store.ListCatalogItems(ctx, repository.CatalogFilter{})
	if err != nil {
		return model.CatalogStats{}, err
	}
	return model.SummarizeCatalog(all.Items), nil
}
