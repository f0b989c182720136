// Package repository defines the storage interface for the catalog, analyses
// and matches, with in-memory and SQL implementations.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
)

// CatalogFilter narrows a catalog listing. PerPage <= 0 returns every matching
// item in catalog order; otherwise items are ordered by play count desc and
// paged from Page 1.
type CatalogFilter struct {
	Label   string
	Page    int
	PerPage int
}

// Store provides read/write access to the catalog and subject history.
type Store interface {
	// ListCatalogItems returns catalog items per filter.
	ListCatalogItems(ctx context.Context, f CatalogFilter) (model.Page[matching.CatalogItem], error)
	// GetCatalogItem looks an item up by ID, then by external ID.
	// Returns ErrNotFound if neither matches.
	GetCatalogItem(ctx context.Context, id string) (matching.CatalogItem, error)
	// UpsertCatalogItem inserts or replaces an item, keyed by ID or external ID.
	// An item without either gets a new ID.
	UpsertCatalogItem(ctx context.Context, item matching.CatalogItem) (matching.CatalogItem, error)

	// SaveAnalysis stores a verdict.
	SaveAnalysis(ctx context.Context, a model.Analysis) error
	// RecordMatch stores a match and increments the item's match count.
	RecordMatch(ctx context.Context, m model.Match) error
	// GetMatch returns one of subject's matches with its item hydrated.
	GetMatch(ctx context.Context, subject, id string) (model.Match, error)
	// RecordFeedback attaches feedback to a match. The item's play count grows
	// the first time the match is reported played, and its average rating is
	// recomputed over every rated match of that item.
	RecordFeedback(ctx context.Context, subject, id string, fb model.Feedback) (model.Match, error)

	// QueryHistory returns subject's analyses and matches created at or after
	// since, oldest first.
	QueryHistory(ctx context.Context, subject string, since time.Time) (model.History, error)
	// ListMatches pages through subject's matches, newest first.
	ListMatches(ctx context.Context, subject string, page, perPage int) (model.Page[model.Match], error)
	// ClearHistory deletes subject's analyses and matches and returns how many
	// records were removed.
	ClearHistory(ctx context.Context, subject string) (int, error)

	// Close releases the store's resources.
	Close() error
}

// pageCatalog applies f to items, which must be in catalog order.
func pageCatalog(items []matching.CatalogItem, f CatalogFilter) model.Page[matching.CatalogItem] {
	filtered := make([]matching.CatalogItem, 0, len(items))
	for _, it := range items {
		if f.Label == "" || it.HasLabel(f.Label) {
			filtered = append(filtered, it)
		}
	}
	if f.PerPage <= 0 {
		return model.NewPage(filtered, len(filtered), 1, len(filtered))
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].PlayCount > filtered[j].PlayCount })
	lo, hi := bounds(len(filtered), f.Page, f.PerPage)
	return model.NewPage(filtered[lo:hi], len(filtered), normalizePage(f.Page), f.PerPage)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// bounds returns the slice bounds of page within total items.
func bounds(total, page, perPage int) (int, int) {
	lo := (normalizePage(page) - 1) * perPage
	if lo > total {
		lo = total
	}
	hi := lo + perPage
	if hi > total {
		hi = total
	}
	return lo, hi
}

func validItem(item matching.CatalogItem) bool {
	return item.Title != "" && item.PlayCount >= 0 && item.MatchCount >= 0
}
