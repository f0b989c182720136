package repository

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/matching"
)

// catalogEntry is one item of a catalog file.
type catalogEntry struct {
	ID          string             `koanf:"id"`
	ExternalID  string             `koanf:"external_id"`
	Title       string             `koanf:"title"`
	Artist      string             `koanf:"artist"`
	Labels      []string           `koanf:"labels"`
	LabelScores map[string]float64 `koanf:"label_scores"`
}

// LoadCatalogFile reads catalog items from a YAML file of the form
//
//	items:
//	  - title: Here Comes the Sun
//	    artist: The Beatles
//	    labels: [Happiness, Optimism]
func LoadCatalogFile(path string) ([]matching.CatalogItem, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	var entries []catalogEntry
	if err := k.UnmarshalWithConf("items", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	items := make([]matching.CatalogItem, 0, len(entries))
	for i, e := range entries {
		for _, l := range e.Labels {
			if !emotion.IsLabel(l) {
				return nil, fmt.Errorf("%w: item %d has unknown label %q", ErrInvalidItem, i, l)
			}
		}
		for l := range e.LabelScores {
			if !emotion.IsLabel(l) {
				return nil, fmt.Errorf("%w: item %d scores unknown label %q", ErrInvalidItem, i, l)
			}
		}
		items = append(items, matching.CatalogItem{
			ID:          e.ID,
			ExternalID:  e.ExternalID,
			Title:       e.Title,
			Artist:      e.Artist,
			Labels:      e.Labels,
			LabelScores: e.LabelScores,
		})
	}
	return items, nil
}

// Seed upserts items when the store's catalog is empty and reports how many
// were written.
func Seed(ctx context.Context, s Store, items []matching.CatalogItem) (int, error) {
	existing, err := s.ListCatalogItems(ctx, CatalogFilter{Page: 1, PerPage: 1})
	if err != nil {
		return 0, err
	}
	if existing.Total > 0 {
		return 0, nil
	}
	for i, it := range items {
		if _, err := s.UpsertCatalogItem(ctx, it); err != nil {
			return i, fmt.Errorf("seed item %d: %w", i, err)
		}
	}
	return len(items), nil
}

// DefaultCatalog is a small catalog used when no catalog file is configured.
// Every label is covered at least once.
func DefaultCatalog() []matching.CatalogItem {
	return []matching.CatalogItem{
		{ExternalID: "default-01", Title: "Here Comes the Sun", Artist: "The Beatles",
			Labels: []string{emotion.Happiness, emotion.Optimism, emotion.Contentment}},
		{ExternalID: "default-02", Title: "Weightless", Artist: "Marconi Union",
			Labels: []string{emotion.Contentment, emotion.Neutral}},
		{ExternalID: "default-03", Title: "Stronger", Artist: "Kanye West",
			Labels: []string{emotion.Confidence, emotion.Excitement}},
		{ExternalID: "default-04", Title: "Clair de Lune", Artist: "Claude Debussy",
			Labels: []string{emotion.Neutral, emotion.Nostalgia}},
		{ExternalID: "default-05", Title: "Someone Like You", Artist: "Adele",
			Labels: []string{emotion.Sadness, emotion.Longing, emotion.Nostalgia}},
		{ExternalID: "default-06", Title: "Killing in the Name", Artist: "Rage Against the Machine",
			Labels: []string{emotion.Anger, emotion.Frustration}},
		{ExternalID: "default-07", Title: "Breathe", Artist: "The Prodigy",
			Labels: []string{emotion.Fear, emotion.Excitement}},
		{ExternalID: "default-08", Title: "Bohemian Rhapsody", Artist: "Queen",
			Labels: []string{emotion.Surprise, emotion.Confusion}},
		{ExternalID: "default-09", Title: "Creep", Artist: "Radiohead",
			Labels: []string{emotion.Disgust, emotion.Sadness}},
		{ExternalID: "default-10", Title: "At Last", Artist: "Etta James",
			Labels: []string{emotion.Love, emotion.Contentment}},
		{ExternalID: "default-11", Title: "Mr. Brightside", Artist: "The Killers",
			Labels: []string{emotion.Excitement, emotion.Anticipation}},
		{ExternalID: "default-12", Title: "The Final Countdown", Artist: "Europe",
			Labels: []string{emotion.Anticipation, emotion.Confidence}},
		{ExternalID: "default-13", Title: "Summer of '69", Artist: "Bryan Adams",
			Labels: []string{emotion.Nostalgia, emotion.Happiness}},
		{ExternalID: "default-14", Title: "Where Is My Mind?", Artist: "Pixies",
			Labels: []string{emotion.Confusion}},
		{ExternalID: "default-15", Title: "Numb", Artist: "Linkin Park",
			Labels: []string{emotion.Frustration, emotion.Anger}},
		{ExternalID: "default-16", Title: "Wish You Were Here", Artist: "Pink Floyd",
			Labels: []string{emotion.Longing, emotion.Love}},
		{ExternalID: "default-17", Title: "Don't Stop Me Now", Artist: "Queen",
			Labels: []string{emotion.Happiness, emotion.Excitement, emotion.Optimism}},
		{ExternalID: "default-18", Title: "Three Little Birds", Artist: "Bob Marley & The Wailers",
			Labels: []string{emotion.Optimism, emotion.Contentment}},
	}
}
