package content

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"bltp/internal/market"

	"gopkg.in/yaml.v3"
)

var ErrCategoryNotFound = errors.New("category not found")

//go:embed data/*.yaml
var files embed.FS

type newsEntry struct {
	ID       int    `yaml:"id"`
	Title    string `yaml:"title"`
	Summary  string `yaml:"summary"`
	Category string `yaml:"category"`
	Source   string `yaml:"source"`
	Age      string `yaml:"age"`
}

// Learning returns the learning categories keyed by slug.
func Learning() (map[string]market.LearningCategory, error) {
	raw, err := files.ReadFile("data/learning.yaml")
	if err != nil {
		return nil, err
	}

	var out map[string]market.LearningCategory
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode learning content: %w", err)
	}
	return out, nil
}

// News returns the news feed newest first, stamped relative to now.
func News(now time.Time) ([]market.NewsItem, error) {
	raw, err := files.ReadFile("data/news.yaml")
	if err != nil {
		return nil, err
	}

	var entries []newsEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}

	items := make([]market.NewsItem, 0, len(entries))
	for _, e := range entries {
		age, err := time.ParseDuration(e.Age)
		if err != nil {
			return nil, fmt.Errorf("news %d: %w", e.ID, err)
		}
		items = append(items, market.NewsItem{
			ID:        e.ID,
			Title:     e.Title,
			Summary:   e.Summary,
			Category:  e.Category,
			Timestamp: now.Add(-age),
			Source:    e.Source,
		})
	}
	return items, nil
}

// Lookup returns a copy of the named category.
func Lookup(categories map[string]market.LearningCategory, name string) (market.LearningCategory, error) {
	c, ok := categories[name]
	if !ok {
		return market.LearningCategory{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, name)
	}
	c.Modules = slices.Clone(c.Modules)
	return c, nil
}
