package feed

import (
	"fmt"
	"strings"
	"time"
)

// Item is one article in a feed. URL is its unique key.
type Item struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	SourceName  string     `json:"source_name,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Sequence is the ordered result of one fetch. Treat it as read only;
// a new fetch replaces it wholesale.
type Sequence []Item

func (s Sequence) At(i int) (Item, bool) {
	if i < 0 || i >= len(s) {
		return Item{}, false
	}
	return s[i], true
}

func (s Sequence) URLs() []string {
	urls := make([]string, len(s))
	for i, it := range s {
		urls[i] = it.URL
	}
	return urls
}

// Category selects which feed to load.
type Category string

const (
	CategoryLocal Category = "local"
	CategoryWorld Category = "world"
)

func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryLocal, "feel-good", "":
		return CategoryLocal, nil
	case CategoryWorld, "world-news":
		return CategoryWorld, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Toggle flips between the two built-in categories.
func (c Category) Toggle() Category {
	if c == CategoryWorld {
		return CategoryLocal
	}
	return CategoryWorld
}
