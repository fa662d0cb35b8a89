package storage

import (
	"time"

	"github.com/pders01/flip/internal/saved"
)

// savedRecord is the on-disk form of a saved article.
type savedRecord struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"image_url,omitempty"`
	Source      string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	SavedAt     time.Time  `json:"saved_at"`
}

func fromRecord(r saved.Record) savedRecord {
	return savedRecord{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		Source:      r.Source,
		PublishedAt: r.PublishedAt,
		SavedAt:     r.SavedAt,
	}
}

func (r savedRecord) record() saved.Record {
	return saved.Record{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		Source:      r.Source,
		PublishedAt: r.PublishedAt,
		SavedAt:     r.SavedAt,
	}
}
