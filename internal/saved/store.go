package saved

import (
	"context"
	"strings"
	"time"

	"github.com/pders01/flip/internal/feed"
)

// CheckResult answers whether a user has saved a URL. ID is the remote
// record identifier and is only meaningful when Saved is true.
type CheckResult struct {
	Saved bool
	ID    int64
}

// Draft is the snapshot of an item sent when saving it.
type Draft struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	Source      string
	PublishedAt *time.Time
}

// Record is a saved item as the store keeps it.
type Record struct {
	ID          int64
	Title       string
	Description string
	URL         string
	ImageURL    string
	Source      string
	PublishedAt *time.Time
	SavedAt     time.Time
}

// Store is the authoritative saved-item record, keyed by user and URL.
type Store interface {
	Check(ctx context.Context, user, url string) (CheckResult, error)
	Create(ctx context.Context, user string, d Draft) (Record, error)
	Delete(ctx context.Context, user string, id int64) error
	List(ctx context.Context, user string) ([]Record, error)
}

// BulkChecker is implemented by stores that can check many URLs in one
// round trip. The result has an entry for every requested URL.
type BulkChecker interface {
	BulkCheck(ctx context.Context, user string, urls []string) (map[string]CheckResult, error)
}

func DraftFromItem(it feed.Item) Draft {
	return Draft{
		Title:       it.Title,
		Description: it.Description,
		URL:         it.URL,
		ImageURL:    it.ImageURL,
		Source:      it.SourceName,
		PublishedAt: it.PublishedAt,
	}
}

// Validate applies the rules every store enforces on create.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.URL) == "" {
		return ErrInvalidDraft
	}
	return nil
}

func (d Draft) Record(id int64, savedAt time.Time) Record {
	return Record{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		URL:         strings.TrimSpace(d.URL),
		ImageURL:    d.ImageURL,
		Source:      d.Source,
		PublishedAt: d.PublishedAt,
		SavedAt:     savedAt,
	}
}

func (r Record) Item() feed.Item {
	return feed.Item{
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		SourceName:  r.Source,
		PublishedAt: r.PublishedAt,
	}
}
