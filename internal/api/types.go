// Package api holds the JSON shapes exchanged between the flip client and
// the saved-item and news service.
package api

import (
	"strings"
	"time"

	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/saved"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Source struct {
	Name string `json:"name"`
}

// Article is an item as the news endpoints serve it and as clients post it
// when saving.
type Article struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url"`
	URLToImage  string  `json:"urlToImage,omitempty"`
	Source      *Source `json:"source,omitempty"`
	PublishedAt string  `json:"publishedAt,omitempty"`
}

type SavedArticle struct {
	ID int64 `json:"id"`
	Article
	SavedAt string `json:"savedAt"`
}

type SavedList struct {
	Status        string         `json:"status"`
	SavedArticles []SavedArticle `json:"saved_articles"`
	Count         int            `json:"count"`
	Username      string         `json:"username"`
}

type SaveResponse struct {
	Message      string       `json:"message"`
	SavedArticle SavedArticle `json:"saved_article"`
}

type CheckRequest struct {
	URL string `json:"url"`
}

// CheckResponse carries a null id when the URL is not saved.
type CheckResponse struct {
	IsSaved        bool   `json:"is_saved"`
	SavedArticleID *int64 `json:"saved_article_id"`
}

type BulkCheckRequest struct {
	URLs []string `json:"urls"`
}

type BulkCheckResponse struct {
	Results map[string]CheckResponse `json:"results"`
}

type NewsResponse struct {
	Status    string    `json:"status"`
	Articles  []Article `json:"articles"`
	Count     int       `json:"count"`
	Focus     string    `json:"focus,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ArticleFromItem(it feed.Item) Article {
	a := Article{
		Title:       it.Title,
		Description: it.Description,
		URL:         it.URL,
		URLToImage:  it.ImageURL,
		PublishedAt: formatTime(it.PublishedAt),
	}
	if it.SourceName != "" {
		a.Source = &Source{Name: it.SourceName}
	}
	return a
}

func (a Article) Item() feed.Item {
	return feed.Item{
		URL:         strings.TrimSpace(a.URL),
		Title:       strings.TrimSpace(a.Title),
		Description: a.Description,
		ImageURL:    a.URLToImage,
		SourceName:  a.sourceName(),
		PublishedAt: parseTime(a.PublishedAt),
	}
}

func ArticleFromDraft(d saved.Draft) Article {
	a := Article{
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
		URLToImage:  d.ImageURL,
		PublishedAt: formatTime(d.PublishedAt),
	}
	if d.Source != "" {
		a.Source = &Source{Name: d.Source}
	}
	return a
}

func (a Article) Draft() saved.Draft {
	return saved.Draft{
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		ImageURL:    a.URLToImage,
		Source:      a.sourceName(),
		PublishedAt: parseTime(a.PublishedAt),
	}
}

func (a Article) sourceName() string {
	if a.Source == nil {
		return ""
	}
	return a.Source.Name
}

func SavedFromRecord(r saved.Record) SavedArticle {
	return SavedArticle{
		ID:      r.ID,
		Article: ArticleFromDraft(saved.Draft{Title: r.Title, Description: r.Description, URL: r.URL, ImageURL: r.ImageURL, Source: r.Source, PublishedAt: r.PublishedAt}),
		SavedAt: r.SavedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (s SavedArticle) Record() saved.Record {
	var savedAt time.Time
	if t := parseTime(s.SavedAt); t != nil {
		savedAt = *t
	}
	return s.Article.Draft().Record(s.ID, savedAt)
}

func CheckFromResult(r saved.CheckResult) CheckResponse {
	if !r.Saved {
		return CheckResponse{}
	}
	id := r.ID
	return CheckResponse{IsSaved: true, SavedArticleID: &id}
}

func (c CheckResponse) Result() saved.CheckResult {
	res := saved.CheckResult{Saved: c.IsSaved}
	if c.IsSaved && c.SavedArticleID != nil {
		res.ID = *c.SavedArticleID
	}
	return res
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime accepts RFC 3339 and the naive ISO timestamps older services
// emit. Anything else is treated as unknown.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
