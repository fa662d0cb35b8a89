package feed

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var imgRegex = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse turns an RSS, Atom or JSON feed document into items. Entries
// without a link are dropped since the URL is the item's identity.
func (p *Parser) Parse(reader io.Reader) (Sequence, error) {
	parsed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	items := make(Sequence, 0, len(parsed.Items))
	seen := make(map[string]bool, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := strings.TrimSpace(entry.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		item := Item{
			URL:         link,
			Title:       strings.TrimSpace(entry.Title),
			Description: Summarize(entry.Description),
			ImageURL:    imageURL(entry),
			SourceName:  sourceName(parsed, entry),
		}

		switch {
		case entry.PublishedParsed != nil:
			published := *entry.PublishedParsed
			item.PublishedAt = &published
		case entry.UpdatedParsed != nil:
			updated := *entry.UpdatedParsed
			item.PublishedAt = &updated
		}

		items = append(items, item)
	}

	return items, nil
}

func sourceName(parsed *gofeed.Feed, entry *gofeed.Item) string {
	if title := strings.TrimSpace(parsed.Title); title != "" {
		return title
	}
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}

func imageURL(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}

	for _, enclosure := range entry.Enclosures {
		if enclosure.URL != "" && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}

	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}

	if match := imgRegex.FindStringSubmatch(entry.Content + " " + entry.Description); len(match) > 1 {
		return match[1]
	}
	return ""
}
