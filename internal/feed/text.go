package feed

import (
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Summarize converts an HTML description into markdown for the card body.
// Input that fails to convert is returned with surrounding space trimmed.
func Summarize(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(markdown)
}

// RelativeTime labels a publish time the way the cards show it.
func RelativeTime(published *time.Time, now time.Time) string {
	if published == nil || published.IsZero() {
		return ""
	}

	d := now.Sub(*published)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "Yesterday"
	default:
		return published.Local().Format("Jan 2, 2006")
	}
}
