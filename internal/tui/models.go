package tui

import (
	"strings"
	"time"

	"github.com/pders01/flip/internal/feed"
	"github.com/pders01/flip/internal/saved"
)

// savedItem adapts a saved record to the bubbles list.
type savedItem struct {
	rec saved.Record
	now func() time.Time
}

func (i savedItem) Title() string { return i.rec.Title }

func (i savedItem) Description() string {
	parts := make([]string, 0, 2)
	if i.rec.Source != "" {
		parts = append(parts, i.rec.Source)
	}
	if !i.rec.SavedAt.IsZero() {
		at := i.rec.SavedAt
		label := feed.RelativeTime(&at, i.now())
		if label == "Just now" || label == "Yesterday" {
			label = strings.ToLower(label)
		}
		parts = append(parts, "saved "+label)
	}
	return strings.Join(parts, " • ")
}

func (i savedItem) FilterValue() string { return i.rec.Title }
