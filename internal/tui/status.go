package tui

import (
	"fmt"

	"github.com/pders01/flip/internal/feed"
)

// Canonical short status messages used across the app.
const (
	MsgSaving        = "Saving…"
	MsgUnsaving      = "Removing from saved…"
	MsgSaved         = "Saved"
	MsgUnsaved       = "Removed from saved"
	MsgAlreadyGone   = "Already removed from saved"
	MsgToggleBusy    = "Still working on the previous save"
	MsgRemoving      = "Removing…"
	MsgRemoved       = "Article removed"
	MsgRefreshing    = "Refreshing…"
	MsgNoResults     = "No results"
	MsgOpening       = "Opening in browser…"
	MsgNothingToOpen = "Nothing to open"
)

func MsgLoadingCategory(c feed.Category) string {
	return fmt.Sprintf("Loading %s news…", c.Title())
}

func MsgLoadedCategory(c feed.Category, n int) string {
	if n == 1 {
		return fmt.Sprintf("%s: 1 article", c.Title())
	}
	return fmt.Sprintf("%s: %d articles", c.Title(), n)
}

func MsgSavedCount(n int) string {
	if n == 1 {
		return "1 saved article"
	}
	return fmt.Sprintf("%d saved articles", n)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}
