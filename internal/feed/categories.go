package feed

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed categories.toml
var categoriesTOML []byte

// CategoryInfo describes where a category's articles come from.
type CategoryInfo struct {
	Key        Category `toml:"key"`
	Title      string   `toml:"title"`
	APIPath    string   `toml:"api_path"`
	RSS        []string `toml:"rss"`
	MinifluxID int64    `toml:"miniflux_id"`
}

type categoryTable struct {
	Category []CategoryInfo `toml:"category"`
}

var loadCategories = sync.OnceValues(func() ([]CategoryInfo, error) {
	return parseCategories(categoriesTOML)
})

func parseCategories(data []byte) ([]CategoryInfo, error) {
	var table categoryTable
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decoding category table: %w", err)
	}
	seen := make(map[Category]bool, len(table.Category))
	for _, c := range table.Category {
		if c.Key == "" || c.APIPath == "" {
			return nil, fmt.Errorf("category %q: key and api_path are required", c.Title)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("category %q declared twice", c.Key)
		}
		seen[c.Key] = true
	}
	return table.Category, nil
}

// Categories returns the embedded category table in declaration order.
func Categories() []CategoryInfo {
	cats, err := loadCategories()
	if err != nil {
		// the table is compiled in; a decode failure is a build defect
		panic(err)
	}
	return cats
}

// LookupCategory returns the table entry for c.
func LookupCategory(c Category) (CategoryInfo, bool) {
	for _, info := range Categories() {
		if info.Key == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// CategoryForPath maps a news service path segment back to a category.
func CategoryForPath(path string) (Category, bool) {
	for _, info := range Categories() {
		if info.APIPath == path {
			return info.Key, true
		}
	}
	return "", false
}

func (c Category) Title() string {
	if info, ok := LookupCategory(c); ok {
		return info.Title
	}
	return string(c)
}
