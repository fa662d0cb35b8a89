package feed

import (
	"context"
	"errors"
)

// ErrStale marks a fetch that finished after a newer one was started.
var ErrStale = errors.New("feed: result superseded by a newer load")

// Source loads the article sequence for a category. Implementations do not
// retry; the caller decides whether to fetch again.
type Source interface {
	Fetch(ctx context.Context, category Category) (Sequence, error)
}
