package feeds

import "errors"

var (
	// ErrFetchFailure means the candidate posts could not be loaded. It is
	// the only error that aborts GetFeed.
	ErrFetchFailure = errors.New("feed: fetch failure")
	// ErrPartialMetrics means some engagement batches failed and were zeroed
	ErrPartialMetrics = errors.New("feed: partial metrics failure")
	// ErrUnresolvableRepost means one or more reposts pointed at a missing original
	ErrUnresolvableRepost = errors.New("feed: unresolvable repost")
)
