package feeds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialfeed/internal/models"
	"socialfeed/internal/ranking"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver turns raw post rows into feed entries, following each repost one
// hop to its original
type Resolver struct {
	store       store.Store
	batchSize   int
	concurrency int
	timeout     time.Duration
	log         *zap.SugaredLogger
}

// NewResolver creates a resolver. Non-positive sizes fall back to the defaults.
func NewResolver(s store.Store, batchSize, concurrency int, timeout time.Duration, log *zap.SugaredLogger) *Resolver {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Resolver{store: s, batchSize: batchSize, concurrency: concurrency, timeout: timeout, log: log}
}

type entryKey struct {
	post     uuid.UUID
	reposter uuid.UUID
}

// Resolve keeps the order of rows. Reposts whose original is missing,
// could not be loaded, or is itself a repost are dropped and reported
// through an error wrapping ErrUnresolvableRepost; the entries returned are
// always usable.
func (r *Resolver) Resolve(ctx context.Context, rows []models.Post) ([]ranking.ResolvedPost, error) {
	known := make(map[uuid.UUID]models.Post, len(rows))
	var missing []uuid.UUID
	for _, p := range rows {
		known[p.ID] = p
	}
	wanted := make(map[uuid.UUID]bool)
	for _, p := range rows {
		if p.RepostOf == nil {
			continue
		}
		id := *p.RepostOf
		if _, ok := known[id]; !ok && !wanted[id] {
			wanted[id] = true
			missing = append(missing, id)
		}
	}

	originals, fetchErr := r.fetchOriginals(ctx, missing)
	for id, p := range known {
		originals[id] = p
	}

	out := make([]ranking.ResolvedPost, 0, len(rows))
	seen := make(map[entryKey]bool, len(rows))
	var dropped int
	for _, p := range rows {
		if p.RepostOf == nil {
			k := entryKey{post: p.ID}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, ranking.FromPost(p))
			continue
		}

		original, ok := originals[*p.RepostOf]
		if !ok {
			dropped++
			continue
		}
		if original.RepostOf != nil {
			r.log.Errorw("repost points at another repost, not following the chain",
				"repost_id", p.ID, "target_id", original.ID, "chained_to", *original.RepostOf)
			dropped++
			continue
		}
		k := entryKey{post: original.ID, reposter: p.UserID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ranking.FromRepost(p, original))
	}

	if dropped > 0 || fetchErr != nil {
		err := fmt.Errorf("%w: dropped %d reposts", ErrUnresolvableRepost, dropped)
		if fetchErr != nil {
			err = fmt.Errorf("%w: %w", err, fetchErr)
		}
		return out, err
	}
	return out, nil
}

// fetchOriginals loads ids in concurrent batches. A failed batch leaves its
// ids absent; the first failure is returned alongside whatever was found.
func (r *Resolver) fetchOriginals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Post, error) {
	found := make(map[uuid.UUID]models.Post, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var (
		mu       sync.Mutex
		firstErr error
		g        errgroup.Group
	)
	g.SetLimit(r.concurrency)
	for _, batch := range chunk(ids, r.batchSize) {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			posts, err := r.store.FetchPosts(callCtx, store.PostFilter{IDs: batch}, len(batch))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				r.log.Warnw("repost originals batch failed", "posts", len(batch), "error", err)
				return nil
			}
			for _, p := range posts {
				found[p.ID] = p
			}
			return nil
		})
	}
	_ = g.Wait()
	return found, firstErr
}
