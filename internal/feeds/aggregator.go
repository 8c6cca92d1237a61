package feeds

import (
	"context"
	"fmt"
	"time"

	"socialfeed/internal/ranking"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator computes engagement metrics for batches of posts
type Aggregator struct {
	store       store.Store
	batchSize   int
	concurrency int
	timeout     time.Duration
	log         *zap.SugaredLogger
}

// NewAggregator creates an aggregator. Non-positive sizes fall back to the defaults.
func NewAggregator(s store.Store, batchSize, concurrency int, timeout time.Duration, log *zap.SugaredLogger) *Aggregator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Aggregator{store: s, batchSize: batchSize, concurrency: concurrency, timeout: timeout, log: log}
}

type batchEdges struct {
	likes, reposts, replies []store.Edge
	err                     error
}

// Aggregate returns metrics for every id in postIDs. Batches whose edge
// fetches fail keep zero metrics; the returned error then wraps
// ErrPartialMetrics and the map is still complete.
func (a *Aggregator) Aggregate(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]ranking.EngagementMetrics, error) {
	result := make(map[uuid.UUID]ranking.EngagementMetrics, len(postIDs))
	for _, id := range postIDs {
		result[id] = ranking.EngagementMetrics{}
	}
	if len(postIDs) == 0 {
		return result, nil
	}

	batches := chunk(postIDs, a.batchSize)
	fetched := make([]batchEdges, len(batches))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			fetched[i] = a.fetchBatch(ctx, batch)
			return nil
		})
	}
	_ = g.Wait()

	var (
		failed   int
		firstErr error
	)
	for i, b := range fetched {
		if b.err != nil {
			failed++
			if firstErr == nil {
				firstErr = b.err
			}
			a.log.Warnw("engagement batch degraded to zero metrics",
				"batch", i, "posts", len(batches[i]), "error", b.err)
			continue
		}
		tally(result, viewerID, b)
	}

	if failed > 0 {
		return result, fmt.Errorf("%w: %d of %d batches: %w", ErrPartialMetrics, failed, len(batches), firstErr)
	}
	return result, nil
}

// fetchBatch issues the three edge reads of one batch concurrently under a
// shared per-call timeout
func (a *Aggregator) fetchBatch(ctx context.Context, ids []uuid.UUID) batchEdges {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var out batchEdges
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.likes, err = a.store.FetchEdges(gctx, store.EdgeLike, ids)
		return err
	})
	g.Go(func() (err error) {
		out.reposts, err = a.store.FetchEdges(gctx, store.EdgeRepost, ids)
		return err
	})
	g.Go(func() (err error) {
		out.replies, err = a.store.FetchEdges(gctx, store.EdgeReply, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return batchEdges{err: err}
	}
	return out
}

// tally folds one batch into result in a single pass. Likes and reposts are
// sets, so a duplicated row never counts twice.
func tally(result map[uuid.UUID]ranking.EngagementMetrics, viewerID uuid.UUID, b batchEdges) {
	type key struct{ actor, target uuid.UUID }

	seen := make(map[key]bool, len(b.likes))
	for _, e := range b.likes {
		m, ok := result[e.TargetID]
		if !ok || seen[key{e.ActorID, e.TargetID}] {
			continue
		}
		seen[key{e.ActorID, e.TargetID}] = true
		m.LikeCount++
		if e.ActorID == viewerID {
			m.ViewerHasLiked = true
		}
		result[e.TargetID] = m
	}

	seen = make(map[key]bool, len(b.reposts))
	for _, e := range b.reposts {
		m, ok := result[e.TargetID]
		if !ok || seen[key{e.ActorID, e.TargetID}] {
			continue
		}
		seen[key{e.ActorID, e.TargetID}] = true
		m.RepostCount++
		if e.ActorID == viewerID {
			m.ViewerHasReposted = true
		}
		result[e.TargetID] = m
	}

	for _, e := range b.replies {
		if m, ok := result[e.TargetID]; ok {
			m.ReplyCount++
			result[e.TargetID] = m
		}
	}
}

func chunk(ids []uuid.UUID, size int) [][]uuid.UUID {
	var out [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
