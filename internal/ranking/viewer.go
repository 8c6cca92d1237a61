package ranking

import (
	"math"
	"time"

	"socialfeed/internal/models"

	"github.com/google/uuid"
)

// AffinityHalfLife is the age at which an interaction counts half
const AffinityHalfLife = 7 * 24 * time.Hour

// ViewerContext is everything the scores know about the viewer. It is built
// once per request and read-only afterwards.
type ViewerContext struct {
	ViewerID  uuid.UUID
	Following map[uuid.UUID]bool
	Now       time.Time

	affinity   map[uuid.UUID]float64
	topics     map[string]float64
	topicTotal float64
}

// NewViewerContext folds the interaction history into per-author and
// per-topic decayed weights
func NewViewerContext(viewerID uuid.UUID, following []uuid.UUID, interactions []models.Interaction, now time.Time) *ViewerContext {
	vc := &ViewerContext{
		ViewerID:  viewerID,
		Following: make(map[uuid.UUID]bool, len(following)),
		Now:       now,
		affinity:  make(map[uuid.UUID]float64),
		topics:    make(map[string]float64),
	}
	for _, id := range following {
		vc.Following[id] = true
	}

	for _, in := range interactions {
		if in.ActorID != viewerID || !finite(in.Weight) {
			continue
		}
		w := in.Weight * decay(now.Sub(in.CreatedAt), AffinityHalfLife)
		vc.affinity[in.TargetUserID] += w
		for _, topic := range in.Topics {
			vc.topics[topic] += w
		}
	}

	for _, w := range vc.topics {
		if w > 0 {
			vc.topicTotal += w
		}
	}
	return vc
}

// Follows reports whether the viewer follows user id
func (vc *ViewerContext) Follows(id uuid.UUID) bool {
	return vc.Following[id]
}

// AuthorWeight is the decayed interaction sum towards an author, floored at zero
func (vc *ViewerContext) AuthorWeight(id uuid.UUID) float64 {
	return math.Max(vc.affinity[id], 0)
}

// decay halves a weight every halfLife; future timestamps count fully
func decay(age, halfLife time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
