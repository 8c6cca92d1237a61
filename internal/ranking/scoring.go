package ranking

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Sub-score names. They double as the keys of Weights.
const (
	ScoreEngagement = "engagement"
	ScoreAffinity   = "affinity"
	ScoreRelevance  = "relevance"
	ScoreVirality   = "virality"
	ScoreRecency    = "recency"
	ScoreDiversity  = "diversity"
)

const (
	// engagementPivot is the damped count at which engagement scores 0.5
	engagementPivot = 4.61512051684126 // log1p(100)
	// viralityPivot is the engagement per hour at which virality scores 0.5
	viralityPivot = 10.0
	// recencyScale is the e-folding time of the recency score, in hours
	recencyScale = 24.0
	// followBoost is added to the affinity of followed authors and the viewer
	followBoost = 1.0
)

// ScoreFunc computes one sub-score in [0,1]
type ScoreFunc func(ResolvedPost, EngagementMetrics, *ViewerContext) float64

// Scorers maps every weighted sub-score to its function. Diversity is not
// here because it depends on neighbours and is set by the Composer.
var Scorers = map[string]ScoreFunc{
	ScoreEngagement: EngagementScore,
	ScoreAffinity:   AffinityScore,
	ScoreRelevance:  RelevanceScore,
	ScoreVirality:   ViralityScore,
	ScoreRecency:    RecencyScore,
}

// scorerNames is the fixed evaluation order of Scorers
var scorerNames = func() []string {
	names := make([]string, 0, len(Scorers))
	for name := range Scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// EngagementScore grows with likes, reposts and replies with logarithmic
// damping, saturating towards 1
func EngagementScore(_ ResolvedPost, m EngagementMetrics, _ *ViewerContext) float64 {
	l := math.Log1p(m.weighted())
	return l / (l + engagementPivot)
}

// AffinityScore measures the viewer's decayed positive history with the
// author. For reposts the reposter counts too, whichever is stronger.
func AffinityScore(p ResolvedPost, _ EngagementMetrics, vc *ViewerContext) float64 {
	x := authorAffinity(p.Post.UserID, vc)
	if p.IsRepost {
		x = math.Max(x, authorAffinity(p.RepostedByID, vc))
	}
	return x / (x + 1)
}

func authorAffinity(author uuid.UUID, vc *ViewerContext) float64 {
	x := vc.AuthorWeight(author)
	if vc.Follows(author) || author == vc.ViewerID {
		x += followBoost
	}
	return x
}

// RelevanceScore is the share of the viewer's positive topic weight covered
// by the post's hashtags, 0 when either side has no signal
func RelevanceScore(p ResolvedPost, _ EngagementMetrics, vc *ViewerContext) float64 {
	if vc.topicTotal <= 0 {
		return 0
	}
	tags := []string(p.Post.Tags)
	if len(tags) == 0 {
		tags = ExtractHashtags(p.Post.Content)
	}
	seen := make(map[string]bool, len(tags))
	var covered float64
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if w := vc.topics[tag]; w > 0 {
			covered += w
		}
	}
	return math.Min(covered/vc.topicTotal, 1)
}

// ViralityScore is engagement per hour since posting. Age is floored at one
// hour so a brand new post with two likes cannot run away.
func ViralityScore(p ResolvedPost, m EngagementMetrics, vc *ViewerContext) float64 {
	hours := math.Max(vc.Now.Sub(p.Post.CreatedAt).Hours(), 1)
	r := m.weighted() / hours
	return r / (r + viralityPivot)
}

// RecencyScore decays exponentially with the age of the feed entry
func RecencyScore(p ResolvedPost, _ EngagementMetrics, vc *ViewerContext) float64 {
	hours := math.Max(vc.Now.Sub(p.EffectiveAt()).Hours(), 0)
	return math.Exp(-hours / recencyScale)
}

// Score evaluates every sub-score of a resolved post. TotalScore is left for
// the Composer, which owns the weights.
func Score(p ResolvedPost, m EngagementMetrics, vc *ViewerContext) ScoredPost {
	sub := make(map[string]float64, len(scorerNames)+1)
	for _, name := range scorerNames {
		sub[name] = clamp01(Scorers[name](p, m, vc))
	}
	return ScoredPost{ResolvedPost: p, Metrics: m, SubScores: sub}
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
