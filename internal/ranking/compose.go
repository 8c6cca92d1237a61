package ranking

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultDiversityWindow is the number of preceding positions checked for a
// repeated author
const DefaultDiversityWindow = 3

// Composer orders scored posts into a feed
type Composer struct {
	Weights         Weights
	DiversityWindow int
}

// NewComposer creates a composer, falling back to the defaults for nil
// weights or a negative window
func NewComposer(weights Weights, window int) Composer {
	if weights == nil {
		weights = DefaultWeights()
	}
	if window < 0 {
		window = DefaultDiversityWindow
	}
	return Composer{Weights: weights, DiversityWindow: window}
}

// Compose returns a new slice with posts in feed order. Every input post is
// present in the output exactly once; the input is not modified.
func (c Composer) Compose(posts []ScoredPost, mode Mode) []ScoredPost {
	out := make([]ScoredPost, len(posts))
	for i, p := range posts {
		sub := make(map[string]float64, len(p.SubScores)+1)
		for k, v := range p.SubScores {
			sub[k] = v
		}
		p.SubScores = sub
		p.TotalScore = c.Weights.Total(sub)
		out[i] = p
	}

	if mode == Chronological {
		sort.SliceStable(out, func(i, j int) bool { return chronologicalLess(out[i], out[j]) })
		for i := range out {
			out[i].SubScores[ScoreDiversity] = 1
		}
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return chronologicalLess(out[i], out[j])
	})
	return c.diversify(out)
}

func chronologicalLess(a, b ScoredPost) bool {
	ta, tb := a.EffectiveAt(), b.EffectiveAt()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.EntryID.String() < b.EntryID.String()
}

// diversify walks the ranked list and at each position takes the
// highest-ranked remaining post that shares no author (or repost chain) with
// the previous DiversityWindow picks. If taking it would leave the rest with
// no repeat-free order, the eligible post whose author has the most posts
// left is taken instead, ties going to rank. When nothing qualifies the
// highest-ranked remaining post is taken so no post is ever dropped.
func (c Composer) diversify(ranked []ScoredPost) []ScoredPost {
	rank := make(map[uuid.UUID]int, len(ranked))
	for i, p := range ranked {
		rank[p.EntryID] = i
	}
	if c.DiversityWindow == 0 {
		for i := range ranked {
			ranked[i].SubScores[ScoreDiversity] = 1
		}
		return ranked
	}

	remaining := ranked
	out := make([]ScoredPost, 0, len(ranked))
	for len(remaining) > 0 {
		pick := c.choose(remaining, out)
		p := remaining[pick]
		remaining = append(remaining[:pick:pick], remaining[pick+1:]...)

		demoted := len(out) - rank[p.EntryID]
		if demoted < 0 {
			demoted = 0
		}
		p.SubScores[ScoreDiversity] = 1 / float64(1+demoted)
		out = append(out, p)
	}
	return out
}

// choose returns the index in remaining of the next post to place
func (c Composer) choose(remaining, placed []ScoredPost) int {
	first := -1
	for i := range remaining {
		if !c.conflicts(remaining[i], placed) {
			first = i
			break
		}
	}
	if first < 0 {
		return 0
	}

	left := make(map[uuid.UUID]int)
	authors := make([]uuid.UUID, 0, len(remaining))
	for _, p := range remaining {
		a := p.Post.UserID
		if left[a] == 0 {
			authors = append(authors, a)
		}
		left[a]++
	}
	if c.schedulable(placed, authors, left, remaining[first].Post.UserID) {
		return first
	}

	best := first
	for i := first + 1; i < len(remaining); i++ {
		if left[remaining[i].Post.UserID] > left[remaining[best].Post.UserID] && !c.conflicts(remaining[i], placed) {
			best = i
		}
	}
	return best
}

// schedulable reports whether, after placing a post by next, the remaining
// authors can still be ordered with no author repeated inside the window.
// It replays a most-posts-left-first schedule over the rest.
func (c Composer) schedulable(placed []ScoredPost, authors []uuid.UUID, left map[uuid.UUID]int, next uuid.UUID) bool {
	counts := make(map[uuid.UUID]int, len(left))
	total := -1
	for a, n := range left {
		counts[a] = n
		total += n
	}
	counts[next]--

	recent := make([]uuid.UUID, 0, c.DiversityWindow+total+1)
	for _, q := range placed[max(0, len(placed)-c.DiversityWindow):] {
		recent = append(recent, q.Post.UserID)
	}
	recent = append(recent, next)

	for ; total > 0; total-- {
		window := recent[max(0, len(recent)-c.DiversityWindow):]
		var pick uuid.UUID
		best := 0
		for _, a := range authors {
			if counts[a] > best && !containsID(window, a) {
				pick, best = a, counts[a]
			}
		}
		if best == 0 {
			return false
		}
		counts[pick]--
		recent = append(recent, pick)
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// conflicts reports whether p repeats an author, reposter or reposted
// original among the last DiversityWindow entries of placed
func (c Composer) conflicts(p ScoredPost, placed []ScoredPost) bool {
	start := len(placed) - c.DiversityWindow
	if start < 0 {
		start = 0
	}
	keys := diversityKeys(p)
	for _, q := range placed[start:] {
		for _, k := range diversityKeys(q) {
			for _, pk := range keys {
				if k == pk {
					return true
				}
			}
		}
	}
	return false
}

func diversityKeys(p ScoredPost) []uuid.UUID {
	if p.IsRepost {
		return []uuid.UUID{p.Post.UserID, p.RepostedByID, p.Post.ID}
	}
	return []uuid.UUID{p.Post.UserID, p.Post.ID}
}
