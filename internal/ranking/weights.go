package ranking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"socialfeed/internal/models"
)

// Weights maps sub-score names to their share of TotalScore
type Weights map[string]float64

// DefaultWeights favours affinity and fresh engagement
func DefaultWeights() Weights {
	return Weights{
		ScoreAffinity:   0.35,
		ScoreVirality:   0.25,
		ScoreEngagement: 0.20,
		ScoreRelevance:  0.15,
		ScoreRecency:    0.05,
	}
}

// ParseWeights reads "name=value" pairs separated by commas and merges them
// over DefaultWeights. An empty string yields the defaults.
func ParseWeights(s string) (Weights, error) {
	w := DefaultWeights()
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: expected name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", pair, err)
		}
		w[strings.ToLower(strings.TrimSpace(name))] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate rejects unknown names and negative or non-finite values
func (w Weights) Validate() error {
	for _, name := range w.names() {
		if _, ok := Scorers[name]; !ok {
			return fmt.Errorf("unknown weight %q", name)
		}
		if v := w[name]; !finite(v) || v < 0 {
			return fmt.Errorf("weight %q must be a finite non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Clone returns an independent copy
func (w Weights) Clone() Weights {
	c := make(Weights, len(w))
	for k, v := range w {
		c[k] = v
	}
	return c
}

// WithPreference overlays the non-nil, valid overrides of a user preference
func (w Weights) WithPreference(pref *models.UserFeedPreference) Weights {
	c := w.Clone()
	if pref == nil {
		return c
	}
	overrides := map[string]*float64{
		ScoreEngagement: pref.EngagementWeight,
		ScoreAffinity:   pref.AffinityWeight,
		ScoreRelevance:  pref.RelevanceWeight,
		ScoreVirality:   pref.ViralityWeight,
		ScoreRecency:    pref.RecencyWeight,
	}
	for name, v := range overrides {
		if v != nil && finite(*v) && *v >= 0 {
			c[name] = *v
		}
	}
	return c
}

// Total is the weighted sum of the named sub-scores
func (w Weights) Total(sub map[string]float64) float64 {
	var total float64
	for _, name := range w.names() {
		total += w[name] * sub[name]
	}
	return total
}

// String renders the weights in the ParseWeights format
func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, name := range w.names() {
		parts = append(parts, name+"="+strconv.FormatFloat(w[name], 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// names is sorted so floating-point sums come out the same on every call
func (w Weights) names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
