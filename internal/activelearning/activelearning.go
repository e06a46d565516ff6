// Package activelearning ranks unannotated dataset items by candidate
// priority for human review. Every strategy is a pure function over a
// slice of Candidate — no repo or network access — grounded on the
// original services/active_learning.py.
package activelearning

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Candidate is one unannotated dataset item plus the Media fields the
// ranking strategies read.
type Candidate struct {
	ItemID      uuid.UUID
	MediaID     uuid.UUID
	AutoTags    []string
	AutoCaption string
}

// Ranked is one scored output entry, truncated to the caller's limit.
type Ranked struct {
	ItemID  uuid.UUID `json:"item_id"`
	MediaID uuid.UUID `json:"media_id"`
	Score   float64   `json:"score"`
	Reason  string    `json:"reason"`
}

func truncate(r []Ranked, limit int) []Ranked {
	if limit <= 0 || limit >= len(r) {
		return r
	}
	return r[:limit]
}

// Uncertainty scores score = 1/(|auto_tags|+1) if tags exist else 1.0,
// ranked descending (spec.md §4.H): fewer tags implies less confident
// auto-enrichment, so the item is a better candidate for review.
func Uncertainty(candidates []Candidate, limit int) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score := 1.0
		if len(c.AutoTags) > 0 {
			score = 1.0 / float64(len(c.AutoTags)+1)
		}
		out = append(out, Ranked{
			ItemID:  c.ItemID,
			MediaID: c.MediaID,
			Score:   score,
			Reason:  "uncertainty",
		})
	}
	sortDesc(out)
	return truncate(out, limit)
}

// Diversity is streaming novelty: a running seen_tags set accumulates as
// candidates are scanned in input order, so the result favors items
// unlike anything seen so far in the scan (spec.md §4.H).
func Diversity(candidates []Candidate, limit int) []Ranked {
	seen := map[string]bool{}
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		tagSet := map[string]bool{}
		for _, t := range c.AutoTags {
			tagSet[t] = true
		}
		denom := len(tagSet)
		if denom < 1 {
			denom = 1
		}
		overlap := 0
		for t := range tagSet {
			if seen[t] {
				overlap++
			}
		}
		novelty := 1.0 - float64(overlap)/float64(denom)
		out = append(out, Ranked{
			ItemID:  c.ItemID,
			MediaID: c.MediaID,
			Score:   novelty,
			Reason:  "diversity",
		})
		for t := range tagSet {
			seen[t] = true
		}
	}
	sortDesc(out)
	return truncate(out, limit)
}

// Entropy scores log(n) where n = |auto_tags| if n>1, 0.5 if there is a
// caption but no tags, else 1.0 (spec.md §4.H).
func Entropy(candidates []Candidate, limit int) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		var score float64
		n := len(c.AutoTags)
		switch {
		case n > 1:
			score = math.Log(float64(n))
		case n == 0 && c.AutoCaption != "":
			score = 0.5
		default:
			score = 1.0
		}
		out = append(out, Ranked{
			ItemID:  c.ItemID,
			MediaID: c.MediaID,
			Score:   score,
			Reason:  "entropy",
		})
	}
	sortDesc(out)
	return truncate(out, limit)
}

// Random shuffles candidates and takes limit, for baseline comparison
// against the scored strategies (spec.md §4.H). rnd must be supplied by
// the caller (math/rand's global source is unsafe to share across
// concurrent requests).
func Random(candidates []Candidate, limit int, rnd *rand.Rand) []Ranked {
	shuffled := make([]Candidate, len(candidates))
	copy(shuffled, candidates)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	out := make([]Ranked, 0, len(shuffled))
	for _, c := range shuffled {
		out = append(out, Ranked{
			ItemID:  c.ItemID,
			MediaID: c.MediaID,
			Score:   0,
			Reason:  "random",
		})
	}
	return truncate(out, limit)
}

func sortDesc(r []Ranked) {
	// insertion sort: candidate lists are review-queue sized, not bulk data
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j].Score > r[j-1].Score; j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}
