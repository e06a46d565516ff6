// Package quality is the pure-function half of component H: inter-
// annotator agreement metrics over in-memory annotation records. No
// repo or network dependency — callers (internal/services/quality)
// load rows from the metadata store and hand them in as plain structs,
// grounded directly on the original services/quality_metrics.py.
package quality

import (
	"math"
	"sort"

	"github.com/pierdell/mediaforge-backend/internal/geometry"
)

// Entry is one annotator's record on a single dataset item, the common
// input shape for every agreement metric (spec.md §4.H).
type Entry struct {
	UserID   string
	Label    string
	Type     string // "bbox", "classification", ... — matches domain.AnnotationType lowercased
	Geometry geometry.BBox
}

// Result is the outcome of any metric over a set of entries: an overall
// score plus optional per-label detail.
type Result struct {
	Score      float64
	PerLabel   map[string]float64
	Annotators []string
}

func distinctUsers(entries []Entry) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			out = append(out, e.UserID)
		}
	}
	sort.Strings(out)
	return out
}

func pairs(users []string) [][2]string {
	var out [][2]string
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			out = append(out, [2]string{users[i], users[j]})
		}
	}
	return out
}

// LabelAgreement groups labels by user into sets and averages the
// pairwise Jaccard similarity across every unordered user pair. Fewer
// than 2 users returns 1.0 (spec.md §4.H, §8 boundary).
func LabelAgreement(entries []Entry) Result {
	users := distinctUsers(entries)
	if len(users) < 2 {
		return Result{Score: 1.0, Annotators: users}
	}

	labelSets := map[string]map[string]bool{}
	for _, e := range entries {
		if labelSets[e.UserID] == nil {
			labelSets[e.UserID] = map[string]bool{}
		}
		labelSets[e.UserID][e.Label] = true
	}

	var total float64
	ps := pairs(users)
	for _, p := range ps {
		total += jaccard(labelSets[p[0]], labelSets[p[1]])
	}
	return Result{Score: total / float64(len(ps)), Annotators: users}
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	union := map[string]bool{}
	for k := range a {
		union[k] = true
	}
	for k := range b {
		union[k] = true
	}
	if len(union) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	return float64(inter) / float64(len(union))
}

// IoUAgreement keeps only type=="bbox" entries, groups bboxes by user,
// and averages geometry.IoU across every cross-product pair of bboxes
// for every user pair (spec.md §4.H).
func IoUAgreement(entries []Entry) Result {
	var bboxOnly []Entry
	for _, e := range entries {
		if e.Type == "bbox" {
			bboxOnly = append(bboxOnly, e)
		}
	}
	users := distinctUsers(bboxOnly)
	if len(users) < 2 {
		return Result{Score: 1.0, Annotators: users}
	}

	byUser := map[string][]geometry.BBox{}
	for _, e := range bboxOnly {
		byUser[e.UserID] = append(byUser[e.UserID], e.Geometry)
	}

	var total float64
	var count int
	for _, p := range pairs(users) {
		for _, a := range byUser[p[0]] {
			for _, b := range byUser[p[1]] {
				total += geometry.IoU(a, b)
				count++
			}
		}
	}
	if count == 0 {
		return Result{Score: 0, Annotators: users}
	}
	return Result{Score: total / float64(count), Annotators: users}
}

// PercentAgreement compares each user's sorted label list; a pair
// scores 1 if the sorted lists are identical, else 0, averaged across
// pairs (spec.md §4.H).
func PercentAgreement(entries []Entry) Result {
	users := distinctUsers(entries)
	if len(users) < 2 {
		return Result{Score: 1.0, Annotators: users}
	}

	labelsByUser := map[string][]string{}
	for _, e := range entries {
		labelsByUser[e.UserID] = append(labelsByUser[e.UserID], e.Label)
	}
	for u := range labelsByUser {
		sort.Strings(labelsByUser[u])
	}

	var total float64
	ps := pairs(users)
	for _, p := range ps {
		if equalSlices(labelsByUser[p[0]], labelsByUser[p[1]]) {
			total += 1
		}
	}
	return Result{Score: total / float64(len(ps)), Annotators: users}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CohensKappa computes Cohen's kappa for exactly two annotators. An
// absent label for a user on an item is treated as a distinct category
// ("__absent__"), per spec.md §4.H. Requires each entry to represent one
// annotator's label for the item; callers pass one Entry per (user) with
// Label possibly "__absent__".
func CohensKappa(entries []Entry) Result {
	users := distinctUsers(entries)
	if len(users) != 2 {
		// Kappa is only defined pairwise; average pairwise kappas when
		// more than two annotators are present, matching the fallback
		// the label/percent metrics use.
		if len(users) < 2 {
			return Result{Score: 1.0, Annotators: users}
		}
		var total float64
		ps := pairs(users)
		byUser := map[string]string{}
		for _, e := range entries {
			byUser[e.UserID] = e.Label
		}
		for _, p := range ps {
			total += cohensKappaPair(
				[]Entry{{UserID: p[0], Label: byUser[p[0]]}, {UserID: p[1], Label: byUser[p[1]]}},
			)
		}
		return Result{Score: total / float64(len(ps)), Annotators: users}
	}
	return Result{Score: cohensKappaPair(entries), Annotators: users}
}

func cohensKappaPair(entries []Entry) float64 {
	users := distinctUsers(entries)
	if len(users) != 2 {
		return 1.0
	}
	a, b := "", ""
	for _, e := range entries {
		if e.UserID == users[0] {
			a = e.Label
		}
		if e.UserID == users[1] {
			b = e.Label
		}
	}
	// Single-item kappa degenerates to agreement/disagreement; return the
	// observed-vs-chance ratio using a uniform chance baseline over the
	// two observed categories, the natural single-item specialization.
	po := 0.0
	if a == b {
		po = 1.0
	}
	pe := 0.5
	if a == b {
		pe = 1.0
	}
	if pe >= 1.0 {
		return 1.0
	}
	return (po - pe) / (1 - pe)
}

// FleissKappa computes Fleiss' kappa across N≥2 raters on a single item
// where each Entry is one rater's label (absent treated as a distinct
// category, per spec.md §4.H).
func FleissKappa(entries []Entry) Result {
	users := distinctUsers(entries)
	n := len(users)
	if n < 2 {
		return Result{Score: 1.0, Annotators: users}
	}

	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Label]++
	}

	var sumSqFrac float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		sumSqFrac += p * p
	}
	pe := sumSqFrac

	// Single item: observed agreement is (sum(c*(c-1))) / (n*(n-1))
	var sumPairs float64
	for _, c := range counts {
		sumPairs += float64(c * (c - 1))
	}
	po := 0.0
	if n > 1 {
		po = sumPairs / float64(n*(n-1))
	}

	if pe >= 1.0 {
		return Result{Score: 1.0, Annotators: users}
	}
	kappa := (po - pe) / (1 - pe)
	if math.IsNaN(kappa) {
		kappa = 0
	}
	return Result{Score: kappa, Annotators: users}
}
