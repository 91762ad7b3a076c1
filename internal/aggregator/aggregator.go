// Package aggregator merges candidate lists from concurrent queries into one
// domain-keyed set. Merging is commutative and idempotent so that arrival
// order of concurrent results cannot change the final output.
package aggregator

import (
	"sync"

	"github.com/rydeebs/findb2b/internal/models"
)

// Aggregator is the single mutable structure shared across query workers
// within one brand lookup. All access goes through the mutex.
type Aggregator struct {
	mu       sync.Mutex
	byDomain map[string]*entry
	order    []string // first-seen domain order, for deterministic output
}

type entry struct {
	cand models.Candidate
	// seenTags is the largest pre-union tag count of any single input that
	// contributed this entry's display fields. "Richer evidence wins" compares
	// incoming candidates against this, not against the unioned set.
	seenTags int
}

func New() *Aggregator {
	return &Aggregator{byDomain: make(map[string]*entry)}
}

// Merge folds incoming candidates in. For a new domain the candidate is
// stored as-is; for a known domain the evidence sets are unioned and the
// display fields (retailer name, product, price, source) are taken from
// whichever single input carried more evidence tags, ties keeping the
// first-seen record. Entries are never removed within a run.
func (a *Aggregator) Merge(incoming []models.Candidate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range incoming {
		if c.Domain == "" {
			continue
		}
		in := len(c.Evidence)
		e, ok := a.byDomain[c.Domain]
		if !ok {
			stored := c
			stored.Evidence = models.NewEvidence().Union(c.Evidence)
			a.byDomain[c.Domain] = &entry{cand: stored, seenTags: in}
			a.order = append(a.order, c.Domain)
			continue
		}
		union := e.cand.Evidence.Union(c.Evidence)
		if in > e.seenTags {
			merged := c
			merged.Evidence = union
			e.cand = merged
			e.seenTags = in
		} else {
			e.cand.Evidence = union
		}
	}
}

// Len returns the number of distinct domains seen so far. The pipeline polls
// this between waves to decide whether to ask the planner for more queries.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byDomain)
}

// Candidates returns the merged set in first-seen order. The returned slice
// is a copy; the aggregator keeps ownership of its entries.
func (a *Aggregator) Candidates() []models.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Candidate, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, a.byDomain[d].cand)
	}
	return out
}
