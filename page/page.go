// Package page turns one slice-bound query URL into the finite sequence of
// paginated Step requests that cover it. Grounded on the original
// solrcopy's Requests iterator (src/steps.rs).
package page

import "fmt"

// Step is one Solr request: an offset and the fully formed URL for it.
type Step struct {
	Offset uint64
	URL    string
}

// Planner emits Steps covering [Skip, Limit) in strides of NumDocs. Skip
// only applies to the first slice of a run: callers pass Skip=0 for every
// slice after the first.
type Planner struct {
	Skip    uint64
	Limit   uint64
	NumDocs uint64
	URL     string
}

// Count returns the number of Steps the Planner will yield.
func (p Planner) Count() uint64 {
	if p.Limit <= p.Skip || p.NumDocs == 0 {
		return 0
	}
	remaining := p.Limit - p.Skip
	n := remaining / p.NumDocs
	if remaining%p.NumDocs != 0 {
		n++
	}
	return n
}

// Iterator returns a function yielding successive Steps, or ok=false once
// the range [Skip, Limit) is exhausted.
func (p Planner) Iterator() func() (Step, bool) {
	curr := p.Skip
	return func() (Step, bool) {
		if curr >= p.Limit {
			return Step{}, false
		}
		remaining := p.Limit - curr
		rows := p.NumDocs
		if remaining < rows {
			rows = remaining
		}
		url := fmt.Sprintf("%s&start=%d&rows=%d", p.URL, curr, rows)
		s := Step{Offset: curr, URL: url}
		curr += p.NumDocs
		return s, true
	}
}
