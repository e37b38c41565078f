// Package slice plans a large logical query as a finite sequence of
// {begin,end} time or numeric slices, each of which is substituted into a
// query template before paging begins. Grounded on the original solrcopy's
// Slices<T> iterator (src/steps.rs), reshaped from a generic Rust iterator
// into a small stateful Go iterator type, since slice planning is cheap and
// synchronous, it does not need a channel of its own.
package slice

import (
	"fmt"
	"strconv"
	"time"
)

// Mode selects how a {begin,end} range is subdivided.
type Mode int

const (
	None Mode = iota
	Range
	Minute
	Hour
	Day
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Range:
		return "range"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

// Slice is one half-open {begin,end} window, serialized as inclusive
// strings. An empty Begin means "no slicing, one pass".
type Slice struct {
	Begin string
	End   string
}

const solrTimeLayout = "2006-01-02T15:04:05Z"

// Planner produces the finite sequence of Slices for one backup run.
type Planner struct {
	Begin, End string
	Step       uint64
	Mode       Mode
}

// Iterator returns a function that yields successive Slices, or ok=false
// once the sequence is exhausted. Calling it repeatedly on the same
// Planner always starts a fresh sequence.
func (p Planner) Iterator() (func() (Slice, bool), error) {
	if p.Begin == "" {
		return onceIterator(Slice{}), nil
	}

	switch p.Mode {
	case None:
		return onceIterator(Slice{}), nil
	case Range:
		return p.rangeIterator()
	case Minute, Hour, Day:
		return p.timeIterator()
	default:
		return nil, fmt.Errorf("slice: unknown mode %v", p.Mode)
	}
}

// Count returns the number of slices the sequence will produce without
// iterating it, needed for the progress estimate.
func (p Planner) Count() (uint64, error) {
	if p.Begin == "" || p.Mode == None {
		return 1, nil
	}
	switch p.Mode {
	case Range:
		begin, end, err := p.parseRange()
		if err != nil {
			return 0, err
		}
		return rangeCount(begin, end, p.Step), nil
	case Minute, Hour, Day:
		begin, end, err := p.parseTime()
		if err != nil {
			return 0, err
		}
		return timeCount(begin, end, p.Step, p.Mode), nil
	default:
		return 0, fmt.Errorf("slice: unknown mode %v", p.Mode)
	}
}

func onceIterator(s Slice) func() (Slice, bool) {
	done := false
	return func() (Slice, bool) {
		if done {
			return Slice{}, false
		}
		done = true
		return s, true
	}
}

func (p Planner) parseRange() (begin, end uint64, err error) {
	begin, err = strconv.ParseUint(p.Begin, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("slice: wrong value for number: %s", p.Begin)
	}
	end, err = strconv.ParseUint(p.End, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("slice: wrong value for number: %s", p.End)
	}
	return begin, end, nil
}

func rangeCount(begin, end, step uint64) uint64 {
	if end <= begin {
		return 0
	}
	if step == 0 {
		step = 1
	}
	n := end - begin
	full := n / step
	if n%step != 0 {
		full++
	}
	return full
}

func (p Planner) rangeIterator() (func() (Slice, bool), error) {
	begin, end, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	step := p.Step
	if step == 0 {
		step = 1
	}
	curr := begin
	return func() (Slice, bool) {
		if curr >= end {
			return Slice{}, false
		}
		next := curr + step
		last := next - 1
		s := Slice{Begin: strconv.FormatUint(curr, 10), End: strconv.FormatUint(last, 10)}
		curr = next
		return s, true
	}, nil
}

func parseSolrDateTime(value string) (time.Time, error) {
	layouts := []string{"2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("slice: wrong value for date: %q: %w", value, lastErr)
}

func (p Planner) parseTime() (begin, end time.Time, err error) {
	begin, err = parseSolrDateTime(p.Begin)
	if err != nil {
		return
	}
	end, err = parseSolrDateTime(p.End)
	return
}

func interval(mode Mode, step uint64) time.Duration {
	switch mode {
	case Minute:
		return time.Duration(step) * time.Minute
	case Hour:
		return time.Duration(step) * time.Hour
	case Day:
		return time.Duration(step) * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

func timeCount(begin, end time.Time, step uint64, mode Mode) uint64 {
	dur := end.Sub(begin)
	if dur <= 0 {
		return 0
	}
	unit := interval(mode, 1)
	whole := uint64(dur / unit)
	if dur%unit != 0 {
		whole++
	}
	if step == 0 {
		step = 1
	}
	full := whole / step
	if whole%step != 0 {
		full++
	}
	return full
}

func (p Planner) timeIterator() (func() (Slice, bool), error) {
	begin, end, err := p.parseTime()
	if err != nil {
		return nil, err
	}
	n := p.Step
	if n == 0 {
		n = 1
	}
	step := interval(p.Mode, n)
	curr := begin
	return func() (Slice, bool) {
		if !curr.Before(end) {
			return Slice{}, false
		}
		last := curr.Add(step).Add(-time.Second)
		if last.After(end) {
			last = end
		}
		s := Slice{Begin: formatSolrTime(curr), End: formatSolrTime(last)}
		curr = curr.Add(step)
		return s, true
	}, nil
}

func formatSolrTime(t time.Time) string {
	return t.UTC().Format(solrTimeLayout)
}
