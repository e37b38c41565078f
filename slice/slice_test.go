package slice

import "testing"

func TestDayModeProducesThreeSlices(t *testing.T) {
	p := Planner{Begin: "2020-04-01", End: "2020-04-03T11:12:13", Step: 1, Mode: Day}

	next, err := p.Iterator()
	if err != nil {
		t.Fatalf("Iterator() error = %v", err)
	}

	want := []Slice{
		{Begin: "2020-04-01T00:00:00Z", End: "2020-04-01T23:59:59Z"},
		{Begin: "2020-04-02T00:00:00Z", End: "2020-04-02T23:59:59Z"},
		{Begin: "2020-04-03T00:00:00Z", End: "2020-04-03T11:12:13Z"},
	}

	var got []Slice
	for s, ok := next(); ok; s, ok = next() {
		got = append(got, s)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d slices, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	count, err := p.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("Count() = %d, want 3", count)
	}
}

func TestNoSlicingYieldsOnePass(t *testing.T) {
	p := Planner{}

	next, err := p.Iterator()
	if err != nil {
		t.Fatalf("Iterator() error = %v", err)
	}

	s, ok := next()
	if !ok {
		t.Fatal("expected one slice, got none")
	}
	if s != (Slice{}) {
		t.Fatalf("got %+v, want empty slice", s)
	}

	if _, ok := next(); ok {
		t.Fatal("expected iterator to be exhausted after one slice")
	}

	count, err := p.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}
}

func TestRangeModeStepping(t *testing.T) {
	p := Planner{Begin: "0", End: "25", Step: 10, Mode: Range}

	next, err := p.Iterator()
	if err != nil {
		t.Fatalf("Iterator() error = %v", err)
	}

	want := []Slice{
		{Begin: "0", End: "9"},
		{Begin: "10", End: "19"},
		{Begin: "20", End: "29"},
	}
	var got []Slice
	for s, ok := next(); ok; s, ok = next() {
		got = append(got, s)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d slices, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEmptyTimeRangeYieldsNoSlices(t *testing.T) {
	p := Planner{Begin: "2020-01-02", End: "2020-01-01", Step: 1, Mode: Day}

	next, err := p.Iterator()
	if err != nil {
		t.Fatalf("Iterator() error = %v", err)
	}
	if _, ok := next(); ok {
		t.Fatal("expected no slices for an inverted range")
	}

	count, err := p.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}
}
