package page

import "testing"

func TestPlannerScenario(t *testing.T) {
	p := Planner{Skip: 3, Limit: 42, NumDocs: 5, URL: "http://x/select?wt=json"}

	wantStart := []uint64{3, 8, 13, 18, 23, 28, 33, 38}
	wantRows := []uint64{5, 5, 5, 5, 5, 5, 5, 4}

	next := p.Iterator()
	var gotStart, gotRows []uint64
	for s, ok := next(); ok; s, ok = next() {
		gotStart = append(gotStart, s.Offset)
		gotRows = append(gotRows, rowsFromURL(t, s.URL))
	}

	if len(gotStart) != len(wantStart) {
		t.Fatalf("got %d steps, want %d", len(gotStart), len(wantStart))
	}
	for i := range wantStart {
		if gotStart[i] != wantStart[i] {
			t.Fatalf("step %d start = %d, want %d", i, gotStart[i], wantStart[i])
		}
		if gotRows[i] != wantRows[i] {
			t.Fatalf("step %d rows = %d, want %d", i, gotRows[i], wantRows[i])
		}
	}

	if n := p.Count(); n != 8 {
		t.Fatalf("Count() = %d, want 8", n)
	}
}

func TestPlannerEmptyRange(t *testing.T) {
	p := Planner{Skip: 10, Limit: 10, NumDocs: 5, URL: "http://x"}
	next := p.Iterator()
	if _, ok := next(); ok {
		t.Fatal("expected no steps when skip == limit")
	}
	if n := p.Count(); n != 0 {
		t.Fatalf("Count() = %d, want 0", n)
	}
}

func rowsFromURL(t *testing.T, url string) uint64 {
	t.Helper()
	var rows uint64
	idx := -1
	for i := 0; i+6 <= len(url); i++ {
		if url[i:i+6] == "&rows=" {
			idx = i + 6
			break
		}
	}
	if idx < 0 {
		t.Fatalf("no &rows= in %q", url)
	}
	for _, c := range url[idx:] {
		if c < '0' || c > '9' {
			break
		}
		rows = rows*10 + uint64(c-'0')
	}
	return rows
}
