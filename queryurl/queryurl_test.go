package queryurl

import "testing"

func TestBuilderEncodesFieldsAndFilters(t *testing.T) {
	got := New().Q("*:*").AddFilter("kind:invoice").Fields([]string{"id", "title"}).BuildURL("http://x/core/select")

	want := "http://x/core/select?fl=id%2Ctitle&fq=kind%3Ainvoice&omitHeader=true&q=%2A%3A%2A&wt=json"
	if got != want {
		t.Fatalf("BuildURL() = %q, want %q", got, want)
	}
}

func TestBuilderPage(t *testing.T) {
	got := New().Page(10, 5).BuildURL("http://x/core/select")
	want := "http://x/core/select?omitHeader=true&rows=5&start=10&wt=json"
	if got != want {
		t.Fatalf("BuildURL() = %q, want %q", got, want)
	}
}

func TestSubstituteSliceFillsBounds(t *testing.T) {
	got := SubstituteSlice("ts:[{begin} TO {end}]", "2020-04-01T00:00:00Z", "2020-04-02T00:00:00Z")
	want := "ts:[2020-04-01T00:00:00Z TO 2020-04-02T00:00:00Z]"
	if got != want {
		t.Fatalf("SubstituteSlice() = %q, want %q", got, want)
	}
}

func TestSubstituteSliceUppercasesBooleans(t *testing.T) {
	got := SubstituteSlice("kind:invoice or kind:credit and not kind:draft", "", "")
	want := "kind:invoice OR kind:credit AND NOT kind:draft"
	if got != want {
		t.Fatalf("SubstituteSlice() = %q, want %q", got, want)
	}
}

func TestSubstituteSliceLeavesEmbeddedWordsAlone(t *testing.T) {
	got := SubstituteSlice("title:another name:norton", "", "")
	want := "title:another name:norton"
	if got != want {
		t.Fatalf("SubstituteSlice() = %q, want %q", got, want)
	}
}
