package load

import "strconv"

// CommitMode selects the commit discipline appended to each restore POST.
// Grounded on the original solrcopy's CommitMode enum (src/args.rs).
type CommitMode interface {
	// Param returns the query-string fragment for this mode, prefixed with
	// sep ("?" or "&"), or "" for None.
	Param(sep string) string
}

// None appends no commit parameter; the final hard commit (unless disabled)
// is the only commit that happens.
type None struct{}

func (None) Param(string) string { return "" }

// Soft appends softCommit=true to every document POST.
type Soft struct{}

func (Soft) Param(sep string) string { return sep + "softCommit=true" }

// Hard appends commit=true to every document POST.
type Hard struct{}

func (Hard) Param(sep string) string { return sep + "commit=true" }

// Within appends commitWithin=<millis> to every document POST.
type Within struct{ Millis int }

func (w Within) Param(sep string) string {
	return sep + "commitWithin=" + strconv.Itoa(w.Millis)
}
