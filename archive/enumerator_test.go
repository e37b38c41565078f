package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnumerateOrdering(t *testing.T) {
	dir := t.TempDir()
	names := []string{"mycore_b.zip", "mycore_a.zip", "mycore_c.zip"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte{}, 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", n, err)
		}
	}

	asc, err := Enumerate(dir, "mycore*.zip", OrderAsc)
	if err != nil {
		t.Fatalf("Enumerate(asc) error = %v", err)
	}
	wantAsc := []string{"mycore_a.zip", "mycore_b.zip", "mycore_c.zip"}
	for i, w := range wantAsc {
		if filepath.Base(asc[i]) != w {
			t.Fatalf("asc[%d] = %s, want %s", i, filepath.Base(asc[i]), w)
		}
	}

	desc, err := Enumerate(dir, "mycore*.zip", OrderDesc)
	if err != nil {
		t.Fatalf("Enumerate(desc) error = %v", err)
	}
	for i, w := range []string{"mycore_c.zip", "mycore_b.zip", "mycore_a.zip"} {
		if filepath.Base(desc[i]) != w {
			t.Fatalf("desc[%d] = %s, want %s", i, filepath.Base(desc[i]), w)
		}
	}
}

func TestEnumerateNoMatches(t *testing.T) {
	dir := t.TempDir()
	matches, err := Enumerate(dir, "nope*.zip", OrderNone)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(matches))
	}
}
