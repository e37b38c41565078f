package archive

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Order controls how Enumerate sorts the matched archive paths.
type Order int

const (
	OrderNone Order = iota
	OrderAsc
	OrderDesc
)

// ParseOrder maps a user-facing name to an Order.
func ParseOrder(name string) (Order, error) {
	switch name {
	case "", "none":
		return OrderNone, nil
	case "asc":
		return OrderAsc, nil
	case "desc":
		return OrderDesc, nil
	default:
		return OrderNone, fmt.Errorf("archive: unknown order %q", name)
	}
}

// Enumerate lists files in dir matching pattern (a filepath.Match glob,
// e.g. "mycore*.zip") and returns them in the requested Order. None keeps
// the order filepath.Glob returns, which is lexical within the directory.
func Enumerate(dir, pattern string, order Order) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("archive: bad pattern %q: %w", pattern, err)
	}

	switch order {
	case OrderAsc:
		sort.Strings(matches)
	case OrderDesc:
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	}
	return matches, nil
}

// Iterator returns a closure-based iterator over Enumerate's result, so
// restore can drive it the same way slice and page planners are driven.
func Iterator(dir, pattern string, order Order) (func() (string, bool), error) {
	paths, err := Enumerate(dir, pattern, order)
	if err != nil {
		return nil, err
	}
	i := 0
	return func() (string, bool) {
		if i >= len(paths) {
			return "", false
		}
		p := paths[i]
		i++
		return p, true
	}, nil
}
