package types

import (
	"sort"
	"time"
)

// References is the set of file URLs a file refers to
type References struct {
	urls map[string]struct{}
}

// NewReferences builds a reference set
func NewReferences(urls ...string) References {
	r := References{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		r.urls[u] = struct{}{}
	}
	return r
}

// Contains reports whether url is referenced
func (r References) Contains(url string) bool {
	_, ok := r.urls[url]
	return ok
}

// Len returns the number of referenced files
func (r References) Len() int {
	return len(r.urls)
}

// URLs returns the referenced URLs in sorted order
func (r References) URLs() []string {
	out := make([]string, 0, len(r.urls))
	for u := range r.urls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ReferencesResult carries references together with the time spent computing them
type ReferencesResult struct {
	Value    References
	Duration time.Duration
}
