package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// frontierEntry pairs a URL with the depth at which it was discovered.
type frontierEntry struct {
	url   string
	depth int
}

// Frontier is the breadth-first work queue for one crawl run.
// It owns the visited set for that run: once a URL (or its canonical
// form) is marked, it is never yielded again, even if reached later via
// a different link path or at a shallower depth. First-seen depth wins.
//
// Design decision: the visited set lives here, scoped to one Frontier
// instance, never in package state. Repeated runs and concurrent runs
// of different domains therefore cannot interfere. The mutex makes
// check-then-mark one atomic step so a future concurrent fetch pool
// preserves the visit-at-most-once invariant.
type Frontier struct {
	// baseHost scopes the crawl; candidates must match it or be a
	// subdomain of it.
	baseHost string

	// maxDepth bounds the BFS. Entries deeper than this are discarded.
	maxDepth int

	queue   []frontierEntry
	visited map[string]bool
	mu      sync.Mutex
}

// NewFrontier creates a Frontier scoped to the base URL's host with the
// given depth bound.
func NewFrontier(base *url.URL, maxDepth int) *Frontier {
	return &Frontier{
		baseHost: strings.ToLower(base.Hostname()),
		maxDepth: maxDepth,
		queue:    make([]frontierEntry, 0),
		visited:  make(map[string]bool),
	}
}

// Seed enqueues the given URLs at depth 0, dropping any that are not
// same-domain. It returns how many were accepted.
func (f *Frontier) Seed(seeds []string) int {
	accepted := 0
	for _, s := range seeds {
		if !f.InDomain(s) {
			continue
		}
		f.mu.Lock()
		f.queue = append(f.queue, frontierEntry{url: normalizeURL(s), depth: 0})
		f.mu.Unlock()
		accepted++
	}
	return accepted
}

// Push enqueues a child URL at the given depth unless it was already
// visited. The queue may still hold duplicates; Next filters them.
func (f *Frontier) Push(rawURL string, depth int) {
	normalized := normalizeURL(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visited[normalized] {
		return
	}
	f.queue = append(f.queue, frontierEntry{url: normalized, depth: depth})
}

// Next pops the next URL to visit. Already-visited entries and entries
// beyond the depth bound are discarded per item, not treated as a
// traversal-ending event. The yielded URL is atomically marked visited.
// ok is false when the queue is drained.
func (f *Frontier) Next() (pageURL string, depth int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) > 0 {
		entry := f.queue[0]
		f.queue = f.queue[1:]

		if entry.depth > f.maxDepth || f.visited[entry.url] {
			continue
		}

		f.visited[entry.url] = true
		return entry.url, entry.depth, true
	}

	return "", 0, false
}

// MarkVisited records a URL as visited without yielding it. The engine
// uses this to short-circuit a page's canonical form so other raw links
// resolving to the same canonical target are never fetched.
func (f *Frontier) MarkVisited(rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[normalizeURL(rawURL)] = true
}

// Visited reports whether a URL has been visited.
func (f *Frontier) Visited(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[normalizeURL(rawURL)]
}

// InDomain reports whether the URL's host is the base host or one of
// its subdomains. The comparison is suffix-based on label boundaries,
// so "notexample.com" does not match base "example.com".
func (f *Frontier) InDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	return host == f.baseHost || strings.HasSuffix(host, "."+f.baseHost)
}

// QueueLen returns the number of queued entries, duplicates included.
func (f *Frontier) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// normalizeURL normalizes a URL for deduplication: fragment removed,
// scheme and host lowercased, empty path treated as "/".
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
