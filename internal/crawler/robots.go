package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate checks URLs against robots.txt Disallow rules with a
// per-host cache. Missing or unfetchable robots.txt means allow-all,
// which is standard crawling practice.
//
// The cache is scoped to the gate instance; a gate lives for one
// discovery run, so no TTL is needed.
type RobotsGate struct {
	fetcher   Fetcher
	userAgent string

	cache map[string]*robotsEntry // keyed by host
	mu    sync.Mutex
}

// robotsEntry holds the parsed rules for one host.
type robotsEntry struct {
	data     *robotstxt.RobotsData
	allowAll bool
}

// NewRobotsGate creates a RobotsGate that fetches robots.txt via the
// given Fetcher and evaluates rules for the given user agent.
func NewRobotsGate(fetcher Fetcher, userAgent string) *RobotsGate {
	return &RobotsGate{
		fetcher:   fetcher,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
	}
}

// Allowed reports whether robots.txt permits fetching the URL.
// Unparsable URLs are allowed through; the fetch itself will fail and
// be tallied there.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	entry := g.entryFor(ctx, u)
	if entry.allowAll {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return entry.data.TestAgent(path, g.userAgent)
}

// entryFor returns the cached entry for the URL's host, fetching and
// parsing robots.txt on first use.
func (g *RobotsGate) entryFor(ctx context.Context, u *url.URL) *robotsEntry {
	host := strings.ToLower(u.Host)

	g.mu.Lock()
	if entry, ok := g.cache[host]; ok {
		g.mu.Unlock()
		return entry
	}
	g.mu.Unlock()

	entry := g.fetchEntry(ctx, u)

	g.mu.Lock()
	g.cache[host] = entry
	g.mu.Unlock()

	return entry
}

// fetchEntry fetches and parses robots.txt for the URL's host.
// Any failure degrades to allow-all.
func (g *RobotsGate) fetchEntry(ctx context.Context, u *url.URL) *robotsEntry {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + u.Host + "/robots.txt"

	res, err := g.fetcher.Fetch(ctx, robotsURL)
	if err != nil || !res.IsSuccess() {
		return &robotsEntry{allowAll: true}
	}

	data, err := robotstxt.FromBytes(res.Body)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}

	return &robotsEntry{data: data}
}
