package crawler

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
)

// defaultSitemapTreeDepth bounds recursion through nested sitemap
// indexes. Real sites rarely nest past two levels; the bound defends
// against malformed or malicious self-referential indexes.
const defaultSitemapTreeDepth = 8

// xmlURLSet is the root element of a standard sitemap file.
type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlLoc `xml:"url"`
}

// xmlSitemapIndex is the root element of a sitemap index file.
type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []xmlLoc `xml:"sitemap"`
}

// xmlLoc is a <url> or <sitemap> entry carrying a <loc> child.
type xmlLoc struct {
	Loc string `xml:"loc"`
}

// SitemapResolver resolves robots.txt sitemap declarations into a flat
// set of candidate URLs, recursing through sitemap indexes.
type SitemapResolver struct {
	fetcher  Fetcher
	maxDepth int
	logger   *slog.Logger
}

// SitemapResolverOption configures a SitemapResolver.
type SitemapResolverOption func(*SitemapResolver)

// WithSitemapTreeDepth overrides the nested-index depth bound.
func WithSitemapTreeDepth(depth int) SitemapResolverOption {
	return func(r *SitemapResolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithSitemapLogger sets the resolver's logger.
func WithSitemapLogger(logger *slog.Logger) SitemapResolverOption {
	return func(r *SitemapResolver) {
		r.logger = logger
	}
}

// NewSitemapResolver creates a resolver that fetches via the given Fetcher.
func NewSitemapResolver(fetcher Fetcher, opts ...SitemapResolverOption) *SitemapResolver {
	r := &SitemapResolver{
		fetcher:  fetcher,
		maxDepth: defaultSitemapTreeDepth,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Resolve fetches robots.txt relative to the base URL, collects its
// Sitemap: declarations, and expands them into leaf URLs. A missing or
// unfetchable robots.txt yields an empty result, not an error; a failed
// or malformed sitemap prunes that branch only. The pruned-branch count
// is returned so callers can surface partial resolution.
//
// When robots.txt declares no sitemaps, the conventional /sitemap.xml
// location is probed. The probe is speculative: its absence is the
// normal case for sites without a sitemap and is not counted as a
// pruned branch. A probe that exists but is malformed still counts.
//
// Design decision: nested indexes are walked with an explicit worklist
// instead of recursion, which makes the depth bound and the seen-set
// easy to enforce against hostile input.
func (r *SitemapResolver) Resolve(ctx context.Context, base string) (urls []string, pruned int) {
	roots := r.sitemapsFromRobots(ctx, base)
	probe := false
	if len(roots) == 0 {
		baseURL, err := url.Parse(base)
		if err != nil {
			return nil, 0
		}
		ref, _ := url.Parse("/sitemap.xml")
		roots = []string{baseURL.ResolveReference(ref).String()}
		probe = true
	}

	type workItem struct {
		url   string
		depth int

		// probe marks the speculative /sitemap.xml root; a fetch
		// failure there is expected, not a pruned branch.
		probe bool
	}

	work := make([]workItem, 0, len(roots))
	seen := make(map[string]bool)
	for _, sm := range roots {
		work = append(work, workItem{url: sm, depth: 0, probe: probe})
	}

	leaves := make([]string, 0)
	leafSeen := make(map[string]bool)

	for len(work) > 0 {
		select {
		case <-ctx.Done():
			return leaves, pruned
		default:
		}

		item := work[0]
		work = work[1:]

		if seen[item.url] {
			continue
		}
		if item.depth > r.maxDepth {
			r.logger.Debug("sitemap nesting bound hit", "url", item.url)
			pruned++
			continue
		}
		seen[item.url] = true

		res, err := r.fetcher.Fetch(ctx, item.url)
		if err != nil || !res.IsSuccess() {
			r.logger.Debug("sitemap branch pruned", "url", item.url, "error", err)
			if !item.probe {
				pruned++
			}
			continue
		}

		children, pageURLs, parseErr := parseSitemap(res.Body)
		if parseErr != nil {
			r.logger.Debug("sitemap parse failed", "url", item.url, "error", parseErr)
			pruned++
			continue
		}

		for _, child := range children {
			work = append(work, workItem{url: child, depth: item.depth + 1})
		}
		for _, leaf := range pageURLs {
			if !leafSeen[leaf] {
				leafSeen[leaf] = true
				leaves = append(leaves, leaf)
			}
		}
	}

	return leaves, pruned
}

// sitemapsFromRobots fetches robots.txt and returns the declared sitemap
// URLs. Absence or failure is not an error: discovery proceeds from
// seeds alone.
func (r *SitemapResolver) sitemapsFromRobots(ctx context.Context, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	robotsRef, _ := url.Parse("/robots.txt")
	robotsURL := baseURL.ResolveReference(robotsRef).String()

	res, err := r.fetcher.Fetch(ctx, robotsURL)
	if err != nil || !res.IsSuccess() {
		r.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}

	var sitemaps []string
	for _, line := range strings.Split(string(res.Body), "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len("sitemap:") {
			continue
		}
		if !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		value := strings.TrimSpace(line[len("sitemap:"):])
		if value == "" {
			continue
		}
		// Sitemap URLs are absolute per the protocol, but resolve
		// against the base to tolerate relative declarations.
		if ref, err := url.Parse(value); err == nil {
			sitemaps = append(sitemaps, baseURL.ResolveReference(ref).String())
		}
	}

	return sitemaps
}

// parseSitemap decodes sitemap XML. A <sitemapindex> root yields child
// sitemap URLs; a <urlset> root yields leaf page URLs.
//
// encoding/xml does not resolve external entities, which is exactly the
// behavior wanted for untrusted input.
func parseSitemap(body []byte) (children, leaves []string, err error) {
	var index xmlSitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil {
		for _, sm := range index.Sitemaps {
			if loc := strings.TrimSpace(sm.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return children, nil, nil
	}

	var urlset xmlURLSet
	if err := xml.Unmarshal(body, &urlset); err != nil {
		return nil, nil, err
	}
	for _, u := range urlset.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			leaves = append(leaves, loc)
		}
	}
	return nil, leaves, nil
}
