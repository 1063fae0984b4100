package model

import (
	"encoding/json"
	"sort"
)

// DiscoverySource indicates how a URL entered the inventory.
type DiscoverySource string

// Discovery sources.
const (
	// SourceSitemap marks URLs collected from robots.txt sitemap resolution.
	// Sitemap URLs are trusted to exist and are recorded without fetching.
	SourceSitemap DiscoverySource = "sitemap"

	// SourceCrawl marks URLs discovered by following hyperlinks.
	SourceCrawl DiscoverySource = "crawl"
)

// StatusTodo is the initial workflow status assigned to every discovered URL.
// Downstream consumers update the status as pages are scraped or reviewed;
// discovery itself never advances it.
const StatusTodo = "todo"

// URLRecord is one classified, in-scope URL in the inventory.
// Uniqueness is by canonical URL string.
type URLRecord struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Entity is the classification label propagated from the matching
	// include rule (e.g. "plan", "device", "promo").
	Entity string `json:"entity"`

	// Source records whether the URL came from a sitemap or the crawl.
	Source DiscoverySource `json:"source"`

	// Depth is the BFS depth at which the URL was first reached.
	// Always 0 for sitemap entries.
	Depth int `json:"depth"`

	// Status is the workflow status, always StatusTodo at discovery time.
	Status string `json:"status"`
}

// Stats holds observable tallies for one discovery run.
// Skipped work is counted rather than silently dropped so that callers
// and tests can verify that failures did not abort the run.
type Stats struct {
	// SitemapURLs is the number of candidate URLs resolved from sitemaps.
	SitemapURLs int `json:"sitemap_urls"`

	// PagesFetched is the number of pages fetched during the crawl.
	PagesFetched int `json:"pages_fetched"`

	// FetchErrors counts transport-level fetch failures (timeouts included).
	FetchErrors int `json:"fetch_errors"`

	// HTTPErrors counts fetches that returned a non-2xx status.
	HTTPErrors int `json:"http_errors"`

	// ParseErrors counts fetched pages whose HTML could not be parsed.
	// The page is skipped; its links are lost.
	ParseErrors int `json:"parse_errors"`

	// SitemapErrors counts sitemap branches pruned by fetch or parse failure.
	SitemapErrors int `json:"sitemap_errors"`

	// OffDomain counts extracted links dropped for being outside the base domain.
	OffDomain int `json:"off_domain"`

	// OutOfScope counts classified URLs that matched no include rule or
	// matched an exclude rule. This is the expected miss outcome, not an error.
	OutOfScope int `json:"out_of_scope"`

	// RobotsDenied counts URLs skipped because robots.txt disallows them.
	RobotsDenied int `json:"robots_denied"`
}

// Inventory is the deduplicated hit map produced by a discovery run.
// A URL appears at most once regardless of how many raw links resolved
// to it; the first record wins.
//
// Design decision: insertion order is irrelevant, so records are stored
// in a map and sorted by URL only at emission time. This keeps dedup O(1)
// while guaranteeing deterministic output.
type Inventory struct {
	hits map[string]URLRecord

	// Stats accumulates skip and progress tallies for the run.
	Stats Stats
}

// NewInventory creates an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{hits: make(map[string]URLRecord)}
}

// Record adds a URL record to the inventory.
// It returns false if the URL was already recorded; the existing record
// is kept unchanged.
func (inv *Inventory) Record(rec URLRecord) bool {
	if _, ok := inv.hits[rec.URL]; ok {
		return false
	}
	if rec.Status == "" {
		rec.Status = StatusTodo
	}
	inv.hits[rec.URL] = rec
	return true
}

// Has reports whether the URL is already in the inventory.
func (inv *Inventory) Has(url string) bool {
	_, ok := inv.hits[url]
	return ok
}

// Get returns the record for a URL, if present.
func (inv *Inventory) Get(url string) (URLRecord, bool) {
	rec, ok := inv.hits[url]
	return rec, ok
}

// Len returns the number of unique URLs recorded.
func (inv *Inventory) Len() int {
	return len(inv.hits)
}

// Records returns all records sorted by URL for deterministic emission.
func (inv *Inventory) Records() []URLRecord {
	recs := make([]URLRecord, 0, len(inv.hits))
	for _, rec := range inv.hits {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].URL < recs[j].URL })
	return recs
}

// inventoryJSON is the serialized form of an Inventory. Records are
// emitted sorted by URL so serialized inventories are deterministic.
type inventoryJSON struct {
	Records []URLRecord `json:"records"`
	Stats   Stats       `json:"stats"`
}

// MarshalJSON implements json.Marshaler.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inventoryJSON{
		Records: inv.Records(),
		Stats:   inv.Stats,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var raw inventoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inv.hits = make(map[string]URLRecord, len(raw.Records))
	for _, rec := range raw.Records {
		inv.hits[rec.URL] = rec
	}
	inv.Stats = raw.Stats
	return nil
}

// EntityCount pairs an entity label with how many URLs carry it.
type EntityCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// EntityCounts returns per-entity URL counts sorted by count descending,
// ties broken by entity name for determinism.
func (inv *Inventory) EntityCounts() []EntityCount {
	counts := make(map[string]int)
	for _, rec := range inv.hits {
		counts[rec.Entity]++
	}

	result := make([]EntityCount, 0, len(counts))
	for entity, n := range counts {
		result = append(result, EntityCount{Entity: entity, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Entity < result[j].Entity
	})
	return result
}
