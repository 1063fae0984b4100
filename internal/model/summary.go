package model

import "time"

// Priority tiers for discovered URLs. High-priority entities are the
// ones downstream scraping should process first.
const (
	// PriorityHigh marks URLs whose entity is in the configured
	// high-priority set.
	PriorityHigh = "P1"

	// PriorityStandard marks every other in-scope URL.
	PriorityStandard = "P2"
)

// Summary condenses a discovery report for display: entity counts,
// priority tiers, and run tallies, without the full inventory detail.
type Summary struct {
	// Base is the base URL the run was scoped to.
	Base string `json:"base"`

	// DateStarted is when the run began.
	DateStarted time.Time `json:"date_started"`

	// Elapsed is the total run duration.
	Elapsed time.Duration `json:"elapsed"`

	// TotalURLs is the number of unique in-scope URLs discovered.
	TotalURLs int `json:"total_urls"`

	// Entities lists per-entity URL counts, largest first.
	Entities []EntityCount `json:"entities"`

	// HighPriority holds the P1 records, sorted by URL.
	HighPriority []URLRecord `json:"high_priority"`

	// Standard holds the P2 records, sorted by URL.
	Standard []URLRecord `json:"standard"`

	// Stats carries the run tallies.
	Stats Stats `json:"stats"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error holds the run's first error message, if any.
	Error string `json:"error,omitempty"`
}

// NewSummary builds a Summary from a discovery report. Records whose
// entity is in highPriorityEntities land in the P1 tier, everything
// else in P2. A nil or empty entity list puts every record in P2.
func NewSummary(report *DiscoveryReport, highPriorityEntities []string) *Summary {
	prioritized := make(map[string]bool, len(highPriorityEntities))
	for _, e := range highPriorityEntities {
		prioritized[e] = true
	}

	s := &Summary{
		Base:        report.Base,
		DateStarted: report.DateStarted,
		Elapsed:     report.Elapsed,
		Cancelled:   report.Cancelled,
		Error:       report.ErrorMessage,
	}

	if report.Inventory == nil {
		return s
	}

	s.TotalURLs = report.Inventory.Len()
	s.Entities = report.Inventory.EntityCounts()
	s.Stats = report.Inventory.Stats

	for _, rec := range report.Inventory.Records() {
		if prioritized[rec.Entity] {
			s.HighPriority = append(s.HighPriority, rec)
		} else {
			s.Standard = append(s.Standard, rec)
		}
	}

	return s
}

// PriorityOf returns the tier label for a record given the summary's
// partitioning.
func (s *Summary) PriorityOf(rec URLRecord) string {
	for _, hp := range s.HighPriority {
		if hp.URL == rec.URL {
			return PriorityHigh
		}
	}
	return PriorityStandard
}
