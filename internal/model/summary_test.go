package model

import "testing"

func TestNewSummary(t *testing.T) {
	t.Parallel()

	t.Run("partitions records into priority tiers", func(t *testing.T) {
		t.Parallel()

		report := NewDiscoveryReport("https://example.com", nil)
		report.Inventory.Record(URLRecord{URL: "https://example.com/plans/a", Entity: "plan", Source: SourceCrawl})
		report.Inventory.Record(URLRecord{URL: "https://example.com/devices/b", Entity: "device", Source: SourceSitemap})
		report.Inventory.Record(URLRecord{URL: "https://example.com/support", Entity: "support", Source: SourceCrawl})

		s := NewSummary(report, []string{"plan", "device"})
		if s.TotalURLs != 3 {
			t.Errorf("TotalURLs = %d, want 3", s.TotalURLs)
		}
		if len(s.HighPriority) != 2 {
			t.Errorf("len(HighPriority) = %d, want 2", len(s.HighPriority))
		}
		if len(s.Standard) != 1 {
			t.Errorf("len(Standard) = %d, want 1", len(s.Standard))
		}
		if got := s.PriorityOf(URLRecord{URL: "https://example.com/plans/a"}); got != PriorityHigh {
			t.Errorf("PriorityOf(plan) = %q, want %q", got, PriorityHigh)
		}
		if got := s.PriorityOf(URLRecord{URL: "https://example.com/support"}); got != PriorityStandard {
			t.Errorf("PriorityOf(support) = %q, want %q", got, PriorityStandard)
		}
	})

	t.Run("no priority entities puts everything in standard", func(t *testing.T) {
		t.Parallel()

		report := NewDiscoveryReport("https://example.com", nil)
		report.Inventory.Record(URLRecord{URL: "https://example.com/plans/a", Entity: "plan", Source: SourceCrawl})

		s := NewSummary(report, nil)
		if len(s.HighPriority) != 0 {
			t.Errorf("len(HighPriority) = %d, want 0", len(s.HighPriority))
		}
		if len(s.Standard) != 1 {
			t.Errorf("len(Standard) = %d, want 1", len(s.Standard))
		}
	})

	t.Run("nil inventory yields empty summary", func(t *testing.T) {
		t.Parallel()

		report := &DiscoveryReport{Base: "https://example.com"}
		s := NewSummary(report, []string{"plan"})
		if s.TotalURLs != 0 {
			t.Errorf("TotalURLs = %d, want 0", s.TotalURLs)
		}
	})
}
