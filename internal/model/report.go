package model

import "time"

// DiscoveryReport is the accumulated result of one discovery run.
// Pipeline steps receive it and add their findings; partial results are
// valid results, so the report is returned even when a run is cancelled
// or a step fails.
type DiscoveryReport struct {
	// Base is the normalized base URL the run was scoped to.
	Base string `json:"base"`

	// Seeds are the seed URLs the crawl started from.
	Seeds []string `json:"seeds"`

	// DateStarted is when the run began.
	DateStarted time.Time `json:"date_started"`

	// Elapsed is the total run duration.
	Elapsed time.Duration `json:"elapsed"`

	// Inventory holds the classified hit map and run tallies.
	Inventory *Inventory `json:"inventory"`

	// Summary is the display-oriented condensation of the inventory.
	// Populated by the summary pipeline step; writers generate one on
	// the fly when it is nil.
	Summary *Summary `json:"summary,omitempty"`

	// PerformedSteps lists pipeline steps executed, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run was stopped by the cancellation
	// signal before the frontier drained.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error holds the first step error, if any.
	// The inventory still contains everything accumulated before it.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialized reports.
	ErrorMessage string `json:"error,omitempty"`
}

// NewDiscoveryReport creates a report for the given base and seeds with
// an empty inventory.
func NewDiscoveryReport(base string, seeds []string) *DiscoveryReport {
	return &DiscoveryReport{
		Base:        base,
		Seeds:       seeds,
		DateStarted: time.Now(),
		Inventory:   NewInventory(),
	}
}
