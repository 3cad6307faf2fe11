// pkg/model/report.go
package model

import "time"

// Count source names as they appear in reports.
const (
	SourceLegacy     = "dynamo"
	SourceRelational = "postgres"
	SourceIndex      = "elasticsearch"
)

// CountSnapshot is one measured record count: entity kind crossed
// with source system, scoped to records at or after the cutoff
// instant. Snapshots are comparison inputs only and are never
// persisted as authoritative state.
type CountSnapshot struct {
	Kind   EntityKind `json:"kind"`
	Source string     `json:"source"`
	Count  int64      `json:"count"`

	// Applicable is false when the source has no analogue for this
	// entity kind. A count of zero with Applicable true is a real
	// measured zero; the two states are never conflated.
	Applicable bool `json:"applicable"`

	// Filtered is false for sources that cannot scope a count to the
	// cutoff (a legacy table scan counts the whole table).
	Filtered bool      `json:"filtered"`
	Cutoff   time.Time `json:"cutoff"`
}

// EntityDrift holds the per-kind comparison of source counts.
type EntityDrift struct {
	Kind         EntityKind       `json:"kind"`
	SourceCounts map[string]int64 `json:"sourceCounts"`

	// Delta is legacy count minus relational count. Zero means fully
	// migrated as of the cutoff.
	Delta int64 `json:"delta"`

	// IndexDelta is the parallel delta against the index mirror,
	// nil when the mirror has no analogue for this kind.
	IndexDelta *int64 `json:"indexDelta,omitempty"`

	FullyMigrated bool `json:"fullyMigrated"`
}

// CollectionDiscrepancy describes a collection whose related child
// entities are not fully represented in the relational store. It is
// computed outside the reporter and carried through opaquely.
type CollectionDiscrepancy struct {
	Collection        string `json:"collection"`
	MissingGranules   int64  `json:"missingGranules"`
	MissingExecutions int64  `json:"missingExecutions"`
}

// ReconciliationReport is the drift report for one invocation.
// It is immutable once produced; a new invocation produces a new
// report rather than accumulating history.
type ReconciliationReport struct {
	RunID       string                     `json:"runId"`
	StackName   string                     `json:"stackName"`
	Cutoff      time.Time                  `json:"cutoff"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Entities    map[EntityKind]EntityDrift `json:"entities"`

	CollectionDiscrepancies []CollectionDiscrepancy `json:"collectionDiscrepancies,omitempty"`

	// ReportLocation is the external location the serialized report
	// was written to, empty when no report sink was configured or the
	// sink failed.
	ReportLocation string `json:"reportLocation,omitempty"`
}
