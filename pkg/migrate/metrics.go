// pkg/migrate/metrics.go
package migrate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// maxErrorSamples caps how many error records are retained per entity
// kind; the full failure stream goes to the log.
const maxErrorSamples = 10

// KindCounts holds per-entity-kind outcome counters.
type KindCounts struct {
	Inserted int64         `json:"inserted"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Table    string        `json:"table,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Metrics tracks migration run statistics
type Metrics struct {
	mu          sync.Mutex
	logger      *zap.Logger
	runID       string
	startTime   time.Time
	counts      map[model.EntityKind]*KindCounts
	tableStarts map[model.EntityKind]time.Time
	samples     map[model.EntityKind][]ErrorRecord
}

// NewMetrics creates a metrics collector for one run
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		logger:      logger.Named("metrics"),
		runID:       uuid.New().String(),
		startTime:   time.Now(),
		counts:      make(map[model.EntityKind]*KindCounts),
		tableStarts: make(map[model.EntityKind]time.Time),
		samples:     make(map[model.EntityKind][]ErrorRecord),
	}
}

// RunID returns the unique identifier for this run
func (m *Metrics) RunID() string {
	return m.runID
}

// StartTable marks the beginning of one table's migration
func (m *Metrics) StartTable(kind model.EntityKind, table string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureKind(kind).Table = table
	m.tableStarts[kind] = time.Now()
}

// EndTable marks the end of one table's migration
func (m *Metrics) EndTable(kind model.EntityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if start, ok := m.tableStarts[kind]; ok {
		m.ensureKind(kind).Duration = time.Since(start)
	}
}

// RecordOutcome counts an inserted or skipped outcome. Failed
// outcomes are recorded through RecordFailure so transform and load
// failures are counted the same way.
func (m *Metrics) RecordOutcome(kind model.EntityKind, outcome model.MigrationOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.ensureKind(kind)
	switch outcome.Status {
	case model.StatusInserted:
		counts.Inserted++
	case model.StatusSkipped:
		counts.Skipped++
	}
}

// RecordFailure counts an isolated per-record failure and retains a
// bounded sample of error records.
func (m *Metrics) RecordFailure(kind model.EntityKind, record ErrorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureKind(kind).Failed++

	samples := m.samples[kind]
	if len(samples) < maxErrorSamples {
		m.samples[kind] = append(samples, record)
	}
}

// ErrorSamples returns a copy of the retained error records per kind
func (m *Metrics) ErrorSamples() map[model.EntityKind][]ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[model.EntityKind][]ErrorRecord, len(m.samples))
	for kind, records := range m.samples {
		copied := make([]ErrorRecord, len(records))
		copy(copied, records)
		out[kind] = copied
	}
	return out
}

// Summary is the final migration run summary.
type Summary struct {
	RunID         string                          `json:"runId"`
	StartTime     time.Time                       `json:"startTime"`
	EndTime       time.Time                       `json:"endTime"`
	Duration      time.Duration                   `json:"duration"`
	Kinds         map[model.EntityKind]KindCounts `json:"kinds"`
	TotalInserted int64                           `json:"totalInserted"`
	TotalSkipped  int64                           `json:"totalSkipped"`
	TotalFailed   int64                           `json:"totalFailed"`
}

// Summarize produces the final run summary
func (m *Metrics) Summarize() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	summary := &Summary{
		RunID:     m.runID,
		StartTime: m.startTime,
		EndTime:   now,
		Duration:  now.Sub(m.startTime),
		Kinds:     make(map[model.EntityKind]KindCounts, len(m.counts)),
	}

	for kind, counts := range m.counts {
		summary.Kinds[kind] = *counts
		summary.TotalInserted += counts.Inserted
		summary.TotalSkipped += counts.Skipped
		summary.TotalFailed += counts.Failed
	}

	return summary
}

// Report renders a human-readable run summary
func (m *Metrics) Report() string {
	summary := m.Summarize()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Migration run %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", summary.Duration.Round(time.Millisecond)))

	for _, kind := range model.AllKinds() {
		counts, ok := summary.Kinds[kind]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-16s inserted=%d skipped=%d failed=%d (%s)\n",
			kind, counts.Inserted, counts.Skipped, counts.Failed,
			counts.Duration.Round(time.Millisecond)))
	}

	sb.WriteString(fmt.Sprintf("Total: inserted=%d skipped=%d failed=%d\n",
		summary.TotalInserted, summary.TotalSkipped, summary.TotalFailed))

	return sb.String()
}

// ToJSON serializes the summary
func (m *Metrics) ToJSON() ([]byte, error) {
	return json.Marshal(m.Summarize())
}

func (m *Metrics) ensureKind(kind model.EntityKind) *KindCounts {
	counts, ok := m.counts[kind]
	if !ok {
		counts = &KindCounts{}
		m.counts[kind] = counts
	}
	return counts
}
