// pkg/reconcile/runner.go
package reconcile

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// Runner orchestrates one reconciliation invocation: collect every
// count, assemble the report, and optionally persist it. The
// invocation either completes with a full report or fails outright;
// there is no partially-populated report.
type Runner struct {
	aggregator *Aggregator
	reporter   *Reporter
	sink       connector.ReportSink // nil means return-only
	reportPath string
	logger     *zap.Logger

	// Discrepancies are computed separately by the caller and carried
	// through the report opaquely.
	discrepancies []model.CollectionDiscrepancy
}

// NewRunner creates a reconciliation runner
func NewRunner(aggregator *Aggregator, reporter *Reporter, logger *zap.Logger) *Runner {
	return &Runner{
		aggregator: aggregator,
		reporter:   reporter,
		logger:     logger.Named("reconcile"),
	}
}

// WithSink sets the report sink and destination path prefix
func (r *Runner) WithSink(sink connector.ReportSink, reportPath string) *Runner {
	r.sink = sink
	r.reportPath = reportPath
	return r
}

// WithDiscrepancies sets the caller-computed collection discrepancies
func (r *Runner) WithDiscrepancies(discrepancies []model.CollectionDiscrepancy) *Runner {
	r.discrepancies = discrepancies
	return r
}

// Run performs one reconciliation. A failed count aborts the run with
// no report; a failed persistence is logged and the in-memory report
// is still returned to the caller.
func (r *Runner) Run(ctx context.Context, kinds []model.EntityKind, cutoff time.Time) (*model.ReconciliationReport, error) {
	snapshots, err := r.aggregator.Collect(ctx, kinds, cutoff)
	if err != nil {
		return nil, fmt.Errorf("reconciliation aborted: %w", err)
	}

	report := r.reporter.BuildReport(snapshots, r.discrepancies, cutoff)

	if r.sink != nil {
		key := path.Join(r.reportPath, fmt.Sprintf("reconciliation-%s.json", report.RunID))
		location, err := r.sink.Persist(ctx, key, report)
		if err != nil {
			// Sink failure does not invalidate the report.
			r.logger.Error("Failed to persist report", zap.Error(err))
		} else {
			report.ReportLocation = location
		}
	}

	r.logger.Info("Reconciliation completed",
		zap.String("runId", report.RunID),
		zap.Int("entityKinds", len(report.Entities)),
		zap.String("location", report.ReportLocation))

	return report, nil
}
