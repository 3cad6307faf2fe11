// pkg/reconcile/reporter.go
package reconcile

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// Reporter assembles count snapshots into a drift report. Building a
// report is side-effect free; persistence is the Runner's concern.
type Reporter struct {
	stackName string
	logger    *zap.Logger
}

// NewReporter creates a reporter for a stack
func NewReporter(stackName string, logger *zap.Logger) *Reporter {
	return &Reporter{
		stackName: stackName,
		logger:    logger.Named("reporter"),
	}
}

// BuildReport computes per-kind deltas from a complete snapshot set.
// The per-collection mapping discrepancies are computed by the caller
// and carried through opaquely. One immutable report per invocation.
func (r *Reporter) BuildReport(
	snapshots []model.CountSnapshot,
	discrepancies []model.CollectionDiscrepancy,
	cutoff time.Time,
) *model.ReconciliationReport {
	report := &model.ReconciliationReport{
		RunID:                   uuid.New().String(),
		StackName:               r.stackName,
		Cutoff:                  cutoff,
		GeneratedAt:             time.Now().UTC(),
		Entities:                make(map[model.EntityKind]model.EntityDrift),
		CollectionDiscrepancies: discrepancies,
	}

	// Group applicable snapshots by kind. Not-applicable snapshots
	// contribute no count at all: a source with no analogue for a
	// kind must not masquerade as a measured zero.
	byKind := make(map[model.EntityKind]map[string]int64)
	for _, snapshot := range snapshots {
		if !snapshot.Applicable {
			continue
		}
		if byKind[snapshot.Kind] == nil {
			byKind[snapshot.Kind] = make(map[string]int64)
		}
		byKind[snapshot.Kind][snapshot.Source] = snapshot.Count
	}

	for kind, counts := range byKind {
		drift := model.EntityDrift{
			Kind:         kind,
			SourceCounts: counts,
		}

		legacy, hasLegacy := counts[model.SourceLegacy]
		relational, hasRelational := counts[model.SourceRelational]
		if hasLegacy && hasRelational {
			drift.Delta = legacy - relational
			drift.FullyMigrated = drift.Delta == 0
		}

		if index, ok := counts[model.SourceIndex]; ok && hasLegacy {
			indexDelta := legacy - index
			drift.IndexDelta = &indexDelta
		}

		if drift.FullyMigrated {
			r.logger.Info("No drift",
				zap.String("kind", string(kind)),
				zap.Int64("count", legacy))
		} else {
			r.logger.Warn("Drift detected",
				zap.String("kind", string(kind)),
				zap.Int64("legacyCount", legacy),
				zap.Int64("relationalCount", relational),
				zap.Int64("delta", drift.Delta))
		}

		report.Entities[kind] = drift
	}

	return report
}
