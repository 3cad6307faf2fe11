// pkg/reconcile/aggregator.go
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// Aggregator gathers record counts from every configured source.
// Counting is read-only, so independent kind x source pairs fan out
// concurrently; the snapshot set is only complete once every count
// has resolved, and any failure is fatal for the whole run.
type Aggregator struct {
	sources     []connector.CountSource
	concurrency int
	logger      *zap.Logger
}

// NewAggregator creates an aggregator over a set of count sources
func NewAggregator(sources []connector.CountSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		sources:     sources,
		concurrency: 4,
		logger:      logger.Named("aggregator"),
	}
}

// WithConcurrency sets the fan-out width
func (a *Aggregator) WithConcurrency(n int) *Aggregator {
	if n > 0 {
		a.concurrency = n
	}
	return a
}

// Collect gathers one snapshot per entity kind per source. In-flight
// counts are not cancelled once issued; Collect waits for all of them
// and returns the first error, never a partial snapshot set.
func (a *Aggregator) Collect(ctx context.Context, kinds []model.EntityKind, cutoff time.Time) ([]model.CountSnapshot, error) {
	a.logger.Info("Collecting count snapshots",
		zap.Int("sources", len(a.sources)),
		zap.Int("kinds", len(kinds)),
		zap.Time("cutoff", cutoff))

	snapshots := make([]model.CountSnapshot, len(a.sources)*len(kinds))

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i, source := range a.sources {
		for j, kind := range kinds {
			idx := i*len(kinds) + j
			source, kind := source, kind

			g.Go(func() error {
				snapshot, err := source.Count(ctx, kind, cutoff)
				if err != nil {
					return fmt.Errorf("count of %s from %s failed: %w", kind, source.Name(), err)
				}

				a.logger.Debug("Count resolved",
					zap.String("source", source.Name()),
					zap.String("kind", string(kind)),
					zap.Int64("count", snapshot.Count),
					zap.Bool("applicable", snapshot.Applicable))

				snapshots[idx] = snapshot
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshots, nil
}
