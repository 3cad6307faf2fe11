// pkg/reconcile/reconcile_test.go
package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// fakeCountSource serves fixed counts per entity kind. Kinds absent
// from counts produce not-applicable snapshots; failKind makes that
// kind's count fail.
type fakeCountSource struct {
	name     string
	counts   map[model.EntityKind]int64
	failKind model.EntityKind
}

func (s *fakeCountSource) Name() string { return s.name }

func (s *fakeCountSource) Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (model.CountSnapshot, error) {
	if kind == s.failKind {
		return model.CountSnapshot{}, &connector.SourceUnavailableError{
			Source: s.name,
			Err:    errors.New("connection refused"),
		}
	}

	count, ok := s.counts[kind]
	if !ok {
		return model.CountSnapshot{Kind: kind, Source: s.name, Cutoff: cutoff}, nil
	}
	return model.CountSnapshot{
		Kind:       kind,
		Source:     s.name,
		Count:      count,
		Applicable: true,
		Filtered:   true,
		Cutoff:     cutoff,
	}, nil
}

// fakeSink records persisted reports and can be made to fail.
type fakeSink struct {
	persisted []string
	err       error
}

func (s *fakeSink) Persist(ctx context.Context, key string, report *model.ReconciliationReport) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.persisted = append(s.persisted, key)
	return "s3://reports/" + key, nil
}

func allCounts(n int64) map[model.EntityKind]int64 {
	counts := make(map[model.EntityKind]int64)
	for _, kind := range model.AllKinds() {
		counts[kind] = n
	}
	return counts
}

func newTestRunner(sources ...connector.CountSource) *Runner {
	logger := zap.NewNop()
	aggregator := NewAggregator(sources, logger)
	reporter := NewReporter("test", logger)
	return NewRunner(aggregator, reporter, logger)
}

func TestRunReportsNoDriftWhenCountsMatch(t *testing.T) {
	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(10)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(10)},
	)

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)
	require.Len(t, report.Entities, len(model.AllKinds()))

	for _, kind := range model.AllKinds() {
		drift, ok := report.Entities[kind]
		require.True(t, ok, "kind %s", kind)
		assert.Equal(t, int64(0), drift.Delta)
		assert.True(t, drift.FullyMigrated)
		assert.Equal(t, int64(10), drift.SourceCounts[model.SourceLegacy])
		assert.Equal(t, int64(10), drift.SourceCounts[model.SourceRelational])
	}
}

func TestRunReportsDriftPerKind(t *testing.T) {
	legacy := allCounts(12)
	relational := allCounts(12)
	relational[model.KindCollection] = 9

	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: legacy},
		&fakeCountSource{name: model.SourceRelational, counts: relational},
	)

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)

	// Delta is directional: positive means records still unmigrated.
	drift := report.Entities[model.KindCollection]
	assert.Equal(t, int64(3), drift.Delta)
	assert.False(t, drift.FullyMigrated)

	// The drifting kind must not crowd out the healthy ones.
	assert.True(t, report.Entities[model.KindProvider].FullyMigrated)
	assert.True(t, report.Entities[model.KindRule].FullyMigrated)
}

func TestRunAbortsWhenAnySourceFails(t *testing.T) {
	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(10)},
		&fakeCountSource{
			name:     model.SourceRelational,
			counts:   allCounts(10),
			failKind: model.KindRule,
		},
	)

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.Error(t, err)
	assert.Nil(t, report)

	var srcErr *connector.SourceUnavailableError
	assert.ErrorAs(t, err, &srcErr)
}

func TestRunIndexDeltaComputedSeparately(t *testing.T) {
	indexCounts := allCounts(8)
	delete(indexCounts, model.KindAsyncOperation)

	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(10)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(10)},
		&fakeCountSource{name: model.SourceIndex, counts: indexCounts},
	)

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)

	// Index drift never folds into the relational delta.
	drift := report.Entities[model.KindCollection]
	assert.Equal(t, int64(0), drift.Delta)
	require.NotNil(t, drift.IndexDelta)
	assert.Equal(t, int64(2), *drift.IndexDelta)

	// A kind the index does not mirror gets no index delta, not a
	// measured zero.
	drift = report.Entities[model.KindAsyncOperation]
	assert.Nil(t, drift.IndexDelta)
	assert.Equal(t, int64(0), drift.Delta)
	_, hasIndexCount := drift.SourceCounts[model.SourceIndex]
	assert.False(t, hasIndexCount)
}

func TestRunPersistsReportThroughSink(t *testing.T) {
	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(5)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(5)},
	)
	sink := &fakeSink{}
	runner.WithSink(sink, "reconciliation-reports")

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)

	require.Len(t, sink.persisted, 1)
	assert.Contains(t, sink.persisted[0], "reconciliation-reports/reconciliation-")
	assert.Contains(t, report.ReportLocation, "s3://reports/")
}

func TestRunSinkFailureKeepsReport(t *testing.T) {
	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(5)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(5)},
	)
	runner.WithSink(&fakeSink{err: &connector.SinkError{
		Destination: "s3://reports",
		Err:         errors.New("access denied"),
	}}, "reconciliation-reports")

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.ReportLocation)
	assert.Len(t, report.Entities, len(model.AllKinds()))
}

func TestRunCarriesDiscrepanciesOpaquely(t *testing.T) {
	runner := newTestRunner(
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(5)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(5)},
	)
	discrepancies := []model.CollectionDiscrepancy{
		{Collection: "MOD09GQ___006", MissingGranules: 4, MissingExecutions: 1},
	}
	runner.WithDiscrepancies(discrepancies)

	report, err := runner.Run(context.Background(), model.AllKinds(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, discrepancies, report.CollectionDiscrepancies)
}

func TestCollectReturnsCompleteSnapshotSet(t *testing.T) {
	logger := zap.NewNop()
	sources := []connector.CountSource{
		&fakeCountSource{name: model.SourceLegacy, counts: allCounts(7)},
		&fakeCountSource{name: model.SourceRelational, counts: allCounts(7)},
	}
	aggregator := NewAggregator(sources, logger).WithConcurrency(2)

	kinds := model.AllKinds()
	snapshots, err := aggregator.Collect(context.Background(), kinds, time.Now())
	require.NoError(t, err)
	require.Len(t, snapshots, len(sources)*len(kinds))

	// Snapshot order is deterministic: source-major, kind-minor.
	for i, source := range sources {
		for j, kind := range kinds {
			snapshot := snapshots[i*len(kinds)+j]
			assert.Equal(t, source.Name(), snapshot.Source)
			assert.Equal(t, kind, snapshot.Kind)
		}
	}
}
