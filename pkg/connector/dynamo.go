// pkg/connector/dynamo.go
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/model"
)

const defaultScanPageSize = 100

// DynamoTable is a forward-only cursor over one DynamoDB table in the
// legacy store. Pages are fetched lazily, so the full table is never
// materialized in memory.
type DynamoTable struct {
	client   *dynamodb.Client
	table    string
	logger   *zap.Logger
	pageSize int32

	page      []model.LegacyRecord
	index     int
	lastKey   map[string]types.AttributeValue
	exhausted bool
}

// NewDynamoTable creates a cursor over a legacy table.
func NewDynamoTable(client *dynamodb.Client, table string, logger *zap.Logger) *DynamoTable {
	return &DynamoTable{
		client:   client,
		table:    table,
		logger:   logger.Named("dynamo-table"),
		pageSize: defaultScanPageSize,
	}
}

// WithPageSize overrides the scan page size
func (t *DynamoTable) WithPageSize(size int32) *DynamoTable {
	if size > 0 {
		t.pageSize = size
	}
	return t
}

// Name returns the legacy table name
func (t *DynamoTable) Name() string {
	return t.table
}

// Peek returns the current record without consuming it, or nil when
// the cursor is exhausted.
func (t *DynamoTable) Peek(ctx context.Context) (model.LegacyRecord, error) {
	if err := t.ensure(ctx); err != nil {
		return nil, err
	}
	if t.index >= len(t.page) {
		return nil, nil
	}
	return t.page[t.index], nil
}

// Advance moves the cursor past the current record
func (t *DynamoTable) Advance(ctx context.Context) error {
	if err := t.ensure(ctx); err != nil {
		return err
	}
	if t.index < len(t.page) {
		t.index++
	}
	return nil
}

// ensure fetches pages until the current position is loaded or the
// table is exhausted.
func (t *DynamoTable) ensure(ctx context.Context) error {
	for t.index >= len(t.page) && !t.exhausted {
		if err := t.fetchPage(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t *DynamoTable) fetchPage(ctx context.Context) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.table),
		Limit:     aws.Int32(t.pageSize),
	}
	if len(t.lastKey) > 0 {
		input.ExclusiveStartKey = t.lastKey
	}

	out, err := t.client.Scan(ctx, input)
	if err != nil {
		return &SourceUnavailableError{Source: t.table, Err: err}
	}

	page := make([]model.LegacyRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var record map[string]interface{}
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return &SourceUnavailableError{
				Source: t.table,
				Err:    fmt.Errorf("failed to decode scan item: %w", err),
			}
		}
		page = append(page, model.LegacyRecord(record))
	}

	t.page = page
	t.index = 0
	t.lastKey = out.LastEvaluatedKey
	if len(out.LastEvaluatedKey) == 0 {
		t.exhausted = true
	}

	t.logger.Debug("Fetched scan page",
		zap.String("table", t.table),
		zap.Int("records", len(page)),
		zap.Bool("exhausted", t.exhausted))

	return nil
}

// Count returns the table's total record count via a COUNT scan.
// The legacy store cannot filter on timestamps, so no cutoff applies.
func (t *DynamoTable) Count(ctx context.Context) (int64, error) {
	var total int64
	var lastKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(t.table),
			Select:    types.SelectCount,
		}
		if len(lastKey) > 0 {
			input.ExclusiveStartKey = lastKey
		}

		out, err := t.client.Scan(ctx, input)
		if err != nil {
			return 0, &SourceUnavailableError{Source: t.table, Err: err}
		}

		total += int64(out.Count)
		lastKey = out.LastEvaluatedKey
		if len(lastKey) == 0 {
			return total, nil
		}
	}
}

// DynamoCountSource exposes the legacy tables as a CountSource for
// the reconciliation fan-out.
type DynamoCountSource struct {
	tables map[model.EntityKind]*DynamoTable
}

// NewDynamoCountSource wraps per-kind legacy tables as a count source.
func NewDynamoCountSource(tables map[model.EntityKind]*DynamoTable) *DynamoCountSource {
	return &DynamoCountSource{tables: tables}
}

// Name returns the source name as it appears in reports
func (s *DynamoCountSource) Name() string {
	return model.SourceLegacy
}

// Count returns the scan count for a kind. Snapshots are unfiltered:
// the legacy store has no timestamp index, so the count always covers
// the whole table.
func (s *DynamoCountSource) Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (model.CountSnapshot, error) {
	table, ok := s.tables[kind]
	if !ok {
		return model.CountSnapshot{
			Kind:       kind,
			Source:     model.SourceLegacy,
			Applicable: false,
			Cutoff:     cutoff,
		}, nil
	}

	count, err := table.Count(ctx)
	if err != nil {
		return model.CountSnapshot{}, err
	}

	return model.CountSnapshot{
		Kind:       kind,
		Source:     model.SourceLegacy,
		Count:      count,
		Applicable: true,
		Filtered:   false,
		Cutoff:     cutoff,
	}, nil
}
