// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/config"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// Factory creates store handles from invocation configuration
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new store factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRelationalStore connects to the target PostgreSQL store
func (f *Factory) CreateRelationalStore(ctx context.Context) (*PostgresStore, error) {
	f.logger.Info("Creating relational store handle")

	store, err := NewPostgresStore(ctx, f.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to create relational store: %w", err)
	}

	return store, nil
}

// CreateLegacyTables opens one cursor per entity kind over the
// stack's legacy tables.
func (f *Factory) CreateLegacyTables(ctx context.Context) (map[model.EntityKind]*DynamoTable, error) {
	client, err := f.dynamoClient(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(map[model.EntityKind]*DynamoTable, len(model.AllKinds()))
	for _, kind := range model.AllKinds() {
		name := f.cfg.LegacyTableName(kind.LegacyTableSuffix())
		tables[kind] = NewDynamoTable(client, name, f.logger)
	}

	return tables, nil
}

// CreateCountSources assembles every configured count source: the
// legacy store, the relational store, and the index mirror when one
// is configured.
func (f *Factory) CreateCountSources(ctx context.Context, store RelationalStore) ([]CountSource, error) {
	tables, err := f.CreateLegacyTables(ctx)
	if err != nil {
		return nil, err
	}

	sources := []CountSource{
		NewDynamoCountSource(tables),
		NewStoreCountSource(model.SourceRelational, store),
	}

	if f.cfg.Elastic != nil {
		elastic, err := NewElasticSource(f.cfg.Elastic, f.cfg.StackName, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create index mirror source: %w", err)
		}
		sources = append(sources, elastic)
	}

	return sources, nil
}

// CreateReportSink creates the S3 report sink, or nil when no report
// bucket is configured (the report is then only returned, not
// persisted).
func (f *Factory) CreateReportSink(ctx context.Context) (*S3ReportSink, error) {
	if f.cfg.ReportBucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewS3ReportSink(s3.NewFromConfig(awsCfg), f.cfg.ReportBucket, f.logger), nil
}

func (f *Factory) dynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	endpoint := f.cfg.AWS.DynamoEndpoint
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})

	return client, nil
}
