// pkg/connector/s3.go
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// S3ReportSink persists serialized reconciliation reports to S3.
type S3ReportSink struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3ReportSink creates a report sink writing into a bucket.
func NewS3ReportSink(client *s3.Client, bucket string, logger *zap.Logger) *S3ReportSink {
	return &S3ReportSink{
		client: client,
		bucket: bucket,
		logger: logger.Named("report-sink"),
	}
}

// Persist serializes the report as JSON and writes it under key,
// returning the location written.
func (s *S3ReportSink) Persist(ctx context.Context, key string, report *model.ReconciliationReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", &SinkError{
			Destination: s.bucket,
			Err:         fmt.Errorf("failed to serialize report: %w", err),
		}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", &SinkError{Destination: s.bucket, Err: err}
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info("Persisted reconciliation report",
		zap.String("location", location),
		zap.Int("bytes", len(data)))

	return location, nil
}
