package aws

import (
	"context"
	"log/slog"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	outcomeMetricName = "IdempotencyOutcome"
	putMetricTimeout  = 2 * time.Second
)

// MetricsRecorder publishes one CloudWatch data point per coordinator outcome.
type MetricsRecorder struct {
	client    CloudWatchAPI
	namespace string
	logger    *slog.Logger
}

// NewMetricsRecorder returns a recorder writing into namespace.
func NewMetricsRecorder(client CloudWatchAPI, namespace string, logger *slog.Logger) *MetricsRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger.With(slog.String("component", "cloudwatch")),
	}
}

// RecordOutcome sends a Count=1 data point with an Outcome dimension.
// Failures are logged and never surface to the request.
func (m *MetricsRecorder) RecordOutcome(ctx context.Context, outcome string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), putMetricTimeout)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(outcomeMetricName),
				Dimensions: []cwtypes.Dimension{
					{Name: sdkaws.String("Outcome"), Value: sdkaws.String(outcome)},
				},
				Timestamp: sdkaws.Time(time.Now()),
				Unit:      cwtypes.StandardUnitCount,
				Value:     sdkaws.Float64(1),
			},
		},
	})
	if err != nil {
		m.logger.Warn("put metric data failed",
			slog.String("outcome", outcome),
			slog.Any("error", err))
	}
}
