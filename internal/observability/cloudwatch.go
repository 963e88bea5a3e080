package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatch metric names.
const (
	MetricRunCompleted = "RunCompleted"
	MetricPlotsTotal   = "PlotsTotal"
	MetricPlotsUpdated = "PlotsUpdated"
	MetricPlotErrors   = "PlotErrors"
	MetricRunDuration  = "RunDuration"

	DimTask = "Task"
	DimMode = "Mode"
)

// CloudWatchClient is the subset of the CloudWatch SDK client used here.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// RunStats summarises one batch run for publishing.
type RunStats struct {
	Task     string
	Mode     string
	Total    int
	Updated  int
	Errors   int
	Duration time.Duration
}

// CloudWatchPublisher emits batch run metrics. RunCompleted=1 acts as the
// heartbeat for missed-run alarms.
type CloudWatchPublisher struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchPublisher creates a publisher for the given namespace.
func NewCloudWatchPublisher(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchPublisher{client: client, namespace: namespace, logger: logger}
}

// PublishRun sends all run metrics in a single PutMetricData call.
func (p *CloudWatchPublisher) PublishRun(ctx context.Context, s RunStats) error {
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimTask), Value: aws.String(s.Task)},
	}
	if s.Mode != "" {
		dims = append(dims, cwtypes.Dimension{Name: aws.String(DimMode), Value: aws.String(s.Mode)})
	}

	datum := func(name string, v float64, unit cwtypes.StandardUnit) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(v),
			Unit:       unit,
			Dimensions: dims,
		}
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []cwtypes.MetricDatum{
			datum(MetricRunCompleted, 1, cwtypes.StandardUnitCount),
			datum(MetricPlotsTotal, float64(s.Total), cwtypes.StandardUnitCount),
			datum(MetricPlotsUpdated, float64(s.Updated), cwtypes.StandardUnitCount),
			datum(MetricPlotErrors, float64(s.Errors), cwtypes.StandardUnitCount),
			datum(MetricRunDuration, float64(s.Duration.Milliseconds()), cwtypes.StandardUnitMilliseconds),
		},
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish run metrics",
			"task", s.Task,
			"error", err,
		)
		return fmt.Errorf("failed to publish run metrics: %w", err)
	}
	return nil
}
