// Package main is the entrypoint for the risk-runner Lambda function.
//
// EventBridge schedules invoke it with a JSON job payload:
//
//	{"task":"risk_recompute","mode":"FORECAST","days_window":7}
//	{"task":"weather_update"}
//	{"task":"daily_archive","date":"2025-07-09"}
//
// The payload is handed to scheduler.JobRunner, the same multiplexer the API
// uses for its job endpoints. The run summary is published to CloudWatch when
// CLOUDWATCH_ENABLED is set.
//
// With APP_ENV=local the payload is read from stdin and the result printed to
// stdout instead of starting the Lambda runtime:
//
//	echo '{"task":"risk_recompute"}' | go run ./cmd/risk-runner
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"plotrisk/internal/app"
	"plotrisk/internal/config"
	"plotrisk/internal/observability"
	"plotrisk/internal/scheduler"
	"plotrisk/internal/types"

	_ "time/tzdata"
)

// TriggerLambda tags runs started by this binary.
const TriggerLambda = "lambda"

// jobRunner is implemented by scheduler.JobRunner.
type jobRunner interface {
	Run(ctx context.Context, p scheduler.JobPayload) (*scheduler.JobResult, error)
}

// runPublisher is implemented by observability.CloudWatchPublisher.
type runPublisher interface {
	PublishRun(ctx context.Context, s observability.RunStats) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewFileSecretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.Service)
	logger.Info("Risk runner initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
	)

	ctx := context.Background()
	pool, err := app.OpenPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := app.Build(cfg, pool, nil, nil, logger)
	if err != nil {
		return fmt.Errorf("building services: %w", err)
	}

	var publisher runPublisher
	if cfg.Observability.CloudWatchEnabled {
		cw, err := newCloudWatchClient(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		publisher = observability.NewCloudWatchPublisher(cw, cfg.Observability.MetricNamespace, logger)
	}

	handler := newHandler(svc.Jobs, publisher, logger)

	if cfg.IsLocal() {
		return runLocal(ctx, handler, os.Stdin, os.Stdout)
	}
	lambda.Start(handler)
	return nil
}

func newCloudWatchClient(ctx context.Context, cfg config.AWSConfig) (*cloudwatch.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}
	return cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	}), nil
}

// newHandler creates the Lambda handler. publisher may be nil. A failed
// publish is logged and never fails the invocation.
func newHandler(jobs jobRunner, publisher runPublisher, logger *slog.Logger) func(ctx context.Context, p scheduler.JobPayload) (*scheduler.JobResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, p scheduler.JobPayload) (*scheduler.JobResult, error) {
		ctx = types.WithTrigger(ctx, TriggerLambda)
		logger.InfoContext(ctx, "Risk runner invoked",
			"task", string(p.Task),
			"mode", string(p.Mode),
			"days_window", p.DaysWindow,
		)

		res, err := jobs.Run(ctx, p)
		if err != nil {
			logger.ErrorContext(ctx, "Job failed", "task", string(p.Task), "error", err)
			return nil, err
		}

		if publisher != nil {
			if err := publisher.PublishRun(ctx, res.Stats()); err != nil {
				logger.WarnContext(ctx, "Failed to publish run metrics", "task", string(p.Task), "error", err)
			}
		}
		return res, nil
	}
}

// runLocal reads one payload from in, runs it and writes the result to out.
func runLocal(ctx context.Context, handler func(context.Context, scheduler.JobPayload) (*scheduler.JobResult, error), in io.Reader, out io.Writer) error {
	var p scheduler.JobPayload
	if err := json.NewDecoder(in).Decode(&p); err != nil {
		return fmt.Errorf("decoding payload from stdin: %w", err)
	}
	res, err := handler(ctx, p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
