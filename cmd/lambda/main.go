// cmd/lambda/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tendant/bucket-thumbnailer/internal/app"
	"github.com/tendant/bucket-thumbnailer/internal/config"
	"github.com/tendant/bucket-thumbnailer/internal/pipeline"
	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

type processor interface {
	ProcessAll(ctx context.Context, evts []pipeline.SourceEvent) []*pipeline.Outcome
}

type handler struct {
	proc   processor
	logger *slog.Logger
}

// Handle processes every record of the notification. Only retryable failures
// are returned, so the trigger re-delivers the event for those alone.
func (h *handler) Handle(ctx context.Context, evt events.S3Event) error {
	evts, err := pipeline.EventsFromS3(evt)
	if err != nil {
		h.logger.Error("dropping undecodable records", "err", err)
	}

	outcomes := h.proc.ProcessAll(ctx, evts)

	var retry []*pipeline.Outcome
	failed := 0
	for _, o := range outcomes {
		if !o.Failed() {
			continue
		}
		failed++
		if o.FailureType == schema.FailureTypeRetryable {
			retry = append(retry, o)
		}
	}
	h.logger.Info("event handled", "records", len(evt.Records), "runs", len(outcomes), "failed", failed, "retryable", len(retry))

	if err := pipeline.JoinFailures(retry); err != nil {
		return fmt.Errorf("retryable thumbnail failures: %w", err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := config.NewLogger(cfg.LogLevel, true)
	slog.SetDefault(logger)

	rt, err := app.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		fatal(logger, "build runtime", err)
	}

	h := &handler{proc: rt.Orchestrator, logger: logger}
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close runtime", "err", err)
		}
	}))
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
