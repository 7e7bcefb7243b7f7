// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"

	"github.com/tendant/bucket-thumbnailer/internal/app"
	"github.com/tendant/bucket-thumbnailer/internal/bus"
	"github.com/tendant/bucket-thumbnailer/internal/config"
	"github.com/tendant/bucket-thumbnailer/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := config.NewLogger(cfg.LogLevel, false)
	slog.SetDefault(logger)
	logger.Info("worker starting",
		"nats_url", cfg.NATSURL,
		"event_subject", cfg.EventSubject,
		"queue", cfg.WorkerQueue,
		"run_timeout", cfg.RunTimeout,
		"edges", cfg.Thumbnail.Edges,
		"routes", len(cfg.Routes))

	nc, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
	}
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	defer nc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, logger, nc)
	if err != nil {
		fatal(logger, "build runtime", err)
	}
	defer rt.Close()

	_, err = nc.QueueSubscribe(cfg.EventSubject, cfg.WorkerQueue, cfg.RunTimeout, func(runCtx context.Context, data []byte) {
		handleNotification(runCtx, data, rt.Orchestrator, logger)
	})
	if err != nil {
		fatal(logger, "subscribe", err, "event_subject", cfg.EventSubject, "queue", cfg.WorkerQueue)
	}
	logger.Info("listening for bucket notifications", "subject", cfg.EventSubject, "queue", cfg.WorkerQueue)

	<-ctx.Done()
	logger.Info("worker stopping")
}

type processor interface {
	ProcessAll(ctx context.Context, evts []pipeline.SourceEvent) []*pipeline.Outcome
}

// handleNotification runs the pipeline for the object-created records of one
// bucket notification. Core NATS has no redelivery, so failures are only
// logged.
func handleNotification(ctx context.Context, data []byte, proc processor, logger *slog.Logger) []*pipeline.Outcome {
	evts, err := decodeNotification(data)
	if err != nil {
		logger.Error("invalid bucket notification", "err", err)
	}
	if len(evts) == 0 {
		return nil
	}

	outcomes := proc.ProcessAll(ctx, evts)
	if err := pipeline.JoinFailures(outcomes); err != nil {
		logger.Warn("notification finished with failures", "runs", len(outcomes), "err", err)
	}
	return outcomes
}

// decodeNotification reads an S3-style notification, as sent by MinIO or an
// S3 to NATS bridge, keeping only object-created records.
func decodeNotification(data []byte) ([]pipeline.SourceEvent, error) {
	var evt events.S3Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}

	created := evt.Records[:0]
	for _, rec := range evt.Records {
		if strings.Contains(rec.EventName, "ObjectCreated") {
			created = append(created, rec)
		}
	}
	evt.Records = created
	return pipeline.EventsFromS3(evt)
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
