// cmd/backfill/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/bucket-thumbnailer/internal/app"
	"github.com/tendant/bucket-thumbnailer/internal/bus"
	"github.com/tendant/bucket-thumbnailer/internal/config"
	"github.com/tendant/bucket-thumbnailer/internal/img"
	"github.com/tendant/bucket-thumbnailer/internal/notify"
	"github.com/tendant/bucket-thumbnailer/internal/pipeline"
	"github.com/tendant/bucket-thumbnailer/internal/storage"
)

type options struct {
	Bucket      string
	Prefix      string
	Concurrency int
	Limit       int
	DryRun      bool
	EnsureDst   bool
}

func main() {
	_ = godotenv.Load()

	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := config.NewLogger(cfg.LogLevel, false)
	slog.SetDefault(logger)

	if opts.Bucket == "" {
		fatal(logger, "missing -bucket", os.ErrInvalid)
	}
	logger.Info("backfill starting",
		"bucket", opts.Bucket,
		"prefix", opts.Prefix,
		"concurrency", opts.Concurrency,
		"limit", opts.Limit,
		"dry_run", opts.DryRun)

	ctx := context.Background()

	// Connect to NATS only when a route needs it
	var nc *bus.Client
	for _, t := range cfg.Routes.Transports() {
		if t == notify.TransportNATS {
			nc, err = bus.Connect(cfg.NATSURL)
			if err != nil {
				fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
			}
			defer nc.Close()
			logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
		}
	}

	rt, err := app.Build(ctx, cfg, logger, nc)
	if err != nil {
		fatal(logger, "build runtime", err)
	}
	defer rt.Close()

	lister, ok := rt.Lister()
	if !ok {
		fatal(logger, "storage backend cannot list keys", os.ErrInvalid, "backend", cfg.Storage.Backend)
	}

	if opts.EnsureDst && !opts.DryRun {
		if m, ok := rt.Gateway.(*storage.Minio); ok {
			dst := opts.Bucket + pipeline.DestinationSuffix
			if err := m.EnsureBucket(ctx, dst); err != nil {
				fatal(logger, "ensure destination bucket", err, "bucket", dst)
			}
			logger.Info("ensured destination bucket", "bucket", dst)
		}
	}

	keys, err := lister.List(ctx, opts.Bucket, opts.Prefix)
	if err != nil {
		fatal(logger, "list source keys", err, "bucket", opts.Bucket, "prefix", opts.Prefix)
	}

	images, skipped := selectImages(keys, opts.Limit)
	logger.Info("scan complete", "total_found", len(keys), "images", len(images), "skipped_non_image", skipped)

	if opts.DryRun {
		for _, k := range images {
			logger.Info("would thumbnail", "key", k)
		}
		logger.Info("backfill complete", "images", len(images), "dry_run", true)
		return
	}

	s := run(ctx, rt.Orchestrator, opts.Bucket, images, opts.Concurrency)
	logger.Info("backfill complete",
		"processed", len(images),
		"succeeded", s.Succeeded,
		"skipped", s.Skipped,
		"failed", s.Failed)
	if s.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() options {
	opts := options{}
	flag.StringVar(&opts.Bucket, "bucket", "", "Source bucket to scan (required)")
	flag.StringVar(&opts.Prefix, "prefix", "", "Only scan keys under this prefix")
	flag.IntVar(&opts.Concurrency, "concurrency", 4, "Number of images processed at once")
	flag.IntVar(&opts.Limit, "limit", 0, "Maximum number of images to process (0 = unlimited)")
	flag.BoolVar(&opts.DryRun, "dry-run", true, "List what would be processed without writing thumbnails")
	flag.BoolVar(&opts.EnsureDst, "ensure-dst", false, "Create the destination bucket first (minio backend)")

	var execute bool
	flag.BoolVar(&execute, "execute", false, "Actually write thumbnails (disables dry-run)")
	flag.Parse()

	if execute {
		opts.DryRun = false
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return opts
}

// selectImages keeps the keys with a thumbnailable extension, up to limit
// when limit is positive.
func selectImages(keys []string, limit int) (images []string, skipped int) {
	for _, k := range keys {
		ext, ok := pipeline.ImageType(k)
		if !ok {
			skipped++
			continue
		}
		if _, err := img.FormatForExtension(ext); err != nil {
			skipped++
			continue
		}
		if limit > 0 && len(images) >= limit {
			break
		}
		images = append(images, k)
	}
	return images, skipped
}

type processor interface {
	Process(ctx context.Context, evt pipeline.SourceEvent) *pipeline.Outcome
}

type stats struct {
	Succeeded int64
	Skipped   int64
	Failed    int64
}

func run(ctx context.Context, proc processor, bucket string, keys []string, concurrency int) stats {
	var (
		s     stats
		group errgroup.Group
	)
	group.SetLimit(concurrency)

	for _, k := range keys {
		k := k
		group.Go(func() error {
			out := proc.Process(ctx, pipeline.SourceEvent{Bucket: bucket, Key: k, EventName: "Backfill"})
			switch {
			case out.Succeeded():
				atomic.AddInt64(&s.Succeeded, 1)
			case out.Skipped():
				atomic.AddInt64(&s.Skipped, 1)
			default:
				atomic.AddInt64(&s.Failed, 1)
			}
			return nil
		})
	}
	_ = group.Wait()
	return s
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
