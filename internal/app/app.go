// Package app assembles the gateway, senders and orchestrator the commands
// share.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/tendant/bucket-thumbnailer/internal/bus"
	"github.com/tendant/bucket-thumbnailer/internal/config"
	"github.com/tendant/bucket-thumbnailer/internal/notify"
	"github.com/tendant/bucket-thumbnailer/internal/pipeline"
	"github.com/tendant/bucket-thumbnailer/internal/storage"
)

var ErrNATSRequired = errors.New("a route publishes to nats but no NATS connection was given")

type Runtime struct {
	Gateway      storage.Gateway
	Orchestrator *pipeline.Orchestrator

	closers []func() error
}

// Build wires the storage backend and one sender per transport the routes
// use. nc may be nil unless a route publishes to NATS.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, nc *bus.Client) (*Runtime, error) {
	rt := &Runtime{}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		gw, err := storage.NewMinio(cfg.Storage.MinioEndpoint, cfg.Storage.MinioAccessKey, cfg.Storage.MinioSecretKey, cfg.Storage.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		rt.Gateway = gw
	default:
		gw, loaded, err := storage.NewS3FromEnv(ctx, storage.S3Options{
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.S3Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		rt.Gateway = gw
		awsCfg, awsLoaded = loaded, true
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	publisher := notify.NewPublisher(cfg.TaskName)
	for _, t := range cfg.Routes.Transports() {
		switch t {
		case notify.TransportSQS:
			if !awsLoaded {
				loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
				if err != nil {
					return nil, fmt.Errorf("load aws config: %w", err)
				}
				awsCfg, awsLoaded = loaded, true
			}
			publisher.Register(t, notify.NewSQSSenderFromConfig(awsCfg))
		case notify.TransportNATS:
			if nc == nil {
				return nil, ErrNATSRequired
			}
			publisher.Register(t, notify.NewNATSSender(nc))
		case notify.TransportKafka:
			sender := notify.NewKafkaSender(cfg.KafkaBrokers)
			rt.closers = append(rt.closers, sender.Close)
			publisher.Register(t, sender)
		}
		logger.Info("notification transport ready", "transport", t)
	}

	orch, err := pipeline.New(rt.Gateway, publisher, cfg.Routes, cfg.Thumbnail, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Orchestrator = orch
	return rt, nil
}

// Lister returns the gateway as a Lister when the backend can enumerate keys.
func (r *Runtime) Lister() (storage.Lister, bool) {
	l, ok := r.Gateway.(storage.Lister)
	return l, ok
}

func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
