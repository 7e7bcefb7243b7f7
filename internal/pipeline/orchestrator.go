package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/bucket-thumbnailer/internal/img"
	"github.com/tendant/bucket-thumbnailer/internal/notify"
	"github.com/tendant/bucket-thumbnailer/internal/process"
	"github.com/tendant/bucket-thumbnailer/internal/storage"
	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

const (
	JobKind = "thumbnail"

	DestinationSuffix = "-thumbnail"
)

// Publisher sends the completion message of a run.
type Publisher interface {
	Publish(ctx context.Context, route notify.Route, msg schema.ThumbnailMessage) (string, error)
}

// Outcome is everything a run produced. Results is only complete when the
// run succeeded.
type Outcome struct {
	Job        *process.Job
	SrcBucket  string
	SrcKey     string
	DstBucket  string
	DstPattern string
	Results    map[int]schema.VariantResult
	// Route is empty when no route matched the key.
	Route       string
	MessageID   string
	Err         error
	FailureType schema.FailureType
}

func (o *Outcome) Succeeded() bool { return o.Job.Status == process.JobStatusSucceeded }
func (o *Outcome) Skipped() bool   { return o.Job.Status == process.JobStatusSkipped }
func (o *Outcome) Failed() bool    { return o.Job.Status == process.JobStatusFailed }

// JoinFailures returns the errors of the failed outcomes, joined.
func JoinFailures(outcomes []*Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Failed() {
			errs = append(errs, fmt.Errorf("%s/%s: %w", o.SrcBucket, o.SrcKey, o.Err))
		}
	}
	return errors.Join(errs...)
}

type Orchestrator struct {
	gateway   storage.Gateway
	publisher Publisher
	routes    notify.RouteTable
	spec      img.ThumbnailSpec
	logger    *slog.Logger

	suffix string
	newID  func() string
}

func New(gateway storage.Gateway, publisher Publisher, routes notify.RouteTable, spec img.ThumbnailSpec, logger *slog.Logger) (*Orchestrator, error) {
	if gateway == nil || publisher == nil {
		return nil, fmt.Errorf("pipeline needs a gateway and a publisher")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := routes.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:   gateway,
		publisher: publisher,
		routes:    routes,
		spec:      spec,
		logger:    logger,
		suffix:    DestinationSuffix,
		newID:     uuid.NewString,
	}, nil
}

// runContext carries what later stages of one run need from earlier ones.
type runContext struct {
	evt         SourceEvent
	dstBucket   string
	path        ImagePath
	format      imaging.Format
	contentType string
	logger      *slog.Logger
}

// Process runs one event to its end. It never panics and never returns an
// error; the outcome carries the status and any failure.
func (o *Orchestrator) Process(ctx context.Context, evt SourceEvent) (out *Outcome) {
	runID := o.newID()
	logger := o.logger.With("run_id", runID, "src_bucket", evt.Bucket, "src_key", evt.Key)

	out = &Outcome{
		Job:       process.NewJob(JobKind, runID, evt),
		SrcBucket: evt.Bucket,
		SrcKey:    evt.Key,
		DstBucket: evt.Bucket + o.suffix,
	}
	process.MarkRunning(out.Job)

	defer func() {
		if r := recover(); r != nil {
			o.finish(out, fmt.Errorf("panic in stage %q: %v", out.Job.Stage, r))
		}
		if !out.Job.Terminal() {
			o.finish(out, fmt.Errorf("run stopped in stage %q without a status", out.Job.Stage))
		}
		logTerminal(logger, out)
	}()

	rc := &runContext{evt: evt, dstBucket: out.DstBucket, logger: logger}
	o.finish(out, o.run(ctx, rc, out))
	return out
}

// ProcessAll runs each event in turn.
func (o *Orchestrator) ProcessAll(ctx context.Context, evts []SourceEvent) []*Outcome {
	outcomes := make([]*Outcome, 0, len(evts))
	for _, evt := range evts {
		outcomes = append(outcomes, o.Process(ctx, evt))
	}
	return outcomes
}

func (o *Orchestrator) finish(out *Outcome, err error) {
	if err == nil {
		process.MarkSucceeded(out.Job)
		return
	}
	out.Err = err
	out.FailureType = classifyError(err)

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		process.MarkSkipped(out.Job, validationErr.Message)
		return
	}
	process.MarkFailed(out.Job, err)
}

func (o *Orchestrator) run(ctx context.Context, rc *runContext, out *Outcome) error {
	if err := o.validate(rc); err != nil {
		return err
	}
	out.DstPattern = rc.path.Pattern()

	process.MarkStage(out.Job, string(StageFetch))
	obj, err := o.gateway.Fetch(ctx, rc.evt.Bucket, rc.evt.Key)
	if err != nil {
		return &StageError{Stage: StageFetch, Err: err}
	}
	rc.contentType = obj.ContentType

	process.MarkStage(out.Job, string(StageDecode))
	src, err := img.Decode(obj.Data, rc.format)
	if err != nil {
		return &StageError{Stage: StageDecode, Err: err}
	}
	landscape := src.IsLandscape()
	working := src.Downsample(o.spec.WorkingEdge)
	rc.logger.Debug("decoded source",
		"width", src.Width,
		"height", src.Height,
		"landscape", landscape,
		"working_width", working.Width,
		"working_height", working.Height,
		"content_type", rc.contentType)

	process.MarkStage(out.Job, string(StageResize))
	results, err := o.fanOut(ctx, rc, working, landscape)
	if err != nil {
		return err
	}
	out.Results = results

	return o.notify(ctx, rc, out)
}

func (o *Orchestrator) validate(rc *runContext) error {
	if rc.evt.Bucket == "" || rc.evt.Key == "" {
		return invalid(false, "event without bucket or key")
	}
	if rc.dstBucket == rc.evt.Bucket {
		return invalid(false, "destination bucket %s must not match source bucket", rc.dstBucket)
	}

	ext, ok := ImageType(rc.evt.Key)
	if !ok {
		return invalid(false, "unable to infer image type for key %s", rc.evt.Key)
	}
	format, err := img.FormatForExtension(ext)
	if err != nil {
		return invalid(true, "unsupported image type %q", ext)
	}
	rc.format = format

	path, err := ParseImagePath(rc.evt.Key)
	if err != nil {
		return invalid(false, "unable to derive variant names: %v", err)
	}
	rc.path = path
	return nil
}

// fanOut renders and uploads every edge concurrently. A failing branch does
// not stop its siblings; all of them finish before the errors are joined.
func (o *Orchestrator) fanOut(ctx context.Context, rc *runContext, src *img.Decoded, landscape bool) (map[int]schema.VariantResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[int]schema.VariantResult, len(o.spec.Edges))
		errs    = make([]error, len(o.spec.Edges))
		group   errgroup.Group
	)

	for i, edge := range o.spec.Edges {
		i, edge := i, edge
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &StageError{Stage: StageResize, Edge: edge, Err: fmt.Errorf("panic: %v", r)}
					errs[i] = err
				}
			}()

			res, err := o.branch(ctx, rc, src, landscape, edge)
			if err != nil {
				errs[i] = err
				return err
			}
			mu.Lock()
			results[edge] = res
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func (o *Orchestrator) branch(ctx context.Context, rc *runContext, src *img.Decoded, landscape bool, edge int) (schema.VariantResult, error) {
	v, err := img.MakeVariant(edge, src, landscape, o.spec)
	if err != nil {
		return schema.VariantResult{}, &StageError{Stage: StageResize, Edge: edge, Err: err}
	}

	key := rc.path.VariantKey(edge)
	put, err := o.gateway.Put(ctx, storage.PutInput{
		Bucket:      rc.dstBucket,
		Key:         key,
		Data:        v.Data,
		ContentType: rc.contentType,
	})
	if err != nil {
		return schema.VariantResult{}, &StageError{Stage: StageUpload, Edge: edge, Err: err}
	}

	rc.logger.Debug("variant uploaded", "edge", edge, "dst_key", key, "width", v.Width, "height", v.Height, "size_bytes", put.SizeBytes)
	return schema.VariantResult{
		TargetEdge: edge,
		Bucket:     rc.dstBucket,
		Key:        key,
		SizeBytes:  put.SizeBytes,
		Width:      v.Width,
		Height:     v.Height,
		Url:        put.URL,
	}, nil
}

func (o *Orchestrator) notify(ctx context.Context, rc *runContext, out *Outcome) error {
	process.MarkStage(out.Job, string(StageNotify))

	route, ok := o.routes.Resolve(rc.evt.Key)
	if !ok {
		rc.logger.Info("no notification route for key")
		return nil
	}
	out.Route = route.Name

	id, err := o.publisher.Publish(ctx, route, schema.ThumbnailMessage{
		Type:             schema.MessageTypeCreateThumbnail,
		SrcKey:           rc.evt.Key,
		SrcBucket:        rc.evt.Bucket,
		ThumbnailResults: out.Results,
	})
	if err != nil {
		return &StageError{Stage: StageNotify, Err: err}
	}
	out.MessageID = id
	return nil
}

func logTerminal(logger *slog.Logger, out *Outcome) {
	switch {
	case out.Succeeded():
		logger.Info("thumbnails created",
			"dst_bucket", out.DstBucket,
			"dst_pattern", out.DstPattern,
			"variants", len(out.Results),
			"route", out.Route,
			"message_id", out.MessageID)
	case out.Skipped():
		var validationErr ValidationError
		if errors.As(out.Err, &validationErr) && validationErr.Quiet {
			logger.Info("skipped", "reason", out.Job.Error)
			return
		}
		logger.Error("skipped", "reason", out.Job.Error)
	default:
		logger.Error("thumbnail run failed",
			"stage", out.Job.Stage,
			"failure_type", out.FailureType,
			"dst_bucket", out.DstBucket,
			"err", out.Err)
	}
}
