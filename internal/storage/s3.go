package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3 is the Gateway backed by Amazon S3 (or an S3 endpoint override).
type S3 struct {
	client s3API
	opts   S3Options
}

// NewS3 wraps an existing client. opts only affects the URLs returned by Put.
func NewS3(client s3API, opts S3Options) *S3 {
	return &S3{client: client, opts: opts}
}

// NewS3FromEnv builds a client from the default AWS credential chain.
func NewS3FromEnv(ctx context.Context, opts S3Options) (*S3, aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if opts.Region == "" {
		opts.Region = cfg.Region
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return NewS3(client, opts), cfg, nil
}

func (s *S3) Fetch(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("get %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, &TransportError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", Bucket: bucket, Key: key, Err: err}
	}

	return &Object{
		Bucket:      bucket,
		Key:         key,
		Data:        data,
		ContentType: contentTypeOrDetect(aws.ToString(out.ContentType), data),
	}, nil
}

func (s *S3) Put(ctx context.Context, in PutInput) (*PutResult, error) {
	size := int64(len(in.Data))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(in.Bucket),
		Key:           aws.String(in.Key),
		Body:          bytes.NewReader(in.Data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(in.ContentType),
		ACL:           types.ObjectCannedACLPublicRead,
		StorageClass:  types.StorageClassReducedRedundancy,
	})
	if err != nil {
		return nil, &TransportError{Op: "put", Bucket: in.Bucket, Key: in.Key, Err: err}
	}

	return &PutResult{SizeBytes: size, URL: s.objectURL(in.Bucket, in.Key)}, nil
}

func (s *S3) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &TransportError{Op: "list", Bucket: bucket, Key: prefix, Err: err}
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3) objectURL(bucket, key string) string {
	if s.opts.Endpoint != "" {
		return pathStyleURL(s.opts.Endpoint, bucket, key)
	}
	if s.opts.Region == "" || s.opts.Region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, escapeKey(key))
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.opts.Region, escapeKey(key))
}
