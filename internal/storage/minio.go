package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio is the Gateway for MinIO and other S3-compatible servers, used for
// local runs of the worker.
type Minio struct {
	client *minio.Client
}

// NewMinio creates a client for the server at endpoint (host:port).
func NewMinio(endpoint, accessKey, secretKey string, useSSL bool) (*Minio, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}
	return &Minio{client: client}, nil
}

// EnsureBucket creates bucket if it does not exist yet.
func (m *Minio) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return &TransportError{Op: "head-bucket", Bucket: bucket, Err: err}
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return &TransportError{Op: "make-bucket", Bucket: bucket, Err: err}
	}
	return nil
}

func (m *Minio) Fetch(ctx context.Context, bucket, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.fetchError(bucket, key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		return nil, m.fetchError(bucket, key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &TransportError{Op: "read", Bucket: bucket, Key: key, Err: err}
	}

	return &Object{
		Bucket:      bucket,
		Key:         key,
		Data:        data,
		ContentType: contentTypeOrDetect(info.ContentType, data),
	}, nil
}

func (m *Minio) fetchError(bucket, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("get %s/%s: %w", bucket, key, ErrNotFound)
	}
	return &TransportError{Op: "get", Bucket: bucket, Key: key, Err: err}
}

func (m *Minio) Put(ctx context.Context, in PutInput) (*PutResult, error) {
	info, err := m.client.PutObject(ctx, in.Bucket, in.Key, bytes.NewReader(in.Data), int64(len(in.Data)), minio.PutObjectOptions{
		ContentType:  in.ContentType,
		StorageClass: StorageClassReducedRedundancy,
		UserMetadata: map[string]string{"x-amz-acl": ACLPublicRead},
	})
	if err != nil {
		return nil, &TransportError{Op: "put", Bucket: in.Bucket, Key: in.Key, Err: err}
	}

	return &PutResult{
		SizeBytes: info.Size,
		URL:       pathStyleURL(m.client.EndpointURL().String(), in.Bucket, in.Key),
	}, nil
}

func (m *Minio) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, &TransportError{Op: "list", Bucket: bucket, Key: prefix, Err: obj.Err}
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
