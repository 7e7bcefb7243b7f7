// Package storage fetches source images from, and stores variants into,
// S3-compatible buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotFound is returned (wrapped) when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// TransportError wraps any other failure talking to the object store.
type TransportError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

const (
	ACLPublicRead                 = "public-read"
	StorageClassReducedRedundancy = "REDUCED_REDUNDANCY"
)

// Object is a fetched source object. ACL and StorageClass are only filled by
// backends that track them.
type Object struct {
	Bucket       string
	Key          string
	Data         []byte
	ContentType  string
	ACL          string
	StorageClass string
}

type PutInput struct {
	Bucket      string
	Key         string
	Data        []byte
	ContentType string
}

type PutResult struct {
	SizeBytes int64
	URL       string
}

// Gateway is the object store seen by a thumbnail run. Put always writes
// public-read, reduced-redundancy objects. Neither call retries.
type Gateway interface {
	Fetch(ctx context.Context, bucket, key string) (*Object, error)
	Put(ctx context.Context, in PutInput) (*PutResult, error)
}

// Lister enumerates keys under a prefix. Only backfills need it.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// contentTypeOrDetect keeps the given content type, sniffing the data when
// the store did not report one.
func contentTypeOrDetect(contentType string, data []byte) string {
	if contentType != "" {
		return contentType
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}

// escapeKey percent-encodes each path segment of an object key.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// pathStyleURL builds <base>/<bucket>/<key>.
func pathStyleURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}
