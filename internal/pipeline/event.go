// Package pipeline turns object-created events into thumbnail variants and a
// completion message.
package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// SourceEvent identifies the object a run thumbnails. Key is already
// percent-decoded.
type SourceEvent struct {
	Bucket    string
	Key       string
	EventName string
	EventTime time.Time
	Size      int64
}

// EventFromRecord decodes the object key of one notification record. Keys
// arrive query-escaped, with '+' standing for a space.
func EventFromRecord(rec events.S3EventRecord) (SourceEvent, error) {
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		return SourceEvent{}, fmt.Errorf("decode key %q: %w", rec.S3.Object.Key, err)
	}
	return SourceEvent{
		Bucket:    rec.S3.Bucket.Name,
		Key:       key,
		EventName: rec.EventName,
		EventTime: rec.EventTime,
		Size:      rec.S3.Object.Size,
	}, nil
}

// EventsFromS3 converts every record of evt. Records whose key cannot be
// decoded are left out and reported in the joined error.
func EventsFromS3(evt events.S3Event) ([]SourceEvent, error) {
	out := make([]SourceEvent, 0, len(evt.Records))
	var errs []error
	for i, rec := range evt.Records {
		se, err := EventFromRecord(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, se)
	}
	return out, errors.Join(errs...)
}

var ErrNoExtension = errors.New("key has no extension")

// ImageType returns the text after the final dot of key.
func ImageType(key string) (string, bool) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return "", false
	}
	return key[i+1:], true
}

// ImagePath is an object key split at its final dot. Extension keeps the dot.
type ImagePath struct {
	Prefix    string
	Extension string
}

func ParseImagePath(key string) (ImagePath, error) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return ImagePath{}, fmt.Errorf("%w: %q", ErrNoExtension, key)
	}
	return ImagePath{Prefix: key[:i], Extension: key[i:]}, nil
}

// VariantKey names the variant of edge: prefix_S<edge>extension.
func (p ImagePath) VariantKey(edge int) string {
	return p.Prefix + "_S" + strconv.Itoa(edge) + p.Extension
}

// Pattern is the variant key with the edge left as XXX, for logs.
func (p ImagePath) Pattern() string {
	return p.Prefix + "_SXXX" + p.Extension
}
