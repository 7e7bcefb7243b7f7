package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/bucket-thumbnailer/internal/img"
	"github.com/tendant/bucket-thumbnailer/internal/storage"
	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

func record(bucket, key string) events.S3EventRecord {
	return events.S3EventRecord{
		EventName: "ObjectCreated:Put",
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: bucket},
			Object: events.S3Object{Key: key, Size: 1024},
		},
	}
}

func TestEventsFromS3DecodesKeys(t *testing.T) {
	evts, err := EventsFromS3(events.S3Event{Records: []events.S3EventRecord{
		record("photos", "dev/my+summer%282015%29.jpg"),
		record("photos", "dev/plain.png"),
	}})
	require.NoError(t, err)
	require.Len(t, evts, 2)

	assert.Equal(t, "photos", evts[0].Bucket)
	assert.Equal(t, "dev/my summer(2015).jpg", evts[0].Key)
	assert.Equal(t, "ObjectCreated:Put", evts[0].EventName)
	assert.EqualValues(t, 1024, evts[0].Size)
	assert.Equal(t, "dev/plain.png", evts[1].Key)
}

func TestEventsFromS3KeepsGoodRecords(t *testing.T) {
	evts, err := EventsFromS3(events.S3Event{Records: []events.S3EventRecord{
		record("photos", "dev/bad%zz.jpg"),
		record("photos", "dev/good.jpg"),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
	require.Len(t, evts, 1)
	assert.Equal(t, "dev/good.jpg", evts[0].Key)
}

func TestParseImagePath(t *testing.T) {
	cases := []struct {
		key    string
		prefix string
		ext    string
	}{
		{key: "dev/sunset.jpg", prefix: "dev/sunset", ext: ".jpg"},
		{key: "a.b/c.d.png", prefix: "a.b/c.d", ext: ".png"},
		{key: ".gif", prefix: "", ext: ".gif"},
	}
	for _, tc := range cases {
		p, err := ParseImagePath(tc.key)
		require.NoError(t, err, tc.key)
		assert.Equal(t, tc.prefix, p.Prefix, tc.key)
		assert.Equal(t, tc.ext, p.Extension, tc.key)
	}

	_, err := ParseImagePath("dev/noext")
	assert.ErrorIs(t, err, ErrNoExtension)
}

func TestVariantKey(t *testing.T) {
	p := ImagePath{Prefix: "dev/sunset", Extension: ".jpg"}
	assert.Equal(t, "dev/sunset_S48.jpg", p.VariantKey(48))
	assert.Equal(t, "dev/sunset_S960.jpg", p.VariantKey(960))
	assert.Equal(t, "dev/sunset_SXXX.jpg", p.Pattern())
}

func TestImageType(t *testing.T) {
	ext, ok := ImageType("dev/photo.jpeg")
	assert.True(t, ok)
	assert.Equal(t, "jpeg", ext)

	_, ok = ImageType("dev/photo")
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	transport := &storage.TransportError{Op: "put", Bucket: "b", Key: "k", Err: errors.New("reset")}
	cases := []struct {
		name string
		err  error
		want schema.FailureType
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: invalid(true, "unsupported"), want: schema.FailureTypeValidation},
		{name: "not found", err: &StageError{Stage: StageFetch, Err: fmt.Errorf("get: %w", storage.ErrNotFound)}, want: schema.FailureTypePermanent},
		{name: "transport", err: &StageError{Stage: StageUpload, Edge: 48, Err: transport}, want: schema.FailureTypeRetryable},
		{name: "decode", err: &StageError{Stage: StageDecode, Err: errors.New("bad data")}, want: schema.FailureTypePermanent},
		{name: "resize", err: &StageError{Stage: StageResize, Edge: 48, Err: &img.EdgeError{Edge: 48, Err: errors.New("encode")}}, want: schema.FailureTypePermanent},
		{name: "deadline", err: &StageError{Stage: StageFetch, Err: context.DeadlineExceeded}, want: schema.FailureTypeRetryable},
		{name: "notify", err: &StageError{Stage: StageNotify, Err: errors.New("queue down")}, want: schema.FailureTypeRetryable},
		{
			name: "joined permanent",
			err: errors.Join(
				&StageError{Stage: StageResize, Edge: 48, Err: errors.New("encode")},
				&StageError{Stage: StageResize, Edge: 100, Err: errors.New("encode")},
			),
			want: schema.FailureTypePermanent,
		},
		{
			name: "joined mixed",
			err: errors.Join(
				&StageError{Stage: StageResize, Edge: 48, Err: errors.New("encode")},
				&StageError{Stage: StageUpload, Edge: 100, Err: transport},
			),
			want: schema.FailureTypeRetryable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyError(tc.err))
		})
	}
}
