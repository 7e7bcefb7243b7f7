package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// supportedFormats maps the recognized key extensions to their encoder.
var supportedFormats = map[string]imaging.Format{
	"jpg":  imaging.JPEG,
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
}

// SupportedExtensions returns the extensions (without dot) that are thumbnailed.
func SupportedExtensions() []string {
	return []string{"jpg", "jpeg", "png", "gif"}
}

// FormatForExtension resolves an extension, with or without a leading dot,
// to the format variants are encoded in. Only the lowercase spellings match;
// "JPG" is not an image extension.
func FormatForExtension(ext string) (imaging.Format, error) {
	f, ok := supportedFormats[strings.TrimPrefix(ext, ".")]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Decoded is an orientation-corrected source image. It is owned by one run
// and treated as read-only once returned, so variant branches may share it.
type Decoded struct {
	Image       image.Image
	Format      imaging.Format
	Width       int
	Height      int
	SourceBytes int
}

// IsLandscape reports whether the corrected image is wider than tall.
func (d *Decoded) IsLandscape() bool { return d.Width > d.Height }

// LongEdge returns the larger of width and height.
func (d *Decoded) LongEdge() int {
	if d.Width > d.Height {
		return d.Width
	}
	return d.Height
}

// Decode reads raw image bytes and applies the EXIF orientation before
// reading the natural size.
func Decode(data []byte, format imaging.Format) (*Decoded, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode: empty image %dx%d", b.Dx(), b.Dy())
	}

	return &Decoded{
		Image:       src,
		Format:      format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		SourceBytes: len(data),
	}, nil
}

// Downsample bounds the long edge to maxEdge. The receiver is returned
// unchanged when it already fits or maxEdge is not positive.
func (d *Decoded) Downsample(maxEdge int) *Decoded {
	if maxEdge <= 0 || d.LongEdge() <= maxEdge {
		return d
	}

	small := imaging.Fit(d.Image, maxEdge, maxEdge, imaging.Lanczos)
	b := small.Bounds()
	return &Decoded{
		Image:       small,
		Format:      d.Format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		SourceBytes: d.SourceBytes,
	}
}
