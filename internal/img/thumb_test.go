package img

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestMakeVariantLandscapeConstrainsWidth(t *testing.T) {
	src := decodeTestImage(t, 400, 200, imaging.PNG)

	v, err := MakeVariant(100, src, src.IsLandscape(), DefaultSpec())
	if err != nil {
		t.Fatalf("MakeVariant returned error: %v", err)
	}

	if v.Width != 100 || v.Height != 50 {
		t.Fatalf("unexpected variant size: got %dx%d, want 100x50", v.Width, v.Height)
	}
	if v.SourceWidth != 400 || v.SourceHeight != 200 {
		t.Fatalf("unexpected source size: %dx%d", v.SourceWidth, v.SourceHeight)
	}
	if len(v.Data) == 0 {
		t.Fatal("variant buffer is empty")
	}
}

func TestMakeVariantPortraitConstrainsHeight(t *testing.T) {
	src := decodeTestImage(t, 200, 400, imaging.PNG)
	if src.IsLandscape() {
		t.Fatal("portrait source reported as landscape")
	}

	v, err := MakeVariant(100, src, src.IsLandscape(), DefaultSpec())
	if err != nil {
		t.Fatalf("MakeVariant returned error: %v", err)
	}

	if v.Width != 50 || v.Height != 100 {
		t.Fatalf("unexpected variant size: got %dx%d, want 50x100", v.Width, v.Height)
	}
}

func TestMakeVariantSquareConstrainsHeight(t *testing.T) {
	src := decodeTestImage(t, 300, 300, imaging.JPEG)

	v, err := MakeVariant(144, src, src.IsLandscape(), DefaultSpec())
	if err != nil {
		t.Fatalf("MakeVariant returned error: %v", err)
	}

	if v.Width != 144 || v.Height != 144 {
		t.Fatalf("unexpected variant size: got %dx%d, want 144x144", v.Width, v.Height)
	}
}

func TestMakeVariantNeverUpscales(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		edge   int
		wantW  int
		wantH  int
		format imaging.Format
	}{
		{"landscape smaller than edge", 80, 40, 144, 80, 40, imaging.PNG},
		{"portrait smaller than edge", 40, 80, 960, 40, 80, imaging.JPEG},
		{"landscape equal to edge", 100, 60, 100, 100, 60, imaging.GIF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := decodeTestImage(t, tt.w, tt.h, tt.format)
			v, err := MakeVariant(tt.edge, src, src.IsLandscape(), DefaultSpec())
			if err != nil {
				t.Fatalf("MakeVariant returned error: %v", err)
			}
			if v.Width != tt.wantW || v.Height != tt.wantH {
				t.Fatalf("got %dx%d, want %dx%d", v.Width, v.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestMakeVariantKeepsSourceFormat(t *testing.T) {
	src := decodeTestImage(t, 400, 200, imaging.GIF)

	v, err := MakeVariant(48, src, true, DefaultSpec())
	if err != nil {
		t.Fatalf("MakeVariant returned error: %v", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(v.Data))
	if err != nil {
		t.Fatalf("decode variant: %v", err)
	}
	if format != "gif" {
		t.Fatalf("expected gif output, got %s", format)
	}
}

func TestMakeVariantRejectsInvalidEdge(t *testing.T) {
	src := decodeTestImage(t, 10, 10, imaging.PNG)

	_, err := MakeVariant(0, src, false, DefaultSpec())
	var edgeErr *EdgeError
	if !errors.As(err, &edgeErr) {
		t.Fatalf("expected EdgeError, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image"), imaging.JPEG); err == nil {
		t.Fatal("expected decode error for garbage input")
	}
}

func TestDownsampleBoundsLongEdge(t *testing.T) {
	src := decodeTestImage(t, 2000, 1000, imaging.PNG)

	small := src.Downsample(1280)
	if small.Width != 1280 || small.Height != 640 {
		t.Fatalf("unexpected working size: %dx%d", small.Width, small.Height)
	}
	if small.SourceBytes != src.SourceBytes {
		t.Fatal("downsample should keep source byte count")
	}

	if same := small.Downsample(1280); same != small {
		t.Fatal("image within bound should be returned unchanged")
	}
	if same := src.Downsample(0); same != src {
		t.Fatal("zero working edge should disable downsampling")
	}
}

func TestFormatForExtension(t *testing.T) {
	tests := []struct {
		ext     string
		want    imaging.Format
		wantErr bool
	}{
		{".jpg", imaging.JPEG, false},
		{"jpeg", imaging.JPEG, false},
		{".png", imaging.PNG, false},
		{".PNG", 0, true},
		{"JPG", 0, true},
		{"gif", imaging.GIF, false},
		{".tiff", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := FormatForExtension(tt.ext)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FormatForExtension(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestSpecValidate(t *testing.T) {
	if err := DefaultSpec().Validate(); err != nil {
		t.Fatalf("default spec invalid: %v", err)
	}

	bad := []ThumbnailSpec{
		{Edges: nil, JPEGQuality: 90},
		{Edges: []int{48, 0}, JPEGQuality: 90},
		{Edges: []int{48, 48}, JPEGQuality: 90},
		{Edges: []int{48}, WorkingEdge: -1, JPEGQuality: 90},
		{Edges: []int{48}, JPEGQuality: 0},
	}
	for i, spec := range bad {
		if err := spec.Validate(); err == nil {
			t.Errorf("spec %d: expected validation error", i)
		}
	}
}

// encodeTestImage returns a solid w x h image encoded in format.
func encodeTestImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeTestImage(t *testing.T, w, h int, format imaging.Format) *Decoded {
	t.Helper()

	src, err := Decode(encodeTestImage(t, w, h, format), format)
	if err != nil {
		t.Fatalf("decode test image: %v", err)
	}
	return src
}

// withOrientation splices a big-endian Exif APP1 segment carrying only the
// orientation tag right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpeg []byte, orientation byte) []byte {
	t.Helper()
	if len(jpeg) < 2 || jpeg[0] != 0xff || jpeg[1] != 0xd8 {
		t.Fatal("not a JPEG stream")
	}

	app1 := []byte{
		0xff, 0xe1, 0x00, 0x22, // APP1, length 34
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08, // TIFF header, IFD0 at 8
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}

	out := make([]byte, 0, len(jpeg)+len(app1))
	out = append(out, jpeg[:2]...)
	out = append(out, app1...)
	return append(out, jpeg[2:]...)
}

func TestDecodeAppliesExifOrientation(t *testing.T) {
	data := withOrientation(t, encodeTestImage(t, 400, 200, imaging.JPEG), 6)

	src, err := Decode(data, imaging.JPEG)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if src.Width != 200 || src.Height != 400 {
		t.Fatalf("unexpected corrected size: got %dx%d, want 200x400", src.Width, src.Height)
	}
	if src.IsLandscape() {
		t.Fatal("rotated source reported as landscape")
	}

	v, err := MakeVariant(100, src, src.IsLandscape(), DefaultSpec())
	if err != nil {
		t.Fatalf("MakeVariant returned error: %v", err)
	}
	if v.Width != 50 || v.Height != 100 {
		t.Fatalf("unexpected variant size: got %dx%d, want 50x100", v.Width, v.Height)
	}
}
