// internal/img/thumb.go
package img

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// DefaultEdges are the target long-edge lengths, in pixels, of every variant.
var DefaultEdges = []int{48, 100, 144, 205, 320, 610, 960}

const (
	DefaultWorkingEdge = 1280
	DefaultJPEGQuality = 90
)

// ThumbnailSpec is the static resize policy of a run.
type ThumbnailSpec struct {
	Edges []int
	// WorkingEdge bounds the source before fan-out. Zero disables it.
	WorkingEdge int
	JPEGQuality int
}

func DefaultSpec() ThumbnailSpec {
	edges := make([]int, len(DefaultEdges))
	copy(edges, DefaultEdges)
	return ThumbnailSpec{
		Edges:       edges,
		WorkingEdge: DefaultWorkingEdge,
		JPEGQuality: DefaultJPEGQuality,
	}
}

func (s ThumbnailSpec) Validate() error {
	if len(s.Edges) == 0 {
		return fmt.Errorf("thumbnail spec has no edges")
	}
	seen := make(map[int]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		if e <= 0 {
			return fmt.Errorf("edge must be greater than zero (got %d)", e)
		}
		if _, dup := seen[e]; dup {
			return fmt.Errorf("duplicate edge %d", e)
		}
		seen[e] = struct{}{}
	}
	if s.WorkingEdge < 0 {
		return fmt.Errorf("working edge must not be negative (got %d)", s.WorkingEdge)
	}
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be within 1..100 (got %d)", s.JPEGQuality)
	}
	return nil
}

// Variant is one encoded resize of a source image.
type Variant struct {
	Edge         int
	Data         []byte
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
}

// EdgeError reports the branch a variant failure belongs to.
type EdgeError struct {
	Edge int
	Err  error
}

func (e *EdgeError) Error() string { return fmt.Sprintf("edge %d: %v", e.Edge, e.Err) }
func (e *EdgeError) Unwrap() error { return e.Err }

// MakeVariant resizes src so that its orientation long edge is at most edge
// and encodes it in the source format. Landscape sources are constrained by
// width, portrait and square ones by height. Smaller sources pass through at
// their own size.
//
// The returned dimensions are read back from the encoded buffer rather than
// taken from the resize call.
func MakeVariant(edge int, src *Decoded, landscape bool, spec ThumbnailSpec) (Variant, error) {
	if edge <= 0 {
		return Variant{}, &EdgeError{Edge: edge, Err: fmt.Errorf("invalid edge")}
	}

	resized := fitEdge(src.Image, edge, landscape)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, src.Format, imaging.JPEGQuality(spec.JPEGQuality)); err != nil {
		return Variant{}, &EdgeError{Edge: edge, Err: fmt.Errorf("encode: %w", err)}
	}

	w, h, err := measure(buf.Bytes())
	if err != nil {
		return Variant{}, &EdgeError{Edge: edge, Err: err}
	}

	return Variant{
		Edge:         edge,
		Data:         buf.Bytes(),
		Width:        w,
		Height:       h,
		SourceWidth:  src.Width,
		SourceHeight: src.Height,
	}, nil
}

func fitEdge(src image.Image, edge int, landscape bool) image.Image {
	b := src.Bounds()
	if landscape {
		if b.Dx() <= edge {
			return src
		}
		return imaging.Resize(src, edge, 0, imaging.Lanczos)
	}
	if b.Dy() <= edge {
		return src
	}
	return imaging.Resize(src, 0, edge, imaging.Lanczos)
}

func measure(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("measure: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
