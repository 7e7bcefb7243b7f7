package img

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Generator renders every edge of a ThumbnailSpec from one decoded source.
// Callers that upload each variant drive MakeVariant themselves; Generator is
// for callers that only need the buffers.
type Generator struct {
	spec ThumbnailSpec
}

func NewGenerator(spec ThumbnailSpec) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Generator{spec: spec}, nil
}

func (g *Generator) Spec() ThumbnailSpec { return g.spec }

// Generate runs one branch per edge concurrently and waits for all of them.
// A failing branch does not stop its siblings; every failure is returned,
// joined, as *EdgeError values.
func (g *Generator) Generate(ctx context.Context, src *Decoded) (map[int]Variant, error) {
	working := src.Downsample(g.spec.WorkingEdge)
	landscape := src.IsLandscape()

	var (
		mu       sync.Mutex
		variants = make(map[int]Variant, len(g.spec.Edges))
		errs     = make([]error, len(g.spec.Edges))
		group    errgroup.Group
	)

	for i, edge := range g.spec.Edges {
		i, edge := i, edge
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = &EdgeError{Edge: edge, Err: err}
				return errs[i]
			}
			v, err := MakeVariant(edge, working, landscape, g.spec)
			if err != nil {
				errs[i] = err
				return err
			}
			mu.Lock()
			variants[edge] = v
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return variants, errors.Join(errs...)
	}
	return variants, nil
}
