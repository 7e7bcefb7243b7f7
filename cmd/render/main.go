// cmd/render writes every thumbnail variant of a local image into a
// directory, without any bucket or queue.
//
// Usage:
//   ./render -input photo.jpg -output ./thumbs
//   ./render -input photo.png -output ./thumbs -edges 64,256 -working-edge 0
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/bucket-thumbnailer/internal/img"
	"github.com/tendant/bucket-thumbnailer/internal/pipeline"
)

type rendered struct {
	Path   string
	Edge   int
	Width  int
	Height int
	Size   int64
}

func main() {
	input := flag.String("input", "", "Input image path (required)")
	output := flag.String("output", "", "Output directory (default: directory of input)")
	edges := flag.String("edges", "", "Comma separated target edges (default: 48,100,144,205,320,610,960)")
	workingEdge := flag.Int("working-edge", img.DefaultWorkingEdge, "Downsample bound before resizing (0 = off)")
	quality := flag.Int("quality", img.DefaultJPEGQuality, "JPEG quality")
	timeout := flag.Int("timeout", 30, "Render timeout in seconds")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	if *input == "" {
		fmt.Println("Error: -input flag is required")
		flag.Usage()
		os.Exit(1)
	}
	if *output == "" {
		*output = filepath.Dir(*input)
	}

	spec := img.DefaultSpec()
	spec.WorkingEdge = *workingEdge
	spec.JPEGQuality = *quality
	if *edges != "" {
		parsed, err := parseEdges(*edges)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		spec.Edges = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	start := time.Now()
	files, err := render(ctx, *input, *output, spec)
	if err != nil {
		log.Fatalf("❌ Render failed: %v", err)
	}
	duration := time.Since(start)

	fmt.Printf("\n✅ Rendered %d variants in %v\n", len(files), duration.Round(time.Millisecond))
	fmt.Println(strings.Repeat("-", 40))
	for _, f := range files {
		fmt.Printf("S%-4d %4dx%-4d %10s  %s\n", f.Edge, f.Width, f.Height, formatBytes(f.Size), f.Path)
	}

	if *verbose {
		inputInfo, err := os.Stat(*input)
		if err == nil {
			fmt.Printf("\n📊 Input file: %s (%s)\n", *input, formatBytes(inputInfo.Size()))
		}
	}
	fmt.Println()
}

// render names outputs exactly as the pipeline names variant keys.
func render(ctx context.Context, input, outDir string, spec img.ThumbnailSpec) ([]rendered, error) {
	base := filepath.Base(input)
	ext, ok := pipeline.ImageType(base)
	if !ok {
		return nil, fmt.Errorf("unable to infer image type for %s", base)
	}
	format, err := img.FormatForExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nSupported extensions: %s", err, strings.Join(img.SupportedExtensions(), ", "))
	}
	path, err := pipeline.ParseImagePath(base)
	if err != nil {
		return nil, err
	}

	gen, err := img.NewGenerator(spec)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	src, err := img.Decode(data, format)
	if err != nil {
		return nil, err
	}

	variants, err := gen.Generate(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	out := make([]rendered, 0, len(variants))
	for edge, v := range variants {
		dst := filepath.Join(outDir, path.VariantKey(edge))
		if err := os.WriteFile(dst, v.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", dst, err)
		}
		out = append(out, rendered{Path: dst, Edge: edge, Width: v.Width, Height: v.Height, Size: int64(len(v.Data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Edge < out[j].Edge })
	return out, nil
}

func parseEdges(s string) ([]int, error) {
	var edges []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e, err := strconv.Atoi(part)
		if err != nil || e <= 0 {
			return nil, fmt.Errorf("invalid edge '%s'", part)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// formatBytes formats bytes into human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
