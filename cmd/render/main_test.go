package main

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/tendant/bucket-thumbnailer/internal/img"
)

func TestRenderWritesEveryVariant(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "beach.png")
	if err := imaging.Save(imaging.New(300, 600, color.White), input); err != nil {
		t.Fatalf("save input: %v", err)
	}

	spec := img.DefaultSpec()
	spec.Edges = []int{48, 400}

	files, err := render(context.Background(), input, filepath.Join(dir, "out"), spec)
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	small := files[0]
	if small.Path != filepath.Join(dir, "out", "beach_S48.png") || small.Width != 24 || small.Height != 48 {
		t.Fatalf("unexpected small variant: %+v", small)
	}
	// 400 exceeds the source height, so the source passes through.
	if files[1].Width != 300 || files[1].Height != 600 {
		t.Fatalf("unexpected large variant: %+v", files[1])
	}
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			t.Fatalf("missing output %s: %v", f.Path, err)
		}
	}
}

func TestRenderRejectsUnsupportedInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(input, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if _, err := render(context.Background(), input, dir, img.DefaultSpec()); err == nil {
		t.Fatal("expected error for unsupported input")
	}
}

func TestParseEdges(t *testing.T) {
	edges, err := parseEdges("64, 256,")
	if err != nil || len(edges) != 2 || edges[0] != 64 || edges[1] != 256 {
		t.Fatalf("unexpected result: %v %v", edges, err)
	}
	if _, err := parseEdges("64,x"); err == nil {
		t.Fatal("expected error for invalid edge")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512); got != "512 B" {
		t.Fatalf("formatBytes(512) = %s", got)
	}
	if got := formatBytes(1536); got != "1.5 KB" {
		t.Fatalf("formatBytes(1536) = %s", got)
	}
}
