package thumbnails

import (
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestCreateThumbnailScalesDown(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writeTestImage(t, src, 400, 800)

	e := New(dir, slog.Default())
	out, err := e.CreateThumbnail(src, 200, DirBig, "abc123")
	if err != nil {
		t.Fatalf("CreateThumbnail() error = %v", err)
	}

	w, h, err := e.Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if h != 200 || w != 100 {
		t.Errorf("thumbnail = %dx%d, want 100x200", w, h)
	}
}

func TestCreateThumbnailNeverUpscales(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	writeTestImage(t, src, 60, 40)

	e := New(dir, slog.Default())
	out, err := e.CreateThumbnail(src, 1080, DirBig, "small1")
	if err != nil {
		t.Fatalf("CreateThumbnail() error = %v", err)
	}
	w, h, err := e.Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 60 || h != 40 {
		t.Errorf("small image should keep its size, got %dx%d", w, h)
	}
}

func TestCreateThumbnailIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writeTestImage(t, src, 100, 100)

	e := New(dir, slog.Default())
	first, err := e.CreateThumbnail(src, 50, DirSquare, "samehash")
	if err != nil {
		t.Fatal(err)
	}
	stat1, err := os.Stat(first)
	if err != nil {
		t.Fatal(err)
	}

	second, err := e.CreateThumbnail(src, 50, DirSquare, "samehash")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("paths differ: %s vs %s", first, second)
	}
	stat2, err := os.Stat(second)
	if err != nil {
		t.Fatal(err)
	}
	if !stat1.ModTime().Equal(stat2.ModTime()) {
		t.Error("existing thumbnail must not be rewritten")
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good, 10, 10)
	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(dir, slog.Default())
	if err := e.Probe(good); err != nil {
		t.Errorf("Probe(good) error = %v", err)
	}
	if err := e.Probe(bad); err == nil {
		t.Error("Probe(bad) should fail")
	}
}
