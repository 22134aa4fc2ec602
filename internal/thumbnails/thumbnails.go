// Package thumbnails renders the derived images and clips every photo
// needs: a big webp, two smaller webps, and for videos a poster frame
// plus a short preview clip.
package thumbnails

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Thumbnail directories under the media root, and their target heights.
const (
	DirBig         = "thumbnails_big"
	DirSquare      = "square_thumbnails"
	DirSquareSmall = "square_thumbnails_small"

	HeightBig         = 1080
	HeightSquare      = 500
	HeightSquareSmall = 250
)

// Engine renders thumbnails below a single media root directory.
type Engine struct {
	root   string
	logger *slog.Logger
}

// New creates a thumbnail engine rooted at the media directory.
func New(root string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{root: root, logger: logger}
}

// Path returns the location of a thumbnail with the given extension.
func (e *Engine) Path(dir, hash, ext string) string {
	return filepath.Join(e.root, dir, hash+ext)
}

// Exists reports whether the thumbnail has already been rendered.
// Thumbnail generation is idempotent; existing files are never redone.
func (e *Engine) Exists(dir, hash, ext string) bool {
	_, err := os.Stat(e.Path(dir, hash, ext))
	return err == nil
}

// Probe verifies that the file decodes as an image.
func (e *Engine) Probe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Dimensions reads the pixel size of an image without decoding it fully.
func (e *Engine) Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// CreateThumbnail scales the input down to the target height and writes a
// webp into dir. Images already smaller than the target are re-encoded
// without upscaling. Returns the output path.
func (e *Engine) CreateThumbnail(inputPath string, outputHeight int, dir, hash string) (string, error) {
	outPath := e.Path(dir, hash, ".webp")
	if e.Exists(dir, hash, ".webp") {
		return outPath, nil
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", inputPath, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", inputPath, err)
	}

	scaled := scaleToHeight(img, outputHeight)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := nativewebp.Encode(out, scaled, nil); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("encode webp: %w", err)
	}
	return outPath, nil
}

// scaleToHeight shrinks img so its height matches target, preserving the
// aspect ratio. Smaller images pass through untouched.
func scaleToHeight(img image.Image, target int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy()
	if height <= target {
		return img
	}
	width := bounds.Dx() * target / height
	if width < 1 {
		width = 1
	}
	resized := image.NewRGBA(image.Rect(0, 0, width, target))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
