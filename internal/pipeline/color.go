package pipeline

import (
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"github.com/kozaktomas/photo-library/internal/database"
)

const paletteSize = 16

// stepDominantColor reduces the small thumbnail to a 16-color palette and
// stores the most frequent entry. A photo that already has a color keeps
// it, so rescans stay cheap.
func (p *Pipeline) stepDominantColor(photo *database.Photo) error {
	if photo.DominantColor != "" {
		return nil
	}
	path := photo.ThumbnailSquareSmall
	if path == "" {
		path = photo.ThumbnailBig
	}
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	r, g, b := dominantColor(img)
	photo.DominantColor = fmt.Sprintf("(%d, %d, %d)", r, g, b)
	return nil
}

type rgb struct{ r, g, b uint8 }

// dominantColor builds a 16-entry adaptive palette with median cut, maps
// every pixel to its nearest palette color and returns the most frequent
// one.
func dominantColor(img image.Image) (uint8, uint8, uint8) {
	bounds := img.Bounds()
	pixels := make([]rgb, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, rgb{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
		}
	}
	if len(pixels) == 0 {
		return 0, 0, 0
	}

	boxes := [][]rgb{pixels}
	for len(boxes) < paletteSize {
		// Split the largest box along its widest channel.
		idx := 0
		for i := range boxes {
			if len(boxes[i]) > len(boxes[idx]) {
				idx = i
			}
		}
		box := boxes[idx]
		if len(box) < 2 {
			break
		}
		sortByWidestChannel(box)
		mid := len(box) / 2
		boxes[idx] = box[:mid]
		boxes = append(boxes, box[mid:])
	}

	var palette []rgb
	for _, box := range boxes {
		var sumR, sumG, sumB int
		for _, px := range box {
			sumR += int(px.r)
			sumG += int(px.g)
			sumB += int(px.b)
		}
		n := len(box)
		entry := rgb{uint8(sumR / n), uint8(sumG / n), uint8(sumB / n)}
		duplicate := false
		for _, existing := range palette {
			if existing == entry {
				duplicate = true
				break
			}
		}
		if !duplicate {
			palette = append(palette, entry)
		}
	}

	counts := make([]int, len(palette))
	for _, px := range pixels {
		counts[nearest(palette, px)]++
	}
	best := 0
	for i := range counts {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return palette[best].r, palette[best].g, palette[best].b
}

func nearest(palette []rgb, px rgb) int {
	best, bestDist := 0, math.MaxInt
	for i, entry := range palette {
		dr := int(entry.r) - int(px.r)
		dg := int(entry.g) - int(px.g)
		db := int(entry.b) - int(px.b)
		dist := dr*dr + dg*dg + db*db
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func sortByWidestChannel(box []rgb) {
	var minC, maxC rgb
	minC = rgb{255, 255, 255}
	for _, px := range box {
		minC.r, maxC.r = min(minC.r, px.r), max(maxC.r, px.r)
		minC.g, maxC.g = min(minC.g, px.g), max(maxC.g, px.g)
		minC.b, maxC.b = min(minC.b, px.b), max(maxC.b, px.b)
	}
	spanR := maxC.r - minC.r
	spanG := maxC.g - minC.g
	spanB := maxC.b - minC.b

	switch {
	case spanG >= spanR && spanG >= spanB:
		sort.Slice(box, func(i, j int) bool { return box[i].g < box[j].g })
	case spanR >= spanB:
		sort.Slice(box, func(i, j int) bool { return box[i].r < box[j].r })
	default:
		sort.Slice(box, func(i, j int) bool { return box[i].b < box[j].b })
	}
}
