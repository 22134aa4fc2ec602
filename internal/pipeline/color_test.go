package pipeline

import (
	"image"
	"image/color"
	"testing"
)

func TestDominantColorPicksMostFrequent(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{220, 10, 10, 255}
	blue := color.RGBA{10, 10, 220, 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if y < 7 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}

	r, g, b := dominantColor(img)
	if r != 220 || g != 10 || b != 10 {
		t.Errorf("dominant color = (%d, %d, %d), want (220, 10, 10)", r, g, b)
	}
}

func TestDominantColorUniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{40, 80, 120, 255})
		}
	}
	r, g, b := dominantColor(img)
	if r != 40 || g != 80 || b != 120 {
		t.Errorf("dominant color = (%d, %d, %d), want (40, 80, 120)", r, g, b)
	}
}
