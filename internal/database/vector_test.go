package database

import (
	"math"
	"testing"
)

func TestMeanVector(t *testing.T) {
	mean := MeanVector([][]float64{
		{1, 2, 3},
		{3, 2, 1},
	})
	want := []float64{2, 2, 2}
	for i := range want {
		if mean[i] != want[i] {
			t.Errorf("mean[%d] = %v, want %v", i, mean[i], want[i])
		}
	}
	if MeanVector(nil) != nil {
		t.Error("mean of nothing should be nil")
	}
}

func TestEuclideanDistance(t *testing.T) {
	d := EuclideanDistance([]float64{0, 0}, []float64{3, 4})
	if d != 5 {
		t.Errorf("distance = %v, want 5", d)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"length mismatch", []float32{1}, []float32{1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhotoVisible(t *testing.T) {
	ar := 1.5
	tests := []struct {
		name  string
		photo Photo
		want  bool
	}{
		{"complete", Photo{AspectRatio: &ar}, true},
		{"hidden", Photo{AspectRatio: &ar, Hidden: true}, false},
		{"deleted", Photo{AspectRatio: &ar, Deleted: true}, false},
		{"no thumbnails yet", Photo{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.photo.Visible(); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhotoFavorite(t *testing.T) {
	tests := []struct {
		name   string
		rating int
		min    float64
		want   bool
	}{
		{"above threshold", 5, 4, true},
		{"at threshold", 4, 4, true},
		{"below threshold", 3, 4, false},
		{"unrated", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Photo{Rating: tt.rating}
			if got := p.Favorite(tt.min); got != tt.want {
				t.Errorf("Favorite(%v) = %v, want %v", tt.min, got, tt.want)
			}
		})
	}
}
