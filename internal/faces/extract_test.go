package faces

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
	"github.com/kozaktomas/photo-library/internal/inference"
	"github.com/kozaktomas/photo-library/internal/thumbnails"
)

func TestRegionBoxes(t *testing.T) {
	info := func(x, y, w, h float64) *exifmeta.RegionInfo {
		return &exifmeta.RegionInfo{
			Regions: []exifmeta.Region{
				{Type: "Face", Name: "Alice", Area: exifmeta.RegionArea{X: x, Y: y, W: w, H: h, Unit: "normalized"}},
			},
		}
	}

	tests := []struct {
		name        string
		orientation int
		want        Box
	}{
		{"normal", 1, Box{Top: 75, Right: 300, Bottom: 175, Left: 200, PersonName: "Alice"}},
		{"rotate 180", 3, Box{Top: 325, Right: 800, Bottom: 425, Left: 700, PersonName: "Alice"}},
		{"rotate 90 cw", 6, Box{Top: 100, Right: 850, Bottom: 150, Left: 650, PersonName: "Alice"}},
		{"rotate 270 cw", 8, Box{Top: 350, Right: 350, Bottom: 400, Left: 150, PersonName: "Alice"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			boxes := regionBoxes(info(0.25, 0.25, 0.1, 0.2), tc.orientation, 1000, 500)
			if len(boxes) != 1 {
				t.Fatalf("got %d boxes, want 1", len(boxes))
			}
			if boxes[0] != tc.want {
				t.Errorf("box = %+v, want %+v", boxes[0], tc.want)
			}
		})
	}
}

func TestRegionBoxesSkipsNonFaceRegions(t *testing.T) {
	info := &exifmeta.RegionInfo{
		Regions: []exifmeta.Region{
			{Type: "Pet", Name: "Rex", Area: exifmeta.RegionArea{X: 0.5, Y: 0.5, W: 0.2, H: 0.2, Unit: "normalized"}},
			{Type: "Face", Area: exifmeta.RegionArea{X: 0.5, Y: 0.5, W: 0.2, H: 0.2, Unit: "inches"}},
		},
	}
	if boxes := regionBoxes(info, 1, 100, 100); len(boxes) != 0 {
		t.Errorf("got %d boxes, want 0", len(boxes))
	}
}

func TestIsDuplicate(t *testing.T) {
	existing := []database.Face{{Top: 100, Right: 300, Bottom: 200, Left: 200}}

	// 5% of 1000 wide / 500 high gives 50 px horizontal, 25 px vertical.
	if !isDuplicate(Box{Top: 110, Right: 320, Bottom: 210, Left: 190}, existing, 1000, 500) {
		t.Error("box within tolerance not recognised as duplicate")
	}
	if isDuplicate(Box{Top: 200, Right: 300, Bottom: 300, Left: 200}, existing, 1000, 500) {
		t.Error("shifted box wrongly treated as duplicate")
	}
}

// writeBigThumb drops an image at the path the extractor derives for the
// photo hash. The webp extension is only a naming convention; decoding
// sniffs the actual format.
func writeBigThumb(t *testing.T, root, hash string, width, height int) {
	t.Helper()
	dir := filepath.Join(root, thumbnails.DirBig)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 30, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, hash+".webp"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func faceService(t *testing.T, locations [][4]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/face-locations":
			json.NewEncoder(w).Encode(map[string]any{"face_locations": locations})
		case "/face-encodings":
			var req struct {
				FaceLocations [][4]int `json:"face_locations"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad encodings request: %v", err)
			}
			encodings := make([][]float64, len(req.FaceLocations))
			for i := range encodings {
				encodings[i] = []float64{float64(i), 0.5, 0.5}
			}
			json.NewEncoder(w).Encode(map[string]any{"encodings": encodings})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func regionSource(regions ...map[string]any) *exifmeta.Source {
	list := make([]any, len(regions))
	for i, r := range regions {
		list[i] = r
	}
	return exifmeta.NewSource(map[string]any{
		exifmeta.TagRegionInfo: map[string]any{
			"AppliedToDimensions": map[string]any{"W": 200.0, "H": 100.0, "Unit": "pixel"},
			"RegionList":          list,
		},
	})
}

func TestExtractFacesFromTaggedRegions(t *testing.T) {
	srv := faceService(t, nil)
	defer srv.Close()

	root := t.TempDir()
	writeBigThumb(t, root, "abc123", 200, 100)

	store := mock.NewStore()
	extractor := NewExtractor(store, inference.NewFaceClient(srv.URL), thumbnails.New(root, slog.Default()), filepath.Join(root, "faces"), slog.Default())

	user := &database.User{ID: 1}
	photo := &database.Photo{ID: "abc123", OwnerID: 1}
	source := regionSource(
		map[string]any{
			"Type": "Face", "Name": "Alice",
			"Area": map[string]any{"X": 0.25, "Y": 0.5, "W": 0.2, "H": 0.4, "Unit": "normalized"},
		},
		map[string]any{
			"Type": "Face",
			"Area": map[string]any{"X": 0.75, "Y": 0.5, "W": 0.2, "H": 0.4, "Unit": "normalized"},
		},
	)

	saved, err := extractor.ExtractFaces(context.Background(), user, photo, source)
	if err != nil {
		t.Fatalf("ExtractFaces() error = %v", err)
	}
	if saved != 2 {
		t.Fatalf("saved = %d, want 2", saved)
	}

	stored, err := store.ListFacesByPhoto(context.Background(), "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d faces, want 2", len(stored))
	}

	alice, err := store.GetOrCreatePerson(context.Background(), 1, "Alice", database.PersonKindUser)
	if err != nil {
		t.Fatal(err)
	}
	if alice.Kind != database.PersonKindUser {
		t.Errorf("Alice kind = %s, want USER", alice.Kind)
	}

	var aliceFaces, unknownFaces int
	for _, f := range stored {
		if f.PersonID == alice.ID {
			aliceFaces++
			if f.ClusterID != nil {
				t.Error("named face must not start in the unknown cluster")
			}
		} else {
			unknownFaces++
			if f.ClusterID == nil {
				t.Error("unnamed face must start in the unknown cluster")
			}
		}
		if len(f.Encoding) == 0 {
			t.Error("face stored without encoding")
		}
	}
	if aliceFaces != 1 || unknownFaces != 1 {
		t.Errorf("faces by person = %d named / %d unknown, want 1/1", aliceFaces, unknownFaces)
	}
}

func TestExtractFacesDetectorFallback(t *testing.T) {
	srv := faceService(t, [][4]int{{10, 60, 50, 20}})
	defer srv.Close()

	root := t.TempDir()
	writeBigThumb(t, root, "noexif", 200, 100)

	store := mock.NewStore()
	extractor := NewExtractor(store, inference.NewFaceClient(srv.URL), thumbnails.New(root, slog.Default()), filepath.Join(root, "faces"), slog.Default())

	user := &database.User{ID: 1, FaceRecognitionModel: "HOG"}
	photo := &database.Photo{ID: "noexif", OwnerID: 1}

	saved, err := extractor.ExtractFaces(context.Background(), user, photo, nil)
	if err != nil {
		t.Fatalf("ExtractFaces() error = %v", err)
	}
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}

	stored, _ := store.ListFacesByPhoto(context.Background(), "noexif")
	if stored[0].Top != 10 || stored[0].Right != 60 || stored[0].Bottom != 50 || stored[0].Left != 20 {
		t.Errorf("detector box not preserved: %+v", stored[0])
	}
}

func TestExtractFacesSkipsKnownBoxes(t *testing.T) {
	srv := faceService(t, [][4]int{{10, 60, 50, 20}})
	defer srv.Close()

	root := t.TempDir()
	writeBigThumb(t, root, "again", 200, 100)

	store := mock.NewStore()
	extractor := NewExtractor(store, inference.NewFaceClient(srv.URL), thumbnails.New(root, slog.Default()), filepath.Join(root, "faces"), slog.Default())

	user := &database.User{ID: 1}
	photo := &database.Photo{ID: "again", OwnerID: 1}

	if _, err := extractor.ExtractFaces(context.Background(), user, photo, nil); err != nil {
		t.Fatal(err)
	}
	saved, err := extractor.ExtractFaces(context.Background(), user, photo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if saved != 0 {
		t.Errorf("rescan saved %d faces, want 0", saved)
	}
}
