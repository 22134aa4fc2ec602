// Package faces covers the face identity subsystem: extraction of face
// boxes and encodings, clustering, and the classifier that propagates
// person labels to unlabelled faces.
package faces

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
	"github.com/kozaktomas/photo-library/internal/inference"
	"github.com/kozaktomas/photo-library/internal/thumbnails"
)

// boxTolerance is the fraction of the image dimension within which two
// boxes count as the same face.
const boxTolerance = 0.05

// Box is a face location in pixel coordinates of the big thumbnail, with
// the person label when tagging software stored one.
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int

	PersonName string
}

// regionBoxes converts normalised XMP face regions into pixel boxes,
// undoing the EXIF orientation the coordinates were written against.
func regionBoxes(info *exifmeta.RegionInfo, orientation, width, height int) []Box {
	var boxes []Box
	for _, region := range info.Regions {
		if region.Type != "Face" {
			continue
		}
		area := region.Area
		if area.Unit != "normalized" && info.AppliedToUnit != "pixel" {
			continue
		}
		if area.W <= 0 || area.H <= 0 {
			continue
		}

		x, y, w, h := area.X, area.Y, area.W, area.H
		switch orientation {
		case 2: // mirror horizontal
			x = 1 - x
		case 3: // rotate 180
			x = 1 - x
			y = 1 - y
		case 4: // mirror vertical
			y = 1 - y
		case 5, 6: // rotate 90 CW (5 additionally mirrored)
			x, y = 1-y, x
			w, h = h, w
		case 7, 8: // rotate 270 CW (7 additionally mirrored)
			x, y = y, 1-x
			w, h = h, w
		}

		halfWidth := w * float64(width) / 2
		halfHeight := h * float64(height) / 2
		boxes = append(boxes, Box{
			Top:        int(y*float64(height) - halfHeight),
			Right:      int(x*float64(width) + halfWidth),
			Bottom:     int(y*float64(height) + halfHeight),
			Left:       int(x*float64(width) - halfWidth),
			PersonName: region.Name,
		})
	}
	return boxes
}

// isDuplicate reports whether the box matches an already stored face
// within the tolerance on all four edges.
func isDuplicate(box Box, existing []database.Face, width, height int) bool {
	dx := boxTolerance * float64(width)
	dy := boxTolerance * float64(height)
	within := func(a, b int, d float64) bool {
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		return float64(diff) <= d
	}
	for _, f := range existing {
		if within(box.Top, f.Top, dy) &&
			within(box.Bottom, f.Bottom, dy) &&
			within(box.Left, f.Left, dx) &&
			within(box.Right, f.Right, dx) {
			return true
		}
	}
	return false
}

type faceStore interface {
	database.FaceStore
	database.PersonStore
	database.ClusterStore
}

// Extractor finds faces on photos and persists them.
type Extractor struct {
	store   faceStore
	client  *inference.FaceClient
	thumbs  *thumbnails.Engine
	faceDir string
	logger  *slog.Logger
}

// NewExtractor creates a face extractor. faceDir receives the cropped
// face images.
func NewExtractor(store faceStore, client *inference.FaceClient, thumbs *thumbnails.Engine, faceDir string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		store:   store,
		client:  client,
		thumbs:  thumbs,
		faceDir: faceDir,
		logger:  logger,
	}
}

// ExtractFaces detects faces on the photo's big thumbnail and stores one
// Face row per new box. Boxes come from tagged XMP regions when present,
// otherwise from the detector service. Returns the number of faces saved.
func (e *Extractor) ExtractFaces(ctx context.Context, user *database.User, photo *database.Photo, source *exifmeta.Source) (int, error) {
	bigThumb := e.thumbs.Path(thumbnails.DirBig, photo.ID, ".webp")
	width, height, err := e.thumbs.Dimensions(bigThumb)
	if err != nil {
		return 0, fmt.Errorf("read thumbnail dimensions: %w", err)
	}

	var boxes []Box
	if source != nil {
		if info, ok := source.GetRegionInfo(); ok {
			orientation, _ := source.GetInt(exifmeta.TagOrientation)
			boxes = regionBoxes(info, orientation, width, height)
		}
	}
	if len(boxes) == 0 {
		boxes, err = e.detect(ctx, user, bigThumb)
		if err != nil {
			return 0, err
		}
	}
	if len(boxes) == 0 {
		return 0, nil
	}

	locations := make([]inference.FaceLocation, len(boxes))
	for i, b := range boxes {
		locations[i] = inference.FaceLocation{b.Top, b.Right, b.Bottom, b.Left}
	}
	encodings, err := e.client.Encodings(ctx, bigThumb, locations)
	if err != nil {
		return 0, fmt.Errorf("encode faces: %w", err)
	}

	existing, err := e.store.ListFacesByPhoto(ctx, photo.ID)
	if err != nil {
		return 0, fmt.Errorf("list existing faces: %w", err)
	}

	unknownPerson, err := e.store.GetOrCreatePerson(ctx, user.ID, database.UnknownPersonName, database.PersonKindUnknown)
	if err != nil {
		return 0, fmt.Errorf("unknown person: %w", err)
	}
	unknownCluster, err := e.store.GetOrCreateUnknownCluster(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("unknown cluster: %w", err)
	}

	saved := 0
	for i, box := range boxes {
		if isDuplicate(box, existing, width, height) {
			continue
		}

		personID := unknownPerson.ID
		clusterID := &unknownCluster.ID
		if box.PersonName != "" {
			person, err := e.store.GetOrCreatePerson(ctx, user.ID, box.PersonName, database.PersonKindUser)
			if err != nil {
				return saved, fmt.Errorf("person %q: %w", box.PersonName, err)
			}
			personID = person.ID
			clusterID = nil
		}

		face := &database.Face{
			PhotoID:   photo.ID,
			OwnerID:   user.ID,
			Top:       box.Top,
			Right:     box.Right,
			Bottom:    box.Bottom,
			Left:      box.Left,
			Encoding:  encodings[i],
			PersonID:  personID,
			ClusterID: clusterID,
			ImagePath: fmt.Sprintf("%s_%d.jpg", photo.ID, i),
		}
		if err := e.createWithRetry(ctx, face); err != nil {
			e.logger.Warn("face not saved", "photo", photo.ID, "error", err)
			continue
		}
		if err := e.saveCrop(bigThumb, box, face.ImagePath); err != nil {
			e.logger.Warn("face crop not saved", "photo", photo.ID, "error", err)
		}
		saved++
	}
	return saved, nil
}

func (e *Extractor) detect(ctx context.Context, user *database.User, bigThumb string) ([]Box, error) {
	model := strings.ToLower(user.FaceRecognitionModel)
	if model == "" {
		model = inference.FaceModelHOG
	}
	locations, err := e.client.Locations(ctx, bigThumb, model)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	boxes := make([]Box, len(locations))
	for i, l := range locations {
		boxes[i] = Box{Top: l.Top(), Right: l.Right(), Bottom: l.Bottom(), Left: l.Left()}
	}
	return boxes, nil
}

// createWithRetry absorbs a concurrent insert of the same box: the first
// conflict is retried once, the second one abandons the face.
func (e *Extractor) createWithRetry(ctx context.Context, face *database.Face) error {
	err := e.store.CreateFace(ctx, face)
	if !errors.Is(err, database.ErrConflict) {
		return err
	}
	return e.store.CreateFace(ctx, face)
}

func (e *Extractor) saveCrop(bigThumb string, box Box, name string) error {
	f, err := os.Open(bigThumb)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode thumbnail: %w", err)
	}

	bounds := img.Bounds()
	rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom).Intersect(bounds)
	if rect.Empty() {
		return fmt.Errorf("face box %v outside image %v", box, bounds)
	}

	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return fmt.Errorf("image type %T does not support cropping", img)
	}

	if err := os.MkdirAll(e.faceDir, 0o755); err != nil {
		return fmt.Errorf("create face directory: %w", err)
	}
	out, err := os.Create(filepath.Join(e.faceDir, name))
	if err != nil {
		return fmt.Errorf("create face image: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, sub.SubImage(rect), nil); err != nil {
		return fmt.Errorf("encode face image: %w", err)
	}
	return nil
}
